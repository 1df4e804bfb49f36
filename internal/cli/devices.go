// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/hwc/backend"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/drm"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Probe the DRM devices and the backend each would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		devs, err := display.OpenDevices(cfg.Device, drm.Open)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		m := backend.NewManager().RegisterDefaults()
		var errs []error
		for i, dev := range devs {
			driver, err := dev.DriverName()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", dev.Path(), err))
			} else if b, err := m.ForDisplay(i, driver, cfg.BackendOverride); err != nil {
				errs = append(errs, err)
			} else {
				fmt.Fprintf(out, "%-20s %-16s %s\n", dev.Path(), driver, b.Name())
			}
			errs = append(errs, dev.Close())
		}
		return errors.Join(errs...)
	},
}
