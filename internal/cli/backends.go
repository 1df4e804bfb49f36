// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/hwc/backend"
)

var backendsCmd = &cobra.Command{
	Use:   "backends [driver...]",
	Short: "List backends, or show the backend each driver gets",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		m := backend.NewManager().RegisterDefaults()
		if len(args) == 0 {
			printHeader(out, "Backends:")
			for _, name := range m.Available() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		for i, driver := range args {
			b, err := m.ForDisplay(i, driver, cfg.BackendOverride)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-16s %s\n", driver, b.Name())
		}
		return nil
	},
}
