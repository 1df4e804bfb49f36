// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/hwc/config"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s: %d displays", args[0], len(cfg.Displays)))
		return nil
	},
}
