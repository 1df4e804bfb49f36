// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cli implements the hwcsim commands.
package cli

import (
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:     "hwcsim",
	Version: hwc.Version,
	Short:   "Hardware composition planning simulator",
	Long: `hwcsim validates and presents frames on simulated displays and reports
which layers went to hardware planes and which the client had to compose.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
		if verbose {
			hwc.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log composer decisions to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd, backendsCmd, devicesCmd, checkCmd)
}
