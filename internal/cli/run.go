// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/gogpu/hwc/backend"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/internal/planviz"
)

var (
	runFrames   int
	runBackend  string
	runPNGDir   string
	runSpew     bool
	runPNGWidth int
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured scenario",
	Long: `Build the displays the configuration describes on simulated devices, run
frames through validate and present, and report the plan of every frame
followed by the statistics of every display.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runBackend != "" {
			cfg.BackendOverride = runBackend
		}

		sim, err := newSimulation(cfg, backend.NewManager().RegisterDefaults())
		if err != nil {
			return err
		}
		frames := sim.frames
		if runFrames > 0 {
			frames = runFrames
		}
		return runSimulation(cmd, sim, max(frames, 1))
	},
}

func runSimulation(cmd *cobra.Command, sim *simulation, frames int) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	failed := 0
	for n := range frames {
		if err := sim.request(); err != nil {
			return err
		}
		if err := sim.displays.RunFrame(ctx, sim.prepare); err != nil {
			failed++
			printError(out, fmt.Sprintf("frame %d: %v", n, err))
		}
		for _, d := range sim.displays.Displays() {
			printPlan(out, n, d.ID(), d.Layers())
		}
		sim.displays.VsyncAll()
	}

	if runSpew {
		printHeader(out, "Active compositions")
		for _, d := range sim.displays.Displays() {
			if active := d.Compositor().Active(); active != nil {
				spewConfig.Fdump(out, active.Planes())
			}
		}
	}
	if runPNGDir != "" {
		if err := writePlans(out, sim.displays, runPNGDir); err != nil {
			return err
		}
	}

	printHeader(out, "Statistics")
	fmt.Fprint(out, sim.displays.Dump())

	if err := sim.close(); err != nil {
		return fmt.Errorf("close displays: %w", err)
	}
	if n := sim.openHandles(); n != 0 {
		return fmt.Errorf("%d GEM handles leaked", n)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed", failed, frames)
	}
	printSuccess(out, fmt.Sprintf("%d frames on %d displays, all buffers released", frames, len(sim.displays.Displays())))
	return nil
}

// writePlans renders the last plan of every display into dir.
func writePlans(out io.Writer, m *display.Manager, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, d := range m.Displays() {
		path := filepath.Join(dir, fmt.Sprintf("display%d.png", d.ID()))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		w, h := d.Size()
		err = planviz.WritePNG(f, w, h, d.Layers(), planviz.Options{MaxWidth: runPNGWidth, Labels: true})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		dimColor.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func init() {
	runCmd.Flags().IntVarP(&runFrames, "frames", "n", 0, "Number of frames (default: the largest count in the configuration)")
	runCmd.Flags().StringVarP(&runBackend, "backend", "b", "", "Backend to use instead of the one the driver selects")
	runCmd.Flags().StringVar(&runPNGDir, "png", "", "Directory to write a picture of each display's last plan to")
	runCmd.Flags().IntVar(&runPNGWidth, "png-width", 960, "Maximum width of the pictures")
	runCmd.Flags().BoolVar(&runSpew, "spew", false, "Dump the planes of every active composition")
}
