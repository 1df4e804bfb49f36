// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/hwc/backend"
)

var printer = message.NewPrinter(language.English)

// Dump returns a report of the frame statistics: the totals, and the
// counts since the previous Dump.
func (d *Display) Dump() string {
	d.mu.Lock()
	total := d.stats
	delta := total.Sub(d.dumpStats)
	d.dumpStats = total
	d.mu.Unlock()

	var b strings.Builder
	printer.Fprintf(&b, "--Display %d (backend %s)\n", d.id, d.backend.Name())
	dumpStats(&b, "Total", total)
	dumpStats(&b, "Since last dump", delta)
	if delta.FailedKMSPresent > 0 {
		b.WriteString("    !!! Internal failure: commits rejected since last dump\n")
	}
	return b.String()
}

func dumpStats(b *strings.Builder, title string, s backend.Stats) {
	printer.Fprintf(b, "  %s:\n", title)
	printer.Fprintf(b, "    Frames=%d\n", s.Frames)
	printer.Fprintf(b, "    Failed to test commit frames=%d\n", s.FailedKMSValidate)
	printer.Fprintf(b, "    Failed to commit frames=%d\n", s.FailedKMSPresent)
	printer.Fprintf(b, "    Flattened frames=%d\n", s.FramesFlattened)
	printer.Fprintf(b, "    Pixel operations: [TOTAL: %d / GPU: %d]\n", s.TotalPixOps, s.GPUPixOps)
	printer.Fprintf(b, "    Composition efficiency: %.1f%%\n", Efficiency(s))
}

// Efficiency returns the share of pixel operations done by planes rather
// than the GPU, in percent. With no work it is 100.
func Efficiency(s backend.Stats) float64 {
	if s.TotalPixOps == 0 {
		return 100
	}
	gpu := min(s.GPUPixOps, s.TotalPixOps)
	return float64(s.TotalPixOps-gpu) * 100 / float64(s.TotalPixOps)
}
