// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/gogpu/hwc/layer"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	deviceColor  = color.New(color.FgGreen)
	clientColor  = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func printHeader(w io.Writer, title string) {
	headerColor.Fprintln(w, title)
}

func printError(w io.Writer, msg string) {
	errorColor.Fprintf(w, "✗ %s\n", msg)
}

func printSuccess(w io.Writer, msg string) {
	successColor.Fprintf(w, "✓ %s\n", msg)
}

// colorFor returns the color layers of type t are printed in.
func colorFor(t layer.CompositionType) *color.Color {
	if t == layer.CompositionClient {
		return clientColor
	}
	return deviceColor
}

// printPlan prints one line per frame: the validated type of every layer
// and the number of layers on each side.
func printPlan(w io.Writer, frameNo, displayID int, layers []*layer.Layer) {
	var device, client int
	fmt.Fprintf(w, "frame %4d  display %d ", frameNo, displayID)
	for _, l := range layers {
		if l.ValidatedType == layer.CompositionClient {
			client++
		} else {
			device++
		}
		colorFor(l.ValidatedType).Fprintf(w, " %d:%s", l.ID, l.ValidatedType)
	}
	dimColor.Fprintf(w, "  (%d device, %d client)\n", device, client)
}
