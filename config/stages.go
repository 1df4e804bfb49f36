// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"strconv"
	"strings"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/planner"
)

var usageNames = map[string]uint64{
	"client-target": buffer.UsageComposerClientTarget,
	"overlay":       buffer.UsageComposerOverlay,
	"protected":     buffer.UsageProtected,
}

// ParseStage parses a stage name: "protected", "greedy", "usage:<mask>"
// where mask is a usage name or number, or "minimum:<count>".
func ParseStage(s string) (planner.Stage, error) {
	name, arg, hasArg := strings.Cut(s, ":")
	switch {
	case name == "protected" && !hasArg:
		return planner.ProtectedStage{}, nil
	case name == "greedy" && !hasArg:
		return planner.GreedyStage{}, nil
	case name == "usage" && hasArg:
		if mask, ok := usageNames[arg]; ok {
			return planner.UsageStage{Mask: mask}, nil
		}
		mask, err := strconv.ParseUint(arg, 0, 64)
		if err != nil || mask == 0 {
			return nil, invalid("stage %q: bad usage mask", s)
		}
		return planner.UsageStage{Mask: mask}, nil
	case name == "minimum" && hasArg:
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, invalid("stage %q: bad minimum", s)
		}
		return planner.MinimumStage{Min: n}, nil
	}
	return nil, invalid("unknown stage %q", s)
}

// PlannerStages returns the configured stages, or nil when none are set.
func (c *Config) PlannerStages() ([]planner.Stage, error) {
	if len(c.Stages) == 0 {
		return nil, nil
	}
	stages := make([]planner.Stage, 0, len(c.Stages))
	for _, s := range c.Stages {
		st, err := ParseStage(s)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}
