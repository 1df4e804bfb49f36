// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command hwcsim runs composition scenarios against a simulated KMS device
// and reports how each frame was split between planes and the client.
package main

import (
	"fmt"
	"os"

	"github.com/gogpu/hwc/internal/cli"
)

// version is set with -ldflags "-X main.version=..." by release builds.
var version string

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
