// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/hwc"
)

// DefaultDevicePattern matches every DRM card node.
const DefaultDevicePattern = "/dev/dri/card%"

// maxMinors bounds the expansion of a device pattern.
const maxMinors = 64

// ErrNoDevices is returned when no device of a pattern could be opened.
var ErrNoDevices = errors.New("display: no working drm device")

// DevicePath returns the path of the device with the given minor number.
// A trailing '%' in pattern stands for the minor; a pattern without one
// names a single device.
func DevicePath(pattern string, minor int) string {
	if prefix, ok := strings.CutSuffix(pattern, "%"); ok {
		return prefix + strconv.Itoa(minor)
	}
	return pattern
}

// OpenDevices opens the devices pattern names, in minor order, stopping at
// the first one that cannot be opened.
func OpenDevices[D any](pattern string, open func(path string) (D, error)) ([]D, error) {
	if pattern == "" {
		pattern = DefaultDevicePattern
	}
	multi := strings.HasSuffix(pattern, "%")

	var devs []D
	for minor := 0; minor < maxMinors; minor++ {
		path := DevicePath(pattern, minor)
		dev, err := open(path)
		if err != nil {
			hwc.Logger().Debug("display: stop probing devices", "path", path, "err", err)
			break
		}
		hwc.Logger().Info("display: opened device", "path", path)
		devs = append(devs, dev)
		if !multi {
			break
		}
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNoDevices, pattern)
	}
	return devs, nil
}
