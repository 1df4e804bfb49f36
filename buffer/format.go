// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// fourcc packs four characters into a DRM format code.
func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// DRM pixel formats (drm_fourcc.h).
var (
	FormatInvalid     uint32 = 0
	FormatARGB8888           = fourcc('A', 'R', '2', '4')
	FormatXRGB8888           = fourcc('X', 'R', '2', '4')
	FormatABGR8888           = fourcc('A', 'B', '2', '4')
	FormatXBGR8888           = fourcc('X', 'B', '2', '4')
	FormatBGR888             = fourcc('B', 'G', '2', '4')
	FormatRGB888             = fourcc('R', 'G', '2', '4')
	FormatBGR565             = fourcc('B', 'G', '1', '6')
	FormatRGB565             = fourcc('R', 'G', '1', '6')
	FormatABGR2101010        = fourcc('A', 'B', '3', '0')
	FormatYVU420             = fourcc('Y', 'V', '1', '2')
	FormatYUV420             = fourcc('Y', 'U', '1', '2')
	FormatNV12               = fourcc('N', 'V', '1', '2')
	FormatNV21               = fourcc('N', 'V', '2', '1')
	FormatAYUV               = fourcc('A', 'Y', 'U', 'V')
)

// Android HAL pixel formats (graphics-base.h).
const (
	HalFormatRGBA8888              uint32 = 1
	HalFormatRGBX8888              uint32 = 2
	HalFormatRGB888                uint32 = 3
	HalFormatRGB565                uint32 = 4
	HalFormatBGRA8888              uint32 = 5
	HalFormatRGBA1010102           uint32 = 0x2B
	HalFormatImplementationDefined uint32 = 0x22
	HalFormatYCbCr420888           uint32 = 0x23
	HalFormatYV12                  uint32 = 0x32315659
)

// FormatName returns the four character code of a DRM format, or
// "invalid" for FormatInvalid.
func FormatName(format uint32) string {
	if format == FormatInvalid {
		return "invalid"
	}
	return fmt.Sprintf("%c%c%c%c", byte(format), byte(format>>8), byte(format>>16), byte(format>>24))
}

// ConvertHalFormatToDrm maps an Android HAL format to the DRM format with
// the same memory layout. Unknown formats map to FormatInvalid.
func ConvertHalFormatToDrm(hal uint32) uint32 {
	switch hal {
	case HalFormatRGB888:
		return FormatBGR888
	case HalFormatBGRA8888:
		return FormatARGB8888
	case HalFormatRGBX8888:
		return FormatXBGR8888
	case HalFormatRGBA8888:
		return FormatABGR8888
	case HalFormatRGB565:
		return FormatBGR565
	case HalFormatRGBA1010102:
		return FormatABGR2101010
	case HalFormatYV12:
		return FormatYVU420
	default:
		return FormatInvalid
	}
}

// IsRGB reports whether format is one of the packed RGB formats that
// planes and the GPU can both consume directly.
func IsRGB(format uint32) bool {
	switch format {
	case FormatARGB8888, FormatXBGR8888, FormatABGR8888, FormatBGR888, FormatBGR565,
		FormatXRGB8888, FormatABGR2101010:
		return true
	default:
		return false
	}
}

// TextureFormat returns the GPU texture format with the same memory layout
// as the DRM format. The client target is rendered by the caller's GPU
// stack, so only formats a render target can use are mapped; everything
// else is gputypes.TextureFormatUndefined.
func TextureFormat(format uint32) gputypes.TextureFormat {
	switch format {
	case FormatABGR8888, FormatXBGR8888:
		return gputypes.TextureFormatRGBA8Unorm
	case FormatARGB8888, FormatXRGB8888:
		return gputypes.TextureFormatBGRA8Unorm
	case FormatABGR2101010:
		return gputypes.TextureFormatRGB10A2Unorm
	default:
		return gputypes.TextureFormatUndefined
	}
}

// DrmFormat is the inverse of TextureFormat for the formats a client target
// may use. Alpha-carrying variants are preferred.
func DrmFormat(tf gputypes.TextureFormat) uint32 {
	switch tf {
	case gputypes.TextureFormatRGBA8Unorm:
		return FormatABGR8888
	case gputypes.TextureFormatBGRA8Unorm:
		return FormatARGB8888
	case gputypes.TextureFormatRGB10A2Unorm:
		return FormatABGR2101010
	default:
		return FormatInvalid
	}
}
