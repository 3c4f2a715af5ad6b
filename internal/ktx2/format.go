package ktx2

import (
	"encoding/binary"
	"fmt"
)

// Identifier is the 12-byte file signature.
var Identifier = [12]byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x32, 0x30, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

// Vulkan formats this package knows the block layout for.
const (
	VkFormatUndefined     uint32 = 0
	VkFormatR8G8B8A8Unorm uint32 = 37
	VkFormatR8G8B8A8SRGB  uint32 = 43
)

// Supercompression schemes.
const (
	SupercompressionNone    uint32 = 0
	SupercompressionBasisLZ uint32 = 1
	SupercompressionZstd    uint32 = 2
	SupercompressionZLIB    uint32 = 3
)

// Data format descriptor color models.
const (
	ColorModelRGBSDA uint8 = 1
	ColorModelETC1S  uint8 = 163
	ColorModelUASTC  uint8 = 166
)

const (
	dfdKHRDescriptorVersion = 2
	dfdBasicHeaderSize      = 24
	dfdSampleSize           = 16

	channelLinear = 0x10
)

// FormatInfo describes the storage block of a texture format.
type FormatInfo struct {
	VkFormat    uint32
	ColorModel  uint8
	BlockWidth  int
	BlockHeight int
	BlockBytes  int
}

// Name returns a short label for logs.
func (f FormatInfo) Name() string {
	switch {
	case f.VkFormat == VkFormatR8G8B8A8SRGB:
		return "R8G8B8A8_SRGB"
	case f.VkFormat == VkFormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case f.ColorModel == ColorModelUASTC:
		return "UASTC"
	case f.ColorModel == ColorModelETC1S:
		return "ETC1S"
	default:
		return fmt.Sprintf("vk%d", f.VkFormat)
	}
}

// Computable reports whether per-image byte sizes can be derived from the
// dimensions alone.
func (f FormatInfo) Computable() bool {
	return f.BlockWidth > 0 && f.BlockHeight > 0 && f.BlockBytes > 0
}

// ImageSize returns the byte size of one image (one layer, one face) at the
// given level dimensions.
func (f FormatInfo) ImageSize(width, height int) int {
	if !f.Computable() {
		return 0
	}
	bw := (max(width, 1) + f.BlockWidth - 1) / f.BlockWidth
	bh := (max(height, 1) + f.BlockHeight - 1) / f.BlockHeight
	return bw * bh * f.BlockBytes
}

// FormatOf resolves block layout from the basic data format descriptor,
// falling back to the Vulkan format table.
func FormatOf(vkFormat uint32, dfd []byte) FormatInfo {
	info := FormatInfo{VkFormat: vkFormat}
	if basic, ok := parseBasicDFD(dfd); ok {
		info.ColorModel = basic.colorModel
		info.BlockWidth = int(basic.blockDims[0]) + 1
		info.BlockHeight = int(basic.blockDims[1]) + 1
		info.BlockBytes = int(basic.bytesPlane0)
		if info.BlockBytes > 0 {
			return info
		}
	}
	switch vkFormat {
	case VkFormatR8G8B8A8Unorm, VkFormatR8G8B8A8SRGB:
		info.BlockWidth, info.BlockHeight, info.BlockBytes = 1, 1, 4
	case VkFormatUndefined:
		if info.ColorModel == ColorModelUASTC {
			info.BlockWidth, info.BlockHeight, info.BlockBytes = 4, 4, 16
		}
	}
	return info
}

type basicDFD struct {
	colorModel  uint8
	primaries   uint8
	transfer    uint8
	blockDims   [4]uint8
	bytesPlane0 uint8
}

func parseBasicDFD(dfd []byte) (basicDFD, bool) {
	// totalSize + descriptor header
	if len(dfd) < 4+dfdBasicHeaderSize {
		return basicDFD{}, false
	}
	b := dfd[4:]
	return basicDFD{
		colorModel:  b[8],
		primaries:   b[9],
		transfer:    b[10],
		blockDims:   [4]uint8{b[12], b[13], b[14], b[15]},
		bytesPlane0: b[16],
	}, true
}

// RGBA8DFD builds the basic data format descriptor for 8-bit RGBA. When srgb
// is set the color channels use the sRGB transfer and alpha is flagged linear.
func RGBA8DFD(srgb bool) []byte {
	const samples = 4
	blockSize := dfdBasicHeaderSize + samples*dfdSampleSize
	out := make([]byte, 4+blockSize)
	le := binary.LittleEndian
	le.PutUint32(out[0:], uint32(len(out)))
	le.PutUint32(out[4:], 0) // vendor KHR, descriptor type basic
	le.PutUint32(out[8:], uint32(dfdKHRDescriptorVersion)|uint32(blockSize)<<16)
	transfer := uint8(1)
	if srgb {
		transfer = 2
	}
	out[12] = ColorModelRGBSDA
	out[13] = 1 // BT.709 primaries
	out[14] = transfer
	out[15] = 0 // straight alpha
	// texel block dimensions stay zero for 1x1x1x1
	out[20] = 4

	channels := []uint8{0, 1, 2, 15}
	for i, ch := range channels {
		s := out[4+dfdBasicHeaderSize+i*dfdSampleSize:]
		le.PutUint16(s[0:], uint16(i*8))
		s[2] = 7
		s[3] = ch
		if ch == 15 && srgb {
			s[3] |= channelLinear
		}
		le.PutUint32(s[8:], 0)
		le.PutUint32(s[12:], 255)
	}
	return out
}
