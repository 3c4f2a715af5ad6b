package ktx2

// WriterName is recorded in the KTXwriter key of containers built here.
const WriterName = "slyce"

// NewRGBA8 wraps already-encoded RGBA8 sRGB mip levels in a single-layer container.
func NewRGBA8(width, height int, levels []Level, scheme uint32) *Container {
	return &Container{
		VkFormat:               VkFormatR8G8B8A8SRGB,
		TypeSize:               1,
		PixelWidth:             uint32(width),
		PixelHeight:            uint32(height),
		FaceCount:              1,
		SupercompressionScheme: scheme,
		Levels:                 levels,
		DFD:                    RGBA8DFD(true),
		KeyValues: map[string][]byte{
			"KTXwriter": append([]byte(WriterName), 0),
		},
	}
}

// MipLevelCount returns the length of a full mip chain for the given base size.
func MipLevelCount(width, height int) int {
	n := 1
	for w, h := width, height; w > 1 || h > 1; n++ {
		w, h = max(w/2, 1), max(h/2, 1)
	}
	return n
}
