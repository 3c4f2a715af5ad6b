package ktx2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

const (
	headerSize     = 80
	levelEntrySize = 24
)

// ErrInvalid marks input that is not a well-formed container.
var ErrInvalid = errors.New("invalid ktx2 container")

// Level holds the stored bytes of one mip level. For arrays the bytes of
// every layer are concatenated in layer order.
type Level struct {
	Data                   []byte
	UncompressedByteLength uint64
}

// Container is an in-memory KTX2 texture. Levels[0] is the full-resolution level.
type Container struct {
	VkFormat               uint32
	TypeSize               uint32
	PixelWidth             uint32
	PixelHeight            uint32
	PixelDepth             uint32
	LayerCount             uint32
	FaceCount              uint32
	SupercompressionScheme uint32
	Levels                 []Level
	DFD                    []byte
	KeyValues              map[string][]byte
	GlobalData             []byte
}

// Format resolves the container's block layout.
func (c *Container) Format() FormatInfo {
	return FormatOf(c.VkFormat, c.DFD)
}

// Layers returns the effective array layer count (at least 1).
func (c *Container) Layers() int {
	return max(int(c.LayerCount), 1)
}

// Faces returns the effective face count (at least 1).
func (c *Container) Faces() int {
	return max(int(c.FaceCount), 1)
}

// LevelSize returns the pixel dimensions of mip level m.
func (c *Container) LevelSize(m int) (int, int) {
	return max(int(c.PixelWidth)>>m, 1), max(int(c.PixelHeight)>>m, 1)
}

// Clone returns a deep copy.
func (c *Container) Clone() *Container {
	out := *c
	out.Levels = make([]Level, len(c.Levels))
	for i, l := range c.Levels {
		out.Levels[i] = Level{Data: bytes.Clone(l.Data), UncompressedByteLength: l.UncompressedByteLength}
	}
	out.DFD = bytes.Clone(c.DFD)
	out.GlobalData = bytes.Clone(c.GlobalData)
	if c.KeyValues != nil {
		out.KeyValues = make(map[string][]byte, len(c.KeyValues))
		for k, v := range c.KeyValues {
			out.KeyValues[k] = bytes.Clone(v)
		}
	}
	return &out
}

// Read parses a serialized container.
func Read(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalid, len(data))
	}
	if !bytes.Equal(data[:12], Identifier[:]) {
		return nil, fmt.Errorf("%w: bad identifier", ErrInvalid)
	}
	le := binary.LittleEndian
	c := &Container{
		VkFormat:               le.Uint32(data[12:]),
		TypeSize:               le.Uint32(data[16:]),
		PixelWidth:             le.Uint32(data[20:]),
		PixelHeight:            le.Uint32(data[24:]),
		PixelDepth:             le.Uint32(data[28:]),
		LayerCount:             le.Uint32(data[32:]),
		FaceCount:              le.Uint32(data[36:]),
		SupercompressionScheme: le.Uint32(data[44:]),
	}
	levelCount := max(int(le.Uint32(data[40:])), 1)
	dfdOff, dfdLen := uint64(le.Uint32(data[48:])), uint64(le.Uint32(data[52:]))
	kvdOff, kvdLen := uint64(le.Uint32(data[56:])), uint64(le.Uint32(data[60:]))
	sgdOff, sgdLen := le.Uint64(data[64:]), le.Uint64(data[72:])

	if len(data) < headerSize+levelCount*levelEntrySize {
		return nil, fmt.Errorf("%w: truncated level index", ErrInvalid)
	}
	section := func(name string, off, n uint64) ([]byte, error) {
		if n == 0 {
			return nil, nil
		}
		if off+n < off || off+n > uint64(len(data)) {
			return nil, fmt.Errorf("%w: %s [%d,+%d) exceeds %d bytes", ErrInvalid, name, off, n, len(data))
		}
		return bytes.Clone(data[off : off+n]), nil
	}

	c.Levels = make([]Level, levelCount)
	for i := range c.Levels {
		e := data[headerSize+i*levelEntrySize:]
		off, n, ulen := le.Uint64(e[0:]), le.Uint64(e[8:]), le.Uint64(e[16:])
		levelData, err := section(fmt.Sprintf("level %d", i), off, n)
		if err != nil {
			return nil, err
		}
		c.Levels[i] = Level{Data: levelData, UncompressedByteLength: ulen}
	}

	var err error
	if c.DFD, err = section("dfd", dfdOff, dfdLen); err != nil {
		return nil, err
	}
	kvd, err := section("kvd", kvdOff, kvdLen)
	if err != nil {
		return nil, err
	}
	if c.KeyValues, err = parseKeyValues(kvd); err != nil {
		return nil, err
	}
	if c.GlobalData, err = section("sgd", sgdOff, sgdLen); err != nil {
		return nil, err
	}
	return c, nil
}

func parseKeyValues(kvd []byte) (map[string][]byte, error) {
	if len(kvd) == 0 {
		return nil, nil
	}
	out := make(map[string][]byte)
	for pos := 0; pos+4 <= len(kvd); {
		n := int(binary.LittleEndian.Uint32(kvd[pos:]))
		pos += 4
		if n == 0 || pos+n > len(kvd) {
			return nil, fmt.Errorf("%w: key/value entry of %d bytes at %d", ErrInvalid, n, pos-4)
		}
		entry := kvd[pos : pos+n]
		sep := bytes.IndexByte(entry, 0)
		if sep < 0 {
			return nil, fmt.Errorf("%w: unterminated key at %d", ErrInvalid, pos)
		}
		out[string(entry[:sep])] = bytes.Clone(entry[sep+1:])
		pos = align(pos+n, 4)
	}
	return out, nil
}

// Write serializes c. Levels are laid out smallest first, each aligned to
// lcm(block bytes, 4) when uncompressed.
func Write(c *Container) ([]byte, error) {
	if c == nil || len(c.Levels) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrInvalid)
	}
	if c.PixelWidth == 0 {
		return nil, fmt.Errorf("%w: zero width", ErrInvalid)
	}
	le := binary.LittleEndian
	levelCount := len(c.Levels)

	dfdOff := headerSize + levelCount*levelEntrySize
	kvd := encodeKeyValues(c.KeyValues)
	kvdOff := dfdOff + len(c.DFD)
	end := kvdOff + len(kvd)
	sgdOff := 0
	if len(c.GlobalData) > 0 {
		sgdOff = align(end, 8)
		end = sgdOff + len(c.GlobalData)
	}

	alignment := 1
	if c.SupercompressionScheme == SupercompressionNone {
		alignment = lcm(max(c.Format().BlockBytes, 1), 4)
	}
	offsets := make([]int, levelCount)
	for i := levelCount - 1; i >= 0; i-- {
		end = align(end, alignment)
		offsets[i] = end
		end += len(c.Levels[i].Data)
	}

	out := make([]byte, end)
	copy(out, Identifier[:])
	le.PutUint32(out[12:], c.VkFormat)
	le.PutUint32(out[16:], c.TypeSize)
	le.PutUint32(out[20:], c.PixelWidth)
	le.PutUint32(out[24:], c.PixelHeight)
	le.PutUint32(out[28:], c.PixelDepth)
	le.PutUint32(out[32:], c.LayerCount)
	le.PutUint32(out[36:], max(c.FaceCount, 1))
	le.PutUint32(out[40:], uint32(levelCount))
	le.PutUint32(out[44:], c.SupercompressionScheme)
	if len(c.DFD) > 0 {
		le.PutUint32(out[48:], uint32(dfdOff))
		le.PutUint32(out[52:], uint32(len(c.DFD)))
	}
	if len(kvd) > 0 {
		le.PutUint32(out[56:], uint32(kvdOff))
		le.PutUint32(out[60:], uint32(len(kvd)))
	}
	if len(c.GlobalData) > 0 {
		le.PutUint64(out[64:], uint64(sgdOff))
		le.PutUint64(out[72:], uint64(len(c.GlobalData)))
	}
	for i, l := range c.Levels {
		e := out[headerSize+i*levelEntrySize:]
		le.PutUint64(e[0:], uint64(offsets[i]))
		le.PutUint64(e[8:], uint64(len(l.Data)))
		le.PutUint64(e[16:], l.UncompressedByteLength)
		copy(out[offsets[i]:], l.Data)
	}
	copy(out[dfdOff:], c.DFD)
	copy(out[kvdOff:], kvd)
	copy(out[sgdOff:], c.GlobalData)
	return out, nil
}

func encodeKeyValues(kv map[string][]byte) []byte {
	if len(kv) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		v := kv[k]
		n := len(k) + 1 + len(v)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(n))
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.Write(v)
		for pad := align(n, 4) - n; pad > 0; pad-- {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

func align(v, a int) int {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}

func lcm(a, b int) int {
	x, y := a, b
	for y != 0 {
		x, y = y, x%y
	}
	return a / x * b
}
