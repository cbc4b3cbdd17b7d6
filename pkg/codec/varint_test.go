package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVaruintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 300, 16383, 16384, 1<<32 - 1, 1 << 40, math.MaxUint64}

	buf := make([]byte, MaxVarintLen64)
	for _, v := range values {
		written := WriteVaruint(buf, 0, v)
		got, read := ReadVaruint(buf, 0)

		assert.Equal(t, v, got)
		assert.Equal(t, written, read, "no trailing bytes for %d", v)
		assert.Equal(t, VaruintSize(v), written)
	}
}

func TestVaruintBoundaries(t *testing.T) {
	buf := make([]byte, MaxVarintLen64)

	assert.Equal(t, 1, WriteVaruint(buf, 0, 127))
	assert.Equal(t, 2, WriteVaruint(buf, 0, 128))
	assert.Equal(t, 5, WriteVaruint(buf, 0, math.MaxUint32))
}

func TestNullableVaruint(t *testing.T) {
	buf := make([]byte, MaxVarintLen64)

	WriteNullableVaruint(buf, 0, 0, false)
	_, present, _ := ReadNullableVaruint(buf, 0)
	assert.False(t, present)

	// Some(0) must stay distinct from None.
	WriteNullableVaruint(buf, 0, 0, true)
	v, present, _ := ReadNullableVaruint(buf, 0)
	assert.True(t, present)
	assert.Equal(t, uint64(0), v)

	WriteNullableVaruint(buf, 0, 41, true)
	v, present, _ = ReadNullableVaruint(buf, 0)
	assert.True(t, present)
	assert.Equal(t, uint64(41), v)
}

func TestZigzagVarint(t *testing.T) {
	buf := make([]byte, MaxVarintLen64)
	for _, v := range []int64{0, 1, -1, 63, -64, 1 << 30, -(1 << 30), math.MaxInt64, math.MinInt64} {
		written := WriteZigzagVarint(buf, 0, v)
		got, read := ReadZigzagVarint(buf, 0)
		assert.Equal(t, v, got)
		assert.Equal(t, written, read)
	}
}

func TestFixed(t *testing.T) {
	buf := make([]byte, 8)
	for width := 1; width <= 8; width++ {
		max := uint64(1)<<(8*uint(width)) - 1
		if width == 8 {
			max = math.MaxUint64
		}
		for _, v := range []uint64{0, 1, max / 2, max} {
			WriteFixed(buf, 0, width, v)
			assert.Equal(t, v, ReadFixed(buf, 0, width))
		}
	}

	// little endian byte order
	WriteFixed(buf, 0, 3, 0x010203)
	assert.Equal(t, []byte{0x03, 0x02, 0x01}, buf[:3])
}

func TestEnsureCapacity(t *testing.T) {
	buf := make([]byte, 10)
	grown := EnsureCapacity(buf, 8, 4)
	assert.Equal(t, 10+GrowChunk, len(grown))

	same := EnsureCapacity(grown, 8, 4)
	assert.Equal(t, len(grown), len(same))
}
