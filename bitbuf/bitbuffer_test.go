package bitbuf

import (
	"testing"

	"github.com/pgregory.net/rapid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bits(s string) []byte {
	out := make([]byte, len(s))
	for i, c := range s {
		if c == '1' {
			out[i] = 1
		}
	}
	return out
}

func TestAddBitAndRowBasic(t *testing.T) {
	var b BitBuffer
	for _, bit := range bits("1011") {
		b.AddBit(bit)
	}
	require.Equal(t, 1, b.NumRows)
	require.Equal(t, 4, b.BitsPerRow[0])
	assert.False(t, b.Truncated)

	b.AddRow()
	b.AddBit(1)
	require.Equal(t, 2, b.NumRows)
	require.Equal(t, 1, b.BitsPerRow[1])
}

func TestClearResetsState(t *testing.T) {
	var b BitBuffer
	b.AddBit(1)
	b.AddRow()
	b.Clear()
	assert.Equal(t, 0, b.NumRows)
	assert.False(t, b.Truncated)
}

func TestSearchFindsPattern(t *testing.T) {
	var b BitBuffer
	for _, bit := range bits("00011010110") {
		b.AddBit(bit)
	}
	off := b.Search(0, bits("1010"), 0)
	assert.Equal(t, 4, off)
}

func TestSearchNotFoundReturnsRowLength(t *testing.T) {
	var b BitBuffer
	for _, bit := range bits("0000") {
		b.AddBit(bit)
	}
	off := b.Search(0, bits("111"), 0)
	assert.Equal(t, 4, off)
}

func TestExtractBytesMSBFirst(t *testing.T) {
	var b BitBuffer
	for _, bit := range bits("10110010") {
		b.AddBit(bit)
	}
	dst := make([]byte, 1)
	n := b.ExtractBytes(0, 0, dst, 8)
	require.Equal(t, 1, n)
	assert.Equal(t, byte(0xB2), dst[0])
}

func TestInvertInvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "n")
		var b BitBuffer
		src := make([]byte, n)
		for i := range src {
			src[i] = byte(rapid.IntRange(0, 1).Draw(t, "bit"))
			b.AddBit(src[i])
		}
		b.Invert()
		b.Invert()
		for i := 0; i < n; i++ {
			require.Equal(t, src[i], b.Rows[0][i])
		}
	})
}

func TestManchesterDecodeBasic(t *testing.T) {
	// 01 -> 0, 10 -> 1
	in := bits("01100110")
	out, n, clean := ManchesterDecode(in, len(in))
	require.True(t, clean)
	require.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 1, 0, 1}, out)
}

func TestManchesterDecodeStopsOnBadPair(t *testing.T) {
	in := bits("0111")
	_, n, clean := ManchesterDecode(in, len(in))
	assert.False(t, clean)
	assert.Equal(t, 1, n)
}

func TestRowCapacityNeverExceeded(t *testing.T) {
	var b BitBuffer
	for i := 0; i < MaxBits+10; i++ {
		b.AddBit(1)
	}
	for r := 0; r < b.NumRows; r++ {
		assert.LessOrEqual(t, b.BitsPerRow[r], MaxBits)
	}
	assert.LessOrEqual(t, b.NumRows, MaxRows)
}
