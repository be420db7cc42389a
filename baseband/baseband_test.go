package baseband

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessU8EmptyBlockIsNoOp(t *testing.T) {
	d := New()
	d.ProcessU8(nil, nil, nil)
	// No panic, no output required: spec §4.1 failure semantics.
}

func TestProcessU8SilenceProducesLowAM(t *testing.T) {
	d := New()
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 128 // centred, i.e. silence
	}
	am := make([]int16, 32)
	fm := make([]int16, 32)
	d.ProcessU8(buf, am, fm)
	for _, v := range am {
		assert.Equal(t, int16(0), v)
	}
}

func TestProcessU8CarriesStateAcrossBlocks(t *testing.T) {
	// Feeding the same two blocks split vs. combined must produce the
	// same fm[] from the second sample onward: no block-boundary glitch.
	buf := []byte{128, 128, 200, 90, 60, 220, 128, 128}

	whole := New()
	amWhole := make([]int16, 4)
	fmWhole := make([]int16, 4)
	whole.ProcessU8(buf, amWhole, fmWhole)

	split := New()
	amA := make([]int16, 2)
	fmA := make([]int16, 2)
	split.ProcessU8(buf[:4], amA, fmA)
	amB := make([]int16, 2)
	fmB := make([]int16, 2)
	split.ProcessU8(buf[4:], amB, fmB)

	require.Equal(t, fmWhole[2], fmB[0])
	require.Equal(t, fmWhole[3], fmB[1])
	require.Equal(t, amWhole[2], amB[0])
	require.Equal(t, amWhole[3], amB[1])
}

func TestResetClearsState(t *testing.T) {
	d := New()
	buf := []byte{200, 90}
	am := make([]int16, 1)
	fm := make([]int16, 1)
	d.ProcessU8(buf, am, fm)
	assert.Equal(t, int16(0), fm[0]) // no previous sample yet

	d.ProcessU8(buf, am, fm)
	first := fm[0]

	d.Reset()
	d.ProcessU8(buf, am, fm)
	assert.Equal(t, int16(0), fm[0], "after Reset the first fm sample is always 0 again")
	_ = first
}

func TestLowPassSmoothsAMEnvelope(t *testing.T) {
	d := NewFiltered(0.1)
	buf := make([]byte, 200)
	for i := 0; i < len(buf); i += 2 {
		buf[i] = 255
		buf[i+1] = 255
	}
	am := make([]int16, 100)
	fm := make([]int16, 100)
	d.ProcessU8(buf, am, fm)
	// Heavily smoothed envelope should ramp up rather than jump immediately.
	assert.Less(t, int(am[0]), int(am[len(am)-1]))
}
