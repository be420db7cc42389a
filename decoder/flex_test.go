package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

func hexBits(bs ...byte) []byte {
	out := make([]byte, 0, len(bs)*8)
	for _, b := range bs {
		for i := 7; i >= 0; i-- {
			out = append(out, (b>>uint(i))&1)
		}
	}
	return out
}

// buildPWMPulses appends one (pulse,gap) pair per bit (short pulse -> 1,
// long pulse -> 0, this package's PWM convention) and returns the
// running NumPulses index, so callers can interleave row separators.
func buildPWMPulses(pd *pulse.PulseData, idx int, bits []byte, shortUS, longUS, gapUS int32) int {
	for _, b := range bits {
		if b == 1 {
			pd.PulseUS[idx] = shortUS
		} else {
			pd.PulseUS[idx] = longUS
		}
		pd.GapUS[idx] = gapUS
		idx++
	}
	return idx
}

func TestFlexCountonlyScenario(t *testing.T) {
	// spec §8 scenario 5: three rows each containing the 24-bit preamble
	// 0xa9878c; repeats>=3, countonly -> one event with count=3.
	preamble := hexBits(0xa9, 0x87, 0x8c)

	var pd pulse.PulseData
	pd.Modulation = pulse.ModulationOOK
	idx := 0
	idx = buildPWMPulses(&pd, idx, preamble, 400, 800, 200)
	idx = buildPWMPulses(&pd, idx, []byte{0}, 600, 600, 200) // junk pulse: classifies as neither short nor long -> new row
	idx = buildPWMPulses(&pd, idx, preamble, 400, 800, 200)
	idx = buildPWMPulses(&pd, idx, []byte{0}, 600, 600, 200)
	idx = buildPWMPulses(&pd, idx, preamble, 400, 800, 200)
	pd.NumPulses = idx

	fs, err := ParseFlexSpec("name=door;modulation=OOK_PWM;short=400;long=800;reset=7000;match={24}0xa9878c;repeats>=3;countonly")
	require.NoError(t, err)

	bb := slicer.Slice(fs.SlicerKind, pd, fs.Timing)
	sink := &recordingEventSink{}
	res := fs.decode(&bb, pd, sink)

	require.Equal(t, 1, res.NEvents)
	require.Len(t, sink.events, 1)
	count, ok := sink.events[0].Get("count")
	require.True(t, ok)
	assert.Equal(t, 3, count)
}

func TestFlexRejectsTooFewRepeats(t *testing.T) {
	preamble := hexBits(0xa9, 0x87, 0x8c)
	var pd pulse.PulseData
	pd.Modulation = pulse.ModulationOOK
	idx := buildPWMPulses(&pd, 0, preamble, 400, 800, 200)
	pd.NumPulses = idx

	fs, err := ParseFlexSpec("name=door;modulation=OOK_PWM;short=400;long=800;reset=7000;match={24}0xa9878c;repeats>=3;countonly")
	require.NoError(t, err)

	bb := slicer.Slice(fs.SlicerKind, pd, fs.Timing)
	sink := &recordingEventSink{}
	res := fs.decode(&bb, pd, sink)
	assert.Equal(t, "abort_length", string(res.Kind))
	assert.Empty(t, sink.events)
}

func TestFlexRejectsTooFewRepeatsWithoutDeliveringEvents(t *testing.T) {
	// A non-countonly spec with only one matching row against repeats>=3
	// must deliver zero events, not one per matched row seen so far.
	preamble := hexBits(0xa9, 0x87, 0x8c)
	var pd pulse.PulseData
	pd.Modulation = pulse.ModulationOOK
	idx := buildPWMPulses(&pd, 0, preamble, 400, 800, 200)
	pd.NumPulses = idx

	fs, err := ParseFlexSpec("name=door;modulation=OOK_PWM;short=400;long=800;reset=7000;match={24}0xa9878c;repeats>=3")
	require.NoError(t, err)

	bb := slicer.Slice(fs.SlicerKind, pd, fs.Timing)
	sink := &recordingEventSink{}
	res := fs.decode(&bb, pd, sink)
	assert.Equal(t, "abort_length", string(res.Kind))
	assert.Empty(t, sink.events)
}

func TestParseFlexSpecRequiresModulationAndName(t *testing.T) {
	_, err := ParseFlexSpec("short=400;long=800")
	assert.Error(t, err)

	_, err = ParseFlexSpec("name=x;short=400;long=800")
	assert.Error(t, err)
}

func TestParseFlexSpecRejectsUnknownKey(t *testing.T) {
	_, err := ParseFlexSpec("name=x;modulation=OOK_PWM;short=400;bogus=1")
	assert.Error(t, err)
}

func TestParseBitPatternRoundTrip(t *testing.T) {
	pat, err := parseBitPattern("{24}0xa9878c")
	require.NoError(t, err)
	assert.Equal(t, hexBits(0xa9, 0x87, 0x8c), pat)
}
