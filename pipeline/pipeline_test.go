package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlmayfield/rfsense/crcutil"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/decoders"
	"github.com/jlmayfield/rfsense/pulse"
)

type recordingSink struct {
	events []decoder.Event
}

func (r *recordingSink) Deliver(e decoder.Event) { r.events = append(r.events, e) }

func TestPipelineRegisterAfterStartFails(t *testing.T) {
	sink := &recordingSink{}
	p := New(Config{SampleRateHz: 250000}, sink, nil, nil)
	p.Start()
	err := p.RegisterDecoder(decoder.Decl{Name: "late"})
	assert.Error(t, err)
}

func TestPipelineOnSamplesEmptyBlockIsNoop(t *testing.T) {
	sink := &recordingSink{}
	p := New(Config{SampleRateHz: 250000}, sink, nil, nil)
	p.Start()
	p.OnSamples(nil)
	assert.Empty(t, sink.events)
}

func TestDedupeWindowSuppressesRepeats(t *testing.T) {
	d := newDedupeWindow(50 * time.Millisecond)
	require.False(t, d.seenRecently("a"))
	require.True(t, d.seenRecently("a"))
	time.Sleep(60 * time.Millisecond)
	require.False(t, d.seenRecently("a"))
}

func TestDedupeWindowDistinctKeysIndependent(t *testing.T) {
	d := newDedupeWindow(time.Second)
	assert.False(t, d.seenRecently("a"))
	assert.False(t, d.seenRecently("b"))
	assert.True(t, d.seenRecently("a"))
	assert.True(t, d.seenRecently("b"))
}

// ppmPulsesFor mirrors the decoders package test helper of the same
// name: gap width (short -> 0, long -> 1) carries the bit.
func ppmPulsesFor(bits []byte, pulseUS, shortGapUS, longGapUS int32) pulse.PulseData {
	var pd pulse.PulseData
	pd.Modulation = pulse.ModulationOOK
	for i, b := range bits {
		pd.PulseUS[i] = pulseUS
		if b == 0 {
			pd.GapUS[i] = shortGapUS
		} else {
			pd.GapUS[i] = longGapUS
		}
	}
	pd.NumPulses = len(bits)
	return pd
}

func bitsOfBytes(bs ...byte) []byte {
	out := make([]byte, 0, len(bs)*8)
	for _, b := range bs {
		for i := 7; i >= 0; i-- {
			out = append(out, (b>>uint(i))&1)
		}
	}
	return out
}

// TestPipelineDispatchesThroughRegisteredDecoder exercises the whole
// onPacket path -- Dispatch, event emission, dedupe check -- the way
// OnSamples would drive it from a real detector packet, without
// needing a synthetic IQ stream precise enough to trip the adaptive
// OOK thresholds.
func TestPipelineDispatchesThroughRegisteredDecoder(t *testing.T) {
	sink := &recordingSink{}
	p := New(Config{SampleRateHz: 250000}, sink, nil, nil)
	require.NoError(t, p.RegisterDecoder(decoders.BluelinePowerCostTXID()))
	p.Start()

	mid := []byte{0x60, 0xB2}
	crc := crcutil.CRC8(mid, 0x07, 0x00)
	bits := bitsOfBytes(0xFE, mid[0], mid[1], crc)
	pkt := ppmPulsesFor(bits, 100, 500, 1000)

	p.onPacket(pkt)

	require.Len(t, sink.events, 1)
	id, _ := sink.events[0].Get("id")
	assert.Equal(t, uint16(0xB260), id)

	// A second, identical packet within the dedupe window (disabled
	// here by default) is delivered again since DedupeWindow is zero.
	p.onPacket(pkt)
	assert.Len(t, sink.events, 2)
}

func TestPipelineDedupeSuppressesRepeatEvent(t *testing.T) {
	sink := &recordingSink{}
	p := New(Config{SampleRateHz: 250000, DedupeWindow: time.Hour}, sink, nil, nil)
	require.NoError(t, p.RegisterDecoder(decoders.BluelinePowerCostTXID()))
	p.Start()

	mid := []byte{0x60, 0xB2}
	crc := crcutil.CRC8(mid, 0x07, 0x00)
	bits := bitsOfBytes(0xFE, mid[0], mid[1], crc)
	pkt := ppmPulsesFor(bits, 100, 500, 1000)

	p.onPacket(pkt)
	p.onPacket(pkt)
	assert.Len(t, sink.events, 1)
}

func TestDedupeWindowEvictsOldestBeyondCapacity(t *testing.T) {
	d := newDedupeWindow(time.Hour)
	for i := 0; i < dedupeCapacity+1; i++ {
		d.seenRecently(string(rune('a' + i%26)))
	}
	assert.LessOrEqual(t, len(d.seen), dedupeCapacity)
}
