// Package baseband implements the AM/FM baseband demodulator, spec §4.1:
// it turns a block of unsigned-8 (or signed-16) IQ samples into two
// parallel signed-16 streams, am[] and fm[], that the pulse detector
// consumes. Both conversions are deterministic, allocation-light, and
// carry exactly one sample of state (the previous IQ pair) across
// block boundaries so that block edges never glitch.
package baseband

import "math"

// Sample is one IQ pair, offset-removed and widened to int32 headroom.
type Sample struct {
	I, Q int32
}

// magLUT precomputes the offset-removed absolute value for every
// possible unsigned-8 sample byte, the same lookup-table trick this
// corpus's rtlamr-family decoders use for their magnitude estimate
// (NewSqrtMagLUT/NewAlphaMaxBetaMinLUT in the teacher package), applied
// here to the cheaper L1 envelope spec §4.1 calls for.
var magLUT [256]int32

func init() {
	for idx := range magLUT {
		magLUT[idx] = int32(math.Abs(float64(idx) - 128))
	}
}

// Demodulator carries the one sample of cross-block state (the previous
// IQ pair) and an optional single-pole IIR low-pass applied to the AM
// stream.
type Demodulator struct {
	havePrev bool
	prev     Sample

	// LowPassAlpha, in (0,1], sets the IIR low-pass applied to the AM
	// envelope; 1 disables filtering entirely (no smoothing).
	LowPassAlpha float64
	lpState      float64
}

// New returns a Demodulator with no low-pass filtering.
func New() *Demodulator {
	return &Demodulator{LowPassAlpha: 1.0}
}

// NewFiltered returns a Demodulator whose AM output passes through a
// single-pole IIR low-pass with the given alpha (smaller alpha is
// heavier smoothing).
func NewFiltered(alpha float64) *Demodulator {
	return &Demodulator{LowPassAlpha: alpha}
}

// Reset clears cross-block state; use it when the sample stream is
// discontinuous (e.g. after re-tuning), so the next call to ProcessU8
// or ProcessS16 does not compute a spurious FM sample from unrelated IQ pairs.
func (d *Demodulator) Reset() {
	d.havePrev = false
	d.lpState = 0
}

// ProcessU8 demodulates a block of offset-128 unsigned-8 IQ byte pairs
// (len(buf) must be even) into parallel am/fm int16 streams of
// len(buf)/2 samples each. An empty block is a no-op, per spec §4.1
// "Failure semantics": nothing is reported, nothing is required to
// happen.
func (d *Demodulator) ProcessU8(buf []byte, am, fm []int16) {
	n := len(buf) / 2
	for k := 0; k < n; k++ {
		i := int32(buf[2*k]) - 128
		q := int32(buf[2*k+1]) - 128
		absI, absQ := magLUT[buf[2*k]], magLUT[buf[2*k+1]]
		d.step(i, q, absI, absQ, am[k:k+1], fm[k:k+1])
	}
}

// ProcessS16 demodulates a block of signed-16 IQ sample pairs (len(buf)
// must be even) the same way ProcessU8 does, without the offset
// removal (signed samples are assumed already centred).
func (d *Demodulator) ProcessS16(buf []int16, am, fm []int16) {
	n := len(buf) / 2
	for k := 0; k < n; k++ {
		i := int32(buf[2*k])
		q := int32(buf[2*k+1])
		d.step(i, q, int32(absInt16(buf[2*k])), int32(absInt16(buf[2*k+1])), am[k:k+1], fm[k:k+1])
	}
}

// step computes one am/fm sample pair from one (i,q) and advances the
// cross-block state. absI/absQ are the precomputed |i|/|q| (via magLUT
// for the u8 path, or absInt16 for the s16 path) so the L1 envelope
// never repeats a floating-point Abs call for offset-removed samples.
func (d *Demodulator) step(i, q, absI, absQ int32, amOut, fmOut []int16) {
	// AM: L1 envelope approximation, |I| + |Q|, optionally IIR-smoothed.
	l1 := float64(absI) + float64(absQ)
	if d.LowPassAlpha >= 1.0 {
		d.lpState = l1
	} else {
		d.lpState = d.LowPassAlpha*l1 + (1-d.LowPassAlpha)*d.lpState
	}
	amOut[0] = clampInt16(d.lpState)

	// FM: one-sample phase-difference estimator. dot/cross as in spec
	// §4.1; scaled so a full +-pi excursion spans roughly +-32767 with
	// ~14 fractional bits of precision, matching hz.tools/fm's
	// cmplx.Phase(phasor * conj(lastPhasor)) shape but computed without
	// complex128 so it stays allocation-free on the hot path.
	if d.havePrev {
		dot := float64(i)*float64(d.prev.I) + float64(q)*float64(d.prev.Q)
		cross := float64(i)*float64(d.prev.Q) - float64(q)*float64(d.prev.I)
		phase := math.Atan2(cross, dot)
		fmOut[0] = clampInt16(phase / math.Pi * 32767.0)
	} else {
		fmOut[0] = 0
	}

	d.prev = Sample{I: i, Q: q}
	d.havePrev = true
}

func absInt16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
