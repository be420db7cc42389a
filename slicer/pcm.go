package slicer

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/pulse"
)

// slicePCM implements pulse-code modulation, spec §4.3: one bit per
// short_us of pulse (RZ) or per short_us of bit time (NRZ); high = 1,
// low = 0. This is a run-length code: a pulse or gap spanning N units
// of short_us contributes N consecutive bits of that level, not a
// two-level width classification.
//
// RZ framing returns to zero every bit period, so a pulse can never
// span more than one bit -- it always contributes exactly one 1-bit,
// and only the gap's width is divided into short_us units to recover
// any run of 0-bits. NRZ framing has no such restriction: both the
// pulse and the gap may span several consecutive bits of the same
// level, so both are divided into short_us units.
func slicePCM(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing, rz bool) {
	short := t.ShortUS
	if short == 0 {
		short = 1
	}
	for i := 0; i < pd.NumPulses; i++ {
		ones := 1
		if !rz {
			ones = pcmUnits(uint32(pd.PulseUS[i]), short)
		}
		for n := 0; n < ones; n++ {
			bb.AddBit(1)
		}
		zeros := pcmUnits(uint32(pd.GapUS[i]), short)
		for n := 0; n < zeros; n++ {
			bb.AddBit(0)
		}
		if endRowOnReset(bb, uint32(pd.GapUS[i]), t) {
			return
		}
	}
}

// pcmUnits rounds us to the nearest multiple of short and returns the
// count, floored at 1: a recorded pulse or gap is never zero-width
// (spec §8's positivity invariant), so it always carries at least one
// bit.
func pcmUnits(us, short uint32) int {
	n := int((us + short/2) / short)
	if n < 1 {
		n = 1
	}
	return n
}
