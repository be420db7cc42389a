package slicer

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/pulse"
)

// maxRawHalfBits sizes the scratch space for one row's worth of
// Manchester half-symbols before they collapse 2:1 into full bits.
const maxRawHalfBits = bitbuf.MaxBits * 2

// expandToHalfBits turns one packet's (pulse, gap) pairs into a raw
// half-symbol train: each pulse contributes round(width/short) samples
// of level 1, each gap the same number of level-0 samples. This is how
// Manchester-family line codes are conventionally recovered from pulse
// timing: the underlying clock runs at twice the short-symbol rate.
func expandToHalfBits(pd pulse.PulseData, t Timing) (raw [maxRawHalfBits]byte, n int) {
	short := t.ShortUS
	if short == 0 {
		short = 1
	}
	appendLevel := func(level byte, us int32) {
		count := int(uint32(us)+short/2) / int(short)
		if count < 1 {
			count = 1
		}
		for i := 0; i < count && n < maxRawHalfBits; i++ {
			raw[n] = level
			n++
		}
	}
	for i := 0; i < pd.NumPulses; i++ {
		appendLevel(1, pd.PulseUS[i])
		appendLevel(0, pd.GapUS[i])
		if t.ResetLimitUS != 0 && uint32(pd.GapUS[i]) >= t.ResetLimitUS {
			return raw, n
		}
	}
	return raw, n
}

// sliceManchesterZeroBit implements the Manchester "zero-bit" line code
// of spec §4.3: 01 decodes to 0, 10 decodes to 1, and a 00/11 pair ends
// the row (bitbuf.ManchesterDecode carries that rule).
func sliceManchesterZeroBit(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing) {
	raw, n := expandToHalfBits(pd, t)
	decodeRows(bb, raw[:n], false)
}

// sliceOSv1Manchester implements the OSv1 variant: identical recovery
// to plain Manchester, but with the resulting bit sense inverted (this
// protocol family transmits its preamble and sync nibble inverted
// relative to the data payload's natural polarity).
func sliceOSv1Manchester(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing) {
	raw, n := expandToHalfBits(pd, t)
	decodeRows(bb, raw[:n], true)
}

// decodeRows feeds a raw half-bit train through bitbuf.ManchesterDecode
// a row at a time, opening a new output row whenever an invalid pair
// ends decoding early but input remains.
func decodeRows(bb *bitbuf.BitBuffer, raw []byte, invert bool) {
	for len(raw) >= 2 {
		out, outBits, clean := bitbuf.ManchesterDecode(raw, len(raw))
		for _, bit := range out {
			if invert {
				bit ^= 1
			}
			bb.AddBit(bit)
		}
		if clean {
			return
		}
		bb.AddRow()
		raw = raw[outBits*2+2:]
	}
}

// sliceDifferentialManchester implements differential Manchester: bit
// value is carried by presence/absence of a transition at the symbol
// boundary rather than by the absolute half-symbol levels.
func sliceDifferentialManchester(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing) {
	raw, n := expandToHalfBits(pd, t)
	if n < 2 {
		return
	}
	out, outBits := bitbuf.DifferentialManchesterDecode(raw[:n], n)
	for i := 0; i < outBits; i++ {
		bb.AddBit(out[i])
	}
}
