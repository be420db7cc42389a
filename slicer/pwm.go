package slicer

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/pulse"
)

// slicePWM implements pulse-width modulation, spec §4.3: the bit value
// is carried by the pulse width itself (short -> 1, long -> 0, the
// opposite convention from PCM), while the gap is compared against
// reset/gap_limit to delimit rows. A sync-width pulse opens a new
// row without contributing a bit.
func slicePWM(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing) {
	for i := 0; i < pd.NumPulses; i++ {
		switch classify(uint32(pd.PulseUS[i]), t) {
		case classSync:
			bb.AddRow()
			continue
		case classShort:
			bb.AddBit(1)
		case classLong:
			bb.AddBit(0)
		default:
			bb.AddRow()
			continue
		}
		if endRowOnReset(bb, uint32(pd.GapUS[i]), t) {
			return
		}
	}
}
