package slicer

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/pulse"
)

// slicePIWM implements pulse-interval width modulation, spec §4.3: like
// PPM, the bit value is carried by the gap width (short -> 0, long ->
// 1), with the pulse reserved for sync recognition. The dc ("DC
// restore") variant additionally discards any leading pairs whose gap
// doesn't yet classify as short/long before the first bit is emitted,
// matching protocols that prefix a run of carrier-settling edges ahead
// of the real preamble.
func slicePIWM(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing, dc bool) {
	started := !dc
	for i := 0; i < pd.NumPulses; i++ {
		if t.SyncUS != 0 && classify(uint32(pd.PulseUS[i]), t) == classSync {
			bb.AddRow()
			started = true
			continue
		}
		gapClass := classify(uint32(pd.GapUS[i]), t)
		if !started {
			if gapClass == classNone {
				continue
			}
			started = true
		}
		switch gapClass {
		case classShort:
			bb.AddBit(0)
		case classLong:
			bb.AddBit(1)
		default:
			bb.AddRow()
			continue
		}
		if endRowOnReset(bb, uint32(pd.GapUS[i]), t) {
			return
		}
	}
}
