package slicer

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/pulse"
)

// slicePPM implements pulse-position modulation, spec §4.3: the bit
// value is carried by the gap following each pulse (short gap -> 0,
// long gap -> 1); the pulse itself is only used to recognize a sync
// symbol that opens a new row.
func slicePPM(bb *bitbuf.BitBuffer, pd pulse.PulseData, t Timing) {
	for i := 0; i < pd.NumPulses; i++ {
		if t.SyncUS != 0 && classify(uint32(pd.PulseUS[i]), t) == classSync {
			bb.AddRow()
			continue
		}
		switch classify(uint32(pd.GapUS[i]), t) {
		case classShort:
			bb.AddBit(0)
		case classLong:
			bb.AddBit(1)
		default:
			bb.AddRow()
			continue
		}
		if t.ResetLimitUS != 0 && uint32(pd.GapUS[i]) >= t.ResetLimitUS {
			return
		}
	}
}
