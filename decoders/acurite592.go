package decoders

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

// Acurite592TXR declares the Acurite 592TXR family timings, spec §6's
// bit-exact exemplar (short 220us, long 408us, sync 620us, gap 500us,
// reset 4000us). No payload layout is specified for this family beyond
// the timings, so this registers as a PriorityFallback raw-bytes
// decoder: it only runs if nothing more specific claims the packet,
// and whenever row 0 holds at least 8 bits it succeeds by reporting the
// raw bytes of every row of 8 or more bits, rather than asserting a
// byte layout this module was never given.
func Acurite592TXR() decoder.Decl {
	return decoder.Decl{
		Name:       "Acurite-592TXR-raw",
		Modulation: pulse.ModulationOOK,
		Slicer:     slicer.KindPWM,
		Timing: slicer.Timing{
			ShortUS: 220, LongUS: 408, SyncUS: 620, ToleranceUS: 80,
			GapLimitUS: 500, ResetLimitUS: 4000,
		},
		Priority: decoder.PriorityFallback,
		Decode:   decodeAcurite592TXRRaw,
	}
}

func decodeAcurite592TXRRaw(bb *bitbuf.BitBuffer, pkt pulse.PulseData, sink decoder.Sink) decoder.Result {
	if bb.NumRows == 0 || bb.BitsPerRow[0] < 8 {
		return decoder.AbortLength()
	}
	n := 0
	for row := 0; row < bb.NumRows; row++ {
		nBits := bb.BitsPerRow[row]
		if nBits < 8 {
			continue
		}
		buf := make([]byte, (nBits+7)/8)
		nb := bb.ExtractBytes(row, 0, buf, nBits)
		ev := decoder.NewEvent("Acurite-592TXR-raw")
		ev.Set("data", buf[:nb])
		sink.Deliver(*ev)
		n++
	}
	if n == 0 {
		return decoder.AbortLength()
	}
	return decoder.Success(n)
}
