package decoders

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/crcutil"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

// jascoPreamble is 0xFC 0x0C (16 bits), spec §8 scenario 4.
var jascoPreamble = []byte{
	1, 1, 1, 1, 1, 1, 0, 0, // 0xfc
	0, 0, 0, 0, 1, 1, 0, 0, // 0x0c
}

// JascoSecurity declares the Jasco Security decoder, spec §8 scenario
// 4: a fixed preamble followed by a Manchester-encoded 32-bit payload,
// XOR checksum over the first 3 payload bytes against the 4th. The
// whole packet, preamble included, is sliced as Manchester, so the
// preamble is matched as Manchester-decoded bits (see DESIGN.md).
func JascoSecurity() decoder.Decl {
	return decoder.Decl{
		Name:       "Jasco-Security",
		Modulation: pulse.ModulationOOK,
		Slicer:     slicer.KindManchesterZeroBit,
		Timing:     slicer.Timing{ShortUS: 250, LongUS: 500, ToleranceUS: 80},
		Preamble:   jascoPreamble,
		Decode:     decodeJascoSecurity,
	}
}

func decodeJascoSecurity(bb *bitbuf.BitBuffer, pkt pulse.PulseData, sink decoder.Sink) decoder.Result {
	const nBytes = 4
	preambleBits := len(jascoPreamble)
	for row := 0; row < bb.NumRows; row++ {
		if bb.BitsPerRow[row] < preambleBits+nBytes*8 {
			continue
		}
		var buf [nBytes]byte
		if bb.ExtractBytes(row, preambleBits, buf[:], nBytes*8) != nBytes {
			continue
		}
		sum := crcutil.XORChecksum(buf[:3])
		if sum != buf[3] {
			return decoder.FailMIC()
		}

		id := uint16(buf[0])<<8 | uint16(buf[1])
		status := "open"
		if buf[2]&0xEF == 0xEF {
			status = "closed"
		}

		ev := decoder.NewEvent("Jasco-Security")
		ev.Set("id", id)
		ev.Set("status", status)
		ev.Integrity = "CHECKSUM"
		sink.Deliver(*ev)
		return decoder.Success(1)
	}
	return decoder.AbortLength()
}
