package decoders

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/crcutil"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

// muellerPreamble is "fe b1 00", spec §8 scenario 2.
var muellerPreamble = []byte{
	1, 1, 1, 1, 1, 1, 1, 0, // 0xfe
	1, 0, 1, 1, 0, 0, 0, 1, // 0xb1
	0, 0, 0, 0, 0, 0, 0, 0, // 0x00
}

// MuellerHotRod declares the Mueller Hot Rod decoder, spec §8 scenario
// 2: FSK_PCM at 26 us/bit, 9-byte payload following a 3-byte preamble.
func MuellerHotRod() decoder.Decl {
	return decoder.Decl{
		Name:       "Mueller-HotRod",
		Modulation: pulse.ModulationFSK,
		Slicer:     slicer.KindPCMNRZ,
		Timing:     slicer.Timing{ShortUS: 26, ToleranceUS: 8},
		Preamble:   muellerPreamble,
		Decode:     decodeMuellerHotRod,
	}
}

func decodeMuellerHotRod(bb *bitbuf.BitBuffer, pkt pulse.PulseData, sink decoder.Sink) decoder.Result {
	const payloadBytes = 9
	preambleBits := len(muellerPreamble)
	for row := 0; row < bb.NumRows; row++ {
		if bb.BitsPerRow[row] < preambleBits+payloadBytes*8 {
			continue
		}
		var buf [payloadBytes]byte
		if bb.ExtractBytes(row, preambleBits, buf[:], payloadBytes*8) != payloadBytes {
			continue
		}
		crc := crcutil.CRC8(buf[:8], 0x07, 0x00) ^ 0x55
		if crc != buf[8] {
			return decoder.FailMIC()
		}

		volumeGal := uint32(buf[1])<<24 | uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])
		flag := buf[5]

		ev := decoder.NewEvent("Mueller-HotRod")
		ev.Set("id", buf[0])
		ev.Set("volume_gal", volumeGal)
		ev.Set("flag", flag)
		ev.Integrity = "CRC"
		sink.Deliver(*ev)
		return decoder.Success(1)
	}
	return decoder.AbortLength()
}
