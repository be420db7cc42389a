package decoders

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/crcutil"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

// BluelinePowerCostTXID declares the Blueline PowerCost TXID decoder,
// spec §8 scenario 3: OOK-PPM, 4-byte payload, CRC-8 over the middle
// two bytes, id is those two bytes read little-endian.
func BluelinePowerCostTXID() decoder.Decl {
	return decoder.Decl{
		Name:       "Blueline-PowerCost",
		Modulation: pulse.ModulationOOK,
		Slicer:     slicer.KindPPM,
		Timing: slicer.Timing{
			ShortUS: 500, LongUS: 1000, ToleranceUS: 150,
			GapLimitUS: 2000, ResetLimitUS: 8000,
		},
		Decode: decodeBluelinePowerCostTXID,
	}
}

func decodeBluelinePowerCostTXID(bb *bitbuf.BitBuffer, pkt pulse.PulseData, sink decoder.Sink) decoder.Result {
	const nBytes = 4
	for row := 0; row < bb.NumRows; row++ {
		if bb.BitsPerRow[row] < nBytes*8 {
			continue
		}
		var buf [nBytes]byte
		if bb.ExtractBytes(row, 0, buf[:], nBytes*8) != nBytes {
			continue
		}
		msgType := buf[1] & 0x0f
		if msgType != 0 {
			// Only message type 0 ("no offset") is implemented; other
			// types carry a different payload layout this decoder
			// doesn't understand.
			return decoder.FailOther()
		}
		crc := crcutil.CRC8(buf[1:3], 0x07, 0x00)
		if crc != buf[3] {
			return decoder.FailMIC()
		}

		id := uint16(buf[2])<<8 | uint16(buf[1])

		ev := decoder.NewEvent("Blueline-PowerCost")
		ev.Set("id", id)
		ev.Integrity = "CRC"
		sink.Deliver(*ev)
		return decoder.Success(1)
	}
	return decoder.AbortLength()
}
