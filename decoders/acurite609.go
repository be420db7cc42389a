// Package decoders holds the built-in device decoders, spec §8's
// end-to-end scenarios 1-4: Acurite 609TXC, Mueller Hot Rod, Blueline
// PowerCost TXID, and Jasco Security. Each is a small adapter from a
// BitBuffer to a decoder.Event, registered against the dispatcher with
// its own nominal timings (spec §6 "Protocol timings").
package decoders

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/crcutil"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

// Acurite609TXC declares the Acurite 609TXC decoder, spec §8 scenario
// 1: OOK-PWM, 5 bytes, additive checksum in byte 4.
func Acurite609TXC() decoder.Decl {
	return decoder.Decl{
		Name:       "Acurite-609TXC",
		Modulation: pulse.ModulationOOK,
		Slicer:     slicer.KindPWM,
		Timing: slicer.Timing{
			ShortUS: 220, LongUS: 408, ToleranceUS: 80,
			GapLimitUS: 500, ResetLimitUS: 4000,
		},
		Decode: decodeAcurite609TXC,
	}
}

func decodeAcurite609TXC(bb *bitbuf.BitBuffer, pkt pulse.PulseData, sink decoder.Sink) decoder.Result {
	const nBytes = 5
	for row := 0; row < bb.NumRows; row++ {
		if bb.BitsPerRow[row] < nBytes*8 {
			continue
		}
		var buf [nBytes]byte
		if bb.ExtractBytes(row, 0, buf[:], nBytes*8) != nBytes {
			continue
		}
		sum := crcutil.AddChecksum(buf[:4])
		if sum != buf[4] {
			return decoder.FailMIC()
		}

		id := buf[0]
		batteryLow := buf[1]&0x08 != 0
		raw := (int16(buf[1]) << 4) | int16(buf[2]>>4)
		raw = signExtend12(raw)
		tempC := float64(raw) * 0.1
		humidity := buf[3]

		if humidity > 100 {
			return decoder.FailSanity()
		}

		ev := decoder.NewEvent("Acurite-609TXC")
		ev.Set("id", id)
		ev.Set("battery_low", batteryLow)
		ev.Set("temperature_C", tempC)
		ev.Set("humidity", humidity)
		ev.Integrity = "CHECKSUM"
		sink.Deliver(*ev)
		return decoder.Success(1)
	}
	return decoder.AbortLength()
}

// signExtend12 sign-extends the low 12 bits of v.
func signExtend12(v int16) int16 {
	v &= 0x0fff
	if v&0x0800 != 0 {
		v |= ^int16(0x0fff)
	}
	return v
}
