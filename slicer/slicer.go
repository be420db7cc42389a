// Package slicer implements the pulse-train slicer family of spec §4.3:
// pure functions that turn one PulseData packet into a BitBuffer under
// a chosen line code. The PCM, PPM, PWM and PIWM slicers only write
// into the BitBuffer; the Manchester-family slicers allocate through
// bitbuf.ManchesterDecode/DifferentialManchesterDecode. Every slicer
// bounds its output to bitbuf.MaxRows/bitbuf.MaxBits, matching the
// "Output guarantees" invariant in spec §4.3.
package slicer

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/pulse"
)

// Kind names one line code, spec §4.3.
type Kind int

const (
	KindPCMRZ Kind = iota
	KindPCMNRZ
	KindPPM
	KindPWM
	KindManchesterZeroBit
	KindDifferentialManchester
	KindOSv1Manchester
	KindPIWMRaw
	KindPIWMDC
)

func (k Kind) String() string {
	switch k {
	case KindPCMRZ:
		return "PCM_RZ"
	case KindPCMNRZ:
		return "PCM_NRZ"
	case KindPPM:
		return "PPM"
	case KindPWM:
		return "PWM"
	case KindManchesterZeroBit:
		return "MANCHESTER_ZEROBIT"
	case KindDifferentialManchester:
		return "DIFFERENTIAL_MANCHESTER"
	case KindOSv1Manchester:
		return "OSV1_MANCHESTER"
	case KindPIWMRaw:
		return "PIWM_RAW"
	case KindPIWMDC:
		return "PIWM_DC"
	default:
		return "UNKNOWN"
	}
}

// Timing is one decoder's nominal timing declaration, spec §3
// "Registered decoder". Tolerance defaults to ShortUS/4 when zero, per
// spec §4.3 and SPEC_FULL.md §D.3.
type Timing struct {
	ShortUS      uint32
	LongUS       uint32
	SyncUS       uint32
	ToleranceUS  uint32
	GapLimitUS   uint32
	ResetLimitUS uint32
}

func (t Timing) tolerance() uint32 {
	if t.ToleranceUS != 0 {
		return t.ToleranceUS
	}
	return t.ShortUS / 4
}

// intervalClass is the outcome of classifying one pulse or gap duration
// against a Timing's short/long/sync buckets.
type intervalClass int

const (
	classNone intervalClass = iota
	classShort
	classLong
	classSync
)

// classify buckets us against short/long (and, if nonzero, sync),
// each within the timing's tolerance. An interval matching none of the
// declared buckets is classNone — spec §4.3 "An interval failing both
// classes starts a new row."
func classify(us uint32, t Timing) intervalClass {
	tol := t.tolerance()
	within := func(v, target uint32) bool {
		lo, hi := int64(target)-int64(tol), int64(target)+int64(tol)
		return int64(v) >= lo && int64(v) <= hi
	}
	if t.SyncUS != 0 && within(us, t.SyncUS) {
		return classSync
	}
	if within(us, t.ShortUS) {
		return classShort
	}
	if within(us, t.LongUS) {
		return classLong
	}
	return classNone
}

// Slice turns one PulseData packet into a BitBuffer under the given
// line code and timing. It is a pure function: the same (kind, pd,
// timing) always yields the same BitBuffer contents.
func Slice(kind Kind, pd pulse.PulseData, t Timing) bitbuf.BitBuffer {
	var bb bitbuf.BitBuffer
	switch kind {
	case KindPCMRZ:
		slicePCM(&bb, pd, t, true)
	case KindPCMNRZ:
		slicePCM(&bb, pd, t, false)
	case KindPPM:
		slicePPM(&bb, pd, t)
	case KindPWM:
		slicePWM(&bb, pd, t)
	case KindManchesterZeroBit:
		sliceManchesterZeroBit(&bb, pd, t)
	case KindDifferentialManchester:
		sliceDifferentialManchester(&bb, pd, t)
	case KindOSv1Manchester:
		sliceOSv1Manchester(&bb, pd, t)
	case KindPIWMRaw:
		slicePIWM(&bb, pd, t, false)
	case KindPIWMDC:
		slicePIWM(&bb, pd, t, true)
	}
	return bb
}

// endRowOnReset closes out the active row and reports whether bit
// production should stop entirely, per spec §4.3: "an interval
// exceeding reset_limit_us forces end of bit-production."
func endRowOnReset(bb *bitbuf.BitBuffer, gapUS uint32, t Timing) (stop bool) {
	if t.ResetLimitUS != 0 && gapUS >= t.ResetLimitUS {
		return true
	}
	if t.GapLimitUS != 0 && gapUS >= t.GapLimitUS {
		bb.AddRow()
	}
	return false
}
