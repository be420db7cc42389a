package pulse

// Config parameterizes one Detector instance. All timing fields are in
// microseconds except MinPulseSamples, which is expressed in raw
// samples because the "coalesce spurious spikes" rule in spec §4.2
// names a sample count ("8 samples at 250 kS/s"), not a duration.
type Config struct {
	SampleRate   uint32
	CenterFreqHz uint32

	// OOKThresholdFraction places the instantaneous threshold this
	// fraction of the way from the noise estimate to the signal
	// estimate (spec §4.2 "Adaptive estimators").
	OOKThresholdFraction float64

	// FixedHighLevel, if non-nil, disables adaptation and uses this
	// value as the threshold directly (spec §4.2 "fixed high level
	// override").
	FixedHighLevel *int32

	// GapLimitUS/ResetLimitUS bound one packet: a gap at least this
	// long (with at least one pulse already recorded) ends the packet
	// normally; a gap at least ResetLimitUS long discards it instead.
	GapLimitUS   uint32
	ResetLimitUS uint32

	// MinPulseSamples: pulses shorter than this are coalesced into the
	// surrounding gap rather than recorded on their own (spec §4.2).
	MinPulseSamples int

	// MaxPulseUS caps any single recorded pulse duration.
	MaxPulseUS uint32

	// FSKDeviationThreshold is the minimum |fm_max - fm_min| swing,
	// sampled across one OOK-accepted pulse, that makes the detector
	// suspect FSK and switch the fm[] sub-state-machine on (spec §4.2
	// "FSK mode"). This trigger heuristic is this module's own choice.
	FSKDeviationThreshold int32

	// FSKDecay sets how quickly fsk_max/fsk_min decay toward the
	// current fm sample each tick (0 < FSKDecay <= 1; smaller is slower).
	FSKDecay float64
}

// DefaultConfig returns reasonable defaults for a 250 kS/s OOK/FSK
// capture, matching the sample rate named throughout spec §4.2.
func DefaultConfig(sampleRate, centerFreqHz uint32) Config {
	return Config{
		SampleRate:            sampleRate,
		CenterFreqHz:          centerFreqHz,
		OOKThresholdFraction:  0.5,
		GapLimitUS:            4000,
		ResetLimitUS:          30000,
		MinPulseSamples:       8,
		MaxPulseUS:            100000,
		FSKDeviationThreshold: 6000,
		FSKDecay:              0.02,
	}
}

type ookState int

const (
	ookIdle ookState = iota
	ookPulseHigh
	ookPulseLow
)

type fskState int

const (
	fskNone fskState = iota // sub-FSM not running
	fskInit
	fskFreqHigh
	fskFreqLow
	fskError
)

// Detector is the two-mode pulse detector of spec §4.2. It is strictly
// sequential (spec §5: one input block at a time, no blocking), and
// owns no globally shared state — every Detector is independent.
type Detector struct {
	cfg Config
	out PacketSink

	state        ookState
	noiseEst     float64
	signalEst    float64
	threshHigh   float64 // hysteresis-adjusted "go high" threshold
	threshLow    float64 // hysteresis-adjusted "go low" threshold

	pulseSamples   uint64
	gapSamples     uint64
	samplesSeen    uint64 // absolute position, for start/end-ago bookkeeping
	packetStart    uint64
	pendingPulseUS uint32 // most recently closed pulse, awaiting its terminating gap
	pulseCoalesced bool   // a spurious spike was folded into the gap; pendingPulseUS was already appended once and must not be re-emitted

	pkt PulseData

	// FSK sub-state, active only once a candidate pulse looks bimodal
	// in fm[].
	fsk         fskState
	fskPkt      PulseData
	fskMax      float64
	fskMin      float64
	fskHigh     bool
	fskPulseLen uint64
	fskGapLen   uint64
	candidateFmMax float64
	candidateFmMin float64
}

// New builds a Detector that delivers completed packets to out.
func New(cfg Config, out PacketSink) *Detector {
	d := &Detector{cfg: cfg, out: out}
	d.resetEstimators()
	return d
}

func (d *Detector) resetEstimators() {
	d.noiseEst = 0
	d.signalEst = 0
	d.recomputeThresholds()
}

func (d *Detector) recomputeThresholds() {
	if d.cfg.FixedHighLevel != nil {
		level := float64(*d.cfg.FixedHighLevel)
		d.threshHigh = level
		d.threshLow = level
		return
	}
	mid := d.noiseEst + d.cfg.OOKThresholdFraction*(d.signalEst-d.noiseEst)
	span := d.signalEst - d.noiseEst
	if span < 1 {
		span = 1
	}
	d.threshHigh = mid + span/8
	d.threshLow = mid - span/8
}

// Process consumes one block of am[]/fm[] (equal length, one sample
// each) and emits zero, one, or two PulseData packets to the sink
// before returning, per spec §4.2 "Concurrency & scheduling".
func (d *Detector) Process(am, fm []int16) {
	for k := range am {
		d.step(am[k], fmAt(fm, k))
		d.samplesSeen++
	}
}

func fmAt(fm []int16, k int) int16 {
	if k < len(fm) {
		return fm[k]
	}
	return 0
}

func (d *Detector) step(amSample, fmSample int16) {
	v := float64(amSample)

	switch d.state {
	case ookIdle:
		// Track the noise floor while nothing is happening.
		d.noiseEst = ewma(d.noiseEst, v, 0.001)
		d.recomputeThresholds()
		if v >= d.threshHigh {
			d.enterPulseHigh()
		}

	case ookPulseHigh:
		d.signalEst = ewma(d.signalEst, v, 0.01)
		d.recomputeThresholds()
		if d.fsk == fskNone {
			d.trackFSKCandidate(fmSample)
		}
		if v <= d.threshLow {
			d.closePulseStartGap()
			return
		}
		d.pulseSamples++

	case ookPulseLow:
		d.gapSamples++
		if d.fsk != fskNone {
			d.stepFSK(fmSample)
		}
		if v >= d.threshHigh {
			d.closeGapStartPulse()
			return
		}
		gapUS := samplesToUS(d.gapSamples, d.cfg.SampleRate)
		if gapUS >= d.cfg.ResetLimitUS {
			d.doReset()
		} else if gapUS >= d.cfg.GapLimitUS && d.pkt.NumPulses > 0 {
			d.doEnd(BoundaryGapLimit)
		}
	}
}

func (d *Detector) enterPulseHigh() {
	d.state = ookPulseHigh
	d.pulseSamples = 1
	if d.pkt.NumPulses == 0 {
		d.packetStart = d.samplesSeen
		d.pkt = PulseData{Modulation: ModulationOOK, SampleRate: d.cfg.SampleRate, CenterFreqHz: d.cfg.CenterFreqHz}
	}
}

// closePulseStartGap records a finished pulse and begins timing the
// gap that follows it (PulseHigh -> PulseLow, spec §4.2).
func (d *Detector) closePulseStartGap() {
	pulseUS := samplesToUS(d.pulseSamples, d.cfg.SampleRate)
	if pulseUS > d.cfg.MaxPulseUS {
		pulseUS = d.cfg.MaxPulseUS
	}
	if int(d.pulseSamples) < d.cfg.MinPulseSamples {
		// Spurious spike: fold it back into the gap that precedes it by
		// simply not recording a boundary; remain accumulating gap time
		// as if the pulse never interrupted it. pendingPulseUS was
		// already appended once for the pulse before this spike, so the
		// next closeGapStartPulse must not append it again.
		d.state = ookPulseLow
		d.gapSamples = d.pulseSamples
		d.pulseCoalesced = true
		return
	}
	d.pendingPulseUS = pulseUS
	d.pulseCoalesced = false
	d.state = ookPulseLow
	d.gapSamples = 0
	if d.fsk == fskNone && d.candidateFmMax-d.candidateFmMin >= float64(d.cfg.FSKDeviationThreshold) {
		d.startFSK()
	}
	d.candidateFmMax, d.candidateFmMin = 0, 0
}

// closeGapStartPulse closes the (pulse,gap) pair that just ended on a
// rising edge and begins a new pulse (PulseLow -> PulseHigh, spec §4.2).
// If that pair overflowed the packet, appendPair has already delivered
// and reset it, and the rising edge starts a fresh packet instead. If
// the gap just ended was reopened after coalescing a spurious spike,
// pendingPulseUS was already appended for the pulse before that spike
// and must not be recorded again here.
func (d *Detector) closeGapStartPulse() {
	if d.pulseCoalesced {
		d.pulseCoalesced = false
		d.enterPulseHigh()
		return
	}
	gapUS := samplesToUS(d.gapSamples, d.cfg.SampleRate)
	d.appendPair(d.pendingPulseUS, gapUS)
	d.enterPulseHigh()
}

// appendPair records one (pulse,gap) timing pair, forcibly ending the
// packet on overflow per spec §4.2 "Buffer overflow". Returns true if
// the packet was delivered as a side effect of this call.
func (d *Detector) appendPair(pulseUS, gapUS uint32) bool {
	if d.pkt.NumPulses >= MaxPulses {
		d.pkt.Boundary = BoundaryOverflow
		d.pkt.Truncated = true
		d.emitOOK()
		d.state = ookIdle
		return true
	}
	i := d.pkt.NumPulses
	d.pkt.PulseUS[i] = int32(pulseUS)
	d.pkt.GapUS[i] = int32(gapUS)
	d.pkt.NumPulses++
	return false
}

func (d *Detector) doEnd(reason BoundaryReason) {
	if !d.pulseCoalesced {
		gapUS := samplesToUS(d.gapSamples, d.cfg.SampleRate)
		if d.appendPair(d.pendingPulseUS, gapUS) {
			// Already delivered (as an overflow) by appendPair itself.
			return
		}
	}
	d.pulseCoalesced = false
	d.pkt.Boundary = reason
	d.emitOOK()
	d.state = ookIdle
}

func (d *Detector) doReset() {
	d.pkt = PulseData{}
	d.pulseCoalesced = false
	d.endFSK(false)
	d.state = ookIdle
	d.resetEstimators()
}

func (d *Detector) emitOOK() {
	d.pkt.EndAgoSamples = 0
	d.pkt.StartAgoSamples = d.samplesSeen - d.packetStart
	if d.out != nil {
		d.out.Deliver(d.pkt)
	}
	d.endFSK(true)
	d.pkt = PulseData{}
}

// trackFSKCandidate widens the running fm[] extremes observed during
// the current OOK pulse, so closePulseStartGap can decide whether this
// burst looks bimodal enough in frequency to be FSK rather than OOK.
func (d *Detector) trackFSKCandidate(fmSample int16) {
	v := float64(fmSample)
	if v > d.candidateFmMax {
		d.candidateFmMax = v
	}
	if v < d.candidateFmMin || d.candidateFmMin == 0 {
		d.candidateFmMin = v
	}
}

// startFSK switches on the fm[] sub-state-machine (spec §4.2 "FSK
// mode"), seeding fsk_max/fsk_min from the candidate extremes just
// observed over the triggering pulse.
func (d *Detector) startFSK() {
	d.fsk = fskInit
	d.fskMax = d.candidateFmMax
	d.fskMin = d.candidateFmMin
	d.fskHigh = d.fskMax-d.fskMin > 0 // arbitrary tie-break, first sample corrects it
	d.fskPulseLen, d.fskGapLen = 0, 0
	d.fskPkt = PulseData{
		Modulation:   ModulationFSK,
		SampleRate:   d.cfg.SampleRate,
		CenterFreqHz: d.cfg.CenterFreqHz,
	}
}

// stepFSK advances the fm[]-driven sub-state-machine by one sample. The
// current symbol is "high" while fm exceeds the running midpoint
// between the slowly-decayed fsk_max/fsk_min, "low" otherwise, per spec
// §4.2.
func (d *Detector) stepFSK(fmSample int16) {
	if d.fsk == fskError {
		return
	}
	v := float64(fmSample)
	d.fskMax -= (d.fskMax - v) * d.cfg.FSKDecay
	d.fskMin -= (d.fskMin - v) * d.cfg.FSKDecay
	if d.fskMax < d.fskMin {
		d.fskMax, d.fskMin = d.fskMin, d.fskMax
	}
	mid := (d.fskMax + d.fskMin) / 2
	high := v > mid

	switch d.fsk {
	case fskInit:
		d.fsk = fskFreqState(high)
		d.fskHigh = high
	case fskFreqHigh, fskFreqLow:
		if high == d.fskHigh {
			if d.fskHigh {
				d.fskPulseLen++
			} else {
				d.fskGapLen++
			}
			return
		}
		// Edge: close out the interval we were accumulating.
		if d.fskHigh {
			d.fskPulseLen++
			d.fskGapLen = 0
		} else {
			d.fskGapLen++
			if !d.appendFSKPair() {
				return
			}
			d.fskPulseLen = 0
		}
		d.fskHigh = high
		d.fsk = fskFreqState(high)
	}

	// Track mark/space FM-level estimates for the PulseData metadata.
	if high {
		d.fskPkt.FSKf1Est = int32(v)
	} else {
		d.fskPkt.FSKf2Est = int32(v)
	}
}

func fskFreqState(high bool) fskState {
	if high {
		return fskFreqHigh
	}
	return fskFreqLow
}

// appendFSKPair records one fsk (pulse,gap) pair, entering the Error
// sub-state on overflow (spec §4.2: "Error is entered on overflow and
// stays until the outer packet ends"). Returns false if the sub-FSM
// just entered Error.
func (d *Detector) appendFSKPair() bool {
	if d.fskPkt.NumPulses >= MaxPulses {
		d.fsk = fskError
		d.fskPkt.Truncated = true
		d.fskPkt.Boundary = BoundaryOverflow
		return false
	}
	i := d.fskPkt.NumPulses
	d.fskPkt.PulseUS[i] = int32(samplesToUS(d.fskPulseLen, d.cfg.SampleRate))
	d.fskPkt.GapUS[i] = int32(samplesToUS(d.fskGapLen, d.cfg.SampleRate))
	d.fskPkt.NumPulses++
	return true
}

// endFSK finalizes the fsk sub-packet (if one was running) when the
// outer OOK packet ends, delivering it alongside the OOK packet per
// spec §4.2. If deliver is false (the outer packet was discarded via
// Reset) the fsk sub-packet is discarded too.
func (d *Detector) endFSK(deliver bool) {
	if d.fsk == fskNone {
		return
	}
	if deliver && d.fskPkt.NumPulses > 0 && d.out != nil {
		d.out.Deliver(d.fskPkt)
	}
	d.fsk = fskNone
	d.fskPkt = PulseData{}
	d.candidateFmMax, d.candidateFmMin = 0, 0
}

func samplesToUS(samples uint64, sampleRate uint32) uint32 {
	if sampleRate == 0 {
		return 0
	}
	return uint32((samples * 1000000) / uint64(sampleRate))
}

func ewma(prev, sample, alpha float64) float64 {
	return alpha*sample + (1-alpha)*prev
}
