// Package pipeline wires baseband demodulation, pulse detection, and
// decoder dispatch into the single embedder-facing object spec §6
// describes: register decoders, start, then push IQ blocks and
// receive decoded events. The pipeline is single-threaded and
// cooperatively driven, spec §5 "Scheduling model" -- one call to
// OnSamples runs §4.1 through §4.5 to completion before returning.
package pipeline

import (
	"fmt"
	"time"

	"github.com/jlmayfield/rfsense/baseband"
	"github.com/jlmayfield/rfsense/decoder"
	"github.com/jlmayfield/rfsense/logging"
	"github.com/jlmayfield/rfsense/metrics"
	"github.com/jlmayfield/rfsense/pulse"
)

// Config parameterizes a Pipeline. SampleRateHz/CenterFreqHz are fixed
// for the pipeline's lifetime (spec §4.1/§4.2 bake them into the
// demodulator/detector at construction; re-tuning means building a new
// Pipeline).
type Config struct {
	SampleRateHz uint32
	CenterFreqHz uint32

	Detector pulse.Config

	// LowPassAlpha, in (0,1], configures the AM envelope's IIR
	// low-pass, spec §4.1. 0 selects no filtering.
	LowPassAlpha float64

	// DedupeWindow suppresses re-emitting an identical (decoder,
	// fields) event within this duration of a prior emission of the
	// same event, SPEC_FULL.md §C.2. Zero disables suppression, the
	// default: this is a policy knob, not a correctness requirement.
	DedupeWindow time.Duration
}

// Pipeline ties the demodulator, detector, and decoder registry
// together. It owns no process-wide state (spec §9 "Global tables and
// static state"): everything lives on this struct, so multiple
// Pipelines coexist safely in one process.
type Pipeline struct {
	cfg   Config
	demod *baseband.Demodulator
	det   *pulse.Detector
	reg   *decoder.Registry
	log   logging.Logger
	diag  *metrics.Diagnostics

	sink   decoder.Sink
	dedupe *dedupeWindow

	amBuf []int16
	fmBuf []int16

	analyzers []pulse.PacketSink
}

// New builds a Pipeline that delivers decoded events to sink. log and
// diag may be nil; logging.Nop{} and a nil *metrics.Diagnostics are
// both safe zero values (mirroring decoder.NewRegistry's contract).
func New(cfg Config, sink decoder.Sink, log logging.Logger, diag *metrics.Diagnostics) *Pipeline {
	if log == nil {
		log = logging.Nop{}
	}
	p := &Pipeline{
		cfg:  cfg,
		sink: sink,
		log:  log,
		diag: diag,
		reg:  decoder.NewRegistry(log, diag),
	}
	if cfg.LowPassAlpha > 0 {
		p.demod = baseband.NewFiltered(cfg.LowPassAlpha)
	} else {
		p.demod = baseband.New()
	}
	if cfg.DedupeWindow > 0 {
		p.dedupe = newDedupeWindow(cfg.DedupeWindow)
	}

	detCfg := cfg.Detector
	detCfg.SampleRate = cfg.SampleRateHz
	detCfg.CenterFreqHz = cfg.CenterFreqHz
	p.det = pulse.New(detCfg, pulse.PacketSinkFunc(p.onPacket))
	return p
}

// RegisterDecoder adds a decl to the dispatcher, spec §6
// "register_decoder(decl) -- fails if called after start()".
func (p *Pipeline) RegisterDecoder(d decoder.Decl) error {
	return p.reg.Register(d)
}

// Attach adds a read-only observer (e.g. an amanalyze.Analyzer) that
// sees every completed PulseData alongside the dispatcher, spec
// SPEC_FULL.md §C.3. Must be called before Start.
func (p *Pipeline) Attach(s pulse.PacketSink) {
	p.analyzers = append(p.analyzers, s)
}

// Start freezes decoder registration, spec §6 "start() -> Pipeline".
// After Start, OnSamples/OnSamplesS16 accept IQ blocks.
func (p *Pipeline) Start() {
	p.reg.Start()
}

// OnSamples demodulates and decodes one contiguous block of
// offset-128 unsigned-8 IQ byte pairs, spec §5 "on_samples(buf, ...)".
// Callers must fully own buf until this call returns; it is consumed
// synchronously and never retained.
func (p *Pipeline) OnSamples(buf []byte) {
	n := len(buf) / 2
	if n == 0 {
		return
	}
	p.ensureScratch(n)
	p.demod.ProcessU8(buf, p.amBuf[:n], p.fmBuf[:n])
	p.det.Process(p.amBuf[:n], p.fmBuf[:n])
}

// OnSamplesS16 is the signed-16 IQ parallel entry point named in spec
// §4.1's Input contract.
func (p *Pipeline) OnSamplesS16(buf []int16) {
	n := len(buf) / 2
	if n == 0 {
		return
	}
	p.ensureScratch(n)
	p.demod.ProcessS16(buf, p.amBuf[:n], p.fmBuf[:n])
	p.det.Process(p.amBuf[:n], p.fmBuf[:n])
}

func (p *Pipeline) ensureScratch(n int) {
	if cap(p.amBuf) < n {
		p.amBuf = make([]int16, n)
		p.fmBuf = make([]int16, n)
	}
}

// onPacket is the detector's sink: it fans the completed packet out to
// every attached analyzer, then runs the decoder dispatch and forwards
// surviving events (after dedupe) to the pipeline's external sink.
func (p *Pipeline) onPacket(pkt pulse.PulseData) {
	for _, a := range p.analyzers {
		a.Deliver(pkt)
	}
	if pkt.Truncated {
		p.diag.PulseTruncated()
	}
	p.reg.Dispatch(pkt, decoder.SinkFunc(p.onEvent))
}

func (p *Pipeline) onEvent(e decoder.Event) {
	if p.dedupe != nil && p.dedupe.seenRecently(eventKey(e)) {
		return
	}
	p.sink.Deliver(e)
}

// eventKey builds a stable string identity for an event from its model
// name and fields in insertion order, used only as a dedupe hash key
// (not exposed to decoders or embedders).
func eventKey(e decoder.Event) string {
	key := e.Model
	for _, k := range e.Keys() {
		v, _ := e.Get(k)
		key += fmt.Sprintf("|%s=%v", k, v)
	}
	return key
}
