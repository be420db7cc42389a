// Package decoder implements the registered-decoder protocol and
// dispatcher of spec §4.5: every built-in and flex decoder plugs into
// the same Decl/decode-function contract, and Registry runs each
// matching decoder against a completed PulseData packet, aggregating
// results per spec §4.5/§7.
package decoder

import (
	"github.com/jlmayfield/rfsense/bitbuf"
	"github.com/jlmayfield/rfsense/logging"
	"github.com/jlmayfield/rfsense/metrics"
	"github.com/jlmayfield/rfsense/pulse"
	"github.com/jlmayfield/rfsense/slicer"
)

// Priority controls fallback ordering, spec §4.5 "Priority".
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityFallback
)

// Result is the typed outcome of one decoder's decode function, spec
// §4.5 item 3. A Success carries the number of events it produced.
type Result struct {
	Kind  metrics.Kind
	NEvents int
}

func Success(n int) Result         { return Result{Kind: metrics.KindSuccess, NEvents: n} }
func AbortEarly() Result           { return Result{Kind: metrics.KindAbortEarly} }
func AbortLength() Result          { return Result{Kind: metrics.KindAbortLength} }
func FailMIC() Result              { return Result{Kind: metrics.KindFailMIC} }
func FailSanity() Result           { return Result{Kind: metrics.KindFailSanity} }
func FailOther() Result            { return Result{Kind: metrics.KindFailOther} }

// specificity ranks failure kinds so the dispatcher can report the
// "most specific" one across every decoder that ran, per spec §4.5
// item 4. Higher is more specific; Success ranks below every failure,
// so any observed failure replaces the initial Success.
func (r Result) specificity() int {
	switch r.Kind {
	case metrics.KindSuccess:
		return -1
	case metrics.KindFailMIC:
		return 4
	case metrics.KindFailSanity:
		return 3
	case metrics.KindAbortLength:
		return 2
	case metrics.KindAbortEarly:
		return 1
	default:
		return 0
	}
}

// Event is one decoded record, spec §6 "Decoded event envelope": a
// model name, an optional integrity tag, and a flat set of named
// fields. Field order is insertion order so textual output formatters
// stay stable.
type Event struct {
	Model     string
	Integrity string // "CRC", "CHECKSUM", "PARITY", or "" if absent
	keys      []string
	values    map[string]any
}

// NewEvent starts an Event for the given model name.
func NewEvent(model string) *Event {
	return &Event{Model: model, values: map[string]any{}}
}

// Set attaches a field, preserving first-insertion order for Keys.
func (e *Event) Set(key string, value any) *Event {
	if _, exists := e.values[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
	return e
}

// Keys returns field names in insertion order.
func (e *Event) Keys() []string { return e.keys }

// Get returns a field value and whether it was set.
func (e *Event) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Sink receives decoded events, in dispatcher emission order.
type Sink interface {
	Deliver(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Deliver(e Event) { f(e) }

// DecodeFunc is one registered decoder's entry point: given the sliced
// BitBuffer and the originating packet (for RSSI/frequency metadata),
// it emits zero or more events to sink and returns the outcome.
type DecodeFunc func(bb *bitbuf.BitBuffer, pkt pulse.PulseData, sink Sink) Result

// Decl is a registered decoder declaration, spec §3 "Registered
// decoder" / §4.5.
type Decl struct {
	Name       string
	Modulation pulse.Modulation
	Slicer     slicer.Kind
	Timing     slicer.Timing
	Priority   Priority

	// Preamble, if non-empty, must appear at the start of row 0 (after
	// slicing) or the packet is discarded before Decode ever runs,
	// spec §4.5 item 2.
	Preamble []byte

	Decode DecodeFunc
}

// Registry holds every decoder registered before Start, spec §6
// "register_decoder(decl) fails if called after start()".
type Registry struct {
	decls   []Decl
	started bool
	log     logging.Logger
	diag    *metrics.Diagnostics
}

// NewRegistry builds an empty Registry. log and diag may be nil
// (logging.Nop{} and a nil *Diagnostics are both safe zero values).
func NewRegistry(log logging.Logger, diag *metrics.Diagnostics) *Registry {
	if log == nil {
		log = logging.Nop{}
	}
	return &Registry{log: log, diag: diag}
}

// ErrAlreadyStarted is returned by Register once Start has been called.
type ErrAlreadyStarted struct{}

func (ErrAlreadyStarted) Error() string { return "decoder: Register called after Start" }

// Register adds a decl to the registry. Fails once the registry has
// started, spec §6.
func (r *Registry) Register(d Decl) error {
	if r.started {
		return ErrAlreadyStarted{}
	}
	r.decls = append(r.decls, d)
	return nil
}

// Start freezes the registry against further registration, spec §6
// "register_decoder fails if called after start()".
func (r *Registry) Start() { r.started = true }

// Dispatch runs every decoder whose Modulation matches pkt's, per spec
// §4.5. Default-priority decoders run first; fallback decoders only run
// if no default decoder succeeded. All successes are emitted in
// registration order (the Tie policy), and the dispatcher's own return
// value is the most specific failure kind observed, or Success if at
// least one decoder succeeded.
func (r *Registry) Dispatch(pkt pulse.PulseData, sink Sink) Result {
	var (
		anySuccess bool
		worst      = Result{Kind: metrics.KindSuccess}
	)

	run := func(d Decl) {
		if d.Modulation != pkt.Modulation {
			return
		}
		bb := slicer.Slice(d.Slicer, pkt, d.Timing)
		if bb.Truncated {
			r.diag.BitBufTruncated()
		}
		if len(d.Preamble) > 0 {
			if bb.NumRows == 0 || !rowHasPrefix(&bb, 0, d.Preamble) {
				res := AbortEarly()
				r.diag.ObserveDecode(d.Name, res.Kind)
				if res.specificity() > worst.specificity() {
					worst = res
				}
				return
			}
		}
		res := d.Decode(&bb, pkt, sink)
		r.diag.ObserveDecode(d.Name, res.Kind)
		if res.Kind == metrics.KindSuccess {
			anySuccess = true
			return
		}
		if res.specificity() > worst.specificity() {
			worst = res
		}
	}

	for _, d := range r.decls {
		if d.Priority == PriorityDefault {
			run(d)
		}
	}
	if !anySuccess {
		for _, d := range r.decls {
			if d.Priority == PriorityFallback {
				run(d)
			}
		}
	}

	if anySuccess {
		return Success(0)
	}
	return worst
}

func rowHasPrefix(bb *bitbuf.BitBuffer, row int, pat []byte) bool {
	return bb.Search(row, pat, 0) == 0
}
