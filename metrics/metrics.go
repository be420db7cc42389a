// Package metrics holds the per-decoder diagnostic counters required by
// spec §7: transient signal errors and truncation are *counted*, not
// logged per-packet. The core only increments these; whether/how they
// are ever exposed (an HTTP /metrics endpoint, a push gateway, nothing
// at all) is an embedder decision, out of scope for this module per
// spec §1's "output formatters".
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Kind is one of the dispatcher's per-decoder outcome codes, spec §4.5.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindAbortEarly  Kind = "abort_early"
	KindAbortLength Kind = "abort_length"
	KindFailMIC     Kind = "fail_mic"
	KindFailSanity  Kind = "fail_sanity"
	KindFailOther   Kind = "fail_other"
)

// Diagnostics wraps the counter vectors. Construct one per pipeline
// with its own registry so multiple pipelines in one process, or
// repeated construction in tests, never collide on metric names.
type Diagnostics struct {
	decodeResults    *prometheus.CounterVec
	pulseTruncated   prometheus.Counter
	bitbufTruncated  prometheus.Counter
	fskErrorsEntered prometheus.Counter
}

// New registers the diagnostic counters against reg and returns a
// Diagnostics that increments them.
func New(reg prometheus.Registerer) *Diagnostics {
	d := &Diagnostics{
		decodeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfsense",
			Subsystem: "decoder",
			Name:      "results_total",
			Help:      "Per-decoder, per-outcome decode result counts.",
		}, []string{"decoder", "kind"}),
		pulseTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rfsense",
			Subsystem: "pulse",
			Name:      "truncated_total",
			Help:      "Packets that hit MAX_PULSES and were forcibly terminated.",
		}),
		bitbufTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rfsense",
			Subsystem: "bitbuf",
			Name:      "truncated_total",
			Help:      "BitBuffers that hit MAX_ROWS/MAX_BITS and stopped accepting bits.",
		}),
		fskErrorsEntered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rfsense",
			Subsystem: "pulse",
			Name:      "fsk_error_total",
			Help:      "Times the FSK sub-state-machine entered its Error state.",
		}),
	}
	reg.MustRegister(d.decodeResults, d.pulseTruncated, d.bitbufTruncated, d.fskErrorsEntered)
	return d
}

// ObserveDecode records one decoder's result for one packet.
func (d *Diagnostics) ObserveDecode(decoderName string, kind Kind) {
	if d == nil {
		return
	}
	d.decodeResults.WithLabelValues(decoderName, string(kind)).Inc()
}

// PulseTruncated records a pulse-buffer overflow (spec §4.2 "Buffer overflow").
func (d *Diagnostics) PulseTruncated() {
	if d == nil {
		return
	}
	d.pulseTruncated.Inc()
}

// BitBufTruncated records a slicer row/bit overflow (spec §4.3 "Output guarantees").
func (d *Diagnostics) BitBufTruncated() {
	if d == nil {
		return
	}
	d.bitbufTruncated.Inc()
}

// FSKErrorEntered records the FSK sub-FSM entering its Error state (spec §4.2).
func (d *Diagnostics) FSKErrorEntered() {
	if d == nil {
		return
	}
	d.fskErrorsEntered.Inc()
}
