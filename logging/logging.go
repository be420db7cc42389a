// Package logging defines the typed decoder_log seam described in
// spec §9: a pre-formatted, leveled, component-tagged log record, with
// no printf-style call-site variadics. The core never decides where a
// log record ends up (that is an external collaborator, per spec §1);
// it only ever calls a Logger it was handed at construction time.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Fields carries structured attributes attached to one log record.
// Keys are short and stable (e.g. "packet_len", "decoder") so an
// embedder's log processor can index on them.
type Fields map[string]any

// Logger is the interface every core component depends on. Module is a
// short component tag ("pulse", "dispatch", "flex", ...); msg is the
// already-formatted human message.
type Logger interface {
	Debug(module, msg string, fields Fields)
	Info(module, msg string, fields Fields)
	Warn(module, msg string, fields Fields)
	Error(module, msg string, fields Fields)
}

// zerologLogger is the default Logger, backed by github.com/rs/zerolog.
// It is the implementation an embedder gets unless it supplies its own.
type zerologLogger struct {
	log zerolog.Logger
}

// New builds a Logger that writes structured records to w.
func New(w io.Writer) Logger {
	return &zerologLogger{log: zerolog.New(w).With().Timestamp().Logger()}
}

// NewStderr is a convenience constructor for the common case.
func NewStderr() Logger {
	return New(os.Stderr)
}

func (z *zerologLogger) event(e *zerolog.Event, module, msg string, fields Fields) {
	e = e.Str("module", module)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

func (z *zerologLogger) Debug(module, msg string, fields Fields) {
	z.event(z.log.Debug(), module, msg, fields)
}

func (z *zerologLogger) Info(module, msg string, fields Fields) {
	z.event(z.log.Info(), module, msg, fields)
}

func (z *zerologLogger) Warn(module, msg string, fields Fields) {
	z.event(z.log.Warn(), module, msg, fields)
}

func (z *zerologLogger) Error(module, msg string, fields Fields) {
	z.event(z.log.Error(), module, msg, fields)
}

// Nop discards everything. Used by tests and by embedders who want the
// core fully silent.
type Nop struct{}

func (Nop) Debug(string, string, Fields) {}
func (Nop) Info(string, string, Fields)  {}
func (Nop) Warn(string, string, Fields)  {}
func (Nop) Error(string, string, Fields) {}

var _ Logger = Nop{}
var _ Logger = (*zerologLogger)(nil)
