package progress

import (
	"encoding/json"
	"io"
	"sync"

	"whisperd/pkg/types"
)

// Prefix marks progress lines on the diagnostic stream so consumers can
// tell them apart from log output and command responses.
const Prefix = "PROGRESS:"

// Sink receives estimator events.
type Sink interface {
	Progress(ev types.ProgressEvent)
	Complete(ev types.CompleteEvent)
}

// LineSink writes prefixed compact-JSON event lines to a writer,
// conventionally stderr. Writes are serialized so monitor goroutines and
// the download caller never interleave partial lines.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineSink builds a LineSink over w.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

func (s *LineSink) Progress(ev types.ProgressEvent) { s.write(ev) }

func (s *LineSink) Complete(ev types.CompleteEvent) { s.write(ev) }

func (s *LineSink) write(ev any) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(append(append([]byte(Prefix), b...), '\n'))
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Progress(types.ProgressEvent) {}

func (NopSink) Complete(types.CompleteEvent) {}
