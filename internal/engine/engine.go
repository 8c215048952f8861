// Package engine constructs and drives loaded-model handles. The default
// adapter spawns a whisper-server process per model and decodes over
// localhost HTTP; a stub adapter stands in when no server binary is
// available.
package engine

import "context"

// Adapter abstracts the inference runtime used by the model manager.
type Adapter interface {
	// Load constructs a handle for the given spec. It may block for the
	// full duration of process startup and weight loading.
	Load(ctx context.Context, spec LoadSpec) (Model, error)
}

// Model is one loaded inference handle. Handles are owned exclusively by
// the model cache; Close releases all resources the handle holds.
type Model interface {
	// Transcribe decodes one audio file. Implementations must return when
	// the context is canceled.
	Transcribe(ctx context.Context, audioPath string, opts DecodeOptions) (DecodeResult, error)
	// Close releases the handle's resources, including any
	// accelerator-resident memory.
	Close() error
}

// AcceleratorReleaser is an optional capability: handles that can flush
// accelerator memory beyond what Close frees implement it. The manager
// probes for it by type assertion during hot-swap.
type AcceleratorReleaser interface {
	ReleaseAccelerator()
}

// LoadSpec tells the adapter what to construct.
type LoadSpec struct {
	// ID is the model identifier the handle serves.
	ID string
	// ModelFile is the resolved weights file on disk.
	ModelFile string
	// Backend is the compute substrate (cuda or cpu).
	Backend string
	// Precision is the numeric type (float16 or int8).
	Precision string
}

// DecodeOptions carries per-request decode parameters.
type DecodeOptions struct {
	// Language is an optional source-language hint; empty means
	// auto-detect.
	Language string
	// Task is "transcribe" or "translate".
	Task string
	// BeamSize is the decoder search breadth.
	BeamSize int
	// VADFilter enables voice-activity filtering.
	VADFilter bool
}

// DecodeResult is the raw decode outcome before presentation.
type DecodeResult struct {
	// Segments holds per-segment text fragments in decode order.
	Segments []string
	// Language is the detected language as reported by the decoder;
	// empty when the backend omits it.
	Language string
}
