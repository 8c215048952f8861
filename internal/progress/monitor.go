// Package progress estimates model download progress by watching the
// asset directory grow. There is no true transfer-progress channel: the
// estimator infers everything from on-disk size, which can both under-
// and over-report relative to the real transfer. That approximation is
// deliberate and kept as-is.
package progress

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperd/pkg/types"
)

// Options tunes the estimator. The defaults are compatibility thresholds,
// configurable rather than hard-coded law.
type Options struct {
	// PollInterval is how often the asset directory is sized.
	PollInterval time.Duration
	// EmitInterval is the minimum time between events when percentage is
	// not moving.
	EmitInterval time.Duration
	// MaxDuration is the hard ceiling on monitor lifetime; a safety
	// abort, not an error.
	MaxDuration time.Duration
	// CompleteAtPct declares the download effectively done without
	// waiting for finalization.
	CompleteAtPct float64
	// StallAfter is how long size may stop growing before a stall counts.
	StallAfter time.Duration
	// StallAbovePct gates stall termination to near-complete downloads.
	StallAbovePct float64
	// WindowSize caps the rolling throughput window.
	WindowSize int
}

// DefaultOptions returns the compatibility thresholds.
func DefaultOptions() Options {
	return Options{
		PollInterval:  500 * time.Millisecond,
		EmitInterval:  500 * time.Millisecond,
		MaxDuration:   30 * time.Minute,
		CompleteAtPct: 95,
		StallAfter:    10 * time.Second,
		StallAbovePct: 90,
		WindowSize:    10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.EmitInterval <= 0 {
		o.EmitInterval = def.EmitInterval
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = def.MaxDuration
	}
	if o.CompleteAtPct <= 0 {
		o.CompleteAtPct = def.CompleteAtPct
	}
	if o.StallAfter <= 0 {
		o.StallAfter = def.StallAfter
	}
	if o.StallAbovePct <= 0 {
		o.StallAbovePct = def.StallAbovePct
	}
	if o.WindowSize <= 0 {
		o.WindowSize = def.WindowSize
	}
	return o
}

// Monitor samples installed size and emits progress events. One Monitor
// may run many downloads; each Run call is an independent session.
type Monitor struct {
	// SizeFn reports the bytes currently on disk for a model.
	SizeFn func(model string) int64
	// Sink receives the emitted events.
	Sink Sink
	// Opts tunes thresholds; zero fields take defaults.
	Opts Options
	// Log is the diagnostic logger.
	Log zerolog.Logger
}

// session is the per-download state, owned by Run and observed only
// through emitted events.
type session struct {
	id          string
	model       string
	expected    int64
	start       time.Time
	lastSize    int64
	lastSample  time.Time
	lastGrowth  time.Time
	window      []float64
	lastEmitAt  time.Time
	lastEmitPct float64
}

// Run polls until a termination condition holds, first true wins each
// tick: cancellation, the duration ceiling, effective completion, or a
// near-complete stall. It never blocks the caller's transfer and exits on
// its own; cancellation is cooperative with worst-case latency of one
// poll interval.
func (m *Monitor) Run(model string, expectedBytes int64, cancel <-chan struct{}) {
	opts := m.Opts.withDefaults()
	now := time.Now()
	s := &session{
		id:         uuid.NewString(),
		model:      model,
		expected:   expectedBytes,
		start:      now,
		lastSample: now,
		lastGrowth: now,
	}
	log := m.Log.With().Str("download_id", s.id).Str("model", model).Logger()
	log.Debug().Int64("expected_bytes", expectedBytes).Msg("download monitor started")

	for {
		select {
		case <-cancel:
			log.Debug().Msg("download monitor canceled")
			return
		case <-time.After(opts.PollInterval):
		}

		now := time.Now()
		if now.Sub(s.start) > opts.MaxDuration {
			log.Warn().Dur("elapsed", now.Sub(s.start)).Msg("download monitoring timed out")
			return
		}

		size := m.SizeFn(model)
		pct := percentage(size, s.expected)
		speed := s.observe(now, size, opts.WindowSize)

		// The zero lastEmitAt makes the first tick always emit.
		if now.Sub(s.lastEmitAt) >= opts.EmitInterval || math.Abs(pct-s.lastEmitPct) > 1.0 {
			m.Sink.Progress(types.ProgressEvent{
				Type:            "progress",
				Model:           model,
				DownloadedBytes: size,
				TotalBytes:      s.expected,
				Percentage:      round1(pct),
				SpeedMbps:       round2(speed),
			})
			s.lastEmitAt = now
			s.lastEmitPct = pct
		}

		if pct >= opts.CompleteAtPct {
			log.Debug().Float64("percentage", pct).Msg("download effectively complete")
			return
		}
		if now.Sub(s.lastGrowth) > opts.StallAfter && pct > opts.StallAbovePct {
			log.Debug().Float64("percentage", pct).Msg("download stalled near completion")
			return
		}

		s.lastSize = size
		s.lastSample = now
	}
}

// observe folds one sample into the throughput window and returns the
// smoothed rate in megabits per second. A tick with no growth reports 0;
// smoothing over the window damps bursty filesystem write patterns.
func (s *session) observe(now time.Time, size int64, windowSize int) float64 {
	dt := now.Sub(s.lastSample).Seconds()
	if size > s.lastSize {
		s.lastGrowth = now
	}
	if s.lastSize <= 0 || size <= s.lastSize || dt <= 0 {
		return 0
	}
	bytesPerSec := float64(size-s.lastSize) / dt
	inst := bytesPerSec * 8 / (1024 * 1024)
	s.window = append(s.window, inst)
	if len(s.window) > windowSize {
		s.window = s.window[1:]
	}
	var sum float64
	for _, v := range s.window {
		sum += v
	}
	return sum / float64(len(s.window))
}

// percentage clamps to [0, 100]: the expected size is a catalog estimate
// and on-disk bytes can overshoot it.
func percentage(size, expected int64) float64 {
	if expected <= 0 {
		return 0
	}
	pct := float64(size) / float64(expected) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
