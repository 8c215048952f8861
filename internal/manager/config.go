package manager

import (
	"time"

	"github.com/rs/zerolog"

	"whisperd/internal/assets"
	"whisperd/internal/device"
	"whisperd/internal/engine"
	"whisperd/internal/hub"
	"whisperd/internal/progress"
)

// Package defaults applied by withDefaults.
const (
	// DefaultCacheCapacity bounds resident models.
	DefaultCacheCapacity = 2
	// DefaultBeamSize is the decoder search breadth.
	DefaultBeamSize = 5
	// DefaultMonitorJoinTimeout bounds waiting for the progress monitor
	// after a download finishes.
	DefaultMonitorJoinTimeout = 5 * time.Second
)

// ManagerConfig wires the Manager's collaborators. Store, Adapter, and
// Selector are required; Fetcher may be nil when remote fetching is
// disabled (loads then only see local assets).
type ManagerConfig struct {
	Store    *assets.Store
	Adapter  engine.Adapter
	Selector *device.Selector
	Fetcher  *hub.Fetcher

	// Sink receives download progress events; nil discards them.
	Sink progress.Sink
	// Monitor tunes the progress estimator; zero fields take defaults.
	Monitor progress.Options
	// MonitorJoinTimeout bounds the post-download monitor join.
	MonitorJoinTimeout time.Duration

	// CacheCapacity bounds resident models; eviction is insertion-order.
	CacheCapacity int
	// BeamSize is the fixed decoder search breadth.
	BeamSize int

	Logger zerolog.Logger
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	if c.BeamSize <= 0 {
		c.BeamSize = DefaultBeamSize
	}
	if c.MonitorJoinTimeout <= 0 {
		c.MonitorJoinTimeout = DefaultMonitorJoinTimeout
	}
	if c.Sink == nil {
		c.Sink = progress.NopSink{}
	}
	return c
}
