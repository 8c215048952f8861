package manager

import (
	"context"
	"fmt"
	"time"

	"whisperd/internal/catalog"
	"whisperd/internal/progress"
	"whisperd/pkg/types"
)

// ensureAssets makes id's weights present locally, fetching from the hub
// when needed. The fetch blocks; a progress monitor races it on its own
// goroutine, joined by a close-channel cancellation and a bounded
// timeout. Plain identifiers outside the catalog have no canonical
// location and pass through untouched.
func (m *Manager) ensureAssets(ctx context.Context, id string) error {
	if m.cfg.Store == nil {
		return nil
	}
	dir, ok := m.cfg.Store.ResolvePath(id)
	if !ok {
		return nil
	}
	if m.cfg.Store.IsComplete(id) {
		return nil
	}
	repo, ok := catalog.HubRepo(id)
	if !ok || m.cfg.Fetcher == nil {
		return nil
	}

	var expected int64
	if d, found := catalog.Lookup(id); found {
		expected = d.ExpectedBytes()
	}

	cancel := make(chan struct{})
	done := make(chan struct{})
	if expected > 0 {
		mon := &progress.Monitor{
			SizeFn: m.cfg.Store.InstalledSize,
			Sink:   m.metricsSink(),
			Opts:   m.cfg.Monitor,
			Log:    m.cfg.Logger,
		}
		go func() {
			defer close(done)
			mon.Run(id, expected, cancel)
		}()
	} else {
		// No catalog estimate: nothing meaningful to report.
		close(done)
	}

	err := m.cfg.Fetcher.Fetch(ctx, repo, dir)
	close(cancel)
	select {
	case <-done:
	case <-time.After(m.cfg.MonitorJoinTimeout):
		m.cfg.Logger.Warn().Str("model", id).Msg("progress monitor did not exit cleanly")
	}
	return err
}

// Download is the one-shot fetch operation: assets land on disk with
// live progress events, but no handle is constructed.
func (m *Manager) Download(ctx context.Context, id string) types.DownloadResult {
	if m.cfg.Store == nil {
		return types.DownloadResult{Model: id, Error: "no asset store configured", Success: false}
	}
	if m.cfg.Store.IsComplete(id) {
		return m.downloadedResult(id)
	}
	if _, known := catalog.Lookup(id); !known {
		if _, explicit := catalog.HubRepo(id); !explicit {
			return types.DownloadResult{Model: id, Error: ErrUnknownModel(id).Error(), Success: false}
		}
	}
	if m.cfg.Fetcher == nil {
		return types.DownloadResult{Model: id, Error: "remote fetching disabled", Success: false}
	}

	if err := m.ensureAssets(ctx, id); err != nil {
		return types.DownloadResult{
			Model:   id,
			Error:   fmt.Sprintf("Failed to download model: %v", err),
			Success: false,
		}
	}

	res := m.downloadedResult(id)
	var expected int64
	if d, found := catalog.Lookup(id); found {
		expected = d.ExpectedBytes()
	}
	m.cfg.Sink.Complete(types.CompleteEvent{
		Type:            "complete",
		Model:           id,
		DownloadedBytes: res.SizeBytes,
		TotalBytes:      expected,
		Percentage:      100,
	})
	return res
}

func (m *Manager) downloadedResult(id string) types.DownloadResult {
	size := m.cfg.Store.InstalledSize(id)
	path, _ := m.cfg.Store.ResolvePath(id)
	return types.DownloadResult{
		Model:      id,
		Downloaded: true,
		Path:       path,
		SizeBytes:  size,
		SizeMB:     roundMB(size),
		Success:    true,
	}
}

// roundMB converts bytes to MB rounded to one decimal.
func roundMB(b int64) float64 {
	return float64(int64(float64(b)/(1024*1024)*10+0.5)) / 10
}
