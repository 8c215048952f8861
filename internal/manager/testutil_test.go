package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"whisperd/internal/assets"
	"whisperd/internal/device"
	"whisperd/internal/engine"
)

// fakeModel is an in-memory handle recording its lifecycle.
type fakeModel struct {
	id        string
	mu        sync.Mutex
	closed    bool
	released  bool
	decodeRes engine.DecodeResult
	decodeErr error
}

func (m *fakeModel) Transcribe(ctx context.Context, audioPath string, opts engine.DecodeOptions) (engine.DecodeResult, error) {
	if m.decodeErr != nil {
		return engine.DecodeResult{}, m.decodeErr
	}
	return m.decodeRes, nil
}

func (m *fakeModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *fakeModel) ReleaseAccelerator() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
}

func (m *fakeModel) wasClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// fakeAdapter constructs fakeModels and records every load.
type fakeAdapter struct {
	mu      sync.Mutex
	loads   []string
	failFor map[string]error
	handles map[string][]*fakeModel
	decode  engine.DecodeResult
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		failFor: map[string]error{},
		handles: map[string][]*fakeModel{},
		decode:  engine.DecodeResult{Segments: []string{" hello", "world "}, Language: "en"},
	}
}

func (a *fakeAdapter) Load(ctx context.Context, spec engine.LoadSpec) (engine.Model, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loads = append(a.loads, spec.ID)
	if err := a.failFor[spec.ID]; err != nil {
		return nil, err
	}
	m := &fakeModel{id: spec.ID, decodeRes: a.decode}
	a.handles[spec.ID] = append(a.handles[spec.ID], m)
	return m, nil
}

func (a *fakeAdapter) loadCount(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, l := range a.loads {
		if l == id {
			n++
		}
	}
	return n
}

func (a *fakeAdapter) lastHandle(id string) *fakeModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	hs := a.handles[id]
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1]
}

func newTestManager(t *testing.T, a engine.Adapter) *Manager {
	t.Helper()
	store, err := assets.New(t.TempDir())
	if err != nil {
		t.Fatalf("assets.New: %v", err)
	}
	return New(ManagerConfig{
		Store:    store,
		Adapter:  a,
		Selector: device.New(zerolog.Nop(), "cpu"),
		Logger:   zerolog.Nop(),
	})
}

// installFakeAssets creates a complete snapshot for id in the manager's
// store so completeness checks and size walks see a downloaded model.
func installFakeAssets(t *testing.T, m *Manager, id string, sizeBytes int) string {
	t.Helper()
	dir, ok := m.cfg.Store.ResolvePath(id)
	if !ok {
		t.Fatalf("ResolvePath(%q) failed", id)
	}
	snap := filepath.Join(dir, assets.SnapshotsDir, "main")
	if err := os.MkdirAll(snap, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(snap, "model.bin"), make([]byte, sizeBytes), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	return dir
}

func writeAudioFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return p
}
