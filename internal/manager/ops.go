package manager

import (
	"context"
	"errors"
	"os"
	"runtime"

	"whisperd/internal/catalog"
	"whisperd/pkg/types"
)

// Reload hot-swaps the active model to id. Reloading the active
// identifier is a no-op that never touches the engine. Otherwise the
// active model is evicted first, its resources reclaimed, and the active
// identifier only advances on a successful load — on failure the session
// keeps the previous identifier (with its model unloaded; the next
// transcribe reloads it lazily).
func (m *Manager) Reload(ctx context.Context, id string) error {
	m.mu.Lock()
	if id == m.active {
		m.mu.Unlock()
		return nil
	}
	prev := m.active
	m.mu.Unlock()

	if prev != "" {
		m.cfg.Logger.Info().Str("model", prev).Msg("unloading model to free memory")
		m.Evict(prev)
		runtime.GC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.getOrLoadLocked(ctx, id); err != nil {
		return err
	}
	m.active = id
	m.refreshSnapshotLocked()
	return nil
}

// Activate performs the startup load of the initial model.
func (m *Manager) Activate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.getOrLoadLocked(ctx, id); err != nil {
		return err
	}
	m.active = id
	m.ready.Store(true)
	m.refreshSnapshotLocked()
	return nil
}

// Check reports id's installation state.
func (m *Manager) Check(id string) types.ModelStatus {
	if _, known := catalog.Lookup(id); !known {
		return types.ModelStatus{Model: id, Error: ErrUnknownModel(id).Error(), Success: false}
	}
	if m.cfg.Store == nil || !m.cfg.Store.IsComplete(id) {
		return types.ModelStatus{Model: id, Downloaded: false, Success: true}
	}
	size := m.cfg.Store.InstalledSize(id)
	path, _ := m.cfg.Store.ResolvePath(id)
	return types.ModelStatus{
		Model:      id,
		Downloaded: true,
		Path:       path,
		SizeBytes:  size,
		SizeMB:     roundMB(size),
		Success:    true,
	}
}

// List enumerates every catalog model with its status.
func (m *Manager) List() types.ListResult {
	all := catalog.All()
	out := types.ListResult{Models: make([]types.ModelStatus, 0, len(all)), Success: true}
	for _, d := range all {
		st := m.Check(d.ID)
		st.Family = d.Family
		st.Description = d.Description
		st.ExpectedSizeMB = d.SizeMB
		out.Models = append(out.Models, st)
	}
	if m.cfg.Store != nil {
		out.CacheDir = m.cfg.Store.Root()
	}
	return out
}

// Delete removes id's installed assets. A resident handle is evicted
// first so the bookkeeping stays truthful.
func (m *Manager) Delete(id string) types.DeleteResult {
	if m.cfg.Store == nil {
		return types.DeleteResult{Model: id, Deleted: false, Error: "no asset store configured", Success: false}
	}
	m.Evict(id)
	m.mu.Lock()
	if m.active == id {
		m.active = ""
	}
	m.refreshSnapshotLocked()
	m.mu.Unlock()

	freed, err := m.cfg.Store.Remove(id)
	if errors.Is(err, os.ErrNotExist) {
		return types.DeleteResult{Model: id, Deleted: false, Error: "Model not found", Success: false}
	}
	if err != nil {
		return types.DeleteResult{Model: id, Deleted: false, Error: err.Error(), Success: false}
	}
	return types.DeleteResult{
		Model:      id,
		Deleted:    true,
		FreedBytes: freed,
		FreedMB:    roundMB(freed),
		Success:    true,
	}
}
