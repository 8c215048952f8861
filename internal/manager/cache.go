package manager

import (
	"context"
	"runtime"
	"time"

	"whisperd/internal/catalog"
	"whisperd/internal/engine"
)

// GetOrLoad returns the resident handle for id, constructing one when
// absent. Identifiers outside the catalog pass through literally so
// user-supplied custom models can still be attempted. Failed loads are
// never cached.
func (m *Manager) GetOrLoad(ctx context.Context, id string) (engine.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrLoadLocked(ctx, id)
}

func (m *Manager) getOrLoadLocked(ctx context.Context, id string) (engine.Model, error) {
	for _, e := range m.entries {
		if e.id == id {
			// Same instance, no duplicate load, insertion order unchanged.
			return e.model, nil
		}
	}

	if err := m.ensureAssets(ctx, id); err != nil {
		metricModelLoads.WithLabelValues("error").Inc()
		return nil, ErrModelUnavailable(id, err)
	}

	spec := m.loadSpec(id)
	m.cfg.Logger.Info().
		Str("model", id).
		Str("backend", spec.Backend).
		Str("precision", spec.Precision).
		Msg("loading model")
	model, err := m.cfg.Adapter.Load(ctx, spec)
	if err != nil {
		metricModelLoads.WithLabelValues("error").Inc()
		return nil, ErrModelUnavailable(id, err)
	}

	m.entries = append(m.entries, entry{id: id, model: model, loadedAt: time.Now()})
	m.loads.Add(1)
	metricModelLoads.WithLabelValues("ok").Inc()

	// Capacity overflow evicts the earliest-inserted resident, never the
	// most recently used one.
	for len(m.entries) > m.cfg.CacheCapacity {
		oldest := m.entries[0]
		m.entries = m.entries[1:]
		m.release(oldest)
	}
	metricResidentModels.Set(float64(len(m.entries)))
	m.refreshSnapshotLocked()
	return model, nil
}

// Evict removes id from the cache, releasing its resources. Evicting a
// non-resident identifier is a no-op.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	var victim *entry
	for i, e := range m.entries {
		if e.id == id {
			v := e
			victim = &v
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	metricResidentModels.Set(float64(len(m.entries)))
	m.refreshSnapshotLocked()
	m.mu.Unlock()
	if victim != nil {
		m.release(*victim)
	}
}

// release closes a handle, probes the optional accelerator-release
// capability, and forces a reclamation pass so repeated reloads do not
// accumulate released-but-uncollected memory.
func (m *Manager) release(e entry) {
	if err := e.model.Close(); err != nil {
		m.cfg.Logger.Warn().Err(err).Str("model", e.id).Msg("model close failed")
	}
	if r, ok := e.model.(engine.AcceleratorReleaser); ok {
		r.ReleaseAccelerator()
	}
	m.evictions.Add(1)
	metricModelEvictions.Inc()
	runtime.GC()
	m.cfg.Logger.Info().Str("model", e.id).Msg("model evicted")
}

// loadSpec resolves the backend reference and device pair for id.
func (m *Manager) loadSpec(id string) engine.LoadSpec {
	sel := m.selection()
	spec := engine.LoadSpec{
		ID:        id,
		Backend:   string(sel.Backend),
		Precision: string(sel.Precision),
	}
	if m.cfg.Store != nil {
		if file, ok := m.cfg.Store.SnapshotModelFile(id); ok {
			spec.ModelFile = file
			return spec
		}
	}
	// Pass-through: no canonical assets, hand the reference to the
	// engine literally.
	if d, ok := catalog.Lookup(id); ok {
		spec.ModelFile = d.Ref
	} else {
		spec.ModelFile = id
	}
	return spec
}
