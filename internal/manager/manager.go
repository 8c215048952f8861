package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"whisperd/internal/device"
	"whisperd/internal/engine"
	"whisperd/pkg/types"
)

// entry is one resident model with its insertion timestamp.
type entry struct {
	id       string
	model    engine.Model
	loadedAt time.Time
}

// Manager is the explicit session object: active model, bounded cache,
// and the operations dispatched by the command server and CLI.
type Manager struct {
	cfg ManagerConfig

	mu sync.Mutex
	// entries holds resident models in insertion order; entries[0] is the
	// eviction candidate.
	entries []entry
	active  string

	// snapMu guards a read-only copy of the resident list and active
	// identifier. mu spans blocking downloads and loads; the status
	// surface reads the snapshot so it stays responsive mid-load.
	snapMu       sync.RWMutex
	snapResident []types.ResidentModel
	snapActive   string

	startedAt time.Time
	ready     atomic.Bool
	loads     atomic.Uint64
	evictions atomic.Uint64
}

// New builds a Manager from cfg with defaults applied.
func New(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg.withDefaults(), startedAt: time.Now()}
}

// Active returns the identifier currently serving transcribe commands.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Ready reports whether the initial model finished loading.
func (m *Manager) Ready() bool { return m.ready.Load() }

// refreshSnapshotLocked republishes the status copy of the resident list
// and active identifier. Callers hold m.mu.
func (m *Manager) refreshSnapshotLocked() {
	resident := make([]types.ResidentModel, len(m.entries))
	for i, e := range m.entries {
		resident[i] = types.ResidentModel{
			Model:        e.id,
			InsertOrder:  i,
			LoadedAtUnix: e.loadedAt.Unix(),
		}
	}
	m.snapMu.Lock()
	m.snapResident = resident
	m.snapActive = m.active
	m.snapMu.Unlock()
}

// Status snapshots the session for the debug listener. It never takes
// the operation mutex, so it answers even while a load is in flight.
func (m *Manager) Status() types.StatusResponse {
	m.snapMu.RLock()
	resident := append([]types.ResidentModel(nil), m.snapResident...)
	active := m.snapActive
	m.snapMu.RUnlock()

	sel := m.selection()
	now := time.Now()
	return types.StatusResponse{
		ActiveModel: active,
		Resident:    resident,
		Device: types.DeviceInfo{
			Backend:   string(sel.Backend),
			Precision: string(sel.Precision),
		},
		UptimeSeconds:  int64(now.Sub(m.startedAt).Seconds()),
		ServerTimeUnix: now.Unix(),
		LoadsTotal:     m.loads.Load(),
		EvictionsTotal: m.evictions.Load(),
	}
}

func (m *Manager) selection() device.Selection {
	if m.cfg.Selector == nil {
		return device.Selection{Backend: device.BackendCPU, Precision: device.PrecisionInt8}
	}
	return m.cfg.Selector.Select()
}

// Close evicts every resident model, releasing their resources. Used on
// session teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	evicted := m.entries
	m.entries = nil
	m.active = ""
	metricResidentModels.Set(0)
	m.refreshSnapshotLocked()
	m.mu.Unlock()
	for _, e := range evicted {
		m.release(e)
	}
}
