// Package manager holds the gateway's session state: the bounded model
// cache, the active model identifier, and the operations the command
// server and CLI dispatch into. It is structured into small files by
// concern:
//
//   - manager.go: Manager type, constructor, session snapshot.
//   - config.go: ManagerConfig and defaults.
//   - errors.go: typed error taxonomy and predicates.
//   - cache.go: GetOrLoad/Evict and the insertion-order eviction policy.
//   - download.go: asset download with the racing progress monitor.
//   - transcribe.go: transcription orchestration.
//   - ops.go: reload, check, list, delete, ffmpeg check.
//   - metrics.go: prometheus collectors and the instrumented sink.
//
// A Manager is constructed once at startup and passed by reference into
// every component that needs it; there is no package-level mutable state.
// Under the command server all mutation happens on the single dispatch
// goroutine; the mutex exists so one-shot CLI use and tests may drive a
// Manager from multiple goroutines without violating that invariant.
package manager
