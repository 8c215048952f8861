package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"whisperd/internal/assets"
	"whisperd/internal/device"
	"whisperd/internal/hub"
	"whisperd/internal/progress"
	"whisperd/pkg/types"
)

type recordSink struct {
	mu        sync.Mutex
	progress  []types.ProgressEvent
	completes []types.CompleteEvent
}

func (s *recordSink) Progress(ev types.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, ev)
}

func (s *recordSink) Complete(ev types.CompleteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes = append(s.completes, ev)
}

func newDownloadManager(t *testing.T, hubURL string, sink progress.Sink) *Manager {
	t.Helper()
	store, err := assets.New(t.TempDir())
	if err != nil {
		t.Fatalf("assets.New: %v", err)
	}
	return New(ManagerConfig{
		Store:    store,
		Adapter:  newFakeAdapter(),
		Selector: device.New(zerolog.Nop(), "cpu"),
		Fetcher:  hub.New(hubURL, zerolog.Nop()),
		Sink:     sink,
		Monitor: progress.Options{
			PollInterval: time.Millisecond,
			EmitInterval: time.Millisecond,
			MaxDuration:  5 * time.Second,
		},
		MonitorJoinTimeout: time.Second,
		Logger:             zerolog.Nop(),
	})
}

func fakeHubServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		switch parts[len(parts)-1] {
		case "model.bin":
			_, _ = w.Write(make([]byte, 64*1024))
		case "config.json":
			_, _ = w.Write([]byte("{}"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestDownload_FetchesAndEmitsComplete(t *testing.T) {
	srv := fakeHubServer()
	defer srv.Close()
	sink := &recordSink{}
	m := newDownloadManager(t, srv.URL, sink)

	res := m.Download(context.Background(), "tiny")
	if !res.Success || !res.Downloaded {
		t.Fatalf("result=%+v", res)
	}
	if res.SizeBytes == 0 || res.Path == "" {
		t.Fatalf("result=%+v", res)
	}
	if !m.cfg.Store.IsComplete("tiny") {
		t.Fatal("store does not report the model complete")
	}
	sink.mu.Lock()
	completes := len(sink.completes)
	sink.mu.Unlock()
	if completes != 1 {
		t.Fatalf("complete events=%d, want 1", completes)
	}
	sink.mu.Lock()
	ev := sink.completes[0]
	sink.mu.Unlock()
	if ev.Type != "complete" || ev.Percentage != 100 || ev.Model != "tiny" {
		t.Fatalf("complete event=%+v", ev)
	}
}

func TestDownload_AlreadyCompleteShortCircuits(t *testing.T) {
	srv := fakeHubServer()
	defer srv.Close()
	sink := &recordSink{}
	m := newDownloadManager(t, srv.URL, sink)
	installFakeAssets(t, m, "tiny", 1024)

	res := m.Download(context.Background(), "tiny")
	if !res.Success || !res.Downloaded || res.SizeBytes != 1024 {
		t.Fatalf("result=%+v", res)
	}
	sink.mu.Lock()
	progressEvents := len(sink.progress)
	sink.mu.Unlock()
	if progressEvents != 0 {
		t.Fatalf("short-circuit emitted %d progress events", progressEvents)
	}
}

func TestDownload_UnknownModel(t *testing.T) {
	m := newDownloadManager(t, "http://127.0.0.1:0", &recordSink{})
	res := m.Download(context.Background(), "no-such-model")
	if res.Success {
		t.Fatalf("result=%+v", res)
	}
	if res.Error != "Unknown model: no-such-model" {
		t.Fatalf("error=%q", res.Error)
	}
}

func TestDownload_FetchFailureReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	m := newDownloadManager(t, srv.URL, &recordSink{})

	res := m.Download(context.Background(), "tiny")
	if res.Success || res.Downloaded {
		t.Fatalf("result=%+v", res)
	}
	if !strings.Contains(res.Error, "Failed to download model") {
		t.Fatalf("error=%q", res.Error)
	}
	if m.cfg.Store.IsComplete("tiny") {
		t.Fatal("failed fetch left a complete snapshot")
	}
}

func TestGetOrLoad_FetchesMissingAssetsFirst(t *testing.T) {
	srv := fakeHubServer()
	defer srv.Close()
	m := newDownloadManager(t, srv.URL, &recordSink{})

	if _, err := m.GetOrLoad(context.Background(), "tiny"); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if !m.cfg.Store.IsComplete("tiny") {
		t.Fatal("load did not fetch assets")
	}
	// The adapter must have been handed the snapshot weights file.
	if file, ok := m.cfg.Store.SnapshotModelFile("tiny"); !ok || file == "" {
		t.Fatal("snapshot weights not resolvable after load")
	}
}
