package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"whisperd/internal/assets"
)

// fakeHub serves a repo's files and records whether snapshots existed
// while blobs were still being written.
func fakeHub(files map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// path: /<org>/<repo>/resolve/main/<file>
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
		name := parts[len(parts)-1]
		body, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetch_StagesThenSnapshots(t *testing.T) {
	srv := fakeHub(map[string]string{
		"model.bin":      "weights",
		"config.json":    "{}",
		"tokenizer.json": "{}",
	})
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "models--Systran--faster-whisper-base")
	f := New(srv.URL, zerolog.Nop())
	if err := f.Fetch(context.Background(), "Systran/faster-whisper-base", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	snap := filepath.Join(dest, assets.SnapshotsDir, "main")
	for _, name := range []string{"model.bin", "config.json", "tokenizer.json"} {
		if _, err := os.Stat(filepath.Join(snap, name)); err != nil {
			t.Errorf("snapshot missing %s: %v", name, err)
		}
	}
	// vocabulary.* were not on the hub; their absence must not fail the
	// fetch or leave partials behind.
	entries, err := os.ReadDir(filepath.Join(dest, "blobs"))
	if err != nil {
		t.Fatalf("read blobs: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".partial") {
			t.Errorf("leftover partial %s", e.Name())
		}
	}
}

func TestFetch_NoSnapshotUntilRequiredFilesLand(t *testing.T) {
	// config.json is missing: the fetch must fail and leave no snapshots
	// marker, so the store keeps reporting the model incomplete.
	srv := fakeHub(map[string]string{"model.bin": "weights"})
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "models--Systran--faster-whisper-base")
	f := New(srv.URL, zerolog.Nop())
	err := f.Fetch(context.Background(), "Systran/faster-whisper-base", dest)
	if err == nil {
		t.Fatal("expected fetch failure")
	}
	if _, statErr := os.Stat(filepath.Join(dest, assets.SnapshotsDir)); !os.IsNotExist(statErr) {
		t.Fatalf("snapshots marker exists after failed fetch: %v", statErr)
	}
}

func TestFetch_SnapshotAppearsOnlyAtEnd(t *testing.T) {
	var mu sync.Mutex
	var dest string
	sawSnapshotMidFetch := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if dest != "" {
			if _, err := os.Stat(filepath.Join(dest, assets.SnapshotsDir)); err == nil {
				sawSnapshotMidFetch = true
			}
		}
		mu.Unlock()
		parts := strings.Split(r.URL.Path, "/")
		switch parts[len(parts)-1] {
		case "model.bin":
			_, _ = w.Write([]byte("weights"))
		case "config.json":
			_, _ = w.Write([]byte("{}"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := filepath.Join(t.TempDir(), "models--Systran--faster-whisper-tiny")
	mu.Lock()
	dest = d
	mu.Unlock()
	f := New(srv.URL, zerolog.Nop())
	if err := f.Fetch(context.Background(), "Systran/faster-whisper-tiny", d); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if sawSnapshotMidFetch {
		t.Fatal("snapshots marker appeared before the fetch finished")
	}
	if _, err := os.Stat(filepath.Join(d, assets.SnapshotsDir, "main", "model.bin")); err != nil {
		t.Fatalf("final snapshot missing: %v", err)
	}
}

func TestFetch_HubErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := New(srv.URL, zerolog.Nop())
	err := f.Fetch(context.Background(), "Systran/faster-whisper-base", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err=%v", err)
	}
}
