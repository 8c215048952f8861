// Package hub downloads model file sets from the public model hub into
// the local cache layout the asset locator understands.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"whisperd/internal/assets"
)

// DefaultBaseURL is the public hub endpoint.
const DefaultBaseURL = "https://huggingface.co"

// requiredFiles must all land for a snapshot to exist.
var requiredFiles = []string{"model.bin", "config.json"}

// optionalFiles tolerate absence on the hub (404).
var optionalFiles = []string{
	"tokenizer.json",
	"vocabulary.txt",
	"vocabulary.json",
	"preprocessor_config.json",
}

// errNotFound marks a 404 from the hub.
var errNotFound = errors.New("not found on hub")

// Fetcher streams model files over HTTP. Files land in a blobs/ staging
// area first so the walk-based size estimate observes growth; the
// snapshots marker directory appears only after every required file is
// in place, keeping the locator's completeness check truthful.
type Fetcher struct {
	base   string
	client *http.Client
	log    zerolog.Logger
}

// New builds a Fetcher. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, log zerolog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{base: baseURL, client: &http.Client{}, log: log}
}

// Fetch downloads repo's file set into destDir. An interrupted fetch
// leaves staged blobs but no snapshot marker; a retry re-stages from the
// start.
func (f *Fetcher) Fetch(ctx context.Context, repo, destDir string) error {
	blobsDir := filepath.Join(destDir, "blobs")
	if err := os.MkdirAll(blobsDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	f.log.Info().Str("repo", repo).Str("dest", destDir).Msg("fetching model")

	staged := make([]string, 0, len(requiredFiles)+len(optionalFiles))
	for _, name := range requiredFiles {
		if err := f.fetchFile(ctx, repo, name, blobsDir); err != nil {
			return fmt.Errorf("fetch %s: %w", name, err)
		}
		staged = append(staged, name)
	}
	for _, name := range optionalFiles {
		err := f.fetchFile(ctx, repo, name, blobsDir)
		if errors.Is(err, errNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w", name, err)
		}
		staged = append(staged, name)
	}

	// Everything landed: surface the snapshot marker.
	snapDir := filepath.Join(destDir, assets.SnapshotsDir, "main")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	for _, name := range staged {
		if err := os.Rename(filepath.Join(blobsDir, name), filepath.Join(snapDir, name)); err != nil {
			return fmt.Errorf("finalize %s: %w", name, err)
		}
	}
	f.log.Info().Str("repo", repo).Int("files", len(staged)).Msg("model fetched")
	return nil
}

// fetchFile streams one file into dir, writing through a .partial name so
// a torn download never masquerades as a finished blob.
func (f *Fetcher) fetchFile(ctx context.Context, repo, name, dir string) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", f.base, repo, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hub returned %s for %s", resp.Status, url)
	}

	partial := filepath.Join(dir, name+".partial")
	out, err := os.Create(partial)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(partial)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(partial, filepath.Join(dir, name))
}
