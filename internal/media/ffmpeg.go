// Package media locates and health-checks the external audio-decoding
// tool. The tool is only probed; the inference process consumes audio
// files directly.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"whisperd/pkg/types"
)

const probeTimeout = 10 * time.Second

// envVars are checked in order before any conventional location.
var envVars = []string{"FFMPEG_PATH", "FFMPEG_EXECUTABLE", "FFMPEG_BINARY"}

// conventionalPaths returns the platform's usual install locations.
func conventionalPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/usr/bin/ffmpeg"}
	case "windows":
		return []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	default:
		return []string{"/usr/local/bin/ffmpeg", "/usr/bin/ffmpeg"}
	}
}

// Locate resolves the ffmpeg executable: explicit override, environment
// overrides, conventional locations, then the search path. Empty means
// not found.
func Locate(override string) string {
	if override != "" && executable(override) {
		return override
	}
	for _, name := range envVars {
		if p := os.Getenv(name); p != "" && executable(p) {
			return p
		}
	}
	for _, p := range conventionalPaths() {
		if executable(p) {
			return p
		}
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p
	}
	return ""
}

func executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

// Probe runs the tool's version check and reports the outcome. An empty
// path locates the tool first.
func Probe(ctx context.Context, path string) types.FFmpegReport {
	if path == "" {
		path = Locate("")
	}
	if path == "" {
		return types.FFmpegReport{Available: false, Error: "FFmpeg not found in PATH", Success: false}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if ctx.Err() == context.DeadlineExceeded {
		return types.FFmpegReport{Available: false, Error: "FFmpeg check timed out", Success: false}
	}
	if err != nil {
		return types.FFmpegReport{
			Available: false,
			Error:     fmt.Sprintf("FFmpeg check failed: %v", err),
			Success:   false,
		}
	}
	version := "Unknown"
	if lines := strings.SplitN(string(out), "\n", 2); len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		version = strings.TrimSpace(lines[0])
	}
	return types.FFmpegReport{Available: true, Path: path, Version: version, Success: true}
}
