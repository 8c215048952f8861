// Package device picks the compute backend and numeric precision for
// model handles. The probe runs once per process and the decision sticks
// even if hardware state changes afterwards.
package device

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Backend is the compute substrate for inference.
type Backend string

const (
	BackendCUDA Backend = "cuda"
	BackendCPU  Backend = "cpu"
)

// Precision is the numeric type models are loaded with. int8 is used on
// CPU because it outperforms float there.
type Precision string

const (
	PrecisionFloat16 Precision = "float16"
	PrecisionInt8    Precision = "int8"
)

const probeTimeout = 5 * time.Second

// Selection is the memoized probe result.
type Selection struct {
	Backend   Backend
	Precision Precision
	// Rationale is the human-readable reason for the decision.
	Rationale string
}

// Selector performs the one-shot hardware probe. Construct with New and
// share one instance per session.
type Selector struct {
	log      zerolog.Logger
	override string

	once sync.Once
	sel  Selection

	// probe seams for tests
	gpuName         func() (string, bool)
	runtimeLoadable func() bool
}

// New builds a Selector. override may be "cuda" or "cpu" to skip probing;
// anything else (conventionally "auto" or empty) probes.
func New(log zerolog.Logger, override string) *Selector {
	s := &Selector{log: log, override: strings.ToLower(strings.TrimSpace(override))}
	s.gpuName = detectGPU
	s.runtimeLoadable = cudnnPresent
	return s
}

// Select returns the backend/precision decision, probing on first call
// and memoizing for the process lifetime. It cannot fail: every probe
// error degrades to the CPU decision.
func (s *Selector) Select() Selection {
	s.once.Do(func() {
		s.sel = s.decide()
		s.log.Info().
			Str("backend", string(s.sel.Backend)).
			Str("precision", string(s.sel.Precision)).
			Msg(s.sel.Rationale)
	})
	return s.sel
}

func (s *Selector) decide() Selection {
	switch s.override {
	case string(BackendCUDA):
		return Selection{Backend: BackendCUDA, Precision: PrecisionFloat16, Rationale: "device forced to cuda by configuration"}
	case string(BackendCPU):
		return Selection{Backend: BackendCPU, Precision: PrecisionInt8, Rationale: "device forced to cpu by configuration"}
	}
	name, ok := s.gpuName()
	if !ok {
		return Selection{Backend: BackendCPU, Precision: PrecisionInt8, Rationale: "no CUDA accelerator detected, using CPU"}
	}
	if !s.runtimeLoadable() {
		return Selection{Backend: BackendCPU, Precision: PrecisionInt8, Rationale: "GPU detected (" + name + ") but cuDNN runtime not found, using CPU"}
	}
	return Selection{Backend: BackendCUDA, Precision: PrecisionFloat16, Rationale: "using GPU: " + name}
}

// detectGPU asks the NVIDIA management tool for the first device name.
func detectGPU() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if name == "" {
		return "", false
	}
	return name, true
}

// cudnnPresent scans the library search path for a cuDNN shared object.
// Presence of the file is taken as loadable; actually dlopen-ing it is the
// inference process's problem.
func cudnnPresent() bool {
	dirs := filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))
	dirs = append(dirs,
		"/usr/lib/x86_64-linux-gnu",
		"/usr/local/cuda/lib64",
		"/usr/lib64",
		"/usr/lib",
	)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "libcudnn") {
				return true
			}
		}
	}
	return false
}
