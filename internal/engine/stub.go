package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// unavailableAdapter satisfies Adapter but refuses every load. It is
// installed when no whisper-server binary could be discovered, so load
// attempts fail with a clear message instead of a spawn error.
type unavailableAdapter struct {
	reason string
}

// NewUnavailableAdapter builds the refusing adapter with the given reason.
func NewUnavailableAdapter(reason string) Adapter {
	return unavailableAdapter{reason: reason}
}

func (a unavailableAdapter) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	return nil, fmt.Errorf("inference engine unavailable: %s", a.reason)
}

// DiscoverBinary resolves the whisper-server executable: an explicit
// override wins, then the WHISPER_SERVER_BIN environment variable, then
// the search path. Empty means not found.
func DiscoverBinary(override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}
	if v := os.Getenv("WHISPER_SERVER_BIN"); v != "" {
		if _, err := os.Stat(v); err == nil {
			return v
		}
	}
	if p, err := exec.LookPath("whisper-server"); err == nil {
		return p
	}
	return ""
}
