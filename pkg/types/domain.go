package types

// ModelStatus describes one model's installation state. It is the result
// shape of the check command and one entry of the list result.
type ModelStatus struct {
	// Stable identifier for the model.
	Model string `json:"model"`
	// Whether a complete snapshot is present in the local cache.
	Downloaded bool `json:"downloaded"`
	// Absolute cache directory for the model, when resolvable.
	Path string `json:"path,omitempty"`
	// Installed size in bytes, when downloaded.
	SizeBytes int64 `json:"size_bytes,omitempty"`
	// Installed size in MB rounded to one decimal, when downloaded.
	SizeMB float64 `json:"size_mb,omitempty"`
	// Capability family (e.g. whisper, distil-whisper).
	Family string `json:"family,omitempty"`
	// Human-friendly description from the catalog.
	Description string `json:"description,omitempty"`
	// Expected installed size from the catalog estimate.
	ExpectedSizeMB int64 `json:"expected_size_mb,omitempty"`
	// Error message when the status could not be determined.
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// ListResult enumerates every catalog model with its status.
type ListResult struct {
	Models []ModelStatus `json:"models"`
	// Root of the local model cache.
	CacheDir string `json:"cache_dir"`
	Success  bool   `json:"success"`
}

// DownloadResult reports the outcome of a one-shot model download.
type DownloadResult struct {
	Model      string `json:"model"`
	Downloaded bool   `json:"downloaded"`
	Path       string `json:"path,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	// Final installed size in MB rounded to one decimal.
	SizeMB  float64 `json:"size_mb,omitempty"`
	Error   string  `json:"error,omitempty"`
	Success bool    `json:"success"`
}

// DeleteResult reports the outcome of removing installed model assets.
type DeleteResult struct {
	Model   string `json:"model"`
	Deleted bool   `json:"deleted"`
	// Bytes reclaimed from disk.
	FreedBytes int64   `json:"freed_bytes,omitempty"`
	FreedMB    float64 `json:"freed_mb,omitempty"`
	Error      string  `json:"error,omitempty"`
	Success    bool    `json:"success"`
}

// FFmpegReport is the media tool health-check result.
type FFmpegReport struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	// First line of the tool's version output.
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// ResidentModel summarizes one cache entry for the status endpoint.
type ResidentModel struct {
	Model string `json:"model"`
	// Position in insertion order; 0 is the eviction candidate.
	InsertOrder int `json:"insert_order"`
	// Unix seconds when the handle was constructed.
	LoadedAtUnix int64 `json:"loaded_at_unix"`
}

// DeviceInfo reports the memoized hardware selection.
type DeviceInfo struct {
	// Compute backend: cuda or cpu.
	Backend string `json:"backend"`
	// Numeric precision: float16 or int8.
	Precision string `json:"precision"`
}

// StatusResponse is the debug listener's session snapshot.
type StatusResponse struct {
	// Identifier of the model serving transcribe commands.
	ActiveModel string `json:"active_model"`
	// Resident cache entries in insertion order.
	Resident []ResidentModel `json:"resident"`
	Device   DeviceInfo      `json:"device"`
	// Uptime of the session in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
	// Total model loads performed by this session.
	LoadsTotal uint64 `json:"loads_total"`
	// Total evictions performed by this session.
	EvictionsTotal uint64 `json:"evictions_total"`
}
