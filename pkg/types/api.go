package types

// Request is one decoded line of the stdio command protocol.
// Exactly one command is dispatched per non-blank input line.
type Request struct {
	// Command selects the operation: ping, shutdown, transcribe, reload.
	Command string `json:"command"`
	// Path to the audio file to transcribe (transcribe only).
	AudioPath string `json:"audio_path,omitempty"`
	// Optional language code hint (e.g. "en", "fr"); empty means auto-detect.
	Language string `json:"language,omitempty"`
	// Task mode: "transcribe" keeps the source language, "translate"
	// forces English output. Defaults to "transcribe".
	Task string `json:"task,omitempty"`
	// Model identifier for reload.
	Model string `json:"model,omitempty"`
}

// Ack is the lifecycle acknowledgment shape shared by the ready handshake
// and the pong, shutdown, and reloaded responses.
type Ack struct {
	// One of: ready, pong, shutdown, reloaded.
	Type string `json:"type"`
	// Model identifier, present on ready and reloaded.
	Model   string `json:"model,omitempty"`
	Success bool   `json:"success"`
}

// TranscriptionResponse is the success response for a transcribe command.
type TranscriptionResponse struct {
	// Decoded text with segments joined by single spaces and trimmed.
	Text string `json:"text"`
	// Detected language as reported by the decoder, or "unknown".
	Language string `json:"language"`
	Success  bool   `json:"success"`
}

// ErrorResponse is the failure shape for every command.
type ErrorResponse struct {
	// Human-readable error message.
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

// ProgressEvent is emitted on the diagnostic stream during a model
// download, prefixed with "PROGRESS:" to keep it out of the response
// channel.
type ProgressEvent struct {
	Type  string `json:"type"`
	Model string `json:"model"`
	// Bytes observed on disk so far.
	DownloadedBytes int64 `json:"downloaded_bytes"`
	// Expected total from the catalog estimate.
	TotalBytes int64 `json:"total_bytes"`
	// Completion percentage, clamped to [0, 100].
	Percentage float64 `json:"percentage"`
	// Smoothed throughput in megabits per second; 0 when no growth was
	// observed in the current sample.
	SpeedMbps float64 `json:"speed_mbps"`
}

// CompleteEvent is the terminal progress emission after a download
// finishes and the model loads.
type CompleteEvent struct {
	Type            string  `json:"type"`
	Model           string  `json:"model"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	Percentage      float64 `json:"percentage"`
}
