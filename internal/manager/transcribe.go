package manager

import (
	"context"
	"strings"
	"time"

	"whisperd/internal/common/fsutil"
	"whisperd/internal/engine"
	"whisperd/pkg/types"
)

// Transcribe decodes one audio file with the model for id. The audio
// path is checked before the cache is touched; any decode fault comes
// back typed, never as a process-terminating fault.
func (m *Manager) Transcribe(ctx context.Context, id, audioPath, language, task string) (types.TranscriptionResponse, error) {
	if audioPath == "" {
		return types.TranscriptionResponse{}, ErrValidation("Missing audio_path")
	}
	if !fsutil.PathExists(audioPath) {
		return types.TranscriptionResponse{}, ErrAudioNotFound(audioPath)
	}
	if task == "" {
		task = "transcribe"
	}

	model, err := m.GetOrLoad(ctx, id)
	if err != nil {
		return types.TranscriptionResponse{}, err
	}

	m.cfg.Logger.Info().
		Str("model", id).
		Str("task", task).
		Str("language", language).
		Msg("transcribing")
	start := time.Now()
	res, err := model.Transcribe(ctx, audioPath, engine.DecodeOptions{
		Language:  language,
		Task:      task,
		BeamSize:  m.cfg.BeamSize,
		VADFilter: true,
	})
	if err != nil {
		return types.TranscriptionResponse{}, ErrTranscriptionFailed(err)
	}

	text := strings.TrimSpace(strings.Join(res.Segments, " "))
	detected := res.Language
	if detected == "" {
		// Some backends omit the detection; "unknown" is the sentinel.
		detected = "unknown"
	}
	m.cfg.Logger.Info().
		Str("model", id).
		Str("detected_language", detected).
		Dur("dur", time.Since(start)).
		Msg("transcription done")
	return types.TranscriptionResponse{Text: text, Language: detected, Success: true}, nil
}
