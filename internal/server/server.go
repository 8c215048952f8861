// Package server implements the long-lived stdio session: newline-delimited
// JSON commands on stdin, exactly one response line on stdout per non-blank
// input line. Diagnostics and progress events stay on stderr so the response
// channel carries nothing but answers.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperd/internal/manager"
	"whisperd/pkg/types"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 1 << 20

// Ops is the slice of the model manager the session drives.
type Ops interface {
	Activate(ctx context.Context, id string) error
	Active() string
	Transcribe(ctx context.Context, id, audioPath, language, task string) (types.TranscriptionResponse, error)
	Reload(ctx context.Context, id string) error
}

// Server owns one stdio session.
type Server struct {
	ops   Ops
	model string
	in    io.Reader
	out   io.Writer
	log   zerolog.Logger
}

// New constructs a session that activates model on startup and then serves
// commands from in, answering on out.
func New(ops Ops, model string, in io.Reader, out io.Writer, log zerolog.Logger) *Server {
	return &Server{ops: ops, model: model, in: in, out: out, log: log}
}

// Run performs the startup handshake and serves the command loop until a
// shutdown command, stdin EOF, or context cancellation. A handshake failure
// writes one error line and returns a non-nil error so the caller can exit
// non-zero.
func (s *Server) Run(ctx context.Context) error {
	if err := s.ops.Activate(ctx, s.model); err != nil {
		s.log.Error().Err(err).Str("model", s.model).Msg("startup model load failed")
		s.writeLine(types.ErrorResponse{Error: "Failed to load model", Success: false})
		return fmt.Errorf("load model %q: %w", s.model, err)
	}
	s.log.Info().Str("model", s.model).Msg("model loaded and ready")
	s.writeLine(types.Ack{Type: "ready", Model: s.model, Success: true})

	lines := make(chan string)
	readErr := make(chan error, 1)
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		sc := bufio.NewScanner(s.in)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-sessionDone:
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("session canceled")
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				s.log.Info().Msg("stdin closed, shutting down")
				return nil
			}
			if isBlank(line) {
				continue
			}
			if done := s.handleLine(ctx, line); done {
				return nil
			}
		}
	}
}

// handleLine dispatches one request and writes exactly one response. It
// reports whether the session should end. Panics in a handler degrade to a
// server-error response so one bad request cannot take the loop down.
func (s *Server) handleLine(ctx context.Context, line string) (done bool) {
	start := time.Now()
	reqID := uuid.NewString()
	command := "invalid"
	status := "error"
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("request_id", reqID).Interface("panic", r).Msg("handler panicked")
			s.writeError(fmt.Sprintf("Server error: %v", r))
		}
		metricCommands.WithLabelValues(command, status).Inc()
		metricCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	}()

	var req types.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.writeError("Invalid JSON: " + err.Error())
		return false
	}
	command = req.Command
	if command == "" {
		// Bare payloads with an audio_path are treated as transcribe
		// requests.
		command = "transcribe"
	}
	log := s.log.With().Str("request_id", reqID).Str("command", command).Logger()

	switch command {
	case "ping":
		status = "ok"
		s.writeLine(types.Ack{Type: "pong", Success: true})
	case "shutdown":
		log.Info().Msg("received shutdown command")
		status = "ok"
		s.writeLine(types.Ack{Type: "shutdown", Success: true})
		return true
	case "transcribe":
		status = s.handleTranscribe(ctx, log, req)
	case "reload":
		status = s.handleReload(ctx, log, req)
	default:
		s.writeError("Unknown command: " + command)
	}
	return false
}

func (s *Server) handleTranscribe(ctx context.Context, log zerolog.Logger, req types.Request) string {
	log.Info().
		Str("task", req.Task).
		Str("language", req.Language).
		Msg("transcription requested")
	res, err := s.ops.Transcribe(ctx, s.ops.Active(), req.AudioPath, req.Language, req.Task)
	if err != nil {
		log.Warn().Err(err).Msg("transcription failed")
		if manager.IsModelUnavailable(err) {
			s.writeError("Failed to load model")
			return "error"
		}
		s.writeError(err.Error())
		return "error"
	}
	s.writeLine(res)
	return "ok"
}

func (s *Server) handleReload(ctx context.Context, log zerolog.Logger, req types.Request) string {
	id := req.Model
	if id == "" {
		id = s.ops.Active()
	}
	if err := s.ops.Reload(ctx, id); err != nil {
		log.Warn().Err(err).Str("model", id).Msg("reload failed")
		s.writeError(fmt.Sprintf("Failed to load model '%s'", id))
		return "error"
	}
	log.Info().Str("model", id).Msg("model reloaded")
	s.writeLine(types.Ack{Type: "reloaded", Model: id, Success: true})
	return "ok"
}

func (s *Server) writeError(msg string) {
	s.writeLine(types.ErrorResponse{Error: msg, Success: false})
}

// writeLine emits one compact JSON line. Responses are the session's
// contract; a broken pipe here is only worth a log because the loop will
// hit EOF on its own shortly after.
func (s *Server) writeLine(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("encode response")
		return
	}
	b = append(b, '\n')
	if _, err := s.out.Write(b); err != nil {
		s.log.Warn().Err(err).Msg("write response")
	}
}

func isBlank(line string) bool {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}
