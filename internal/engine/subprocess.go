package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	readyTimeout = 30 * time.Second
	probeEvery   = 100 * time.Millisecond
	stopGrace    = 2 * time.Second
	stderrTail   = 4096
)

// ServerAdapter spawns one whisper-server process per loaded model and
// decodes via multipart HTTP against it.
type ServerAdapter struct {
	bin    string
	host   string
	client *http.Client
	log    zerolog.Logger
}

// NewServerAdapter builds an adapter around the given server binary.
func NewServerAdapter(bin string, log zerolog.Logger) *ServerAdapter {
	// Timeout stays 0: decode duration is unbounded and callers carry
	// context deadlines where they need them.
	return &ServerAdapter{
		bin:    bin,
		host:   "127.0.0.1",
		client: &http.Client{Timeout: 0},
		log:    log,
	}
}

// Load spawns a server for the spec's weights and waits for readiness.
func (a *ServerAdapter) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	if strings.TrimSpace(spec.ModelFile) == "" {
		return nil, fmt.Errorf("no model file resolved for %q", spec.ID)
	}
	if _, err := os.Stat(spec.ModelFile); err != nil {
		return nil, fmt.Errorf("model file %s: %w", spec.ModelFile, err)
	}

	port, err := pickFreePort(a.host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", a.host, port)

	args := []string{
		"-m", spec.ModelFile,
		"--host", a.host,
		"--port", strconv.Itoa(port),
	}
	if spec.Backend != "" {
		args = append(args, "--device", spec.Backend)
	}
	if spec.Precision != "" {
		args = append(args, "--compute-type", spec.Precision)
	}

	cmd := exec.Command(a.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start whisper-server: %w", err)
	}
	a.log.Info().Str("model", spec.ID).Int("pid", cmd.Process.Pid).Int("port", port).Msg("whisper-server started")

	// Surface a non-zero exit before readiness instead of timing out.
	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.Wait() }()

	deadline := time.Now().Add(readyTimeout)
	for {
		if time.Now().After(deadline) {
			a.stop(cmd, waitErrCh)
			return nil, fmt.Errorf("whisper-server not ready in time: %s", baseURL)
		}
		select {
		case <-ctx.Done():
			a.stop(cmd, waitErrCh)
			return nil, ctx.Err()
		case werr := <-waitErrCh:
			tail := stderr.String()
			if len(tail) > stderrTail {
				tail = tail[len(tail)-stderrTail:]
			}
			if werr != nil {
				return nil, fmt.Errorf("whisper-server exited early: %v; stderr tail: %s", werr, tail)
			}
			return nil, fmt.Errorf("whisper-server exited before ready: %s", baseURL)
		default:
		}
		if a.isListening(baseURL) {
			break
		}
		time.Sleep(probeEvery)
	}
	a.log.Info().Str("model", spec.ID).Str("url", baseURL).Msg("whisper-server ready")

	return &serverModel{
		id:      spec.ID,
		cmd:     cmd,
		waitErr: waitErrCh,
		baseURL: baseURL,
		client:  a.client,
		log:     a.log,
	}, nil
}

// isListening reports whether anything is answering HTTP at baseURL. Any
// response counts: the server is up even if the probe path is unknown to
// it.
func (a *ServerAdapter) isListening(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// stop terminates a spawned process, SIGTERM first, then kill. waitErr is
// the channel already draining cmd.Wait.
func (a *ServerAdapter) stop(cmd *exec.Cmd, waitErr <-chan error) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-waitErr:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-waitErr
	}
}

// serverModel is one live whisper-server process bound to one model.
type serverModel struct {
	id        string
	cmd       *exec.Cmd
	waitErr   <-chan error
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	closeOnce sync.Once
}

// inferenceResponse is the verbose_json decode result shape.
type inferenceResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

func (m *serverModel) Transcribe(ctx context.Context, audioPath string, opts DecodeOptions) (DecodeResult, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return DecodeResult{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return DecodeResult{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return DecodeResult{}, fmt.Errorf("read audio: %w", err)
	}
	fields := map[string]string{
		"task":            opts.Task,
		"beam_size":       strconv.Itoa(opts.BeamSize),
		"vad_filter":      strconv.FormatBool(opts.VADFilter),
		"response_format": "verbose_json",
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return DecodeResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return DecodeResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/inference", &body)
	if err != nil {
		return DecodeResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return DecodeResult{}, ctx.Err()
		}
		return DecodeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, stderrTail))
		return DecodeResult{}, fmt.Errorf("whisper-server http error: %s: %s", resp.Status, string(b))
	}

	var ir inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return DecodeResult{}, fmt.Errorf("decode inference response: %w", err)
	}
	out := DecodeResult{Language: ir.Language}
	for _, s := range ir.Segments {
		out.Segments = append(out.Segments, s.Text)
	}
	if len(out.Segments) == 0 && ir.Text != "" {
		out.Segments = []string{ir.Text}
	}
	return out, nil
}

// Close stops the serving process, which frees the weights and any
// accelerator memory it held. The wait channel delivers exactly one
// value, so the teardown runs once; repeated Close calls are no-ops.
func (m *serverModel) Close() error {
	m.closeOnce.Do(func() {
		if m.cmd == nil || m.cmd.Process == nil {
			return
		}
		_ = m.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-m.waitErr:
		case <-time.After(stopGrace):
			_ = m.cmd.Process.Kill()
			<-m.waitErr
		}
		m.log.Info().Str("model", m.id).Msg("whisper-server stopped")
	})
	return nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}
