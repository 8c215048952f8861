package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"whisperd/internal/config"
	"whisperd/internal/httpapi"
	"whisperd/internal/progress"
	"whisperd/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var debugAddr, whisperBin string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the long-lived stdio transcription session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			if debugAddr != "" {
				cfg.DebugAddr = debugAddr
			}
			if whisperBin != "" {
				cfg.WhisperBin = whisperBin
			}
			return runServe(cfg, newLogger(cfg))
		},
	}
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "optional debug/metrics HTTP listen address, e.g. 127.0.0.1:9090")
	cmd.Flags().StringVar(&whisperBin, "whisper-bin", "", "path to the whisper-server binary (default: discovered on PATH)")
	return cmd
}

func runServe(cfg config.Config, log zerolog.Logger) error {
	sink := progress.NewLineSink(os.Stderr)
	mgr, err := buildManager(cfg, cfg.WhisperBin, sink, log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var debugSrv *http.Server
	if cfg.DebugAddr != "" {
		debugSrv = &http.Server{Addr: cfg.DebugAddr, Handler: httpapi.NewMux(mgr, log)}
		go func() {
			log.Info().Str("addr", cfg.DebugAddr).Msg("debug listener started")
			if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("debug listener failed")
			}
		}()
	}

	sess := server.New(mgr, cfg.Model, os.Stdin, os.Stdout, log)
	runErr := sess.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		// Signal-driven shutdown is a clean exit.
		runErr = nil
	}

	if debugSrv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := debugSrv.Shutdown(shutCtx); err != nil {
			log.Warn().Err(err).Msg("debug listener shutdown")
		}
	}
	return runErr
}
