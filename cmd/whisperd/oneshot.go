package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whisperd/internal/config"
	"whisperd/internal/manager"
	"whisperd/internal/media"
	"whisperd/internal/progress"
	"whisperd/pkg/types"
)

func newTranscribeCmd(flags *rootFlags) *cobra.Command {
	var language, task, outputFormat, whisperBin string
	cmd := &cobra.Command{
		Use:   "transcribe <audio_file>",
		Short: "Transcribe one audio file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			if whisperBin != "" {
				cfg.WhisperBin = whisperBin
			}
			log := newLogger(cfg)
			mgr, err := buildManager(cfg, cfg.WhisperBin, progress.NewLineSink(os.Stderr), log)
			if err != nil {
				return err
			}
			defer mgr.Close()

			res, err := mgr.Transcribe(context.Background(), cfg.Model, args[0], language, task)
			if err != nil {
				msg := err.Error()
				if manager.IsModelUnavailable(err) {
					msg = "Failed to load model"
				}
				if outputFormat == "text" {
					fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
					return errResult
				}
				if perr := printJSON(types.ErrorResponse{Error: msg, Success: false}); perr != nil {
					return perr
				}
				return errResult
			}
			if outputFormat == "text" {
				fmt.Println(res.Text)
				return nil
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language code hint, e.g. en (default: auto-detect)")
	cmd.Flags().StringVar(&task, "task", "", "task: transcribe or translate (default \"transcribe\")")
	cmd.Flags().StringVar(&outputFormat, "output-format", "json", "output format: json or text")
	cmd.Flags().StringVar(&whisperBin, "whisper-bin", "", "path to the whisper-server binary (default: discovered on PATH)")
	return cmd
}

func newDownloadCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download the selected model with live progress events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			mgr, err := buildManager(cfg, cfg.WhisperBin, progress.NewLineSink(os.Stderr), log)
			if err != nil {
				return err
			}
			defer mgr.Close()

			res := mgr.Download(context.Background(), cfg.Model)
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return errResult
			}
			return nil
		},
	}
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the selected model is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, cleanup, err := quietManager(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			st := mgr.Check(cfg.Model)
			if err := printJSON(st); err != nil {
				return err
			}
			if !st.Success {
				return errResult
			}
			return nil
		},
	}
}

func newListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known model with its installation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, cleanup, err := quietManager(flags)
			if err != nil {
				return err
			}
			defer cleanup()
			return printJSON(mgr.List())
		},
	}
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the selected model's installed assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, cleanup, err := quietManager(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res := mgr.Delete(cfg.Model)
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return errResult
			}
			return nil
		},
	}
}

func newCheckFFmpegCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-ffmpeg",
		Short: "Probe the ffmpeg installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			path := media.Locate(cfg.FFmpegPath)
			return printJSON(media.Probe(context.Background(), path))
		},
	}
}

// quietManager builds a manager for cache maintenance commands: no
// progress stream, engine never touched.
func quietManager(flags *rootFlags) (*manager.Manager, config.Config, func(), error) {
	cfg, err := resolveConfig(flags)
	if err != nil {
		return nil, cfg, nil, err
	}
	log := newLogger(cfg)
	mgr, err := buildManager(cfg, cfg.WhisperBin, progress.NopSink{}, log)
	if err != nil {
		return nil, cfg, nil, err
	}
	return mgr, cfg, mgr.Close, nil
}
