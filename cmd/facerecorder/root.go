package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/facerecorder/internal/app"
	"github.com/ayusman/facerecorder/internal/hook"
	"github.com/ayusman/facerecorder/internal/render"
	"github.com/ayusman/facerecorder/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// Options holds the flags shared by serve and record.
type Options struct {
	DataDir  string
	KVDB     string
	CameraID int
	Interval time.Duration
	FPS      int
	FFmpeg   string
	HookDir  string
	HookWait time.Duration
}

var (
	opts Options

	// DB is the SQLite store shared by subcommands.
	DB *store.Store
	// KV is the slot the last recording is written to.
	KV store.KV

	pg *store.PGStore
)

var rootCmd = &cobra.Command{
	Use:     "facerecorder",
	Short:   "Webcam face landmark viewer and recorder",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if opts.KVDB == "" {
			opts.KVDB = os.Getenv("FACEREC_KV_DB")
		}

		dataDir, err := expandHome(opts.DataDir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		if opts.HookDir == "" {
			opts.HookDir = filepath.Join(dataDir, "hooks")
		} else if opts.HookDir, err = expandHome(opts.HookDir); err != nil {
			return err
		}

		DB, err = store.New(filepath.Join(dataDir, "facerecorder.db"))
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		KV = DB.Settings()

		if opts.KVDB != "" {
			pg, err = store.NewPGStore(cmd.Context(), opts.KVDB)
			if err != nil {
				return fmt.Errorf("failed to connect to kv database: %w", err)
			}
			KV = pg
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pg != nil {
			// The command context may already be cancelled by Ctrl+C.
			pg.Close(context.Background())
		}
		if DB != nil {
			DB.Close()
		}
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.DataDir, "data-dir", "~/.facerecorder", "Directory for the SQLite database")
	flags.StringVar(&opts.KVDB, "kv-db", "", "PostgreSQL connection string for the recording slot (env FACEREC_KV_DB)")
	flags.IntVar(&opts.CameraID, "camera", 0, "Video device index")
	flags.DurationVar(&opts.Interval, "interval", render.DefaultInterval, "Render loop cadence")
	flags.IntVar(&opts.FPS, "fps", 0, "Encoder frame rate (default: derived from --interval)")
	flags.StringVar(&opts.FFmpeg, "ffmpeg", "ffmpeg", "ffmpeg executable")
	flags.StringVar(&opts.HookDir, "hooks", "", "Recording hooks directory (default: <data-dir>/hooks)")
	flags.DurationVar(&opts.HookWait, "hook-timeout", hook.DefaultTimeout, "Maximum run time of a single hook")
}

func newApp() *app.App {
	return app.New(app.Config{
		Store:       DB,
		KV:          KV,
		CameraID:    opts.CameraID,
		Interval:    opts.Interval,
		FFmpegPath:  opts.FFmpeg,
		FPS:         opts.FPS,
		HookDir:     opts.HookDir,
		HookTimeout: opts.HookWait,
	})
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}
