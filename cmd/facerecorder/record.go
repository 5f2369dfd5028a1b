package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/facerecorder/internal/recording"
)

const (
	modelTimeout    = 30 * time.Second
	finalizeTimeout = 30 * time.Second
)

var (
	duration time.Duration
	output   string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the landmark view for a fixed duration without a UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		if duration <= 0 {
			return errors.New("--duration must be positive")
		}

		ctx := cmd.Context()

		a := newApp()
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer a.Stop()

		loadCtx, cancel := context.WithTimeout(ctx, modelTimeout)
		err := a.WaitLoaded(loadCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("landmark model not ready: %w", err)
		}

		rec := a.Recorder()
		finished := make(chan *recording.Blob, 1)
		rec.OnFinalize(func(b *recording.Blob) {
			select {
			case finished <- b:
			default:
			}
		})

		if err := rec.Start(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		recordFor(ctx, duration)

		if err := rec.Stop(); err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}

		var blob *recording.Blob
		select {
		case blob = <-finished:
		case <-time.After(finalizeTimeout):
			return errors.New("timed out waiting for the encoder to finish")
		}

		if err := os.WriteFile(output, blob.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}

		stats := a.Loop().Stats()
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes, %s, %d frames painted)\n",
			output, blob.Size(), blob.MediaType, stats.Painted)
		return nil
	},
}

func init() {
	recordCmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "How long to record")
	recordCmd.Flags().StringVarP(&output, "output", "o", recording.DownloadName, "Output file")
	rootCmd.AddCommand(recordCmd)
}

// recordFor waits for d or until ctx is done, showing progress on stderr.
func recordFor(ctx context.Context, d time.Duration) {
	const step = 100 * time.Millisecond
	steps := int(d / step)
	if steps < 1 {
		steps = 1
	}

	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetDescription("Recording"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bar.Add(1)
		}
	}
}
