package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/facerecorder/internal/recording"
	"github.com/ayusman/facerecorder/internal/server"
	"github.com/ayusman/facerecorder/internal/tray"
)

var (
	addr      string
	staticDir string
	withTray  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the landmark view and recording UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a := newApp()
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer a.Stop()

		webDir := staticDir
		if webDir == "" {
			webDir = findWebDir()
		}
		if webDir != "" {
			fmt.Fprintf(os.Stderr, "Serving static files from: %s\n", webDir)
		}

		srv := server.New(server.Config{
			StaticDir: webDir,
			Store:     DB,
			Loop:      a.Loop(),
			Recorder:  a.Recorder(),
		})

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "Starting server on %s\n", addr)
			errCh <- srv.ListenAndServe(ctx, addr)
			cancel()
		}()

		if withTray {
			// systray owns the main thread until Quit.
			runTray(ctx, cancel, a.Recorder())
		}

		<-ctx.Done()
		if err := <-errCh; err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&staticDir, "static", "", "Serve the UI from this directory instead of the embedded page")
	serveCmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray menu")
	rootCmd.AddCommand(serveCmd)
}

func runTray(ctx context.Context, cancel context.CancelFunc, rec *recording.Controller) {
	t := tray.New()

	t.OnStart(func() {
		if err := rec.Start(); err != nil {
			log.Printf("Failed to start recording: %v", err)
		}
	})
	t.OnStop(func() {
		if err := rec.Stop(); err != nil {
			log.Printf("Failed to stop recording: %v", err)
		}
	})
	t.OnOpen(func() {
		if err := openBrowser(browserURL(addr)); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(cancel)

	rec.OnStateChange(func(s recording.State) {
		t.SetRecording(s == recording.StateRecording)
	})
	rec.OnFinalize(func(b *recording.Blob) {
		t.SetLastRecording(b.Size())
	})

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

// browserURL turns a listen address into a local URL.
func browserURL(listenAddr string) string {
	host := listenAddr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for a web directory overriding the embedded UI.
// It checks "web", "../web" and ~/.facerecorder/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".facerecorder", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
