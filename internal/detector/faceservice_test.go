package detector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeService writes a shell script standing in for the face service.
func fakeService(t *testing.T, script string) *FaceService {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	path := filepath.Join(t.TempDir(), "face_service.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &FaceService{
		config: DefaultConfig(),
		script: path,
		python: "/bin/sh",
	}
}

func TestFaceService_LoadCancelled(t *testing.T) {
	// Never prints the ready line and never reads stdin.
	d := fakeService(t, "exec sleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Load(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Load() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Load() returned after %v, service was not killed", elapsed)
	}
	if d.Loaded() {
		t.Error("detector should not be loaded")
	}

	done := make(chan error, 1)
	go func() { done <- d.Close() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() blocked after a cancelled load")
	}
}

func TestFaceService_LoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{
			name:    "model failed",
			script:  "echo '{\"ready\":false,\"error\":\"no weights\"}'\nexec sleep 30\n",
			wantErr: "no weights",
		},
		{
			name:    "wrong landmark count",
			script:  "echo '{\"ready\":true,\"landmarks\":5}'\nexec sleep 30\n",
			wantErr: "5 landmarks",
		},
		{
			name:    "garbage",
			script:  "echo 'loading...'\nexec sleep 30\n",
			wantErr: "parse ready line",
		},
		{
			name:    "exits early",
			script:  "exit 1\n",
			wantErr: "read ready line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fakeService(t, tt.script)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			start := time.Now()
			err := d.Load(ctx)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want %q", err, tt.wantErr)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("Load() returned after %v", elapsed)
			}
			if d.Loaded() {
				t.Error("detector should not be loaded")
			}
		})
	}
}
