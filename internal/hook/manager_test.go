package hook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_Discover(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, "b-notify", `echo '{"success":true}'`, EventRecordingFinished)
	writeHook(t, dir, "a-upload", `echo '{"success":true}'`)

	// Directories without a manifest and invalid manifests are skipped.
	os.MkdirAll(filepath.Join(dir, "empty"), 0755)
	os.MkdirAll(filepath.Join(dir, "broken"), 0755)
	os.WriteFile(filepath.Join(dir, "broken", "hook.json"), []byte("{not json"), 0644)
	os.MkdirAll(filepath.Join(dir, "nameless"), 0755)
	os.WriteFile(filepath.Join(dir, "nameless", "hook.json"), []byte(`{"executable":"x"}`), 0644)

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := m.List()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Manifest.Name != "a-upload" || hooks[1].Manifest.Name != "b-notify" {
		t.Errorf("hooks not sorted by name: %s, %s", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}
	if hooks[1].Path != filepath.Join(dir, "b-notify") {
		t.Errorf("unexpected path %q", hooks[1].Path)
	}

	if _, err := m.Get("a-upload"); err != nil {
		t.Errorf("Get() error = %v", err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Get() error = %v, want ErrHookNotFound", err)
	}
	if m.HookDir() != dir {
		t.Errorf("HookDir() = %q, want %q", m.HookDir(), dir)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err := m.Discover(); err != nil {
		t.Errorf("Discover() error = %v, want nil", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no hooks")
	}
}

func TestManager_Dispatch(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, "finished-only", `echo '{"success":true}'`, EventRecordingFinished)
	writeHook(t, dir, "everything", `echo '{"success":true}'`)
	writeHook(t, dir, "failing", "exit 1\n")

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	tests := []struct {
		eventType string
		want      int
	}{
		{EventRecordingFinished, 2},
		{EventRecordingStarted, 1},
	}

	for _, tt := range tests {
		got := m.Dispatch(context.Background(), &Event{Type: tt.eventType})
		if got != tt.want {
			t.Errorf("Dispatch(%s) = %d successes, want %d", tt.eventType, got, tt.want)
		}
	}
}

func TestManifest_Wants(t *testing.T) {
	tests := []struct {
		events []string
		event  string
		want   bool
	}{
		{nil, EventRecordingStarted, true},
		{[]string{EventRecordingFinished}, EventRecordingFinished, true},
		{[]string{EventRecordingFinished}, EventRecordingStarted, false},
	}

	for _, tt := range tests {
		m := Manifest{Events: tt.events}
		if got := m.Wants(tt.event); got != tt.want {
			t.Errorf("Wants(%q) with %v = %v, want %v", tt.event, tt.events, got, tt.want)
		}
	}
}

func TestManager_SetTimeout(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, "slow", "exec sleep 5\n")

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	m.SetTimeout(100 * time.Millisecond)

	start := time.Now()
	if ok := m.Dispatch(context.Background(), testEvent()); ok != 0 {
		t.Errorf("Dispatch() = %d, want 0 for a timed out hook", ok)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Dispatch() took %v, timeout not applied", elapsed)
	}
}
