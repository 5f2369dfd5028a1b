package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSettings_PutGet(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()
	ctx := context.Background()

	if err := settings.Put(ctx, "face-recorded-video", "AAEC"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := settings.Get(ctx, "face-recorded-video")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "AAEC" {
		t.Errorf("Get() = %q, want %q", got, "AAEC")
	}
}

func TestSettings_PutReplaces(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()
	ctx := context.Background()

	settings.Put(ctx, "k", "first")
	settings.Put(ctx, "k", "second")

	got, _ := settings.Get(ctx, "k")
	if got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}

	var count int
	s.DB().QueryRow("SELECT COUNT(*) FROM settings WHERE key = 'k'").Scan(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestSettings_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Settings().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSettings_Delete(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()
	ctx := context.Background()

	settings.Put(ctx, "k", "v")
	if err := settings.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := settings.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := settings.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestSettings_LargeValue(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()
	ctx := context.Background()

	value := strings.Repeat("QUJD", 256*1024)
	if err := settings.Put(ctx, "big", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := settings.Get(ctx, "big")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != len(value) {
		t.Errorf("len(Get()) = %d, want %d", len(got), len(value))
	}
}

func TestSettings_CanceledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Settings().Put(ctx, "k", "v"); err == nil {
		t.Error("Put() with canceled context should fail")
	}
}

var _ KV = (*SettingsRepository)(nil)
var _ KV = (*PGStore)(nil)
