package store

import (
	"errors"
	"testing"
	"time"
)

func TestRecordings_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Recording{
		ID:        "rec-1",
		MediaType: "video/webm",
		Size:      30,
		Fragments: 2,
		StartedAt: start,
		StoppedAt: start.Add(5 * time.Second),
	}
	if err := repo.Create(rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("rec-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.MediaType != "video/webm" || got.Size != 30 || got.Fragments != 2 {
		t.Errorf("GetByID() = %+v", got)
	}
	if !got.StartedAt.Equal(rec.StartedAt) || !got.StoppedAt.Equal(rec.StoppedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.StoppedAt, rec.StartedAt, rec.StoppedAt)
	}
	if got.Duration() != 5*time.Second {
		t.Errorf("Duration() = %v, want 5s", got.Duration())
	}
}

func TestRecordings_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Recordings().GetByID("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestRecordings_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	now := time.Now().UTC()
	rec := &Recording{ID: "dup", MediaType: "video/webm", StartedAt: now, StoppedAt: now}
	if err := repo.Create(rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(rec); err == nil {
		t.Error("second Create() with same ID should fail")
	}
}

func TestRecordings_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		stopped := base.Add(time.Duration(i) * time.Minute)
		err := repo.Create(&Recording{
			ID:        id,
			MediaType: "video/webm",
			Size:      i + 1,
			Fragments: 1,
			StartedAt: stopped.Add(-time.Second),
			StoppedAt: stopped,
		})
		if err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"c", "b", "a"}},
		{"limited", 2, []string{"c", "b"}},
		{"negative", -1, []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.List(tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("List() returned %d rows, want %d", len(list), len(tt.want))
			}
			for i, id := range tt.want {
				if list[i].ID != id {
					t.Errorf("List()[%d].ID = %q, want %q", i, list[i].ID, id)
				}
			}
		})
	}
}

func TestRecordings_ListEmpty(t *testing.T) {
	s := newTestStore(t)

	list, err := s.Recordings().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %d rows, want 0", len(list))
	}
}
