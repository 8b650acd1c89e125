package idempotency

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "idem.db"), time.Hour)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestFirstResponseWins(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("user:key", "f1", 201, []byte(`{"first":true}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("user:key", "f2", 400, []byte(`{"second":true}`)); err != nil {
		t.Fatal(err)
	}

	resp, ok, err := s.Get("user:key")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if resp.Status != 201 || resp.Fingerprint != "f1" || string(resp.Body) != `{"first":true}` {
		t.Errorf("unexpected stored response %d %s", resp.Status, resp.Body)
	}
}

func TestExpiry(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Put("k", "f", 201, []byte("a")); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}

	// An expired key can be reused.
	if err := s.Put("k", "f", 200, []byte("b")); err != nil {
		t.Fatal(err)
	}
	resp, ok, _ := s.Get("k")
	if !ok || string(resp.Body) != "b" {
		t.Errorf("expected fresh entry, got %v", resp)
	}
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for _, k := range []string{"a", "b"} {
		if err := s.Put(k, "", 201, nil); err != nil {
			t.Fatal(err)
		}
	}
	now = now.Add(30 * time.Minute)
	if err := s.Put("c", "", 201, nil); err != nil {
		t.Fatal(err)
	}
	now = now.Add(45 * time.Minute)

	n, err := s.Purge()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 purged, got %d", n)
	}
	if _, ok, _ := s.Get("c"); !ok {
		t.Error("expected c to survive")
	}
}
