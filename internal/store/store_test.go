package store

import (
	"testing"
	"time"
)

// fakeClock hands out strictly increasing timestamps, one millisecond apart,
// so checkpoint ids are deterministic and distinct within a test.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), WithClock(newFakeClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		s, err := Open(dir)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_ReusesExistingWorkspace(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	ref, err := s1.PutObject(map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("PutObject() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var out map[string]any
	if err := s2.GetObject(ref, &out); err != nil {
		t.Fatalf("GetObject() after reopen failed: %v", err)
	}
	if out["k"] != "v" {
		t.Errorf("round trip lost data: %v", out)
	}
}

func TestClose_NilCatalog(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store should not error: %v", err)
	}
}
