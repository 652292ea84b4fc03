package blobstore

import "testing"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put("evt1", []byte("hello world")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("evt1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("Get() = %q, want %q", got, "hello world")
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get("absent")
	if err != nil || got != nil {
		t.Fatalf("Get() = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("evt1", []byte("first"))
	_ = s.Put("evt1", []byte("second"))

	got, _ := s.Get("evt1")
	if string(got) != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
}

func TestDeleteRemovesBlob(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("evt1", []byte("data"))
	if err := s.Delete("evt1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Has("evt1"); ok {
		t.Error("expected blob gone after Delete")
	}
}

func TestDeleteMissingIsNotError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete("absent"); err != nil {
		t.Errorf("Delete of absent blob returned error: %v", err)
	}
}

func TestHas(t *testing.T) {
	s := newTestStore(t)
	if ok, _ := s.Has("evt1"); ok {
		t.Error("expected Has to report false before Put")
	}
	_ = s.Put("evt1", []byte("data"))
	if ok, err := s.Has("evt1"); err != nil || !ok {
		t.Errorf("Has() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	s := newTestStore(t)
	cases := []string{"../escape", "a/../../b", "/etc/passwd", ""}
	for _, id := range cases {
		if err := s.Put(id, []byte("x")); err == nil {
			t.Errorf("Put(%q) = nil error, want rejection of path traversal", id)
		}
		if _, err := s.Get(id); err == nil {
			t.Errorf("Get(%q) = nil error, want rejection of path traversal", id)
		}
	}
}
