package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestObjectsLocalAddAndContains(t *testing.T) {
	dir := t.TempDir()
	s := NewObjects(nil, "", dir, []byte("salt"), quietLogger())
	ctx := context.Background()

	ok, err := s.Contains(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if ok {
		t.Fatal("Contains() = true before Add")
	}

	first, err := s.Add(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.ID == "" || first.Email != "new@example.com" {
		t.Errorf("Add() = %+v", first)
	}

	ok, err = s.Contains(ctx, "new@example.com")
	if err != nil || !ok {
		t.Fatalf("Contains() = %v, %v after Add", ok, err)
	}

	second, err := s.Add(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second Add() created a new entry: %s != %s", second.ID, first.ID)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("found %d files, want 1", len(files))
	}
	if strings.Contains(files[0].Name(), "example") {
		t.Errorf("object name %q leaks the address", files[0].Name())
	}
}

func TestObjectsContainsExactMatch(t *testing.T) {
	s := NewObjects(nil, "", t.TempDir(), []byte("salt"), quietLogger())
	ctx := context.Background()

	if _, err := s.Add(ctx, "user@example.com"); err != nil {
		t.Fatal(err)
	}

	for _, email := range []string{"User@example.com", "user@example.co", "other@example.com"} {
		ok, err := s.Contains(ctx, email)
		if err != nil {
			t.Fatalf("Contains(%q) error = %v", email, err)
		}
		if ok {
			t.Errorf("Contains(%q) = true, want exact match only", email)
		}
	}
}

func TestObjectsMalformedEntry(t *testing.T) {
	dir := t.TempDir()
	s := NewObjects(nil, "", dir, []byte("salt"), quietLogger())

	key := s.EntryKey("broken@example.com")
	if err := os.WriteFile(filepath.Join(dir, key), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Contains(context.Background(), "broken@example.com")
	if err == nil {
		t.Fatal("Contains() on malformed entry returned no error")
	}
	if ok {
		t.Error("Contains() = true on malformed entry")
	}
}

func TestEntryKeyDependsOnSalt(t *testing.T) {
	a := NewObjects(nil, "", "", []byte("one"), quietLogger())
	b := NewObjects(nil, "", "", []byte("two"), quietLogger())

	if a.EntryKey("x@example.com") == b.EntryKey("x@example.com") {
		t.Error("keys equal across salts")
	}
	if a.EntryKey("x@example.com") != a.EntryKey("x@example.com") {
		t.Error("key not deterministic")
	}
	if !strings.HasPrefix(a.EntryKey("x@example.com"), "entry-") {
		t.Errorf("unexpected key %q", a.EntryKey("x@example.com"))
	}
}
