package blob_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/yeisme/filehost/pkg/internal/storage/blob"
)

func TestLocalCreateCommitOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := blob.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	w, err := s.Create(ctx, "abcDEF012345")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := w.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	obj, err := s.Open(ctx, "abcDEF012345")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer obj.Close()

	if obj.Info().Size != 5 {
		t.Fatalf("size = %d, want 5", obj.Info().Size)
	}

	data, err := io.ReadAll(obj)
	if err != nil || string(data) != "hello" {
		t.Fatalf("read = %q, %v", data, err)
	}
}

func TestLocalCreateIsExclusive(t *testing.T) {
	ctx := context.Background()

	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	w, err := s.Create(ctx, "dup")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer w.Abort()

	if _, err := s.Create(ctx, "dup"); !errors.Is(err, blob.ErrExist) {
		t.Fatalf("second create err = %v, want ErrExist", err)
	}
}

func TestLocalAbortRemovesPartial(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := blob.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	w, err := s.Create(ctx, "partial")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _ = w.Write([]byte("half"))

	if err := w.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "partial")); !os.IsNotExist(err) {
		t.Fatalf("partial file still present: %v", err)
	}
}

func TestLocalOpenMissingAndRemove(t *testing.T) {
	ctx := context.Background()

	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := s.Open(ctx, "nope"); !errors.Is(err, blob.ErrNotExist) {
		t.Fatalf("open err = %v, want ErrNotExist", err)
	}

	if err := s.Remove(ctx, "nope"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}

	ok, err := s.Exists(ctx, "nope")
	if err != nil || ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}
}

func TestLocalRejectsSeparators(t *testing.T) {
	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, id := range []string{"", "..", "a/b", `a\b`, "app.db", "app.db-wal", "x_y"} {
		if _, err := s.Create(context.Background(), id); !errors.Is(err, blob.ErrInvalidID) {
			t.Errorf("create %q err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestLocalIgnoresNonIDFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := blob.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	db := filepath.Join(dir, "app.db")
	if err := os.WriteFile(db, []byte("sqlite"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.Remove(ctx, "app.db"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := os.Stat(db); err != nil {
		t.Fatalf("app.db removed through the blob store: %v", err)
	}

	if _, err := s.Open(ctx, "app.db"); !errors.Is(err, blob.ErrNotExist) && !errors.Is(err, blob.ErrInvalidID) {
		t.Fatalf("open app.db err = %v", err)
	}

	if ok, _ := s.Exists(ctx, "app.db"); ok {
		t.Fatal("app.db reported as a stored file")
	}
}
