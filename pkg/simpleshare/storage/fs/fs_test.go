package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

func newBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	tmp := t.TempDir()
	b, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	return b, tmp
}

func TestFSBackend_BasicOps(t *testing.T) {
	backend, tmp := newBackend(t)
	ctx := context.Background()
	key := "BraveFox.txt"

	data := []byte("hello fs")
	n, err := backend.Create(ctx, key, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("expected %d bytes written, got %d", len(data), n)
	}

	meta, err := backend.Stat(ctx, key)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), meta.Size)
	}

	obj, err := backend.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := obj.Body.(io.ReadSeeker); !ok {
		t.Fatalf("expected seekable body")
	}
	got, _ := io.ReadAll(obj.Body)
	_ = obj.Body.Close()
	if string(got) != string(data) {
		t.Fatalf("open mismatch: %q", string(got))
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := backend.Delete(ctx, key); !errors.Is(err, simpleshare.ErrObjectNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestFSBackend_CreateIsExclusive(t *testing.T) {
	backend, _ := newBackend(t)
	ctx := context.Background()

	if _, err := backend.Create(ctx, "A.txt", bytes.NewReader([]byte("one"))); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := backend.Create(ctx, "A.txt", bytes.NewReader([]byte("two")))
	if !errors.Is(err, simpleshare.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}

	obj, err := backend.Open(ctx, "A.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer obj.Body.Close()
	got, _ := io.ReadAll(obj.Body)
	if string(got) != "one" {
		t.Fatalf("existing file was overwritten: %q", got)
	}
}

func TestFSBackend_PutReplaces(t *testing.T) {
	backend, tmp := newBackend(t)
	ctx := context.Background()

	if err := backend.Put(ctx, "A.info.json", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := backend.Put(ctx, "A.info.json", []byte("second")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(tmp, "A.info.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected replaced content, got %q", got)
	}
}

func TestFSBackend_Rename(t *testing.T) {
	backend, tmp := newBackend(t)
	ctx := context.Background()

	if err := backend.Put(ctx, "A.pdf", []byte("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := backend.Put(ctx, "C.pdf", []byte("c")); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := backend.Rename(ctx, "A.pdf", "C.pdf"); !errors.Is(err, simpleshare.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if err := backend.Rename(ctx, "Missing.pdf", "D.pdf"); !errors.Is(err, simpleshare.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}

	if err := backend.Rename(ctx, "A.pdf", "B.pdf"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "A.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
	got, err := os.ReadFile(filepath.Join(tmp, "B.pdf"))
	if err != nil || string(got) != "a" {
		t.Fatalf("expected moved content, got %q err=%v", got, err)
	}
}

func TestFSBackend_RejectsTraversal(t *testing.T) {
	backend, _ := newBackend(t)
	ctx := context.Background()

	for _, key := range []string{"../escape", "a/b", `a\b`, ".hidden", ""} {
		if _, err := backend.Open(ctx, key); !errors.Is(err, simpleshare.ErrInvalidName) {
			t.Fatalf("open %q: expected ErrInvalidName, got %v", key, err)
		}
		if err := backend.Put(ctx, key, []byte("x")); !errors.Is(err, simpleshare.ErrInvalidName) {
			t.Fatalf("put %q: expected ErrInvalidName, got %v", key, err)
		}
	}
}

func TestFSBackend_ListSkipsHiddenAndDirs(t *testing.T) {
	backend, tmp := newBackend(t)
	ctx := context.Background()

	if err := backend.Put(ctx, "A.info.json", []byte("{}")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, ".tmp123"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(tmp, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	keys, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 || keys[0] != "A.info.json" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

var _ simpleshare.BlobStore = (*Backend)(nil)
