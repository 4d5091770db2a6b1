package filestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalMkdirAndExists(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "export-1")
	store := NewLocal(root)
	ctx := context.Background()

	exists, err := store.Root().Exists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("fresh root should not exist")
	}

	if err := store.Root().Mkdir(ctx); err != nil {
		t.Fatal(err)
	}

	exists, err = store.Root().Exists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("root should exist after Mkdir")
	}
}

func TestLocalMkdirRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)
	if err := store.Root().Mkdir(context.Background()); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLocalChildWriteAll(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)
	child := store.Root().Child("Patient.0000.ndjson")

	n, err := child.WriteAll(context.Background(), bytes.NewReader([]byte("hello")))
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Patient.0000.ndjson"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestLocalURIIsAbsoluteFileURL(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)
	uri := store.Root().URI()
	if uri[:7] != "file://" {
		t.Fatalf("expected file:// URI, got %s", uri)
	}
}
