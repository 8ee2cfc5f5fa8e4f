package sentinel_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"runbox/internal/sentinel"
	"runbox/internal/services"
)

func TestWriteCreatesEmptyMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".done")

	if err := sentinel.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat sentinel: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty sentinel, got %d bytes", info.Size())
	}

	exists, err := sentinel.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sentinel to exist")
	}
}

func TestWriteRejectsExistingMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".done")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := sentinel.Write(path)
	if err == nil {
		t.Fatal("expected error for existing sentinel")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".done")

	if err := sentinel.Clear(path); err != nil {
		t.Fatalf("Clear on absent marker failed: %v", err)
	}

	if err := sentinel.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sentinel.Clear(path); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	exists, err := sentinel.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected sentinel to be removed")
	}

	if err := sentinel.Clear(path); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}

func TestExistsRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := sentinel.Exists(dir); err == nil {
		t.Fatal("expected error when sentinel path is a directory")
	}
}
