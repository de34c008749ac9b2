package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTmpThenMove(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.bin")

	err := WriteTmpThenMove(outPath, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteTmpThenMove failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want %q", got, "hello")
	}
	assertNoTmpFiles(t, dir)
}

func TestWriteTmpThenMoveReplaces(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.bin")
	if err := os.WriteFile(outPath, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteTmpThenMove(outPath, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteTmpThenMove failed: %v", err)
	}
	if got, _ := os.ReadFile(outPath); string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestWriteTmpThenMoveError(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.bin")
	if err := os.WriteFile(outPath, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	errWrite := errors.New("write failed")
	err := WriteTmpThenMove(outPath, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errWrite
	})
	if !errors.Is(err, errWrite) {
		t.Fatalf("err = %v, want %v", err, errWrite)
	}

	if got, _ := os.ReadFile(outPath); string(got) != "keep" {
		t.Errorf("content = %q, existing file should be untouched", got)
	}
	assertNoTmpFiles(t, dir)
}

func TestWriteTmpThenMoveMissingDir(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "missing", "out.bin")

	called := false
	err := WriteTmpThenMove(outPath, func(w io.Writer) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if called {
		t.Error("writeFunc should not run when the temp file cannot be created")
	}
}

func assertNoTmpFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}
