package stage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileAndHash(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer root.Close()

	entry, err := root.CopyFile(src, "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Size != 11 {
		t.Errorf("expected size 11, got %d", entry.Size)
	}
	if entry.Hash == "" {
		t.Error("expected a non-empty hash")
	}

	if _, err := os.Stat(filepath.Join(root.Path(), "a.txt")); err != nil {
		t.Errorf("expected file to exist in staging root: %v", err)
	}
}

func TestCopyFileRefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	root, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer root.Close()

	if _, err := root.CopyFile(link, "link.txt"); err == nil {
		t.Error("expected an error copying a symlink")
	}
}

func TestCopyFolderPreservesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "top.txt"), []byte("top"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("nested"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer root.Close()

	entries, err := root.CopyFolder(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if _, err := os.Stat(filepath.Join(root.Path(), "sub", "nested.txt")); err != nil {
		t.Errorf("expected nested file to exist: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	root, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Close(); err != nil {
		t.Fatal(err)
	}
	if err := root.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
}
