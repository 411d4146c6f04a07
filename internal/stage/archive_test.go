package stage

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

func TestBuildAndExtractRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("alpha"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer root.Close()

	entries, err := root.CopyFolder(srcDir)
	if err != nil {
		t.Fatal(err)
	}

	var totalSize int64
	for _, e := range entries {
		totalSize += e.Size
	}

	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	var progressCalls int
	var lastDone int64
	result, err := root.Build(archivePath, totalSize, func(done, total int64) {
		progressCalls++
		lastDone = done
		if total != totalSize {
			t.Errorf("onProgress total = %d, want %d", total, totalSize)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Hash == "" || result.Size == 0 {
		t.Error("expected a non-empty hash and non-zero size")
	}
	if progressCalls == 0 {
		t.Error("expected at least one onProgress call")
	}
	if lastDone != totalSize {
		t.Errorf("final onProgress done = %d, want %d", lastDone, totalSize)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	destDir := t.TempDir()
	extracted, err := Extract(f, destDir, result.Size, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("expected 1 extracted file, got %d", len(extracted))
	}
	if extracted[0].Hash != entries[0].Hash {
		t.Errorf("hash mismatch: staged %s, extracted %s", entries[0].Hash, extracted[0].Hash)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "alpha" {
		t.Errorf("unexpected extracted content: %q", content)
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	var archive bytes.Buffer
	gz := gzip.NewWriter(&archive)
	tw := tar.NewWriter(gz)
	content := []byte("escaped")
	if err := tw.WriteHeader(&tar.Header{Name: "../escape.txt", Mode: 0600, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	parent := t.TempDir()
	destDir := filepath.Join(parent, "dest")
	if _, err := Extract(&archive, destDir, int64(archive.Len()), nil); !errors.Is(err, vaulterr.ErrArchiveCorrupted) {
		t.Fatalf("expected ErrArchiveCorrupted for an entry escaping the root, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !os.IsNotExist(err) {
		t.Error("an escaping entry must not be written outside the extraction root")
	}
}

func TestVerifyAgainstManifest(t *testing.T) {
	extracted := []ExtractedFile{
		{Path: "a.txt", Hash: "abc"},
		{Path: "b.txt", Hash: "def"},
	}
	manifestHashes := map[string]string{
		"a.txt": "abc",
		"b.txt": "zzz",
	}

	results := VerifyAgainstManifest(extracted, manifestHashes)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Matched {
		t.Error("expected a.txt to match")
	}
	if results[1].Matched {
		t.Error("expected b.txt to mismatch")
	}
}

func TestBuildRecoveryTextMentionsBothKeyKinds(t *testing.T) {
	text := string(BuildRecoveryText(RecoveryTextParams{
		VaultLabel:    "My Vault",
		CreatedAt:     "2026-01-01T00:00:00Z",
		FileCount:     3,
		PassphraseKey: true,
		TokenKeys:     2,
	}))
	if !strings.Contains(text, "passphrase") || !strings.Contains(text, "hardware tokens") {
		t.Errorf("expected recovery text to mention both key kinds, got: %s", text)
	}
}
