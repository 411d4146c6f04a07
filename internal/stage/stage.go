// Package stage implements Component I: staging a vault's selected files
// into a scratch directory, recording per-file hashes, and building the
// gzip-compressed tar archive that gets encrypted. It also implements the
// inverse: extracting an archive and verifying it against a manifest.
package stage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// FileEntry records one staged file's identity for manifest embedding.
type FileEntry struct {
	Path    string // relative to the staging root, forward-slash separated
	Size    int64
	Hash    string // hex sha-256
	Mode    uint32
	ModTime time.Time
}

// Root is a staging directory owned by exactly one operation. Callers must
// call Close to remove it on every exit path, success or failure.
type Root struct {
	path string
}

// New creates a fresh temp directory with owner-only permissions.
func New() (*Root, error) {
	dir, err := os.MkdirTemp("", "barqly-stage-*")
	if err != nil {
		return nil, vaulterr.NewPersistenceError("mkdir-temp", dir, err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, vaulterr.NewPersistenceError("chmod", dir, err)
	}
	return &Root{path: dir}, nil
}

// Path is the staging root's absolute filesystem path.
func (r *Root) Path() string { return r.path }

// Close destroys the staging directory. Safe to call multiple times.
func (r *Root) Close() error {
	if r.path == "" {
		return nil
	}
	err := os.RemoveAll(r.path)
	r.path = ""
	return err
}

// CopyFile copies src into the staging root at relPath, preserving the
// source file's mode bits, and returns its recorded FileEntry. Symlinks
// are refused.
func (r *Root) CopyFile(src, relPath string) (FileEntry, error) {
	info, err := os.Lstat(src)
	if err != nil {
		return FileEntry{}, vaulterr.NewPersistenceError("stat", src, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return FileEntry{}, vaulterr.NewValidationError("path", "symlinks are not staged", vaulterr.ErrPathUnsafe)
	}
	if info.IsDir() {
		return FileEntry{}, vaulterr.NewValidationError("path", "expected a file, got a directory", vaulterr.ErrPathUnsafe)
	}

	dest := filepath.Join(r.path, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return FileEntry{}, vaulterr.NewPersistenceError("mkdir", filepath.Dir(dest), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return FileEntry{}, vaulterr.NewPersistenceError("open", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return FileEntry{}, vaulterr.NewPersistenceError("create", dest, err)
	}

	hasher := sha256.New()
	size, err := io.Copy(out, io.TeeReader(in, hasher))
	closeErr := out.Close()
	if err != nil {
		return FileEntry{}, vaulterr.NewPersistenceError("copy", dest, err)
	}
	if closeErr != nil {
		return FileEntry{}, vaulterr.NewPersistenceError("close", dest, closeErr)
	}

	return FileEntry{
		Path:    filepath.ToSlash(relPath),
		Size:    size,
		Hash:    hex.EncodeToString(hasher.Sum(nil)),
		Mode:    uint32(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}, nil
}

// CopyFiles stages a flat list of files (single-file-selection mode),
// placing each at the staging root using its base name.
func (r *Root) CopyFiles(paths []string) ([]FileEntry, error) {
	entries := make([]FileEntry, 0, len(paths))
	for _, p := range paths {
		entry, err := r.CopyFile(p, filepath.Base(p))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CopyFolder walks a selected folder (folder-selection mode), staging
// every regular file under it with its path relative to the folder root
// preserved.
func (r *Root) CopyFolder(folder string) ([]FileEntry, error) {
	var entries []FileEntry
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return vaulterr.NewValidationError("path", fmt.Sprintf("refusing symlink %s", path), vaulterr.ErrPathUnsafe)
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		entry, err := r.CopyFile(path, rel)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteFile writes raw content (the serialized manifest, RECOVERY.txt, or a
// copied passphrase blob) directly into the staging root.
func (r *Root) WriteFile(relPath string, content []byte) error {
	dest := filepath.Join(r.path, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return vaulterr.NewPersistenceError("mkdir", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, content, 0600); err != nil {
		return vaulterr.NewPersistenceError("write", dest, err)
	}
	return nil
}
