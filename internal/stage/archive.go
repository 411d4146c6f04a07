package stage

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/barqly/barqly-vault/internal/util"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// copyBufPool supplies the scratch buffers Build/Extract copy through,
// avoiding a fresh allocation per file for vaults with many entries.
var copyBufPool = util.NewBufferPool(64 * util.KiB)

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// BuildResult is what Build returns about the archive it produced.
type BuildResult struct {
	Path string
	Hash string // hex sha-256 of the archive file
	Size int64
}

// Build streams the staging root into a gzip-compressed tar file at
// outPath, written atomically (temp file, then rename), and returns its
// sha-256 hash. totalSize is the caller's precomputed sum of staged file
// sizes, used only to report progress; onProgress, if non-nil, is called
// with cumulative bytes written after each file copy.
func (r *Root) Build(outPath string, totalSize int64, onProgress func(done, total int64)) (BuildResult, error) {
	tmpPath := outPath + ".incomplete"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return BuildResult{}, vaulterr.NewPersistenceError("create", tmpPath, err)
	}

	hasher := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(f, hasher))
	tw := tar.NewWriter(gz)

	var done int64

	walkErr := filepath.Walk(r.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == r.path {
			return nil
		}
		rel, err := filepath.Rel(r.path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = rel + "/"
			return tw.WriteHeader(hdr)
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		buf := copyBufPool.Get()
		defer copyBufPool.Put(buf)
		n, err := io.CopyBuffer(tw, in, buf)
		if err != nil {
			return err
		}
		done += n
		if onProgress != nil {
			onProgress(done, totalSize)
		}
		return nil
	})

	twErr := tw.Close()
	gzErr := gz.Close()
	closeErr := f.Close()

	if firstErr := firstNonNil(walkErr, twErr, gzErr, closeErr); firstErr != nil {
		_ = os.Remove(tmpPath)
		return BuildResult{}, vaulterr.NewPersistenceError("build-archive", outPath, firstErr)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return BuildResult{}, vaulterr.NewPersistenceError("stat", tmpPath, err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return BuildResult{}, vaulterr.NewPersistenceError("rename", outPath, err)
	}

	return BuildResult{Path: outPath, Hash: hex.EncodeToString(hasher.Sum(nil)), Size: info.Size()}, nil
}

// ExtractedFile is one file Extract wrote to disk.
type ExtractedFile struct {
	Path string // relative to the extraction root
	Hash string // hex sha-256 of the extracted content
	Size int64
}

// Extract reads a gzip-compressed tar archive from r and writes its
// contents under destDir, rejecting any entry whose path would escape
// destDir. totalSize, typically the compressed archive's on-disk size, is
// an approximate denominator for progress reporting only; onProgress, if
// non-nil, is called with cumulative bytes written after each file.
func Extract(src io.Reader, destDir string, totalSize int64, onProgress func(done, total int64)) ([]ExtractedFile, error) {
	gz, err := gzip.NewReader(src)
	if err != nil {
		return nil, vaulterr.NewValidationError("archive", "not a valid gzip stream", vaulterr.ErrArchiveCorrupted)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var extracted []ExtractedFile
	var done int64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, vaulterr.NewValidationError("archive", "truncated or corrupt tar stream", vaulterr.ErrArchiveCorrupted)
		}

		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return nil, vaulterr.NewValidationError("archive", "archive entry escapes extraction root", vaulterr.ErrArchiveCorrupted)
		}
		dest := filepath.Join(destDir, cleanName)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0700); err != nil {
				return nil, vaulterr.NewPersistenceError("mkdir", dest, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
				return nil, vaulterr.NewPersistenceError("mkdir", filepath.Dir(dest), err)
			}
			out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0777)
			if err != nil {
				return nil, vaulterr.NewPersistenceError("create", dest, err)
			}
			hasher := sha256.New()
			buf := copyBufPool.Get()
			size, err := io.CopyBuffer(out, io.TeeReader(tr, hasher), buf)
			copyBufPool.Put(buf)
			closeErr := out.Close()
			if err != nil {
				return nil, vaulterr.NewValidationError("archive", "failed writing extracted file", vaulterr.ErrArchiveCorrupted)
			}
			if closeErr != nil {
				return nil, vaulterr.NewPersistenceError("close", dest, closeErr)
			}
			extracted = append(extracted, ExtractedFile{
				Path: filepath.ToSlash(cleanName),
				Hash: hex.EncodeToString(hasher.Sum(nil)),
				Size: size,
			})
			done += size
			if onProgress != nil {
				onProgress(done, totalSize)
			}
		default:
			// Skip anything that isn't a plain file or directory (symlinks,
			// devices, ...); the archiver never writes such entries itself.
			continue
		}
	}

	return extracted, nil
}

// VerifyResult is one file's hash-comparison outcome against a manifest.
type VerifyResult struct {
	Path    string
	Matched bool
}

// VerifyAgainstManifest compares each extracted file's recorded hash
// against the manifest's recorded hash for the same path.
func VerifyAgainstManifest(extracted []ExtractedFile, manifestHashes map[string]string) []VerifyResult {
	results := make([]VerifyResult, 0, len(extracted))
	for _, f := range extracted {
		want, ok := manifestHashes[f.Path]
		results = append(results, VerifyResult{Path: f.Path, Matched: ok && want == f.Hash})
	}
	return results
}
