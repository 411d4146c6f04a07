package pathio

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path by first writing to "<path>.incomplete"
// then renaming over the destination, so readers never observe a
// torn write. The temp file is created with the caller-supplied perm.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	tmp := path + ".incomplete"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// ReplaceFileAtomic moves srcPath onto destPath, overwriting any existing
// file, for callers that already have a finished temp file on disk (for
// example a streamed archive) rather than an in-memory byte slice.
func ReplaceFileAtomic(srcPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return err
	}
	return os.Rename(srcPath, destPath)
}
