// Package fsutil writes output files so that an interrupted run never
// leaves a half-written table behind: every write goes to a temporary file
// in the destination directory and is renamed over the target.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
)

// renameFunc is replaced in tests to simulate rename failures.
var renameFunc = os.Rename

// CrossDeviceError reports a rename that failed because source and target
// are on different filesystems. It is never retried as copy+delete.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cannot rename %q to %q across filesystems: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is, or wraps, a CrossDeviceError.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename wraps os.Rename and marks EXDEV failures as CrossDeviceError.
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// WriteFileAtomic writes data to dir/name through a temporary file and a
// rename, replacing any existing file. dir is created if needed.
func WriteFileAtomic(dir, name string, data []byte) error {
	return writeAtomic(dir, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(dir, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	dst := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := Rename(tmpName, dst); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	// Directory fsync is not supported on Windows.
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
