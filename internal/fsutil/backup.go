package fsutil

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// Backup suffixes appended to the name of the file being backed up.
const (
	BackupSuffix           = ".bak"
	CompressedBackupSuffix = ".bak.zst"
)

var zstdLevel = zstd.EncoderLevelFromZstd(12)

// WriteBackup stores data, the exact content of the file at path, next to
// it in dir as "<name>.bak", or zstd-compressed as "<name>.bak.zst" when
// compress is set. It returns the backup's path.
func WriteBackup(dir, path string, data []byte, compress bool) (string, error) {
	name := filepath.Base(path)
	if !compress {
		name += BackupSuffix
		if err := WriteFileAtomic(dir, name, data); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	} else {
		name += CompressedBackupSuffix
		err := writeAtomic(dir, name, func(w io.Writer) error {
			enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel))
			if err != nil {
				return err
			}
			if _, err := enc.Write(data); err != nil {
				_ = enc.Close()
				return err
			}
			return enc.Close()
		})
		if err != nil {
			return "", fmt.Errorf("failed to write compressed backup: %w", err)
		}
	}

	backup := filepath.Join(dir, name)
	log.Info().
		Str("source", path).
		Str("backup", backup).
		Bool("compressed", compress).
		Int("bytes", len(data)).
		Msg("Backup written")
	return backup, nil
}
