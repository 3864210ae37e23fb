// Package counts reads the per-video frame-count table of a recording session.
//
// Each row names one video and its total number of frames. The video's
// recording start time is encoded in its filename
// ("2024-01-01 00:00:00.0.h264"), which is what lets the table be placed on
// the same wall-clock timeline as the class-transition logs.
package counts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fpang/dataset-creator/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// FilenameLayout is the timestamp encoded in a video filename once its
// extension is stripped. A fractional-seconds suffix is accepted when parsing.
const FilenameLayout = "2006-01-02 15:04:05"

// Column names of the count table header.
const (
	ColumnFilename   = "filename"
	ColumnFrameCount = "framecount"
)

// Video is one row of the count table.
type Video struct {
	Filename   string
	Time       time.Time
	FrameCount int
}

// Lookup resolves a video filename to its total frame count.
type Lookup interface {
	FrameCount(filename string) (int, error)
}

// MissingVideoError reports a filename that has no entry in the count table.
// There is no sensible default frame count, so callers treat it as fatal.
type MissingVideoError struct {
	Filename string
}

func (e *MissingVideoError) Error() string {
	return fmt.Sprintf("video %q not found in count table", e.Filename)
}

// IsMissingVideo reports whether err is, or wraps, a MissingVideoError.
func IsMissingVideo(err error) bool {
	var e *MissingVideoError
	return errors.As(err, &e)
}

// TimestampError reports a video filename that does not encode a timestamp.
type TimestampError struct {
	Filename string
	Err      error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("cannot parse timestamp from video filename %q: %v", e.Filename, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// ParseFilenameTime derives the recording start time of a video from its filename.
func ParseFilenameTime(filename string) (time.Time, error) {
	stem := filehandler.StripVideoExtension(strings.TrimSpace(filename))
	t, err := time.ParseInLocation(FilenameLayout, stem, time.UTC)
	if err != nil {
		return time.Time{}, &TimestampError{Filename: filename, Err: err}
	}
	return t, nil
}

// Table is an immutable, ordered count table indexed by filename.
type Table struct {
	videos []Video
	index  map[string]int
}

// NewTable builds a Table from videos, keeping their order.
// Filenames must be unique.
func NewTable(videos []Video) (*Table, error) {
	t := &Table{
		videos: make([]Video, 0, len(videos)),
		index:  make(map[string]int, len(videos)),
	}
	for _, v := range videos {
		if _, dup := t.index[v.Filename]; dup {
			return nil, fmt.Errorf("duplicate video %q in count table", v.Filename)
		}
		if v.FrameCount < 0 {
			return nil, fmt.Errorf("video %q has negative frame count %d", v.Filename, v.FrameCount)
		}
		t.index[v.Filename] = len(t.videos)
		t.videos = append(t.videos, v)
	}
	return t, nil
}

// Len returns the number of videos in the table.
func (t *Table) Len() int {
	return len(t.videos)
}

// Videos returns a copy of the table rows in file order.
func (t *Table) Videos() []Video {
	out := make([]Video, len(t.videos))
	copy(out, t.videos)
	return out
}

// FrameCount implements Lookup.
func (t *Table) FrameCount(filename string) (int, error) {
	i, ok := t.index[filename]
	if !ok {
		return 0, &MissingVideoError{Filename: filename}
	}
	return t.videos[i].FrameCount, nil
}

// Read parses a count table in CSV form. The header must contain the
// filename and framecount columns; other columns are ignored.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("count table is empty")
		}
		return nil, fmt.Errorf("failed to read count table header: %w", err)
	}

	nameCol, countCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case ColumnFilename:
			nameCol = i
		case ColumnFrameCount:
			countCol = i
		}
	}
	if nameCol < 0 || countCol < 0 {
		return nil, fmt.Errorf("count table header %v must contain %q and %q", header, ColumnFilename, ColumnFrameCount)
	}

	var videos []Video
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read count table line %d: %w", line, err)
		}
		if nameCol >= len(record) || countCol >= len(record) {
			return nil, fmt.Errorf("count table line %d has %d fields", line, len(record))
		}

		filename := strings.TrimSpace(record[nameCol])
		frames, err := strconv.Atoi(strings.TrimSpace(record[countCol]))
		if err != nil {
			return nil, fmt.Errorf("count table line %d: invalid frame count %q: %w", line, record[countCol], err)
		}
		ts, err := ParseFilenameTime(filename)
		if err != nil {
			return nil, fmt.Errorf("count table line %d: %w", line, err)
		}

		videos = append(videos, Video{Filename: filename, Time: ts, FrameCount: frames})
	}

	return NewTable(videos)
}

// Load reads the count table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open count table: %w", err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("videos", table.Len()).
		Msg("Count table loaded")

	return table, nil
}
