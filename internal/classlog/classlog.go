// Package classlog reads class-transition logs.
//
// A log file records, one timestamp per line, every moment an observer
// switched the scene to that log's class. Lines carry no label: the class
// is a property of which log a line came from, and the caller supplies it.
package classlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// TimestampLayout is the encoding of every line of a class log.
const TimestampLayout = "20060102_150405"

// Stream is the parsed content of one class log.
type Stream struct {
	// Source identifies where the events came from, normally the log filename.
	Source string
	Class  int
	Times  []time.Time
}

// TimestampError reports a log line that is not a valid timestamp.
type TimestampError struct {
	Source string
	Line   int
	Text   string
	Err    error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("%s:%d: invalid timestamp %q: %v", e.Source, e.Line, e.Text, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// Read parses a class log. Blank lines are skipped; any other line that is
// not a timestamp is an error.
func Read(r io.Reader, source string, class int) (Stream, error) {
	if class < 0 {
		return Stream{}, fmt.Errorf("%s: class label must be non-negative, got %d", source, class)
	}

	stream := Stream{Source: source, Class: class}
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		ts, err := time.ParseInLocation(TimestampLayout, text, time.UTC)
		if err != nil {
			return Stream{}, &TimestampError{Source: source, Line: line, Text: text, Err: err}
		}
		stream.Times = append(stream.Times, ts)
	}
	if err := scanner.Err(); err != nil {
		return Stream{}, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return stream, nil
}

// Load reads the class log at path and labels its events with class.
func Load(path string, class int) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stream{}, fmt.Errorf("failed to open class log: %w", err)
	}
	defer f.Close()

	stream, err := Read(f, filepath.Base(path), class)
	if err != nil {
		return Stream{}, err
	}

	log.Info().
		Str("source", stream.Source).
		Int("class", class).
		Int("events", len(stream.Times)).
		Msg("Class log loaded")

	return stream, nil
}

// ClassName derives a human-readable class name from a log filename:
// "logPos.txt" becomes "POS". Names without the "log" prefix are upper-cased
// as they are.
func ClassName(source string) string {
	stem := filepath.Base(source)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	if len(stem) > 3 && strings.EqualFold(stem[:3], "log") {
		stem = stem[3:]
	}
	return strings.ToUpper(stem)
}
