package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Encode renders rows as CSV under header.
func Encode(header []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(row.Fields()); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a dataset table. Columns are positional (filename, class,
// begin frame, end frame) so tables written with other header spellings
// are read the same way. The header is returned unchanged so a repaired
// table can be written back under it.
//
// Cells that are empty or not integers decode as missing; short rows leave
// their trailing cells missing. Only malformed CSV is an error.
func Decode(data []byte) (header []string, records []Record, err error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("dataset is empty")
		}
		return nil, nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read dataset line %d: %w", line, err)
		}
		records = append(records, decodeRecord(fields))
	}
	return header, records, nil
}

func decodeRecord(fields []string) Record {
	cell := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	return Record{
		Filename:   cell(0),
		Class:      parseCell(cell(1)),
		BeginFrame: parseCell(cell(2)),
		EndFrame:   parseCell(cell(3)),
	}
}

// parseCell reads an integer cell. Integral floats such as "250.0" are
// accepted; anything else is missing.
func parseCell(s string) *int {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	n := int(f)
	return &n
}
