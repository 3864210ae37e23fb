// Package dataset holds the frame-interval table used as training ground
// truth, its CSV encoding, and the validation/repair pass that certifies a
// table before it is used.
package dataset

import (
	"strconv"
)

// DefaultHeader is the header written for newly built tables.
var DefaultHeader = []string{"filename", "class", "beginframe", "endframe"}

// Row is one fully resolved frame interval.
type Row struct {
	Filename   string
	Class      int
	BeginFrame int
	EndFrame   int
}

// Fields returns the CSV fields of the row.
func (r Row) Fields() []string {
	return []string{
		r.Filename,
		strconv.Itoa(r.Class),
		strconv.Itoa(r.BeginFrame),
		strconv.Itoa(r.EndFrame),
	}
}

// Record is a row as read back from disk. Tables from earlier runs or other
// tools may have empty or malformed cells, so every value is optional: an
// empty Filename or a nil number means the cell was missing.
type Record struct {
	Filename   string
	Class      *int
	BeginFrame *int
	EndFrame   *int
}

// RecordOf converts a resolved row into a record.
func RecordOf(r Row) Record {
	class, begin, end := r.Class, r.BeginFrame, r.EndFrame
	return Record{Filename: r.Filename, Class: &class, BeginFrame: &begin, EndFrame: &end}
}

// Complete reports whether no cell of the record is missing.
func (r Record) Complete() bool {
	return r.Filename != "" && r.Class != nil && r.BeginFrame != nil && r.EndFrame != nil
}

// Row returns the record as a resolved row. ok is false when a cell is missing.
func (r Record) Row() (row Row, ok bool) {
	if !r.Complete() {
		return Row{}, false
	}
	return Row{
		Filename:   r.Filename,
		Class:      *r.Class,
		BeginFrame: *r.BeginFrame,
		EndFrame:   *r.EndFrame,
	}, true
}
