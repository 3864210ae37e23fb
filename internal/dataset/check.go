package dataset

import (
	"fmt"

	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/rs/zerolog/log"
)

// FaultReason names the invariant a faulty row violates.
type FaultReason string

const (
	FaultMissingValues FaultReason = "missing values"
	FaultInverted      FaultReason = "begin frame greater than or equal to end frame"
	FaultNegative      FaultReason = "negative begin or end frame"
)

// Fault is a row that has to be removed from the table.
type Fault struct {
	Row    int
	Record Record
	Reason FaultReason
}

// Clamp is a row whose end frame was pulled back to its video's length.
type Clamp struct {
	Row        int
	Filename   string
	From       int
	FrameCount int
}

// CheckResult is the outcome of checking a table.
type CheckResult struct {
	// Rows are the surviving rows, clamps applied, in their original order.
	Rows    []Row
	Faults  []Fault
	Clamped []Clamp
}

// RemovesRows reports whether any row was found faulty.
func (r CheckResult) RemovesRows() bool {
	return len(r.Faults) > 0
}

// Check validates every record against the table invariants.
//
// Per row, in order: an end frame past the video's frame count is clamped to
// it (the only repair made in place); then a row with a missing cell, with
// begin ≥ end, or with a negative frame is marked faulty. Faulty rows are
// dropped as a batch. The input is not modified.
//
// Data-quality problems never produce an error. A filename missing from the
// count table does: no frame count exists to check the row against.
func Check(records []Record, lookup counts.Lookup) (CheckResult, error) {
	var result CheckResult
	faulty := make(map[int]bool)

	checked := make([]Record, len(records))
	for i, rec := range records {
		if rec.Filename != "" {
			frames, err := lookup.FrameCount(rec.Filename)
			if err != nil {
				return CheckResult{}, fmt.Errorf("row %d: %w", i, err)
			}
			if rec.EndFrame != nil && *rec.EndFrame > frames {
				log.Info().
					Int("row", i).
					Str("filename", rec.Filename).
					Int("end_frame", *rec.EndFrame).
					Int("frame_count", frames).
					Msg("End frame past end of video, clamping")
				result.Clamped = append(result.Clamped, Clamp{
					Row: i, Filename: rec.Filename, From: *rec.EndFrame, FrameCount: frames,
				})
				end := frames
				rec.EndFrame = &end
			}
		}
		checked[i] = rec

		if reason, bad := faultOf(rec); bad {
			log.Info().
				Int("row", i).
				Str("filename", rec.Filename).
				Str("reason", string(reason)).
				Msg("Faulty row")
			result.Faults = append(result.Faults, Fault{Row: i, Record: rec, Reason: reason})
			faulty[i] = true
		}
	}

	result.Rows = make([]Row, 0, len(records)-len(result.Faults))
	for i, rec := range checked {
		if faulty[i] {
			continue
		}
		row, _ := rec.Row()
		result.Rows = append(result.Rows, row)
	}

	log.Info().
		Int("rows", len(records)).
		Int("faulty", len(result.Faults)).
		Int("clamped", len(result.Clamped)).
		Msg("Dataset check complete")

	return result, nil
}

func faultOf(rec Record) (FaultReason, bool) {
	row, ok := rec.Row()
	switch {
	case !ok:
		return FaultMissingValues, true
	case row.BeginFrame >= row.EndFrame:
		return FaultInverted, true
	case row.BeginFrame < 0 || row.EndFrame < 0:
		return FaultNegative, true
	}
	return "", false
}
