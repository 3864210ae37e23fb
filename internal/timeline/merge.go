// Package timeline merges video boundaries and class transitions into one
// gapless, frame-accurate table of labelled intervals.
//
// The two inputs carry complementary halves of the information. The count
// table knows exactly how long each video is but nothing about what happens
// inside it; the class logs know when the label changed but nothing about
// frames. Merge places both on one wall-clock timeline, then resolves the
// frame range of every row in a single scan that only ever looks at the
// previous resolved row and the next input row.
package timeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fpang/dataset-creator/internal/classlog"
	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/dataset"
	"github.com/rs/zerolog/log"
)

type anchor int

const (
	// videoAnchor rows come from the count table: filename and begin frame known.
	videoAnchor anchor = iota
	// classAnchor rows come from a class log: class known, frames unknown.
	classAnchor
)

func (a anchor) String() string {
	if a == videoAnchor {
		return "video"
	}
	return "class"
}

// event is one input row after sorting and filename fill.
type event struct {
	time     time.Time
	kind     anchor
	filename string
	class    int
}

// Result is the outcome of a merge.
type Result struct {
	Rows []dataset.Row

	// Dropped counts class events that happened before the first video and
	// so could not be attributed to one.
	Dropped int

	// Rules counts how many rows each resolution rule produced.
	Rules map[Rule]int
}

// Merge builds the labelled frame table from the count table and the class
// streams. Stream order does not matter; each stream carries its own label.
//
// Frame ranges produced here are best effort. Events that are close together
// or share a timestamp can yield begin ≥ end, and elapsed time can run past
// the end of a video; dataset.Check removes or clamps those rows.
func Merge(table *counts.Table, streams []classlog.Stream, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	events, dropped := arrange(table.Videos(), streams)
	if dropped > 0 {
		log.Warn().
			Int("dropped", dropped).
			Msg("Class events before the first video have no video to belong to, dropping")
	}

	result := Result{Dropped: dropped, Rules: make(map[Rule]int)}
	rows := make([]dataset.Row, 0, len(events))

	for i, cur := range events {
		var next *event
		if i+1 < len(events) {
			next = &events[i+1]
		}
		var prev *dataset.Row
		if i > 0 {
			prev = &rows[i-1]
		}

		rule := decide(i, len(events), cur, next)
		row, err := resolve(rule, prev, cur, next, table, opts)
		if err != nil {
			return Result{}, fmt.Errorf("row %d (%s at %s): %w", i, cur.kind, cur.time.Format(time.RFC3339), err)
		}

		log.Debug().
			Int("row", i).
			Str("rule", rule.String()).
			Str("filename", row.Filename).
			Int("class", row.Class).
			Int("begin", row.BeginFrame).
			Int("end", row.EndFrame).
			Msg("Row resolved")

		result.Rules[rule]++
		rows = append(rows, row)
	}

	result.Rows = rows

	log.Info().
		Int("videos", table.Len()).
		Int("streams", len(streams)).
		Int("rows", len(rows)).
		Int("dropped", dropped).
		Msg("Timeline merged")

	return result, nil
}

// arrange turns the inputs into one time-ordered event list, fills in the
// filename of every class event from the latest video at or before it, and
// drops class events that precede every video.
func arrange(videos []counts.Video, streams []classlog.Stream) ([]event, int) {
	events := make([]event, 0, len(videos))
	for _, v := range videos {
		events = append(events, event{time: v.Time, kind: videoAnchor, filename: v.Filename})
	}
	for _, s := range streams {
		for _, ts := range s.Times {
			events = append(events, event{time: ts, kind: classAnchor, class: s.Class})
		}
	}

	// Video anchors sort first at equal times so a video establishes its
	// filename before any class event attributed to it.
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].time.Equal(events[j].time) {
			return events[i].time.Before(events[j].time)
		}
		return events[i].kind < events[j].kind
	})

	filled := make([]event, 0, len(events))
	dropped := 0
	current := ""
	for _, e := range events {
		if e.kind == videoAnchor {
			current = e.filename
		} else if current == "" {
			dropped++
			continue
		} else {
			e.filename = current
		}
		filled = append(filled, e)
	}
	return filled, dropped
}

// elapsedFrames converts the wall-clock time between two events into frames.
// Negative elapsed time yields negative frames rather than an error.
func elapsedFrames(from, to event, fps float64) int {
	return int(math.Round(to.time.Sub(from.time).Seconds() * fps))
}
