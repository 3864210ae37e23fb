package timeline

import (
	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/dataset"
)

// Rule identifies how a row's frame range was resolved.
type Rule int

const (
	// RuleLast resolves the final row: it runs to the end of its video.
	RuleLast Rule = iota
	// RuleClassSegment resolves a class event: it starts where the previous
	// row ended and lasts until the next event.
	RuleClassSegment
	// RuleVideoTail resolves a video that is directly followed by another
	// video: it runs to its own end.
	RuleVideoTail
	// RuleFirst resolves the first row: it lasts until the next event.
	RuleFirst
	// RuleVideoHead resolves any other video start: it lasts until the next event.
	RuleVideoHead
)

func (r Rule) String() string {
	switch r {
	case RuleLast:
		return "last"
	case RuleClassSegment:
		return "class_segment"
	case RuleVideoTail:
		return "video_tail"
	case RuleFirst:
		return "first"
	case RuleVideoHead:
		return "video_head"
	}
	return "unknown"
}

// decide picks the rule for row i of n. The checks run in priority order,
// structural cases first.
//
//	is_last | anchor | next_is_video | is_first | rule
//	--------+--------+---------------+----------+----------------
//	yes     | any    | -             | any      | RuleLast
//	no      | class  | any           | no       | RuleClassSegment
//	no      | video  | yes           | any      | RuleVideoTail
//	no      | video  | no            | yes      | RuleFirst
//	no      | video  | no            | no       | RuleVideoHead
//
// Row 0 is always a video anchor: class events before the first video are
// dropped before resolution.
func decide(i, n int, cur event, next *event) Rule {
	switch {
	case i == n-1:
		return RuleLast
	case cur.kind == classAnchor:
		return RuleClassSegment
	case next.kind == videoAnchor:
		return RuleVideoTail
	case i == 0:
		return RuleFirst
	default:
		return RuleVideoHead
	}
}

// resolve computes one output row from the previous output row and the
// current and next input events.
func resolve(rule Rule, prev *dataset.Row, cur event, next *event, lookup counts.Lookup, opts Options) (dataset.Row, error) {
	row := dataset.Row{Filename: cur.filename}

	switch {
	case cur.kind == classAnchor:
		row.Class = cur.class
	case prev == nil:
		row.Class = 0
	default:
		row.Class = prev.Class
	}

	switch rule {
	case RuleLast:
		end, err := terminalEnd(cur.filename, lookup, opts)
		if err != nil {
			return dataset.Row{}, err
		}
		row.EndFrame = end
		if cur.kind == videoAnchor {
			row.BeginFrame = opts.StartingFrame
		} else {
			row.BeginFrame = prev.EndFrame + spacing(*prev, row, opts)
		}

	case RuleClassSegment:
		row.BeginFrame = prev.EndFrame + spacing(*prev, row, opts)
		row.EndFrame = row.BeginFrame + elapsedFrames(cur, *next, opts.FPS) - opts.FrameInterval

	case RuleVideoTail:
		end, err := terminalEnd(cur.filename, lookup, opts)
		if err != nil {
			return dataset.Row{}, err
		}
		row.BeginFrame = opts.StartingFrame
		row.EndFrame = end

	case RuleFirst, RuleVideoHead:
		row.BeginFrame = opts.StartingFrame
		row.EndFrame = elapsedFrames(cur, *next, opts.FPS) - opts.FrameInterval
	}

	return row, nil
}

// spacing is the gap between the previous row's end and a class segment's
// begin. A class change leaves FrameInterval (scaled by the policy); a
// repeated event of the same class continues without a gap. Video changes
// never reach here: a new video always starts at StartingFrame.
func spacing(prev, cur dataset.Row, opts Options) int {
	if prev.Class == cur.Class {
		return 0
	}
	return opts.FrameInterval * opts.Policy.SpacingMultiple
}

// terminalEnd is the end frame of the last segment of a video.
func terminalEnd(filename string, lookup counts.Lookup, opts Options) (int, error) {
	frames, err := lookup.FrameCount(filename)
	if err != nil {
		return 0, err
	}
	end := frames - opts.EndFrameBuffer
	if opts.Policy.TrimTerminalInterval {
		end -= opts.FrameInterval
	}
	return end, nil
}
