package timeline

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned by Merge when its options are out of range.
var ErrInvalidOptions = errors.New("invalid timeline options")

// Policy pins down the boundary arithmetic between segments.
type Policy struct {
	// SpacingMultiple scales FrameInterval when a class segment's begin frame
	// is derived from the previous segment's end frame. With 1 the begin
	// frames follow wall-clock time exactly and the interval is carved out of
	// the end of each segment; older tables were built with 2.
	SpacingMultiple int

	// TrimTerminalInterval also takes FrameInterval off the end frame of the
	// last segment of a video.
	TrimTerminalInterval bool
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{SpacingMultiple: 1}
}

// Options holds the frame arithmetic parameters of a merge.
type Options struct {
	// FPS converts elapsed wall-clock seconds into frames.
	FPS float64

	// StartingFrame is the first frame of every video.
	StartingFrame int

	// FrameInterval is the gap, in frames, left between segments of
	// different class.
	FrameInterval int

	// EndFrameBuffer is trimmed off the tail of every video.
	EndFrameBuffer int

	Policy Policy
}

// Validate checks that the options describe a usable frame arithmetic.
func (o Options) Validate() error {
	switch {
	case o.FPS <= 0:
		return fmt.Errorf("%w: fps must be positive, got %v", ErrInvalidOptions, o.FPS)
	case o.StartingFrame < 0:
		return fmt.Errorf("%w: starting frame must be non-negative, got %d", ErrInvalidOptions, o.StartingFrame)
	case o.FrameInterval < 0:
		return fmt.Errorf("%w: frame interval must be non-negative, got %d", ErrInvalidOptions, o.FrameInterval)
	case o.EndFrameBuffer < 0:
		return fmt.Errorf("%w: end frame buffer must be non-negative, got %d", ErrInvalidOptions, o.EndFrameBuffer)
	case o.Policy.SpacingMultiple < 0:
		return fmt.Errorf("%w: spacing multiple must be non-negative, got %d", ErrInvalidOptions, o.Policy.SpacingMultiple)
	}
	return nil
}
