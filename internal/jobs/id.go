// Package jobs names dataset runs so their outputs, log lines, and exported
// records can be tied back together.
package jobs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Run ID prefixes per command.
const (
	BuildPrefix = "build-"
	CheckPrefix = "check-"
)

// ErrInvalidID is returned by ParseID for a string that is not a run ID.
var ErrInvalidID = errors.New("invalid run ID")

// GenerateID creates a new random run ID with the given prefix.
// The prefix should include a trailing dash, e.g. "build-", "check-".
func GenerateID(prefix string) string {
	return prefix + uuid.NewString()
}

// ParseID validates a run ID produced by GenerateID and returns its UUID part.
func ParseID(id, prefix string) (uuid.UUID, error) {
	if !strings.HasPrefix(id, prefix) {
		return uuid.Nil, fmt.Errorf("%w: %q does not start with %q", ErrInvalidID, id, prefix)
	}
	u, err := uuid.Parse(strings.TrimPrefix(id, prefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %v", ErrInvalidID, id, err)
	}
	return u, nil
}
