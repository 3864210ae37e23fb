package jobs

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID(BuildPrefix)
	b := GenerateID(BuildPrefix)

	if !strings.HasPrefix(a, "build-") {
		t.Errorf("ID %q lacks prefix", a)
	}
	if a == b {
		t.Error("two generated IDs are equal")
	}
	if _, err := ParseID(a, BuildPrefix); err != nil {
		t.Errorf("ParseID(%q): %v", a, err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		prefix  string
		wantErr bool
	}{
		{"valid", "check-6ba7b810-9dad-11d1-80b4-00c04fd430c8", CheckPrefix, false},
		{"wrong prefix", "build-6ba7b810-9dad-11d1-80b4-00c04fd430c8", CheckPrefix, true},
		{"not a uuid", "check-1234", CheckPrefix, true},
		{"empty", "", BuildPrefix, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseID(tt.id, tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidID) {
				t.Errorf("ParseID(%q) error = %v, want ErrInvalidID", tt.id, err)
			}
		})
	}
}
