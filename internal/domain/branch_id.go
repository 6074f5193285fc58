package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	codePattern = regexp.MustCompile(`^[A-Z0-9]{4,12}$`)
)

// BranchId identifies a branch, either as a canonical UUID (preserved as-is)
// or a short branch code (4-12 uppercase alphanumeric characters, normalized
// to uppercase on construction).
type BranchId struct {
	value string
}

// NewBranchId validates and normalizes a raw identifier string.
func NewBranchId(raw string) (BranchId, error) {
	if len(raw) == 36 && uuidPattern.MatchString(raw) {
		return BranchId{value: raw}, nil
	}

	upper := strings.ToUpper(raw)
	if codePattern.MatchString(upper) {
		return BranchId{value: upper}, nil
	}

	return BranchId{}, fmt.Errorf("invalid branch id %q: must be a canonical UUID or a 4-12 char uppercase alphanumeric code", raw)
}

// String returns the normalized identifier.
func (b BranchId) String() string { return b.value }

// Equal compares two BranchIds by their normalized value.
func (b BranchId) Equal(other BranchId) bool { return b.value == other.value }

// IsZero reports whether this is the zero-value BranchId.
func (b BranchId) IsZero() bool { return b.value == "" }

// MarshalJSON renders a BranchId as its plain normalized string, since it is
// embedded in API response bodies and cached query results.
func (b BranchId) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(b.value)), nil
}

// UnmarshalJSON restores a BranchId written by MarshalJSON without
// re-running construction validation, since the value was already validated
// before it was persisted or cached.
func (b *BranchId) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	b.value = s
	return nil
}
