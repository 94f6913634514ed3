package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits the page size.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported page size to prevent unbounded queries.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid page size")
	ErrInvalidPageToken = errors.New("pagination: invalid page token")
)

// ClampPageSize normalises a requested page size against the given bounds.
// Non-positive requests fall back to def; requests above max are capped.
func ClampPageSize(requested, def, max int) int {
	if max <= 0 {
		max = DefaultMaxPageSize
	}
	if def <= 0 {
		def = DefaultPageSize
	}
	if def > max {
		def = max
	}
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// ParsePageSize parses a page size query value and clamps it against the
// given bounds. An empty value yields def.
func ParsePageSize(raw string, def, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ClampPageSize(0, def, max), nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	return ClampPageSize(value, def, max), nil
}
