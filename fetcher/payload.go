package fetcher

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-faster/jx"
)

// InitialDataMarker is the variable YouTube assigns its page state to
const InitialDataMarker = "ytInitialData"

// ErrMarkerNotFound is returned when the markup carries no embedded payload assignment
var ErrMarkerNotFound = errors.New("embedded payload marker not found")

// ExtractPayload locates the assignment of marker in markup and returns the JSON value
// assigned to it. Exactly one JSON value is read, so trailing script code and braces
// inside string literals never leak into or truncate the result.
//
// Both `var marker = {...};` and `window["marker"] = {...};` forms are recognised.
// Occurrences of marker that are not assignments (reads, comments) are skipped.
func ExtractPayload(markup []byte, marker string) ([]byte, error) {
	needle := []byte(marker)
	rest := markup
	for {
		idx := bytes.Index(rest, needle)
		if idx < 0 {
			return nil, ErrMarkerNotFound
		}
		rest = rest[idx+len(needle):]

		start, ok := assignedValueStart(rest)
		if !ok {
			continue
		}

		raw, err := jx.DecodeBytes(rest[start:]).Raw()
		if err != nil {
			return nil, fmt.Errorf("failed to decode value assigned to %s with %w", marker, err)
		}
		return bytes.Clone(raw), nil
	}
}

// assignedValueStart returns the offset of the first byte of the assigned JSON value
// if b (the bytes right after the marker) continues with an assignment.
func assignedValueStart(b []byte) (int, bool) {
	i := 0
	for i < len(b) && (b[i] == '"' || b[i] == '\'' || b[i] == ']') {
		i++
	}
	i = skipSpace(b, i)
	if i >= len(b) || b[i] != '=' {
		return 0, false
	}
	// Not a comparison
	if i+1 < len(b) && b[i+1] == '=' {
		return 0, false
	}
	i = skipSpace(b, i+1)
	if i >= len(b) || (b[i] != '{' && b[i] != '[') {
		return 0, false
	}
	return i, true
}

func skipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
