package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// readAllLimited reads r.Body capped at limit bytes, rejecting oversized
// bodies rather than buffering them unbounded.
func readAllLimited(r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("request body exceeds %d byte limit", limit)
	}
	return body, nil
}

// parseIntDefault parses s as an int, returning def when s is empty.
func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// parseTimeParam parses an RFC3339 timestamp query parameter.
func parseTimeParam(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
