package domain

import (
	"errors"
	"strconv"
)

var ErrNetwork = errors.New("upstream unreachable")
var ErrTimeout = errors.New("upstream timeout")

// UpstreamHTTPError reports a non-success upstream status. The parser never
// produces errors; this taxonomy belongs to the fetcher and proxy alone.
type UpstreamHTTPError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Status != "" {
		return "upstream responded " + e.Status
	}
	return "upstream responded " + strconv.Itoa(e.StatusCode)
}
