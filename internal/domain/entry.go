package domain

import (
	"errors"
	"strings"
	"time"
)

type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// Entry is one row of a parsed directory listing. Entries are recomputed on
// every listing request and carry no identity beyond their path.
type Entry struct {
	Name     string     `json:"name"`
	Type     EntryType  `json:"type"`
	Size     int64      `json:"size"`
	Modified *time.Time `json:"modified,omitempty"`
	Path     string     `json:"path"`
}

// Validate checks domain invariants for Entry.
func (e Entry) Validate() error {
	if e.Name == "" {
		return errors.New("entry name is required")
	}
	if e.Size < 0 {
		return errors.New("size must not be negative")
	}
	switch e.Type {
	case EntryFile, EntryDirectory:
		// valid
	case "":
		return errors.New("type is required")
	default:
		return errors.New("invalid type: " + string(e.Type))
	}
	if !strings.HasPrefix(e.Path, "/") {
		return errors.New("path must start with /")
	}
	if strings.Contains(e.Path, "//") {
		return errors.New("path must not contain a doubled slash")
	}
	if e.Path != "/" && strings.HasSuffix(e.Path, "/") {
		return errors.New("path must not end with /")
	}
	return nil
}
