package usecase

import (
	"context"
	"errors"
	"fmt"

	"dirstream/internal/domain"
	"dirstream/internal/domain/ports"
	"dirstream/internal/listing"
)

// Browse fetches one upstream index page and parses it into entries.
// Every call is an independent round trip; nothing is cached between
// requests.
type Browse struct {
	Fetcher ports.Fetcher
}

func (uc Browse) Execute(ctx context.Context, path string) ([]domain.Entry, error) {
	if uc.Fetcher == nil {
		return nil, errors.New("fetcher not configured")
	}

	dir := listing.Resolve("/", path)
	page, err := uc.Fetcher.FetchListing(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", dir, err)
	}

	entries := listing.Parse(page, dir)
	if entries == nil {
		// An index with no usable anchors is still a valid, empty directory.
		entries = []domain.Entry{}
	}
	return entries, nil
}
