package usecase

import (
	"context"
	"errors"
	"fmt"

	"dirstream/internal/domain/ports"
	"dirstream/internal/listing"
)

// FileSize probes the byte size of an upstream file with a HEAD request.
// Upstreams that omit Content-Length yield 0, which downstream treats as
// size unknown.
type FileSize struct {
	Fetcher ports.Fetcher
}

func (uc FileSize) Execute(ctx context.Context, path string) (int64, error) {
	if uc.Fetcher == nil {
		return 0, errors.New("fetcher not configured")
	}

	p := listing.Resolve("/", path)
	size, err := uc.Fetcher.Head(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", p, err)
	}
	return size, nil
}
