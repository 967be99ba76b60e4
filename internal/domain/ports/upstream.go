package ports

import (
	"context"
	"io"
	"net/http"

	"dirstream/internal/domain"
)

// Fetcher performs upstream HTTP exchanges for listings and file bytes.
// Implementations enforce the listing and stream time ceilings and translate
// transport failures into the domain error taxonomy. No retries, no caching.
type Fetcher interface {
	FetchListing(ctx context.Context, path string) (string, error)
	Head(ctx context.Context, path string) (int64, error)
	OpenStream(ctx context.Context, path string, rng *domain.ByteRange) (StreamSource, error)
}

// StreamSource is one open upstream file response. Body must be closed by
// the consumer; it yields bytes incrementally as they arrive.
type StreamSource struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}
