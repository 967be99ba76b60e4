package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"dirstream/internal/domain"
	"dirstream/internal/domain/ports"
)

type fakeFetcher struct {
	listing     string
	listingErr  error
	listingPath string

	headSize int64
	headErr  error
	headPath string

	src       ports.StreamSource
	openErr   error
	openPath  string
	openRange *domain.ByteRange
	openCalls int
}

func (f *fakeFetcher) FetchListing(ctx context.Context, path string) (string, error) {
	f.listingPath = path
	if f.listingErr != nil {
		return "", f.listingErr
	}
	return f.listing, nil
}

func (f *fakeFetcher) Head(ctx context.Context, path string) (int64, error) {
	f.headPath = path
	if f.headErr != nil {
		return 0, f.headErr
	}
	return f.headSize, nil
}

func (f *fakeFetcher) OpenStream(ctx context.Context, path string, rng *domain.ByteRange) (ports.StreamSource, error) {
	f.openPath = path
	f.openRange = rng
	f.openCalls++
	if f.openErr != nil {
		return ports.StreamSource{}, f.openErr
	}
	return f.src, nil
}

func TestBrowseParsesListing(t *testing.T) {
	fetcher := &fakeFetcher{listing: `<pre>
<a href="shows/">shows/</a>    01-Mar-2024 10:00    -
<a href="movie.mp4">movie.mp4</a>    01-Mar-2024 10:05    1000
</pre>`}
	uc := Browse{Fetcher: fetcher}

	entries, err := uc.Execute(context.Background(), "/media")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fetcher.listingPath != "/media" {
		t.Fatalf("fetched path = %q", fetcher.listingPath)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Type != domain.EntryDirectory || entries[0].Path != "/media/shows" {
		t.Fatalf("dir entry = %+v", entries[0])
	}
	if entries[1].Type != domain.EntryFile || entries[1].Size != 1000 {
		t.Fatalf("file entry = %+v", entries[1])
	}
}

func TestBrowseCanonicalizesPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "/"},
		{"root", "/", "/"},
		{"relative", "movies", "/movies"},
		{"trailing_slash", "/movies/", "/movies"},
		{"doubled_slash", "/a//b", "/a/b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{listing: "<pre></pre>"}
			uc := Browse{Fetcher: fetcher}
			if _, err := uc.Execute(context.Background(), tc.in); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if fetcher.listingPath != tc.want {
				t.Fatalf("fetched path = %q, want %q", fetcher.listingPath, tc.want)
			}
		})
	}
}

func TestBrowseEmptyListing(t *testing.T) {
	uc := Browse{Fetcher: &fakeFetcher{listing: "<html><body></body></html>"}}

	entries, err := uc.Execute(context.Background(), "/")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if entries == nil {
		t.Fatalf("entries is nil, want empty slice")
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestBrowseFetchErrorPropagates(t *testing.T) {
	upstreamErr := &domain.UpstreamHTTPError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	uc := Browse{Fetcher: &fakeFetcher{listingErr: upstreamErr}}

	_, err := uc.Execute(context.Background(), "/missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	var httpErr *domain.UpstreamHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want UpstreamHTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", httpErr.StatusCode)
	}
}

func TestBrowseWithoutFetcher(t *testing.T) {
	uc := Browse{}
	if _, err := uc.Execute(context.Background(), "/"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFileSizeHead(t *testing.T) {
	fetcher := &fakeFetcher{headSize: 73400320}
	uc := FileSize{Fetcher: fetcher}

	size, err := uc.Execute(context.Background(), "media/movie.mp4")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if size != 73400320 {
		t.Fatalf("size = %d", size)
	}
	if fetcher.headPath != "/media/movie.mp4" {
		t.Fatalf("head path = %q", fetcher.headPath)
	}
}

func TestFileSizeTimeoutPropagates(t *testing.T) {
	wrapped := fmt.Errorf("%w: context deadline exceeded", domain.ErrTimeout)
	uc := FileSize{Fetcher: &fakeFetcher{headErr: wrapped}}

	_, err := uc.Execute(context.Background(), "/movie.mp4")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
}
