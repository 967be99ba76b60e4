package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"dirstream/internal/domain"
	"dirstream/internal/domain/ports"
	"dirstream/internal/listing"
)

const copyBufferSize = 64 << 10

// skippedHeaders are upstream response headers that never reach the client.
// The proxy re-frames the body itself, so upstream framing and compression
// metadata would describe bytes the client does not see.
var skippedHeaders = []string{"Content-Encoding", "Transfer-Encoding"}

type StreamFile struct {
	Fetcher ports.Fetcher
	Logger  *slog.Logger
}

// Execute opens the upstream file and pipes its body into sink, chunk by
// chunk. Headers already present on the sink win over forwarded upstream
// ones; the upstream status is relayed as-is. A nil or zero-width range
// requests the whole resource. Returns the number of body bytes written.
//
// On error after the status line the sink is left open; the caller decides
// how to terminate the response.
func (uc StreamFile) Execute(ctx context.Context, path string, rng *domain.ByteRange, sink ports.ResponseSink) (int64, error) {
	if uc.Fetcher == nil {
		return 0, errors.New("fetcher not configured")
	}
	if sink == nil {
		return 0, errors.New("sink not configured")
	}

	p := listing.Resolve("/", path)
	src, err := uc.Fetcher.OpenStream(ctx, p, rng)
	if err != nil {
		return 0, fmt.Errorf("open stream %s: %w", p, err)
	}
	defer src.Body.Close()

	for key, values := range src.Header {
		if skipHeader(key) {
			continue
		}
		sink.SetHeader(key, values...)
	}
	sink.WriteStatus(src.Status)

	n, err := io.CopyBuffer(sinkWriter{sink}, src.Body, make([]byte, copyBufferSize))
	if err != nil {
		return n, fmt.Errorf("pipe %s after %d bytes: %w", p, n, err)
	}
	sink.End()

	if uc.Logger != nil {
		uc.Logger.Debug("stream_file: completed",
			slog.String("path", p),
			slog.Int64("bytes", n),
		)
	}
	return n, nil
}

func skipHeader(key string) bool {
	for _, h := range skippedHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}

// sinkWriter adapts a ResponseSink to io.Writer for the copy loop.
type sinkWriter struct {
	sink ports.ResponseSink
}

func (w sinkWriter) Write(p []byte) (int, error) {
	return w.sink.WriteChunk(p)
}
