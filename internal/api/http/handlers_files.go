package apihttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dirstream/internal/listing"
)

// handleFiles proxies one upstream file to the client. The probed size
// drives the precomputed response headers; the upstream GET is what
// actually decides success, so a failed probe degrades to size unknown
// instead of failing the request.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.fileSize == nil || s.streamFile == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming not configured")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/files")
	if raw == "" || raw == "/" {
		writeError(w, http.StatusBadRequest, "invalid_request", "file path required")
		return
	}
	filePath := listing.Resolve("/", raw)

	ctx := r.Context()

	size, err := s.fileSize.Execute(ctx, filePath)
	if err != nil {
		if r.Method == http.MethodHead {
			writeUpstreamError(w, err)
			return
		}
		s.logger.Debug("size probe failed, streaming without length",
			slog.String("path", filePath),
			slog.String("error", err.Error()),
		)
		size = 0
	}

	if r.Method == http.MethodHead {
		// Range does not apply to HEAD; report the whole resource.
		w.Header().Set("Content-Type", contentTypeFor(filePath))
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Accept-Ranges", "bytes")
		if size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	rangeHeader := r.Header.Get("Range")
	rng, rangeErr := parseByteRange(rangeHeader, size)
	if errors.Is(rangeErr, errRangeNotSatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if rangeErr != nil {
		// Lenient like the listing parser: a malformed range serves the
		// whole file rather than failing the request.
		s.logger.Debug("ignoring malformed range",
			slog.String("path", filePath),
			slog.String("range", rangeHeader),
		)
		rng = nil
	}

	sink := newResponseSink(w, s.logger, filePath, rng, size, s.transferEvent)
	s.trackTransfer(sink)
	defer s.untrackTransfer(sink)

	sink.begin()
	sink.SetHeader("Content-Type", contentTypeFor(filePath))
	sink.SetHeader("Cache-Control", "no-cache")
	sink.SetHeader("Accept-Ranges", "bytes")
	if rng != nil {
		if size > 0 {
			end := rng.EffectiveEnd(size)
			sink.SetHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, end, size))
			sink.SetHeader("Content-Length", strconv.FormatInt(end-rng.Start+1, 10))
		}
	} else if size > 0 {
		sink.SetHeader("Content-Length", strconv.FormatInt(size, 10))
	}

	if _, err := s.streamFile.Execute(ctx, filePath, rng, sink); err != nil {
		committed := sink.headersSent()
		sink.fail(err)
		if committed || errors.Is(err, context.Canceled) {
			// The response is already on the wire or the client is gone;
			// the stream just ends short.
			return
		}
		writeUpstreamError(w, err)
	}
}
