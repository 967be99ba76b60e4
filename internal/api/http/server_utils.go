package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"dirstream/internal/domain"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeUpstreamError translates an upstream failure into a client-facing
// status. An upstream 404 stays a 404; every other upstream response code
// becomes a 502 because the body the client asked for cannot be produced.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var httpErr *domain.UpstreamHTTPError
	switch {
	case errors.As(err, &httpErr):
		if httpErr.StatusCode == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "not_found", "upstream has no such path")
			return
		}
		writeError(w, http.StatusBadGateway, "upstream_error", httpErr.Error())
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", "upstream did not respond in time")
	case errors.Is(err, domain.ErrNetwork):
		writeError(w, http.StatusBadGateway, "upstream_unreachable", "upstream is unreachable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

var (
	errInvalidRange        = errors.New("invalid range")
	errRangeNotSatisfiable = errors.New("range not satisfiable")
)

// parseByteRange interprets a Range request header against the probed
// resource size. A missing header yields (nil, nil). Single-range bytes
// specs only; multipart ranges are treated as invalid and the caller serves
// the full resource. With size unknown (0), explicit offsets pass through
// unvalidated for the upstream to judge, and suffix ranges degrade to the
// full resource.
func parseByteRange(value string, size int64) (*domain.ByteRange, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToLower(value), "bytes=") {
		return nil, errInvalidRange
	}

	spec := strings.TrimSpace(value[len("bytes="):])
	if spec == "" || strings.Contains(spec, ",") {
		return nil, errInvalidRange
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) == 1 {
		parts = append(parts, "")
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	if startStr == "" {
		if endStr == "" {
			return nil, errInvalidRange
		}
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix <= 0 {
			return nil, errInvalidRange
		}
		if size <= 0 {
			return nil, nil
		}
		if suffix > size {
			suffix = size
		}
		return &domain.ByteRange{Start: size - suffix, End: size - 1, HasEnd: true}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, errInvalidRange
	}
	if size > 0 && start >= size {
		return nil, errRangeNotSatisfiable
	}

	if endStr == "" {
		return &domain.ByteRange{Start: start}, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return nil, errInvalidRange
	}
	if size > 0 && end >= size {
		end = size - 1
	}
	return &domain.ByteRange{Start: start, End: end, HasEnd: true}, nil
}

// contentTypeFor maps a file extension to its MIME type. Upstream
// Content-Type headers are never trusted; auto-index servers routinely
// label media as text/plain or octet-stream.
func contentTypeFor(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".mp4":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".m4v":
		return "video/x-m4v"
	case ".ts":
		return "video/mp2t"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.openAPIPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "openapi not available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, swaggerHTML)
}
