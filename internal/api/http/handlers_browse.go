package apihttp

import (
	"log/slog"
	"net/http"

	"dirstream/internal/domain"
	"dirstream/internal/listing"
)

type browseResponse struct {
	Path  string         `json:"path"`
	Items []domain.Entry `json:"items"`
	Count int            `json:"count"`
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.browse == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "browse use case not configured")
		return
	}

	dir := listing.Resolve("/", r.URL.Query().Get("path"))
	entries, err := s.browse.Execute(r.Context(), dir)
	if err != nil {
		s.logger.Warn("browse failed",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, browseResponse{Path: dir, Items: entries, Count: len(entries)})
}
