package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dirstream/internal/domain"
	domainports "dirstream/internal/domain/ports"
)

type BrowseUseCase interface {
	Execute(ctx context.Context, path string) ([]domain.Entry, error)
}

type FileSizeUseCase interface {
	Execute(ctx context.Context, path string) (int64, error)
}

type StreamFileUseCase interface {
	Execute(ctx context.Context, path string, rng *domain.ByteRange, sink domainports.ResponseSink) (int64, error)
}

type Server struct {
	browse         BrowseUseCase
	fileSize       FileSizeUseCase
	streamFile     StreamFileUseCase
	openAPIPath    string
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
	wsUpgrader     websocket.Upgrader
	transfersMu    sync.RWMutex
	transfers      map[string]*responseSink
}

type ServerOption func(*Server)

func WithOpenAPIPath(path string) ServerOption {
	return func(s *Server) {
		s.openAPIPath = path
	}
}

func WithFileSize(uc FileSizeUseCase) ServerOption {
	return func(s *Server) {
		s.fileSize = uc
	}
}

func WithStreamFile(uc StreamFileUseCase) ServerOption {
	return func(s *Server) {
		s.streamFile = uc
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(browse BrowseUseCase, opts ...ServerOption) *Server {
	s := &Server{
		browse:      browse,
		openAPIPath: defaultOpenAPIPath(),
		transfers:   make(map[string]*responseSink),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsUpgrader = newWSUpgrader(s.allowedOrigins)
	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/browse", s.handleBrowse)
	mux.HandleFunc("/files/", s.handleFiles)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/swagger", s.handleSwagger)
	mux.HandleFunc("/swagger/", s.handleSwagger)
	mux.HandleFunc("/swagger/openapi.json", s.handleOpenAPI)
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "dirstream",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz" && !strings.HasPrefix(p, "/swagger")
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// transferEvent pushes one transfer state change to WebSocket clients.
func (s *Server) transferEvent(event domain.TransferEvent) {
	if s.wsHub != nil {
		s.wsHub.BroadcastTransfer(event)
	}
}

func (s *Server) trackTransfer(sk *responseSink) {
	s.transfersMu.Lock()
	s.transfers[sk.Event().ID] = sk
	s.transfersMu.Unlock()
}

func (s *Server) untrackTransfer(sk *responseSink) {
	s.transfersMu.Lock()
	delete(s.transfers, sk.Event().ID)
	s.transfersMu.Unlock()
}

// ActiveTransferEvents snapshots the progress of all in-flight transfers.
func (s *Server) ActiveTransferEvents() []domain.TransferEvent {
	s.transfersMu.RLock()
	sinks := make([]*responseSink, 0, len(s.transfers))
	for _, sk := range s.transfers {
		sinks = append(sinks, sk)
	}
	s.transfersMu.RUnlock()

	events := make([]domain.TransferEvent, 0, len(sinks))
	for _, sk := range sinks {
		events = append(events, sk.Event())
	}
	return events
}

// BroadcastTransfers pushes a snapshot of all in-flight transfers to
// connected WebSocket clients.
func (s *Server) BroadcastTransfers() {
	if s.wsHub == nil {
		return
	}
	events := s.ActiveTransferEvents()
	if len(events) == 0 {
		return
	}
	s.wsHub.BroadcastTransfers(events)
}

func defaultOpenAPIPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join("docs", "openapi.json")
	}

	dir := cwd
	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, "docs", "openapi.json")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return filepath.Join("docs", "openapi.json")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
