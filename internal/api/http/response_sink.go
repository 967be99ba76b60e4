package apihttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dirstream/internal/domain"
	"dirstream/internal/metrics"
)

// TransferState is the FSM state of one file transfer.
type TransferState int

const (
	TransferNotStarted     TransferState = iota
	TransferHeadersPending               // request accepted, response not yet committed
	TransferStreaming                    // status line sent, body flowing
	TransferDone                         // body fully delivered
	TransferFailedBeforeHeaders
	TransferFailedAfterHeaders
)

var transferStateNames = [...]string{
	"not_started", "headers_pending", "streaming",
	"done", "failed_before_headers", "failed_after_headers",
}

func (s TransferState) String() string {
	if int(s) < len(transferStateNames) {
		return transferStateNames[s]
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

var transferSeq atomic.Uint64

func nextTransferID() string {
	return fmt.Sprintf("t%d-%d", time.Now().UnixMilli(), transferSeq.Add(1))
}

// responseSink adapts an http.ResponseWriter to the transfer sink contract
// and owns the transfer FSM. Headers buffer locally until the status line
// commits, so a failure before commit leaves the underlying writer clean
// for a JSON error body. The first value written for a header key wins;
// later writes for the same key are dropped, which lets computed headers
// take precedence over forwarded upstream ones.
type responseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  *slog.Logger
	onEvent func(domain.TransferEvent)

	mu     sync.Mutex
	state  TransferState
	header http.Header
	event  domain.TransferEvent
}

func newResponseSink(w http.ResponseWriter, logger *slog.Logger, path string, rng *domain.ByteRange, size int64, onEvent func(domain.TransferEvent)) *responseSink {
	flusher, _ := w.(http.Flusher)
	now := time.Now().UTC()
	event := domain.TransferEvent{
		ID:        nextTransferID(),
		Path:      path,
		State:     TransferNotStarted.String(),
		Size:      size,
		StartedAt: now,
		UpdatedAt: now,
	}
	if rng != nil {
		event.Ranged = true
		event.Start = rng.Start
		event.End = rng.EffectiveEnd(size)
	}
	return &responseSink{
		w:       w,
		flusher: flusher,
		logger:  logger,
		onEvent: onEvent,
		state:   TransferNotStarted,
		header:  http.Header{},
		event:   event,
	}
}

// begin moves the transfer into HeadersPending and starts tracking it.
func (sk *responseSink) begin() {
	if sk.transitionFrom(TransferNotStarted, TransferHeadersPending) {
		metrics.TransfersStartedTotal.Inc()
		metrics.ActiveTransfers.Inc()
	}
}

func (sk *responseSink) SetHeader(key string, values ...string) {
	if len(values) == 0 {
		return
	}
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if sk.state != TransferHeadersPending {
		return
	}
	ck := http.CanonicalHeaderKey(key)
	if _, ok := sk.header[ck]; ok {
		return
	}
	sk.header[ck] = append([]string(nil), values...)
}

// WriteStatus commits the buffered headers and the status line. Only the
// first call has any effect.
func (sk *responseSink) WriteStatus(status int) {
	sk.mu.Lock()
	if sk.state != TransferHeadersPending {
		sk.mu.Unlock()
		return
	}
	sk.state = TransferStreaming
	sk.event.State = TransferStreaming.String()
	sk.event.UpdatedAt = time.Now().UTC()
	event := sk.event
	dst := sk.w.Header()
	for key, values := range sk.header {
		dst[key] = values
	}
	sk.mu.Unlock()

	sk.w.WriteHeader(status)
	sk.observe(TransferHeadersPending, TransferStreaming, event)
}

func (sk *responseSink) WriteChunk(p []byte) (int, error) {
	n, err := sk.w.Write(p)
	if n > 0 {
		sk.mu.Lock()
		sk.event.BytesSent += int64(n)
		sk.event.UpdatedAt = time.Now().UTC()
		sk.mu.Unlock()
	}
	if sk.flusher != nil {
		sk.flusher.Flush()
	}
	return n, err
}

// End completes a streaming transfer. Calls in any other state are no-ops.
func (sk *responseSink) End() {
	if !sk.transitionFrom(TransferStreaming, TransferDone) {
		return
	}
	bytes := sk.bytesSent()
	metrics.ActiveTransfers.Dec()
	metrics.TransferBytesTotal.Add(float64(bytes))
	if sk.flusher != nil {
		sk.flusher.Flush()
	}
}

// fail records a terminal failure. The phase depends on whether the status
// line already went out: before commit the caller still owns the response
// and can write an error body, after commit the stream just stops.
func (sk *responseSink) fail(err error) {
	if sk.transitionFrom(TransferStreaming, TransferFailedAfterHeaders) {
		bytes := sk.bytesSent()
		metrics.ActiveTransfers.Dec()
		metrics.TransferFailuresTotal.WithLabelValues("after_headers").Inc()
		metrics.TransferBytesTotal.Add(float64(bytes))
		sk.logger.Warn("transfer failed mid-stream",
			slog.String("transferId", sk.event.ID),
			slog.String("path", sk.event.Path),
			slog.Int64("bytesSent", bytes),
			slog.String("error", err.Error()),
		)
		return
	}
	if sk.transitionFrom(TransferHeadersPending, TransferFailedBeforeHeaders) {
		metrics.ActiveTransfers.Dec()
		metrics.TransferFailuresTotal.WithLabelValues("before_headers").Inc()
		sk.logger.Warn("transfer failed before response",
			slog.String("transferId", sk.event.ID),
			slog.String("path", sk.event.Path),
			slog.String("error", err.Error()),
		)
	}
}

// headersSent reports whether the status line has been committed.
func (sk *responseSink) headersSent() bool {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	switch sk.state {
	case TransferStreaming, TransferDone, TransferFailedAfterHeaders:
		return true
	}
	return false
}

func (sk *responseSink) currentState() TransferState {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.state
}

// Event returns a snapshot of the transfer's progress.
func (sk *responseSink) Event() domain.TransferEvent {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.event
}

func (sk *responseSink) bytesSent() int64 {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.event.BytesSent
}

// transitionFrom swaps the state only when the current state matches from.
func (sk *responseSink) transitionFrom(from, to TransferState) bool {
	sk.mu.Lock()
	if sk.state != from {
		sk.mu.Unlock()
		return false
	}
	sk.state = to
	sk.event.State = to.String()
	sk.event.UpdatedAt = time.Now().UTC()
	event := sk.event
	sk.mu.Unlock()
	sk.observe(from, to, event)
	return true
}

func (sk *responseSink) observe(from, to TransferState, event domain.TransferEvent) {
	metrics.TransferStateTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	sk.logger.Debug("transfer state transition",
		slog.String("transferId", event.ID),
		slog.String("path", event.Path),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	if sk.onEvent != nil {
		sk.onEvent(event)
	}
}
