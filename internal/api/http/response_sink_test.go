package apihttp

import (
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"dirstream/internal/domain"
)

func newTestSink(t *testing.T, rng *domain.ByteRange, size int64) (*responseSink, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	sink := newResponseSink(w, slog.Default(), "/media/clip.mkv", rng, size, nil)
	return sink, w
}

func TestResponseSinkLifecycle(t *testing.T) {
	sink, w := newTestSink(t, &domain.ByteRange{Start: 100, End: 199, HasEnd: true}, 1000)

	if got := sink.currentState(); got != TransferNotStarted {
		t.Fatalf("initial state = %v", got)
	}

	sink.begin()
	if got := sink.currentState(); got != TransferHeadersPending {
		t.Fatalf("state after begin = %v", got)
	}

	sink.SetHeader("Content-Type", "video/x-matroska")
	sink.WriteStatus(206)
	if got := sink.currentState(); got != TransferStreaming {
		t.Fatalf("state after WriteStatus = %v", got)
	}

	if n, err := sink.WriteChunk([]byte("0123456789")); n != 10 || err != nil {
		t.Fatalf("WriteChunk = %d, %v", n, err)
	}
	sink.WriteChunk([]byte("abcde"))

	sink.End()
	if got := sink.currentState(); got != TransferDone {
		t.Fatalf("state after End = %v", got)
	}

	if w.Code != 206 {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "video/x-matroska" {
		t.Fatalf("Content-Type = %q", got)
	}
	if w.Body.String() != "0123456789abcde" {
		t.Fatalf("body = %q", w.Body.String())
	}
	if got := sink.bytesSent(); got != 15 {
		t.Fatalf("bytesSent = %d", got)
	}
}

func TestResponseSinkHeadersBufferedUntilStatus(t *testing.T) {
	sink, w := newTestSink(t, nil, 1000)
	sink.begin()

	sink.SetHeader("Content-Type", "video/mp4")
	sink.SetHeader("Cache-Control", "no-cache")
	if len(w.Header()) != 0 {
		t.Fatalf("headers leaked before commit: %v", w.Header())
	}

	sink.WriteStatus(200)
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestResponseSinkFirstHeaderValueWins(t *testing.T) {
	sink, w := newTestSink(t, nil, 1000)
	sink.begin()

	sink.SetHeader("Content-Type", "video/mp4")
	sink.SetHeader("Content-Type", "text/plain")
	sink.SetHeader("content-type", "application/octet-stream")
	sink.WriteStatus(200)

	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("Content-Type = %q, want the first value", got)
	}
	if got := w.Header().Values("Content-Type"); len(got) != 1 {
		t.Fatalf("Content-Type values = %v", got)
	}
}

func TestResponseSinkHeaderAfterCommitIgnored(t *testing.T) {
	sink, w := newTestSink(t, nil, 1000)
	sink.begin()
	sink.WriteStatus(200)

	sink.SetHeader("X-Late", "nope")
	if got := w.Header().Get("X-Late"); got != "" {
		t.Fatalf("late header leaked: %q", got)
	}
}

func TestResponseSinkSecondStatusIgnored(t *testing.T) {
	sink, w := newTestSink(t, nil, 1000)
	sink.begin()
	sink.WriteStatus(206)
	sink.WriteStatus(500)

	if w.Code != 206 {
		t.Fatalf("status = %d, want the first committed value", w.Code)
	}
}

func TestResponseSinkWriteWithoutBeginStaysClean(t *testing.T) {
	sink, w := newTestSink(t, nil, 1000)

	sink.SetHeader("Content-Type", "video/mp4")
	if len(w.Header()) != 0 {
		t.Fatalf("header set without begin: %v", w.Header())
	}
	if got := sink.currentState(); got != TransferNotStarted {
		t.Fatalf("state = %v", got)
	}
}

func TestResponseSinkFailBeforeHeaders(t *testing.T) {
	sink, w := newTestSink(t, nil, 1000)
	sink.begin()

	sink.fail(errors.New("upstream refused"))

	if got := sink.currentState(); got != TransferFailedBeforeHeaders {
		t.Fatalf("state = %v", got)
	}
	if sink.headersSent() {
		t.Fatal("headersSent must be false before commit")
	}
	if w.Body.Len() != 0 {
		t.Fatalf("failed transfer wrote %d bytes", w.Body.Len())
	}
}

func TestResponseSinkFailAfterHeaders(t *testing.T) {
	sink, _ := newTestSink(t, nil, 1000)
	sink.begin()
	sink.WriteStatus(200)
	sink.WriteChunk([]byte("partial"))

	sink.fail(errors.New("connection reset"))

	if got := sink.currentState(); got != TransferFailedAfterHeaders {
		t.Fatalf("state = %v", got)
	}
	if !sink.headersSent() {
		t.Fatal("headersSent must be true after commit")
	}
	if got := sink.bytesSent(); got != 7 {
		t.Fatalf("bytesSent = %d", got)
	}
}

func TestResponseSinkEndBeforeStreamingIsNoop(t *testing.T) {
	sink, _ := newTestSink(t, nil, 1000)
	sink.begin()

	sink.End()

	if got := sink.currentState(); got != TransferHeadersPending {
		t.Fatalf("state = %v, End must not fire before streaming", got)
	}
}

func TestResponseSinkFailAfterDoneIsNoop(t *testing.T) {
	sink, _ := newTestSink(t, nil, 1000)
	sink.begin()
	sink.WriteStatus(200)
	sink.End()

	sink.fail(errors.New("late error"))

	if got := sink.currentState(); got != TransferDone {
		t.Fatalf("state = %v, fail must not override a finished transfer", got)
	}
}

func TestResponseSinkEventSnapshots(t *testing.T) {
	rng := &domain.ByteRange{Start: 100, End: 199, HasEnd: true}
	sink, _ := newTestSink(t, rng, 1000)

	event := sink.Event()
	if event.ID == "" {
		t.Fatal("event ID must be assigned at construction")
	}
	if event.Path != "/media/clip.mkv" {
		t.Fatalf("path = %q", event.Path)
	}
	if !event.Ranged || event.Start != 100 || event.End != 199 {
		t.Fatalf("range fields = %+v", event)
	}
	if event.Size != 1000 {
		t.Fatalf("size = %d", event.Size)
	}
	if event.State != "not_started" {
		t.Fatalf("state = %q", event.State)
	}

	sink.begin()
	sink.WriteStatus(206)
	sink.WriteChunk([]byte("0123456789"))

	event = sink.Event()
	if event.State != "streaming" {
		t.Fatalf("state = %q", event.State)
	}
	if event.BytesSent != 10 {
		t.Fatalf("bytesSent = %d", event.BytesSent)
	}

	sink.End()
	if got := sink.Event().State; got != "done" {
		t.Fatalf("state = %q", got)
	}
}

func TestResponseSinkEventCallbackSequence(t *testing.T) {
	var states []string
	w := httptest.NewRecorder()
	sink := newResponseSink(w, slog.Default(), "/clip.mp4", nil, 0, func(event domain.TransferEvent) {
		states = append(states, event.State)
	})

	sink.begin()
	sink.WriteStatus(200)
	sink.WriteChunk([]byte("data"))
	sink.End()

	want := []string{"headers_pending", "streaming", "done"}
	if len(states) != len(want) {
		t.Fatalf("observed states = %v", states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("observed states = %v, want %v", states, want)
		}
	}
}

func TestTransferStateString(t *testing.T) {
	tests := []struct {
		state TransferState
		want  string
	}{
		{TransferNotStarted, "not_started"},
		{TransferHeadersPending, "headers_pending"},
		{TransferStreaming, "streaming"},
		{TransferDone, "done"},
		{TransferFailedBeforeHeaders, "failed_before_headers"},
		{TransferFailedAfterHeaders, "failed_after_headers"},
		{TransferState(99), "unknown(99)"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", int(tc.state), got, tc.want)
		}
	}
}

func TestNextTransferIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := nextTransferID()
		if !strings.HasPrefix(id, "t") {
			t.Fatalf("id = %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
