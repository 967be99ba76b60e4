package domain

import "time"

// TransferEvent is a point-in-time snapshot of one proxied stream, published
// to WebSocket observers. Observability only; request handling never reads
// it back.
type TransferEvent struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	State     string    `json:"state"`
	Ranged    bool      `json:"ranged"`
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Size      int64     `json:"size"`
	BytesSent int64     `json:"bytesSent"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
