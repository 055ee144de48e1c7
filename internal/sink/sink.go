// Package sink defines the record sink contract and its
// implementations: JSON Lines (default), NATS publish (optional), and
// Avro archive (optional). A session pushes one record to every
// configured sink after building it; a failure in one sink never
// prevents the others from being tried.
package sink

import (
	"context"
	"time"
)

// Sink accepts one record for processing. "Returned without error"
// means accepted for processing, not necessarily durably persisted.
// Implementations must be safe for concurrent use by many sessions.
type Sink interface {
	Save(ctx context.Context, record map[string]any) error
	Close() error
}

// ErrorSink is implemented by sinks that can record a record-build
// failure separately from a normal Save call. JSONLines is the only
// implementation; a session routes ErrMercuryDecodeFailed packets to
// whichever configured sink satisfies this interface.
type ErrorSink interface {
	SaveError(receivedAt time.Time, cause error, rawData []byte) error
}
