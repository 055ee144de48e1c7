// Package session implements the TCP accept loop and the per-connection
// handler: read with an idle timeout, feed the frame assembler, parse
// and decode each frame's tags, build a record, push it to every
// configured sink, update metrics, and ack.
package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/galileosky/mercury-gateway/internal/maintenance"
	"github.com/galileosky/mercury-gateway/internal/metrics"
	"github.com/galileosky/mercury-gateway/internal/sink"
	"github.com/galileosky/mercury-gateway/pkg/log"
)

// Listener accepts Galileosky terminal connections and spawns one
// goroutine per connection, per the thread-per-connection scheduling
// model.
type Listener struct {
	Addr    string
	Timeout time.Duration
	Sinks   []sink.Sink
	Metrics *metrics.Exporter
	Stats   *maintenance.Stats
}

// Run binds Addr and accepts connections until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return fmt.Errorf("session: listen on %s: %w", l.Addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Infof("session: listening on %s", l.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Warnf("session: accept: %v", err)
				continue
			}
		}

		sess := &Session{
			conn:    conn,
			timeout: l.Timeout,
			sinks:   l.Sinks,
			metrics: l.Metrics,
			stats:   l.Stats,
		}
		go sess.Run(ctx)
	}
}
