package session

import (
	"context"
	"net"
	"time"

	"github.com/galileosky/mercury-gateway/internal/maintenance"
	"github.com/galileosky/mercury-gateway/internal/metrics"
	"github.com/galileosky/mercury-gateway/internal/protocol"
	"github.com/galileosky/mercury-gateway/internal/record"
	"github.com/galileosky/mercury-gateway/internal/sink"
	"github.com/galileosky/mercury-gateway/pkg/log"
)

const readChunkSize = 1024

// Session owns one accepted connection. Processing inside a session is
// strictly sequential: frames are parsed, decoded, built and pushed in
// arrival order. Only the socket read and the sink writes may block.
type Session struct {
	conn    net.Conn
	timeout time.Duration
	sinks   []sink.Sink
	metrics *metrics.Exporter
	stats   *maintenance.Stats

	assembler protocol.Assembler
}

// Run drives the session until the connection closes, the idle timeout
// fires, or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()
	peer := s.conn.RemoteAddr().String()

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, readChunkSize)
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			log.Warnf("session[%s]: set read deadline: %v", peer, err)
			return
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			log.Infof("session[%s]: closing: %v", peer, err)
			return
		}

		s.assembler.Feed(buf[:n])
		s.drainFrames(ctx, peer)
	}
}

func (s *Session) drainFrames(ctx context.Context, peer string) {
	for {
		frame, ok := s.assembler.Next()
		if !ok {
			if dropped := s.assembler.Resync(); dropped > 0 {
				log.Warnf("session[%s]: resync dropped %d garbage byte(s)", peer, dropped)
				continue
			}
			return
		}

		s.handleFrame(ctx, peer, frame)
	}
}

func (s *Session) handleFrame(ctx context.Context, peer string, frame protocol.Frame) {
	if s.stats != nil {
		s.stats.AddFrame()
	}

	if computed := protocol.CRC16Modbus(frame.Payload); computed != frame.Checksum {
		log.Debugf("session[%s]: checksum mismatch (computed=%04X received=%04X), ack echoes received value unchanged", peer, computed, frame.Checksum)
	}

	packet := protocol.ParseTags(frame.Payload)
	for _, skipped := range packet.SkippedBytes {
		log.Warnf("session[%s]: skipped garbage tag byte 0x%02X", peer, skipped)
	}

	decoded := make([]record.Decoded, 0, len(packet.Tags))
	for _, t := range packet.Tags {
		decoded = append(decoded, record.Decoded{Tag: t.Tag, Value: protocol.Decode(t.Tag, t.Data)})
	}

	rec, err := record.Build(decoded, peer, time.Now())
	if err != nil {
		log.Warnf("session[%s]: %v", peer, err)
		s.routeToErrorSink(peer, err, frame.Payload)
		if s.stats != nil {
			s.stats.AddSinkError()
		}
	} else {
		if s.metrics != nil {
			if mercuryID, ok := rec["mercury_id"].(string); ok {
				imei, _ := rec["imei"].(string)
				s.metrics.Update(imei, mercuryID, rec)
			}
		}

		for _, sk := range s.sinks {
			if err := sk.Save(ctx, rec); err != nil {
				log.Errorf("session[%s]: sink save: %v", peer, err)
				if s.stats != nil {
					s.stats.AddSinkError()
				}
				continue
			}
		}
		if s.stats != nil {
			s.stats.AddRecord()
		}
	}

	ack := protocol.Ack(frame.Checksum)
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		log.Warnf("session[%s]: set write deadline: %v", peer, err)
		return
	}
	if _, err := s.conn.Write(ack); err != nil {
		log.Warnf("session[%s]: ack write failed, terminating: %v", peer, err)
		s.conn.Close()
	}
}

// routeToErrorSink sends a record-build failure to the first configured
// sink that implements sink.ErrorSink, per the "route to the JSON Lines
// sink's error file; continue session" policy.
func (s *Session) routeToErrorSink(peer string, cause error, rawData []byte) {
	for _, sk := range s.sinks {
		if es, ok := sk.(sink.ErrorSink); ok {
			if err := es.SaveError(time.Now(), cause, rawData); err != nil {
				log.Errorf("session[%s]: error sink save: %v", peer, err)
			}
			return
		}
	}
	log.Warnf("session[%s]: record build failed (%v) but no configured sink accepts error routing", peer, cause)
}
