package session

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galileosky/mercury-gateway/internal/record"
	"github.com/galileosky/mercury-gateway/internal/sink"
)

type recordingSink struct {
	mu      sync.Mutex
	records []map[string]any
}

func (s *recordingSink) Save(_ context.Context, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type recordingErrorSink struct {
	mu      sync.Mutex
	cause   error
	rawData []byte
}

func (s *recordingErrorSink) Save(_ context.Context, _ map[string]any) error { return nil }

func (s *recordingErrorSink) Close() error { return nil }

func (s *recordingErrorSink) SaveError(_ time.Time, cause error, rawData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cause = cause
	s.rawData = rawData
	return nil
}

func (s *recordingErrorSink) captured() (error, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause, s.rawData
}

// buildFrame wraps payload in a wire frame with a fixed 0xAA 0xBB
// checksum.
func buildFrame(payload []byte) []byte {
	out := make([]byte, 0, 1+2+len(payload)+2)
	out = append(out, 0x01)
	lenField := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenField, uint16(len(payload)))
	out = append(out, lenField...)
	out = append(out, payload...)
	out = append(out, 0xAA, 0xBB) // arbitrary checksum, echoed verbatim
	return out
}

func TestSession_ParsesFrameAndAcksVerbatim(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	sk := &recordingSink{}
	sess := &Session{
		conn:    serverConn,
		timeout: time.Second,
		sinks:   []sink.Sink{sk},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()

	frame := buildFrame([]byte{0x35, 0x07})

	writeErr := make(chan error, 1)
	go func() {
		_, err := clientConn.Write(frame)
		writeErr <- err
	}()
	require.NoError(t, <-writeErr)

	ack := make([]byte, 3)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := clientConn.Read(ack)
	require.NoError(t, err)

	assert.Equal(t, byte(0x02), ack[0])
	assert.Equal(t, uint16(0xBBAA), binary.LittleEndian.Uint16(ack[1:3]))

	clientConn.Close()
	<-done

	assert.Equal(t, 1, sk.count())
}

func TestSession_MercuryDecodeFailureRoutesToErrorSinkAndStillAcks(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	errSink := &recordingErrorSink{}
	sess := &Session{
		conn:    serverConn,
		timeout: time.Second,
		sinks:   []sink.Sink{errSink},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()

	// 0xEA tag with a 5-byte payload: too short to be a 93-byte Mercury
	// blob, so the decoder falls back to raw hex and Build reports
	// ErrMercuryDecodeFailed.
	payload := append([]byte{0xEA, 0x05}, []byte{0x01, 0x02, 0x03, 0x04, 0x05}...)
	frame := buildFrame(payload)

	writeErr := make(chan error, 1)
	go func() {
		_, err := clientConn.Write(frame)
		writeErr <- err
	}()
	require.NoError(t, <-writeErr)

	ack := make([]byte, 3)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := clientConn.Read(ack)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), ack[0])

	clientConn.Close()
	<-done

	cause, rawData := errSink.captured()
	require.Error(t, cause)
	assert.ErrorIs(t, cause, record.ErrMercuryDecodeFailed)
	assert.Equal(t, payload, rawData)
}
