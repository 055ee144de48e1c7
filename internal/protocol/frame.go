package protocol

import "encoding/binary"

const (
	headerByte = 0x01
	ackByte    = 0x02

	minFrameBytes = 1 + 2 + 2 // header + length field + checksum, zero-length payload
)

// Assembler accumulates bytes read off a connection and peels off
// complete frames as soon as enough bytes are buffered. It holds no
// socket and does no I/O; a Session feeds it whatever a Read call
// returns and drains whatever frames come back.
type Assembler struct {
	buf []byte
}

// Feed appends newly read bytes to the internal buffer.
func (a *Assembler) Feed(b []byte) {
	a.buf = append(a.buf, b...)
}

// Next extracts the next complete frame from the buffer, if any. It
// returns ok=false when the buffer doesn't yet hold a full frame, and
// leaves partial data in place for a future Feed to complete.
//
// A buffer that starts with a byte other than the header is not a
// framing error on its own: the caller is expected to discard leading
// bytes up to the next header occurrence (or drop the connection, per
// policy) using Resync.
func (a *Assembler) Next() (Frame, bool) {
	if len(a.buf) < minFrameBytes || a.buf[0] != headerByte {
		return Frame{}, false
	}

	lenField := binary.LittleEndian.Uint16(a.buf[1:3])
	length := lenField & 0x7FFF
	extended := lenField&0x8000 != 0
	total := 1 + 2 + int(length) + 2

	if len(a.buf) < total {
		return Frame{}, false
	}

	payload := append([]byte(nil), a.buf[3:3+int(length)]...)
	checksum := binary.LittleEndian.Uint16(a.buf[total-2 : total])

	a.buf = a.buf[total:]

	return Frame{
		Length:   length,
		Extended: extended,
		Payload:  payload,
		Checksum: checksum,
	}, true
}

// Resync discards bytes up to (but not including) the next occurrence
// of the header byte, returning the number of bytes dropped. Called
// when the buffer's leading byte isn't a valid frame header.
func (a *Assembler) Resync() int {
	if len(a.buf) == 0 || a.buf[0] == headerByte {
		return 0
	}
	for i := 1; i < len(a.buf); i++ {
		if a.buf[i] == headerByte {
			dropped := i
			a.buf = a.buf[i:]
			return dropped
		}
	}
	dropped := len(a.buf)
	a.buf = nil
	return dropped
}

// Ack builds the two-byte acknowledgement the protocol requires after a
// frame is accepted: the ack byte followed by the checksum value echoed
// back verbatim, exactly as received — never recomputed.
func Ack(checksum uint16) []byte {
	out := make([]byte, 3)
	out[0] = ackByte
	binary.LittleEndian.PutUint16(out[1:], checksum)
	return out
}
