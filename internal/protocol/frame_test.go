package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(payload []byte, checksum uint16) []byte {
	out := make([]byte, 0, 1+2+len(payload)+2)
	out = append(out, headerByte)
	lenField := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenField, uint16(len(payload)))
	out = append(out, lenField...)
	out = append(out, payload...)
	cs := make([]byte, 2)
	binary.LittleEndian.PutUint16(cs, checksum)
	return append(out, cs...)
}

func TestAssembler_SingleFrame(t *testing.T) {
	payload := []byte{0x10, 0x01, 0x00}
	raw := buildFrame(payload, 0xBEEF)

	var a Assembler
	a.Feed(raw)

	frame, ok := a.Next()
	require.True(t, ok)
	assert.Equal(t, payload, frame.Payload)
	assert.EqualValues(t, 0xBEEF, frame.Checksum)
	assert.False(t, frame.Extended)

	_, ok = a.Next()
	assert.False(t, ok, "buffer should be drained after one frame")
}

func TestAssembler_PartialFeed(t *testing.T) {
	payload := []byte{0x41, 0x34, 0x12}
	raw := buildFrame(payload, 0x1234)

	var a Assembler
	a.Feed(raw[:4])
	_, ok := a.Next()
	assert.False(t, ok, "should not produce a frame until fully buffered")

	a.Feed(raw[4:])
	frame, ok := a.Next()
	require.True(t, ok)
	assert.Equal(t, payload, frame.Payload)
}

func TestAssembler_ExtendedBitExposed(t *testing.T) {
	payload := []byte{0x10, 0x01, 0x00}
	lenField := uint16(len(payload)) | 0x8000
	raw := make([]byte, 0, 1+2+len(payload)+2)
	raw = append(raw, headerByte)
	lf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lf, lenField)
	raw = append(raw, lf...)
	raw = append(raw, payload...)
	cs := make([]byte, 2)
	binary.LittleEndian.PutUint16(cs, 0)
	raw = append(raw, cs...)

	var a Assembler
	a.Feed(raw)
	frame, ok := a.Next()
	require.True(t, ok)
	assert.True(t, frame.Extended)
}

func TestAssembler_ResyncSkipsGarbage(t *testing.T) {
	payload := []byte{0x10, 0x01, 0x00}
	good := buildFrame(payload, 0xAAAA)
	garbage := []byte{0xFF, 0xFF, 0xFF}

	var a Assembler
	a.Feed(append(garbage, good...))

	_, ok := a.Next()
	require.False(t, ok, "leading garbage is not a valid header")

	dropped := a.Resync()
	assert.Equal(t, len(garbage), dropped)

	frame, ok := a.Next()
	require.True(t, ok)
	assert.Equal(t, payload, frame.Payload)
}

func TestAck_EchoesChecksumVerbatim(t *testing.T) {
	ack := Ack(0x1234)
	require.Len(t, ack, 3)
	assert.Equal(t, byte(ackByte), ack[0])
	assert.EqualValues(t, 0x1234, binary.LittleEndian.Uint16(ack[1:]))
}

func TestCRC16Modbus_KnownVector(t *testing.T) {
	// "123456789" -> 0x4B37 is a commonly cited Modbus CRC-16 test vector.
	got := CRC16Modbus([]byte("123456789"))
	assert.EqualValues(t, 0x4B37, got)
}
