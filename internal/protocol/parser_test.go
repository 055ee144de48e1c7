package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags_FixedLengthRoundTrip(t *testing.T) {
	payload := []byte{
		0x10, 0x2A, 0x00, // archive number = 42
		0x35, 0x05, // HDOP
	}
	pkt := ParseTags(payload)
	require.Len(t, pkt.Tags, 2)
	assert.Empty(t, pkt.SkippedBytes)
	assert.Equal(t, byte(0x10), pkt.Tags[0].Tag)
	assert.Equal(t, []byte{0x2A, 0x00}, pkt.Tags[0].Data)
	assert.Equal(t, byte(0x35), pkt.Tags[1].Tag)
}

func TestParseTags_UserDataLengthPrefixed(t *testing.T) {
	blob := make([]byte, MercuryBlobLen)
	blob[0] = MercurySubTag
	payload := append([]byte{TagUserData, byte(len(blob))}, blob...)

	pkt := ParseTags(payload)
	require.Len(t, pkt.Tags, 1)
	assert.Equal(t, TagUserData, pkt.Tags[0].Tag)
	assert.Len(t, pkt.Tags[0].Data, MercuryBlobLen)
}

func TestParseTags_ExtendedTwoByteLength(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	payload := append([]byte{TagExtended, byte(len(data)), 0x00}, data...)

	pkt := ParseTags(payload)
	require.Len(t, pkt.Tags, 1)
	assert.Equal(t, TagExtended, pkt.Tags[0].Tag)
	assert.Equal(t, data, pkt.Tags[0].Data)
}

func TestParseTags_TruncatedTagResyncsPastSingleByte(t *testing.T) {
	// 0x20 declares a 4-byte payload but only 1 byte follows before a
	// valid 0x35 (1-byte) tag. Only the 0x20 tag byte is dropped for the
	// failed tag; parsing resumes at 0xFF, which is not a known tag id and
	// is skipped on its own, and then finds the 0x35 tag.
	payload := []byte{0x20, 0xFF, 0x35, 0x07}
	pkt := ParseTags(payload)

	require.Equal(t, []byte{0x20, 0xFF}, pkt.SkippedBytes)
	require.Len(t, pkt.Tags, 1)
	assert.Equal(t, byte(0x35), pkt.Tags[0].Tag)
}

func TestParseTags_UnknownTagByteSkipped(t *testing.T) {
	payload := []byte{0x99, 0x35, 0x07}
	pkt := ParseTags(payload)

	require.Equal(t, []byte{0x99}, pkt.SkippedBytes)
	require.Len(t, pkt.Tags, 1)
	assert.Equal(t, byte(0x35), pkt.Tags[0].Tag)
}

func TestParseTags_OrderPreserved(t *testing.T) {
	payload := []byte{
		0x35, 0x01,
		0x43, 0x20,
		0x49, 0x02,
	}
	pkt := ParseTags(payload)
	require.Len(t, pkt.Tags, 3)
	assert.Equal(t, []byte{0x35, 0x43, 0x49}, []byte{pkt.Tags[0].Tag, pkt.Tags[1].Tag, pkt.Tags[2].Tag})
}

func TestParseTags_EmptyPayload(t *testing.T) {
	pkt := ParseTags(nil)
	assert.Empty(t, pkt.Tags)
	assert.Empty(t, pkt.SkippedBytes)
}
