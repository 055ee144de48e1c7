package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMercury230_RejectsWrongLength(t *testing.T) {
	_, ok := DecodeMercury230(make([]byte, MercuryBlobLen-1))
	assert.False(t, ok)
}

func TestDecodeMercury230_RejectsWrongLeadingByte(t *testing.T) {
	b := make([]byte, MercuryBlobLen)
	b[0] = 0x03
	_, ok := DecodeMercury230(b)
	assert.False(t, ok)
}

func TestDecodeMercury230_FieldLayout(t *testing.T) {
	b := make([]byte, MercuryBlobLen)
	b[0] = MercurySubTag
	b[1] = 0x07 // address
	b[2] = 0x00 // status

	// Reactive power sum: power3 reads (b2<<8|b1)/100, field at b[3:6].
	b[3], b[4], b[5] = 0x00, 0x10, 0x00 // b1=0x10, b2=0x00 -> 16/100 = 0.16

	// Voltage U1 at b[36:39]: swap23 = b0<<16|b2<<8|b1, /100.
	b[36], b[37], b[38] = 0x00, 0x94, 0x00 // b0=0,b1=0x94,b2=0 -> value=0x94=148 -> 1.48... but formula uses b0<<16|b2<<8|b1
	// value = 0<<16 | 0<<8 | 0x94 = 148 -> /100 = 1.48

	// Energy active forward at b[77:81]: value=b1<<24|b0<<16|b3<<8|b2, /1000.
	b[77], b[78], b[79], b[80] = 0x00, 0x00, 0x00, 0x01 // b0=0,b1=0,b2=0,b3=1 -> value = 0<<24|0<<16|1<<8|0 = 256 -> /1000=0.256

	m, ok := DecodeMercury230(b)
	require.True(t, ok)
	assert.EqualValues(t, 0x07, m.Address)
	assert.InDelta(t, 0.16, m.ReactivePowerSum, 1e-9)
	assert.InDelta(t, 1.48, m.VoltageU1, 1e-9)
	assert.InDelta(t, 0.256, m.EnergyActiveForwardKwh, 1e-9)
}

func TestDecode_UserDataDispatchesToMercury(t *testing.T) {
	blob := make([]byte, MercuryBlobLen)
	blob[0] = MercurySubTag

	v := Decode(TagUserData, blob)
	mv, ok := v.(MercuryValue)
	require.True(t, ok, "expected MercuryValue, got %T", v)
	assert.EqualValues(t, 0, mv.Reading.Address)
}

func TestDecode_UserDataFallsBackToRaw(t *testing.T) {
	v := Decode(TagUserData, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	raw, ok := v.(Raw)
	require.True(t, ok, "expected Raw, got %T", v)
	assert.Equal(t, "DEADBEEF", raw.Hex)
}

func TestDecode_ExtendedAlwaysRaw(t *testing.T) {
	v := Decode(TagExtended, []byte{0x01, 0x02})
	_, ok := v.(Raw)
	assert.True(t, ok)
}

func TestDecode_Integer(t *testing.T) {
	v := Decode(0x35, []byte{0x05})
	i, ok := v.(Integer)
	require.True(t, ok)
	assert.EqualValues(t, 5, i.Value)
}
