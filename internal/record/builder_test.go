package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galileosky/mercury-gateway/internal/protocol"
)

func TestBuild_FallbackWithoutMercury(t *testing.T) {
	decoded := []Decoded{
		{Tag: 0x35, Value: protocol.Integer{Value: 5}},
	}
	rec, err := Build(decoded, "10.0.0.1:5555", time.Unix(0, 0).UTC())
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:5555", rec["source_addr"])
	tags, ok := rec["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(5), tags["0x35"])
	_, hasMercuryID := rec["mercury_id"]
	assert.False(t, hasMercuryID)
}

func TestBuild_MercuryRecordShape(t *testing.T) {
	m := protocol.Mercury230{
		Address:        12,
		Status:         1,
		VoltageU1:      230.1,
		VoltageU2:      231.2,
		VoltageU3:      229.9,
		CurrentI1:      1.5,
		CurrentI2:      1.6,
		CurrentI3:      1.4,
		PowerFactorP1:  0.9,
		PowerFactorP2:  0.91,
		PowerFactorP3:  0.92,
		PowerFactorSum: 0.91,
		ActivePowerP1:  100,
		ActivePowerP2:  101,
		ActivePowerP3:  102,
		FrequencyHz:    50.0,
	}
	decoded := []Decoded{
		{Tag: protocol.TagUserData, Value: protocol.MercuryValue{Reading: m}},
		{Tag: 0x50, Value: protocol.Integer{Value: 1}},
		{Tag: 0x70, Value: protocol.Integer{Value: 215}},
	}

	rec, err := Build(decoded, "10.0.0.1:5555", time.Unix(0, 0).UTC())
	require.NoError(t, err)

	assert.Equal(t, "12", rec["mercury_id"])
	assert.Equal(t, UnknownIMEI, rec["imei"])
	assert.Equal(t, 230.1, rec["galileosky_mercury_u1"])
	assert.Equal(t, int64(1), rec["enter0"])
	assert.Equal(t, int64(215), rec["galileosky_temp0"])
	assert.NotContains(t, rec, "enter1")
}

func TestBuild_MercuryDecodeFailureRoutesToErrorPath(t *testing.T) {
	decoded := []Decoded{
		{Tag: protocol.TagUserData, Value: protocol.Raw{Hex: "DEAD"}},
		{Tag: 0x35, Value: protocol.Integer{Value: 2}},
	}

	rec, err := Build(decoded, "10.0.0.1:5555", time.Unix(0, 0).UTC())

	require.ErrorIs(t, err, ErrMercuryDecodeFailed)
	tags, ok := rec["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DEAD", tags["0xEA"])
}

func TestNormalizeEnergy_SentinelBecomesNil(t *testing.T) {
	assert.Nil(t, normalizeEnergy(4294967.295))
}

func TestNormalizeEnergy_RealValuePassesThrough(t *testing.T) {
	assert.Equal(t, 12.345, normalizeEnergy(12.345))
}

func TestNormalizePowerFactor_CorrectsPreDivisionValue(t *testing.T) {
	got := normalizePowerFactor(4195.3)
	assert.InDelta(t, 1.024, got, 0.001)
}

func TestNormalizePowerFactor_ClampsOtherwiseHighValues(t *testing.T) {
	got := normalizePowerFactor(1.5)
	assert.Equal(t, 1.0, got)
}

func TestNormalizePowerFactor_PassesThroughNormalRange(t *testing.T) {
	got := normalizePowerFactor(0.873)
	assert.InDelta(t, 0.873, got, 0.001)
}
