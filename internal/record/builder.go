// Package record turns a parsed, decoded packet into the flat,
// sink-facing shape documented for the JSON Lines / NATS / Avro sinks.
// Every function here is pure: no I/O, no session state, no clock other
// than what the caller passes in.
package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/galileosky/mercury-gateway/internal/protocol"
)

// UnknownIMEI is the placeholder identity used until a future device
// registration/auth layer can populate Record.IMEI from the session.
const UnknownIMEI = "unknown"

// ErrMercuryDecodeFailed is returned by Build when a packet carried an
// 0xEA user-data tag whose payload did not decode into a valid Mercury
// 230 reading (wrong length or leading byte, so the tag decoder fell
// back to raw hex instead of producing a MercuryValue).
var ErrMercuryDecodeFailed = errors.New("record: user-data tag present but not a valid Mercury 230 reading")

// Decoded pairs a parsed tag with its decoded value, the unit of input
// the builder works from.
type Decoded struct {
	Tag   byte
	Value protocol.DecodedValue
}

// Build maps one packet's decoded tags to a sink record. sourceAddr is
// the peer's address, used only in the generic fallback shape. When the
// packet carried an 0xEA tag that failed to decode into a Mercury
// reading, Build still returns the best-effort fallback shape alongside
// ErrMercuryDecodeFailed so the caller can route it to an error sink.
func Build(decoded []Decoded, sourceAddr string, receivedAt time.Time) (map[string]any, error) {
	mercury, rest, failed := splitMercury(decoded)
	if failed {
		return buildFallback(rest, sourceAddr, receivedAt), ErrMercuryDecodeFailed
	}
	if mercury == nil {
		return buildFallback(rest, sourceAddr, receivedAt), nil
	}
	return buildMercuryRecord(*mercury, rest, receivedAt), nil
}

// splitMercury pulls the Mercury reading (if any) out of decoded,
// returning the remaining tags separately. failed is true when an
// 0xEA tag is present but its value isn't a MercuryValue.
func splitMercury(decoded []Decoded) (mercury *protocol.Mercury230, rest []Decoded, failed bool) {
	rest = make([]Decoded, 0, len(decoded))
	for _, d := range decoded {
		if d.Tag == protocol.TagUserData {
			if mv, ok := d.Value.(protocol.MercuryValue); ok && mercury == nil {
				r := mv.Reading
				mercury = &r
				continue
			}
			failed = true
			rest = append(rest, d)
			continue
		}
		rest = append(rest, d)
	}
	return mercury, rest, failed
}

func buildFallback(decoded []Decoded, sourceAddr string, receivedAt time.Time) map[string]any {
	tags := make(map[string]any, len(decoded))
	for _, d := range decoded {
		tags[fmt.Sprintf("0x%02X", d.Tag)] = decodedToJSON(d.Value)
	}
	return map[string]any{
		"_received_at": receivedAt.Format(time.RFC3339),
		"source_addr":  sourceAddr,
		"tags":         tags,
	}
}

func decodedToJSON(v protocol.DecodedValue) any {
	switch dv := v.(type) {
	case protocol.Integer:
		return dv.Value
	case protocol.Coord:
		return map[string]any{
			"lat":         dv.Latitude,
			"lon":         dv.Longitude,
			"satellites":  dv.Satellites,
			"correctness": dv.Correctness,
		}
	case protocol.SpeedDir:
		return map[string]any{
			"speed_kmh":     dv.SpeedKmh,
			"direction_deg": dv.DirectionDeg,
		}
	case protocol.Raw:
		return dv.Hex
	default:
		return nil
	}
}

// normalizeEnergy returns nil for the meter's documented "no data"
// sentinel (0xFFFFFFFF / 1000), and the value rounded to three decimals
// otherwise. Only
// `pa_plus` (forward active energy) is checked because it's the only
// energy field the flat schema exposes.
func normalizeEnergy(v float64) any {
	const sentinel = 4294967.295
	if diff := v - sentinel; diff < 0.001 && diff > -0.001 {
		return nil
	}
	return round3(v)
}

// normalizePowerFactor corrects a power factor the meter reported as a
// pre-division raw register value (anything above 1.0 and within 0.1 of
// 4195.3) by dividing it by 4096; that corrected value (about 1.024) is
// returned as is, not clamped. Any other value above 1.0 is clamped to
// 1.0, and the rest are rounded to three decimals.
func normalizePowerFactor(v float64) float64 {
	if v > 1.0 {
		if diff := v - 4195.3; diff < 0.1 && diff > -0.1 {
			return round3(v / 4096)
		}
	}
	if v > 1.0 {
		return 1.0
	}
	return round3(v)
}

func round3(v float64) float64 {
	return float64(int64(v*1000+sign(v)*0.5)) / 1000
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func buildMercuryRecord(m protocol.Mercury230, rest []Decoded, receivedAt time.Time) map[string]any {
	pf1 := normalizePowerFactor(m.PowerFactorP1)
	pf2 := normalizePowerFactor(m.PowerFactorP2)
	pf3 := normalizePowerFactor(m.PowerFactorP3)
	pfs := normalizePowerFactor(m.PowerFactorSum)

	ps := (m.CurrentI1*m.VoltageU1*pf1 +
		m.CurrentI2*m.VoltageU2*pf2 +
		m.CurrentI3*m.VoltageU3*pf3) * 300 / 1000

	rec := map[string]any{
		"_received_at": receivedAt.Format(time.RFC3339),
		"mercury_id":   fmt.Sprintf("%d", m.Address),
		"imei":         UnknownIMEI,

		"galileosky_mercury_state": m.Status,
		"galileosky_mercury_f":     round3(m.FrequencyHz),

		"galileosky_mercury_u1": round3(m.VoltageU1),
		"galileosky_mercury_u2": round3(m.VoltageU2),
		"galileosky_mercury_u3": round3(m.VoltageU3),

		"galileosky_mercury_i1": round3(m.CurrentI1),
		"galileosky_mercury_i2": round3(m.CurrentI2),
		"galileosky_mercury_i3": round3(m.CurrentI3),

		"galileosky_mercury_a12": round3(m.AngleP1P2),
		"galileosky_mercury_a23": round3(m.AngleP2P3),
		"galileosky_mercury_a13": round3(m.AngleP1P3),

		"galileosky_mercury_p1": round3(m.ActivePowerP1),
		"galileosky_mercury_p2": round3(m.ActivePowerP2),
		"galileosky_mercury_p3": round3(m.ActivePowerP3),
		"galileosky_mercury_ps": round3(ps),

		"galileosky_mercury_pa_plus": normalizeEnergy(m.EnergyActiveForwardKwh),

		"galileosky_mercury_ks1": pf1,
		"galileosky_mercury_ks2": pf2,
		"galileosky_mercury_ks3": pf3,
		"galileosky_mercury_kss": pfs,

		"galileosky_mercury_kg1": round3(m.DistortionP1),
		"galileosky_mercury_kg2": round3(m.DistortionP2),
		"galileosky_mercury_kg3": round3(m.DistortionP3),
	}

	applyCoFrameTags(rec, rest)
	return rec
}

// applyCoFrameTags correlates the Mercury reading with whichever of the
// analog inputs, output/input state, and thermometer tags appear in the
// same packet. Tags absent from the packet leave no key, per the
// builder's documented contract.
func applyCoFrameTags(rec map[string]any, rest []Decoded) {
	for _, d := range rest {
		switch {
		case d.Tag >= 0x50 && d.Tag <= 0x53:
			rec[fmt.Sprintf("enter%d", d.Tag-0x50)] = integerValue(d.Value)
		case d.Tag == 0x45:
			rec["0x45"] = integerValue(d.Value)
		case d.Tag == 0x46:
			rec["0x46"] = integerValue(d.Value)
		case d.Tag >= 0x70 && d.Tag <= 0x77:
			rec[fmt.Sprintf("galileosky_temp%d", d.Tag-0x70)] = integerValue(d.Value)
		}
	}
}

func integerValue(v protocol.DecodedValue) any {
	if i, ok := v.(protocol.Integer); ok {
		return i.Value
	}
	return decodedToJSON(v)
}
