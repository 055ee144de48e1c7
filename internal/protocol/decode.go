package protocol

import (
	"encoding/binary"
	"fmt"
)

// DecodedValue is the result of decoding one tag's payload. Concrete
// types are Integer, Coord, SpeedDir, MercuryValue and Raw; a type
// switch on the returned value picks the right shape.
type DecodedValue interface {
	isDecodedValue()
}

// Integer is a little-endian integer reading, signed or unsigned
// depending on the source tag's catalog entry (archive number,
// timestamp, voltages, device status words, analog inputs,
// thermometers, odometer, altitude, temperature).
type Integer struct {
	Value int64
}

// Coord is tag 0x30: latitude/longitude plus fix quality.
type Coord struct {
	Satellites  uint8
	Correctness uint8
	Latitude    float64
	Longitude   float64
}

// SpeedDir is tag 0x33: speed in km/h and heading in degrees.
type SpeedDir struct {
	SpeedKmh    float64
	DirectionDeg float64
}

// MercuryValue wraps a decoded Mercury 230 reading, found inside a
// TagUserData (0xEA) payload.
type MercuryValue struct {
	Reading Mercury230
}

// Raw is the fallback: a payload nothing above knows how to interpret
// structurally, kept as uppercase hex.
type Raw struct {
	Hex string
}

func (Integer) isDecodedValue()      {}
func (Coord) isDecodedValue()        {}
func (SpeedDir) isDecodedValue()     {}
func (MercuryValue) isDecodedValue() {}
func (Raw) isDecodedValue()          {}

func rawHex(b []byte) Raw { return Raw{Hex: fmt.Sprintf("%X", b)} }

// Decode interprets a single parsed tag's payload per the catalog's
// documented encoding. It never fails outright: a payload that doesn't
// match its tag's expected shape falls back to Raw.
func Decode(tag byte, data []byte) DecodedValue {
	switch tag {
	case TagUserData:
		return decodeUserData(data)
	case TagExtended:
		return rawHex(data)
	case 0x30:
		return decodeCoord(data)
	case 0x33:
		return decodeSpeedDir(data)
	case 0x10, 0x21, 0x40, 0x41, 0x42, 0x48,
		0x50, 0x51, 0x52, 0x53, 0x54, 0x55:
		return decodeUint(data, 2)
	case 0x20, 0xD4:
		return decodeUint(data, 4)
	case 0x34:
		return decodeInt16(data)
	case 0x35, 0x49:
		return decodeUint(data, 1)
	case 0x43:
		return decodeInt8(data)
	case 0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77:
		return decodeUint(data, 2)
	default:
		return rawHex(data)
	}
}

func decodeUint(data []byte, width int) DecodedValue {
	if len(data) != width {
		return rawHex(data)
	}
	switch width {
	case 1:
		return Integer{Value: int64(data[0])}
	case 2:
		return Integer{Value: int64(binary.LittleEndian.Uint16(data))}
	case 4:
		return Integer{Value: int64(binary.LittleEndian.Uint32(data))}
	default:
		return rawHex(data)
	}
}

func decodeInt8(data []byte) DecodedValue {
	if len(data) != 1 {
		return rawHex(data)
	}
	return Integer{Value: int64(int8(data[0]))}
}

func decodeInt16(data []byte) DecodedValue {
	if len(data) != 2 {
		return rawHex(data)
	}
	return Integer{Value: int64(int16(binary.LittleEndian.Uint16(data)))}
}

func decodeUserData(data []byte) DecodedValue {
	if len(data) == MercuryBlobLen && data[0] == MercurySubTag {
		if m, ok := DecodeMercury230(data); ok {
			return MercuryValue{Reading: m}
		}
	}
	return rawHex(data)
}

// decodeCoord matches the 9-byte layout: lat/lon as signed 32-bit
// fixed-point degrees*1e-6, followed by a status byte packing satellite
// count in its low nibble and fix correctness in its high nibble.
func decodeCoord(data []byte) DecodedValue {
	if len(data) != 9 {
		return rawHex(data)
	}
	lat := int32(binary.LittleEndian.Uint32(data[0:4]))
	lon := int32(binary.LittleEndian.Uint32(data[4:8]))
	status := data[8]
	return Coord{
		Satellites:  status & 0x0F,
		Correctness: (status >> 4) & 0x0F,
		Latitude:    float64(lat) / 1e6,
		Longitude:   float64(lon) / 1e6,
	}
}

func decodeSpeedDir(data []byte) DecodedValue {
	if len(data) != 4 {
		return rawHex(data)
	}
	speedRaw := binary.LittleEndian.Uint16(data[0:2])
	dirRaw := binary.LittleEndian.Uint16(data[2:4])
	return SpeedDir{
		SpeedKmh:     float64(speedRaw) / 10,
		DirectionDeg: float64(dirRaw) / 10,
	}
}
