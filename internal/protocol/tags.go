// Package protocol implements the Galileosky wire format: frame assembly,
// the tag-stream parser, per-tag value decoders, and the Mercury 230
// sub-decoder. Every type here is a pure value; nothing in this package
// blocks or holds a connection.
package protocol

import "fmt"

// Length-prefixed tag ids. Every other id in the catalog carries a fixed
// payload length.
const (
	TagUserData    byte = 0xEA // payload length is the following byte
	TagExtended    byte = 0xFE // payload length is the following 2 bytes, little-endian
	MercurySubTag  byte = 0x02 // required leading byte of a TagUserData Mercury 230 blob
	MercuryBlobLen      = 93
)

// TagDescriptor is a static catalog entry. Length is meaningless (and
// unused) for the two length-prefixed ids.
type TagDescriptor struct {
	ID          byte
	Length      int
	Description string
}

// Catalog is the process-global, read-only tag table. Built once at
// package init and never mutated afterwards.
var Catalog = buildCatalog()

func buildCatalog() map[byte]TagDescriptor {
	c := map[byte]TagDescriptor{
		0x10: {0x10, 2, "archive record number"},
		0x20: {0x20, 4, "date and time (unix time)"},
		0x21: {0x21, 2, "milliseconds"},
		0x30: {0x30, 9, "coordinates, satellite count, fix status"},
		0x33: {0x33, 4, "speed and direction"},
		0x34: {0x34, 2, "altitude"},
		0x35: {0x35, 1, "HDOP"},
		0x40: {0x40, 2, "device status"},
		0x41: {0x41, 2, "supply voltage (mV)"},
		0x42: {0x42, 2, "battery voltage (mV)"},
		0x43: {0x43, 1, "terminal temperature (C)"},
		0x45: {0x45, 2, "output state"},
		0x46: {0x46, 2, "input alarm state"},
		0x48: {0x48, 2, "extended device status"},
		0x49: {0x49, 1, "transmission channel"},
		0x63: {0x63, 3, "RS485[3] fuel level sensor"},
		0xD4: {0xD4, 4, "total GPS odometer (m)"},
		TagUserData: {TagUserData, 1, "user data block (length-prefixed)"},
		TagExtended: {TagExtended, 2, "extended tag (2-byte length-prefixed)"},
	}

	for i := 0; i <= 5; i++ {
		id := byte(0x50 + i)
		c[id] = TagDescriptor{id, 2, fmt.Sprintf("analog input %d (mV)", i)}
	}

	// 0x70..0x77 are eight independent thermometer channels. The original
	// vendor tooling's tag table copy-pasted the description of 0x71 onto
	// 0x72..0x77; the behaviour (fixed length 2, u16-le decode) is what
	// matters and is what every entry below gets, with its own accurate
	// description.
	for i := 0; i <= 7; i++ {
		id := byte(0x70 + i)
		c[id] = TagDescriptor{id, 2, fmt.Sprintf("thermometer %d id and reading (C)", i)}
	}

	return c
}

// Lookup returns the descriptor for id and whether it is known.
func Lookup(id byte) (TagDescriptor, bool) {
	d, ok := Catalog[id]
	return d, ok
}
