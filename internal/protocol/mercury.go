package protocol

// Mercury230 is a single decoded reading from a Mercury 230 AR-03 R
// three-phase electricity meter, as relayed inside a TagUserData (0xEA)
// payload. Field names follow the meter's own terminology; units are
// noted per field.
type Mercury230 struct {
	Address uint8
	Status  uint8

	ReactivePowerSum float64 // VAr
	ReactivePowerP1  float64
	ReactivePowerP2  float64
	ReactivePowerP3  float64

	ActivePowerSum float64 // W
	ActivePowerP1  float64
	ActivePowerP2  float64
	ActivePowerP3  float64

	AngleP1P2 float64 // degrees
	AngleP2P3 float64
	AngleP1P3 float64

	VoltageU1 float64 // V
	VoltageU2 float64
	VoltageU3 float64

	CurrentI1 float64 // A
	CurrentI2 float64
	CurrentI3 float64

	PowerFactorSum float64
	PowerFactorP1  float64
	PowerFactorP2  float64
	PowerFactorP3  float64

	DistortionP1 float64 // %
	DistortionP2 float64
	DistortionP3 float64

	FrequencyHz float64
	TemperatureC int

	EnergyActiveForwardKwh    float64
	EnergyActiveReverseKwh    float64
	EnergyReactiveForwardKvah float64
	EnergyReactiveReverseKvah float64
}

// power3 decodes a 3-byte power field: value = (b2<<8|b1) / 100.
// The meter emits these with the low and high bytes of the 16-bit
// magnitude swapped relative to their position, hence taking b[1] and
// b[2] rather than b[0] and b[1].
func power3(b []byte) float64 {
	val := uint16(b[2])<<8 | uint16(b[1])
	return float64(val) / 100.0
}

// powerFactor3 is power3's sibling for power-factor fields, which carry
// three more decimal digits of precision.
func powerFactor3(b []byte) float64 {
	val := uint16(b[2])<<8 | uint16(b[1])
	return float64(val) / 1000.0
}

// swap23 decodes a 3-byte field whose middle and last byte are swapped
// relative to natural big-endian order: value = b0<<16 | b2<<8 | b1.
// Used for angles, voltages, currents and frequency.
func swap23(b []byte) int {
	return int(b[0])<<16 | int(b[2])<<8 | int(b[1])
}

// swap2 decodes a 2-byte field with its bytes swapped: value = b1<<8|b0.
// Used for distortion and temperature.
func swap2(b []byte) int {
	return int(b[1])<<8 | int(b[0])
}

// energy4 decodes a 4-byte energy counter with a meter-specific byte
// order: value = b1<<24 | b0<<16 | b3<<8 | b2, scaled by /1000.
func energy4(b []byte) float64 {
	val := uint32(b[1])<<24 | uint32(b[0])<<16 | uint32(b[3])<<8 | uint32(b[2])
	return float64(val) / 1000.0
}

// DecodeMercury230 parses the fixed 93-byte Mercury 230 blob. The blob
// must start with MercurySubTag (0x02); any other leading byte, or any
// length other than MercuryBlobLen, is rejected so the caller falls back
// to a raw-hex rendering instead of emitting bogus readings.
func DecodeMercury230(b []byte) (Mercury230, bool) {
	if len(b) != MercuryBlobLen || b[0] != MercurySubTag {
		return Mercury230{}, false
	}

	m := Mercury230{
		Address: b[1],
		Status:  b[2],

		ReactivePowerSum: power3(b[3:6]),
		ReactivePowerP1:  power3(b[6:9]),
		ReactivePowerP2:  power3(b[9:12]),
		ReactivePowerP3:  power3(b[12:15]),

		ActivePowerSum: power3(b[15:18]),
		ActivePowerP1:  power3(b[18:21]),
		ActivePowerP2:  power3(b[21:24]),
		ActivePowerP3:  power3(b[24:27]),

		AngleP1P2: float64(swap23(b[27:30])) / 100.0,
		AngleP2P3: float64(swap23(b[30:33])) / 100.0,
		AngleP1P3: float64(swap23(b[33:36])) / 100.0,

		VoltageU1: float64(swap23(b[36:39])) / 100.0,
		VoltageU2: float64(swap23(b[39:42])) / 100.0,
		VoltageU3: float64(swap23(b[42:45])) / 100.0,

		CurrentI1: float64(swap23(b[45:48])) / 1000.0,
		CurrentI2: float64(swap23(b[48:51])) / 1000.0,
		CurrentI3: float64(swap23(b[51:54])) / 1000.0,

		PowerFactorSum: powerFactor3(b[54:57]),
		PowerFactorP1:  powerFactor3(b[57:60]),
		PowerFactorP2:  powerFactor3(b[60:63]),
		PowerFactorP3:  powerFactor3(b[63:66]),

		DistortionP1: float64(swap2(b[66:68])) / 100.0,
		DistortionP2: float64(swap2(b[68:70])) / 100.0,
		DistortionP3: float64(swap2(b[70:72])) / 100.0,

		FrequencyHz:  float64(swap23(b[72:75])) / 100.0,
		TemperatureC: swap2(b[75:77]),

		EnergyActiveForwardKwh:    energy4(b[77:81]),
		EnergyActiveReverseKwh:    energy4(b[81:85]),
		EnergyReactiveForwardKvah: energy4(b[85:89]),
		EnergyReactiveReverseKvah: energy4(b[89:93]),
	}

	return m, true
}
