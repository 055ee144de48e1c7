// Command galileosky-replay reads a file of whitespace-separated hex
// bytes and runs it through the same tag parser and decoders the
// gateway server uses, printing the decoded tags (and, for a Mercury
// 230 reading, the full measurement) to stdout. It opens no network
// connection.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/galileosky/mercury-gateway/internal/protocol"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <hex-template-file>\n", os.Args[0])
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	payload, err := parseHexTemplate(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing hex template: %v\n", err)
		os.Exit(1)
	}

	packet := protocol.ParseTags(payload)
	if len(packet.SkippedBytes) > 0 {
		fmt.Printf("skipped %d garbage byte(s): %X\n", len(packet.SkippedBytes), packet.SkippedBytes)
	}

	for _, tag := range packet.Tags {
		value := protocol.Decode(tag.Tag, tag.Data)
		printTag(tag.Tag, value)
	}
}

func parseHexTemplate(text string) ([]byte, error) {
	fields := strings.Fields(text)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(f, "0x")
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", f, err)
		}
		out = append(out, byte(b))
	}
	return out, nil
}

func printTag(tag byte, value protocol.DecodedValue) {
	switch v := value.(type) {
	case protocol.MercuryValue:
		printMercury(tag, v.Reading)
	case protocol.Integer:
		fmt.Printf("tag 0x%02X: %d\n", tag, v.Value)
	case protocol.Coord:
		fmt.Printf("tag 0x%02X: lat=%.6f lon=%.6f satellites=%d correctness=%d\n",
			tag, v.Latitude, v.Longitude, v.Satellites, v.Correctness)
	case protocol.SpeedDir:
		fmt.Printf("tag 0x%02X: speed=%.1fkm/h heading=%.1f°\n", tag, v.SpeedKmh, v.DirectionDeg)
	case protocol.Raw:
		fmt.Printf("tag 0x%02X: raw %s\n", tag, v.Hex)
	}
}

func printMercury(tag byte, m protocol.Mercury230) {
	fmt.Printf("tag 0x%02X: Mercury 230 reading (address=%d, status=0x%02X)\n", tag, m.Address, m.Status)
	fmt.Printf("  voltages:  u1=%.2fV u2=%.2fV u3=%.2fV\n", m.VoltageU1, m.VoltageU2, m.VoltageU3)
	fmt.Printf("  currents:  i1=%.3fA i2=%.3fA i3=%.3fA\n", m.CurrentI1, m.CurrentI2, m.CurrentI3)
	fmt.Printf("  angles:    a12=%.2f° a23=%.2f° a13=%.2f°\n", m.AngleP1P2, m.AngleP2P3, m.AngleP1P3)
	fmt.Printf("  active power:   sum=%.2fW p1=%.2f p2=%.2f p3=%.2f\n",
		m.ActivePowerSum, m.ActivePowerP1, m.ActivePowerP2, m.ActivePowerP3)
	fmt.Printf("  reactive power: sum=%.2fVAr p1=%.2f p2=%.2f p3=%.2f\n",
		m.ReactivePowerSum, m.ReactivePowerP1, m.ReactivePowerP2, m.ReactivePowerP3)
	fmt.Printf("  power factor:   sum=%.3f p1=%.3f p2=%.3f p3=%.3f\n",
		m.PowerFactorSum, m.PowerFactorP1, m.PowerFactorP2, m.PowerFactorP3)
	fmt.Printf("  distortion: p1=%.2f%% p2=%.2f%% p3=%.2f%%\n", m.DistortionP1, m.DistortionP2, m.DistortionP3)
	fmt.Printf("  frequency: %.2fHz  temperature: %dC\n", m.FrequencyHz, m.TemperatureC)
	fmt.Printf("  energy: A+=%.3fkWh A-=%.3fkWh R+=%.3fkVArh R-=%.3fkVArh\n",
		m.EnergyActiveForwardKwh, m.EnergyActiveReverseKwh, m.EnergyReactiveForwardKvah, m.EnergyReactiveReverseKvah)
}
