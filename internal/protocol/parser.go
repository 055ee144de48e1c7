package protocol

// ParseTags walks a frame payload as a stream of tags, returning every
// tag it could extract plus any bytes it had to skip to keep going.
//
// On a truncated or unknown tag, only the single tag byte that failed is
// treated as garbage: the cursor backs up to just past that byte and
// parsing resumes from there. This mirrors how the terminal's own
// transmissions recover from a dropped byte mid-stream, and keeps one
// corrupt tag from discarding the rest of an otherwise-good packet.
func ParseTags(payload []byte) ParsedPacket {
	var packet ParsedPacket
	i := 0

	for i < len(payload) {
		tag := payload[i]
		n, ok := tryParseOne(payload, i)
		if !ok {
			packet.SkippedBytes = append(packet.SkippedBytes, tag)
			i++
			continue
		}
		packet.Tags = append(packet.Tags, n.ParsedTag)
		i = n.next
	}

	return packet
}

type parsedOne struct {
	ParsedTag
	next int
}

// tryParseOne attempts to parse exactly one tag starting at payload[i].
// It returns ok=false (never panicking) when the payload is too short to
// hold the tag's declared length.
func tryParseOne(payload []byte, i int) (parsedOne, bool) {
	tag := payload[i]
	i++

	switch tag {
	case TagUserData:
		if i >= len(payload) {
			return parsedOne{}, false
		}
		length := int(payload[i])
		i++
		if i+length > len(payload) {
			return parsedOne{}, false
		}
		data := payload[i : i+length]
		return parsedOne{ParsedTag{Tag: tag, Data: data}, i + length}, true

	case TagExtended:
		if i+2 > len(payload) {
			return parsedOne{}, false
		}
		length := int(payload[i]) | int(payload[i+1])<<8
		i += 2
		if i+length > len(payload) {
			return parsedOne{}, false
		}
		data := payload[i : i+length]
		return parsedOne{ParsedTag{Tag: tag, Data: data}, i + length}, true

	default:
		desc, known := Lookup(tag)
		if !known {
			return parsedOne{}, false
		}
		if i+desc.Length > len(payload) {
			return parsedOne{}, false
		}
		data := payload[i : i+desc.Length]
		return parsedOne{ParsedTag{Tag: tag, Data: data}, i + desc.Length}, true
	}
}
