package nmea

import (
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
)

// minFrameLen is "$" + 5-char address + "*" + 2 hex digits.
const minFrameLen = 9

// Validate checks the framing and checksum of one NMEA line and returns the
// comma-split payload. Field 0 is the address (talker + sentence ID); empty
// fields are kept as empty strings. Trailing CR/LF is tolerated.
//
// Validate never interprets fields: a line that fails here must not be decoded.
func Validate(line string) ([]string, error) {
	raw := line
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	if line == "" {
		return nil, frameError(raw, "empty line")
	}
	if line[0] != '$' && line[0] != '!' {
		return nil, frameError(raw, "missing start delimiter")
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return nil, frameError(raw, "missing checksum delimiter")
	}
	ck := line[star+1:]
	if len(ck) != 2 || !isHexDigit(ck[0]) || !isHexDigit(ck[1]) {
		return nil, frameError(raw, "checksum must be two hex digits")
	}
	if len(line) < minFrameLen {
		return nil, frameError(raw, "short frame")
	}

	payload := line[1:star]
	want := strings.ToUpper(ck)
	if got := gonmea.Checksum(payload); got != want {
		return nil, &Error{
			Kind:     ErrChecksumMismatch,
			Sentence: address(payload),
			Field:    -1,
			Line:     raw,
			Reason:   "computed " + got + " transmitted " + want,
		}
	}
	return strings.Split(payload, ","), nil
}

// Frame wraps a payload (without '$') into a complete sentence with checksum.
func Frame(payload string) string {
	return "$" + payload + "*" + gonmea.Checksum(payload)
}

func address(payload string) string {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		return payload[:i]
	}
	return payload
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
