package nmea

import (
	"errors"
	"fmt"
	"strings"
)

type decoder struct {
	layout func(n int) bool
	decode func(d fields) (Sentence, error)
}

// decoders is keyed by sentence ID. Supporting another sentence type means
// adding a Sentence implementation and an entry here.
var decoders = map[Kind]decoder{
	KindGGA: {layout: fieldCounts(15), decode: decodeGGA},
	KindRMC: {layout: fieldCounts(12, 13, 14), decode: decodeRMC},
	KindGSA: {layout: fieldCounts(18, 19), decode: decodeGSA},
	KindGSV: {layout: gsvLayout, decode: decodeGSV},
	KindGLL: {layout: fieldCounts(7, 8), decode: decodeGLL},
	KindVTG: {layout: fieldCounts(9, 10), decode: decodeVTG},
}

func fieldCounts(ns ...int) func(int) bool {
	return func(n int) bool {
		for _, want := range ns {
			if n == want {
				return true
			}
		}
		return false
	}
}

// gsvLayout accepts 0..4 satellite groups, optionally followed by a signal ID.
func gsvLayout(n int) bool {
	if n < 4 {
		return false
	}
	rest := n - 4
	return rest/4 <= 4 && (rest%4 == 0 || rest%4 == 1)
}

// Supported reports whether a decoder exists for the sentence ID.
func Supported(k Kind) bool {
	_, ok := decoders[k]
	return ok
}

// Parse validates and decodes one line.
func Parse(line string) (Record, error) {
	f, err := Validate(line)
	if err != nil {
		return Record{}, err
	}
	rec, err := Dispatch(f)
	if err != nil {
		var ne *Error
		if errors.As(err, &ne) && ne.Line == "" {
			ne.Line = line
		}
		return Record{}, err
	}
	return rec, nil
}

// Dispatch decodes a validated payload as returned by Validate.
func Dispatch(f []string) (Record, error) {
	if len(f) == 0 {
		return Record{}, frameError("", "empty payload")
	}
	addr := strings.TrimSpace(f[0])
	if strings.HasPrefix(addr, "P") {
		return Record{}, &Error{Kind: ErrUnsupportedSentence, Sentence: addr, Field: -1, Reason: "proprietary sentence"}
	}
	if len(addr) != 5 {
		return Record{}, &Error{Kind: ErrMalformedFrame, Sentence: addr, Field: 0, Reason: "address must be 5 characters"}
	}
	talker, kind := addr[:2], Kind(addr[2:])

	dec, ok := decoders[kind]
	if !ok {
		return Record{}, &Error{Kind: ErrUnsupportedSentence, Sentence: addr, Field: -1}
	}
	sys, ok := SystemForTalker(talker)
	if !ok {
		return Record{}, &Error{Kind: ErrUnsupportedTalker, Sentence: addr, Field: -1, Reason: "talker " + talker}
	}
	if !dec.layout(len(f)) {
		return Record{}, &Error{Kind: ErrFieldCountMismatch, Sentence: addr, Field: -1, Reason: fmt.Sprintf("got %d fields", len(f))}
	}

	s, err := dec.decode(fields{id: addr, f: f})
	if err != nil {
		return Record{}, err
	}
	rec := Record{System: sys, Talker: talker, Kind: kind, Sentence: s}
	if gsa, ok := s.(GSA); ok && talker == "GN" {
		if owner, ok := gsaSystem(gsa); ok {
			rec.System = owner
		}
	}
	return rec, nil
}

// gsaSystem attributes a combined-talker GSA to one constellation: by the
// explicit system ID when present, else by PRN range when every PRN agrees.
func gsaSystem(g GSA) (System, bool) {
	if g.SystemID != 0 {
		return SystemForID(g.SystemID)
	}
	if len(g.PRNs) == 0 {
		return 0, false
	}
	first, ok := SystemForPRN(g.PRNs[0])
	if !ok {
		return 0, false
	}
	for _, prn := range g.PRNs[1:] {
		if s, ok := SystemForPRN(prn); !ok || s != first {
			return 0, false
		}
	}
	return first, true
}
