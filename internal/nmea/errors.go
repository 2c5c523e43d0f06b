package nmea

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame      = errors.New("malformed frame")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrUnsupportedTalker   = errors.New("unsupported talker")
	ErrUnsupportedSentence = errors.New("unsupported sentence")
	ErrFieldCountMismatch  = errors.New("field count mismatch")
	ErrInvalidField        = errors.New("invalid field")
)

// Error describes why one line was rejected.
//
// Kind is one of the Err* sentinels and is what errors.Is matches against.
// Field is the payload index of the offending field (address is 0) or -1 when
// the error is not about a single field.
type Error struct {
	Kind     error
	Sentence string
	Field    int
	Line     string
	Reason   string
}

func (e *Error) Error() string {
	msg := "nmea: " + e.Kind.Error()
	if e.Sentence != "" {
		msg += " sentence=" + e.Sentence
	}
	if e.Field >= 0 {
		msg += fmt.Sprintf(" field=%d", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func frameError(line, reason string) *Error {
	return &Error{Kind: ErrMalformedFrame, Field: -1, Line: line, Reason: reason}
}

func fieldError(sentence string, field int, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidField, Sentence: sentence, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// KindName returns a short stable name for the error class of err, suitable
// for counters and log keys. Errors that are not *Error map to "other".
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, ErrUnsupportedTalker):
		return "unsupported_talker"
	case errors.Is(err, ErrUnsupportedSentence):
		return "unsupported_sentence"
	case errors.Is(err, ErrFieldCountMismatch):
		return "field_count_mismatch"
	case errors.Is(err, ErrInvalidField):
		return "invalid_field"
	default:
		return "other"
	}
}

// Informational reports whether err only signals a sentence outside current
// coverage rather than a defect in the line.
func Informational(err error) bool {
	return errors.Is(err, ErrUnsupportedTalker) || errors.Is(err, ErrUnsupportedSentence)
}
