package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fields wraps a validated payload for one decode pass. All accessors take
// payload indices (address is 0) and report failures as InvalidField errors
// naming that index.
type fields struct {
	id string
	f  []string
}

func (d fields) str(i int) string {
	if i >= len(d.f) {
		return ""
	}
	return strings.TrimSpace(d.f[i])
}

func (d fields) invalid(i int, format string, args ...any) error {
	return fieldError(d.id, i, format, args...)
}

// float parses a decimal number. Empty fields return nil.
func (d fields) float(i int, signed bool) (*float64, error) {
	s := d.str(i)
	if s == "" {
		return nil, nil
	}
	if !isDecimal(s, signed) {
		return nil, d.invalid(i, "not a number %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, d.invalid(i, "not a number %q", s)
	}
	return &v, nil
}

// floatRange parses an optional number and checks lo <= v < hi (hi inclusive
// when closed is set).
func (d fields) floatRange(i int, lo, hi float64, closed bool) (*float64, error) {
	v, err := d.float(i, lo < 0)
	if err != nil || v == nil {
		return v, err
	}
	if *v < lo || *v > hi || (!closed && *v == hi) {
		return nil, d.invalid(i, "%v out of range", *v)
	}
	return v, nil
}

// intRange parses an optional integer in [lo, hi]. Empty fields return nil.
func (d fields) intRange(i int, lo, hi int) (*int, error) {
	s := d.str(i)
	if s == "" {
		return nil, nil
	}
	if !isDigits(s) {
		return nil, d.invalid(i, "not an integer %q", s)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, d.invalid(i, "not an integer %q", s)
	}
	if v < lo || v > hi {
		return nil, d.invalid(i, "%d out of range [%d,%d]", v, lo, hi)
	}
	return &v, nil
}

func (d fields) requiredInt(i int, lo, hi int) (int, error) {
	v, err := d.intRange(i, lo, hi)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, d.invalid(i, "empty")
	}
	return *v, nil
}

// letter returns the single-character field at i. It must be one of allowed;
// an empty field returns 0 unless required.
func (d fields) letter(i int, allowed string, required bool) (byte, error) {
	s := d.str(i)
	if s == "" {
		if required {
			return 0, d.invalid(i, "empty")
		}
		return 0, nil
	}
	if len(s) != 1 || strings.IndexByte(allowed, s[0]) == -1 {
		return 0, d.invalid(i, "unexpected %q", s)
	}
	return s[0], nil
}

// latLon decodes a ddmm.mmmm (or dddmm.mmmm) value at i with its hemisphere
// letter at i+1. ok is false when both fields are empty.
func (d fields) latLon(i int, lon bool) (deg float64, ok bool, err error) {
	v, h := d.str(i), d.str(i+1)
	if v == "" && h == "" {
		return 0, false, nil
	}
	pos, neg, limit := byte('N'), byte('S'), 90.0
	if lon {
		pos, neg, limit = 'E', 'W', 180.0
	}
	if len(h) != 1 || (h[0] != pos && h[0] != neg) {
		return 0, false, d.invalid(i+1, "bad hemisphere %q", h)
	}
	if v == "" || !isDecimal(v, false) {
		return 0, false, d.invalid(i, "bad coordinate %q", v)
	}
	raw, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, d.invalid(i, "bad coordinate %q", v)
	}
	degrees := math.Trunc(raw / 100)
	minutes := raw - degrees*100
	if minutes >= 60 {
		return 0, false, d.invalid(i, "minutes %v out of range", minutes)
	}
	deg = degrees + minutes/60
	if deg > limit {
		return 0, false, d.invalid(i, "%v out of range", deg)
	}
	if h[0] == neg {
		deg = -deg
	}
	return deg, true, nil
}

// position decodes lat at i..i+1 and lon at i+2..i+3. It returns nil when all
// four fields are empty.
func (d fields) position(i int) (*Position, error) {
	lat, latOK, err := d.latLon(i, false)
	if err != nil {
		return nil, err
	}
	lon, lonOK, err := d.latLon(i+2, true)
	if err != nil {
		return nil, err
	}
	switch {
	case latOK && lonOK:
		return &Position{Latitude: lat, Longitude: lon}, nil
	case latOK:
		return nil, d.invalid(i+2, "longitude missing")
	case lonOK:
		return nil, d.invalid(i, "latitude missing")
	default:
		return nil, nil
	}
}

// timeOfDay decodes hhmmss[.sss].
func (d fields) timeOfDay(i int) (TimeOfDay, error) {
	s := d.str(i)
	if s == "" {
		return TimeOfDay{}, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) != 6 || !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return TimeOfDay{}, d.invalid(i, "bad time %q", s)
	}
	t := TimeOfDay{Valid: true}
	t.Hour, _ = strconv.Atoi(whole[0:2])
	t.Minute, _ = strconv.Atoi(whole[2:4])
	t.Second, _ = strconv.Atoi(whole[4:6])
	if t.Hour > 23 || t.Minute > 59 || t.Second > 60 {
		return TimeOfDay{}, d.invalid(i, "bad time %q", s)
	}
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, _ := strconv.Atoi(frac)
		for k := len(frac); k < 9; k++ {
			n *= 10
		}
		t.Nanosecond = n
	}
	return t, nil
}

// date decodes ddmmyy.
func (d fields) date(i int) (Date, error) {
	s := d.str(i)
	if s == "" {
		return Date{}, nil
	}
	if len(s) != 6 || !isDigits(s) {
		return Date{}, d.invalid(i, "bad date %q", s)
	}
	out := Date{Valid: true}
	out.Day, _ = strconv.Atoi(s[0:2])
	out.Month, _ = strconv.Atoi(s[2:4])
	yy, _ := strconv.Atoi(s[4:6])
	if out.Day < 1 || out.Day > 31 || out.Month < 1 || out.Month > 12 {
		return Date{}, d.invalid(i, "bad date %q", s)
	}
	if yy < 80 {
		out.Year = 2000 + yy
	} else {
		out.Year = 1900 + yy
	}
	return out, nil
}

// FormatLatitude encodes decimal degrees as an NMEA ddmm.mmmm field and
// hemisphere letter.
func FormatLatitude(deg float64) (string, string) {
	v := formatDegreesMinutes(math.Abs(deg), 2)
	if deg < 0 {
		return v, "S"
	}
	return v, "N"
}

// FormatLongitude encodes decimal degrees as an NMEA dddmm.mmmm field and
// hemisphere letter.
func FormatLongitude(deg float64) (string, string) {
	v := formatDegreesMinutes(math.Abs(deg), 3)
	if deg < 0 {
		return v, "W"
	}
	return v, "E"
}

func formatDegreesMinutes(abs float64, degDigits int) string {
	total := math.Round(abs*60*1e4) / 1e4
	d := math.Floor(total / 60)
	m := total - d*60
	return fmt.Sprintf("%0*d%07.4f", degDigits, int(d), m)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isDecimal accepts [-]digits[.digits] and rejects exponents, NaN and Inf,
// which strconv.ParseFloat would otherwise let through.
func isDecimal(s string, signed bool) bool {
	if signed && strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return false
	}
	if whole != "" && !isDigits(whole) {
		return false
	}
	if hasDot && frac != "" && !isDigits(frac) {
		return false
	}
	return true
}
