package nmea

import "fmt"

// System identifies a GNSS constellation.
type System int

const (
	GPS System = iota
	GLONASS
	Galileo
	BeiDou
)

// Systems lists every supported constellation in index order.
var Systems = [...]System{GPS, GLONASS, Galileo, BeiDou}

// NumSystems is the number of supported constellations.
const NumSystems = len(Systems)

func (s System) String() string {
	switch s {
	case GPS:
		return "GPS"
	case GLONASS:
		return "GLONASS"
	case Galileo:
		return "GALILEO"
	case BeiDou:
		return "BEIDOU"
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

// Valid reports whether s is one of Systems.
func (s System) Valid() bool { return s >= GPS && s <= BeiDou }

// MarshalText lets System be used as a JSON/YAML value and map key.
func (s System) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// talkerSystems maps talker IDs to constellations. GN is the combined
// multi-constellation talker and is attributed to GPS.
var talkerSystems = map[string]System{
	"GP": GPS,
	"GL": GLONASS,
	"GA": Galileo,
	"GB": BeiDou,
	"BD": BeiDou,
	"GN": GPS,
}

// SystemForTalker resolves a two-character talker ID.
func SystemForTalker(talker string) (System, bool) {
	s, ok := talkerSystems[talker]
	return s, ok
}

// SystemForID resolves the NMEA 4.10 GNSS system ID carried by GSA/GSV.
func SystemForID(id int) (System, bool) {
	switch id {
	case 1:
		return GPS, true
	case 2:
		return GLONASS, true
	case 3:
		return Galileo, true
	case 4:
		return BeiDou, true
	default:
		return 0, false
	}
}

// SystemForPRN guesses the constellation of a satellite from the numbering
// ranges combined-talker receivers commonly use.
func SystemForPRN(prn int) (System, bool) {
	switch {
	case prn >= 1 && prn <= 32:
		return GPS, true
	case prn >= 65 && prn <= 96:
		return GLONASS, true
	case prn >= 201 && prn <= 236, prn >= 401 && prn <= 437:
		return BeiDou, true
	case prn >= 301 && prn <= 336:
		return Galileo, true
	default:
		return 0, false
	}
}

// FixQuality is the GGA quality indicator. The numeric order is the preference
// order used when several fixes are combined: higher wins.
type FixQuality int

const (
	NoFix FixQuality = iota
	GPSFix
	DGPSFix
	PPSFix
	RTKFixed
	RTKFloat
	Estimated
	Manual
	Simulation
)

func (q FixQuality) String() string {
	switch q {
	case NoFix:
		return "no_fix"
	case GPSFix:
		return "gps"
	case DGPSFix:
		return "dgps"
	case PPSFix:
		return "pps"
	case RTKFixed:
		return "rtk_fixed"
	case RTKFloat:
		return "rtk_float"
	case Estimated:
		return "estimated"
	case Manual:
		return "manual"
	case Simulation:
		return "simulation"
	default:
		return fmt.Sprintf("FixQuality(%d)", int(q))
	}
}

func (q FixQuality) MarshalText() ([]byte, error) { return []byte(q.String()), nil }

// fixQualityFromCode maps the single-digit GGA code.
func fixQualityFromCode(code int) (FixQuality, bool) {
	if code < int(NoFix) || code > int(Simulation) {
		return 0, false
	}
	return FixQuality(code), true
}

// FixQualityForMode maps an RMC/GLL/VTG mode indicator (NMEA 2.3+) to a fix
// quality. ok is false for unknown letters.
func FixQualityForMode(mode byte) (q FixQuality, ok bool) {
	switch mode {
	case 'A':
		return GPSFix, true
	case 'D':
		return DGPSFix, true
	case 'P':
		return PPSFix, true
	case 'R':
		return RTKFixed, true
	case 'F':
		return RTKFloat, true
	case 'E':
		return Estimated, true
	case 'M':
		return Manual, true
	case 'S':
		return Simulation, true
	case 'N':
		return NoFix, true
	default:
		return NoFix, false
	}
}
