package nmea

import "fmt"

// Kind is the three-character sentence ID.
type Kind string

const (
	KindGGA Kind = "GGA"
	KindRMC Kind = "RMC"
	KindGSA Kind = "GSA"
	KindGSV Kind = "GSV"
	KindGLL Kind = "GLL"
	KindVTG Kind = "VTG"
)

// Sentence is one decoded sentence. The set of implementations is closed:
// GGA, RMC, GSA, GSV, GLL and VTG.
type Sentence interface {
	Kind() Kind
	sentence()
}

// Record is a decoded sentence tagged with its originating constellation.
type Record struct {
	System   System
	Talker   string
	Kind     Kind
	Sentence Sentence
}

// Position is a decoded fix position in decimal degrees. Altitude is metres
// above mean sea level and nil when the sentence does not carry one.
type Position struct {
	Latitude  float64  `json:"lat_deg"`
	Longitude float64  `json:"lon_deg"`
	Altitude  *float64 `json:"alt_m,omitempty"`
}

// DOP holds dilution-of-precision values; nil means not reported.
type DOP struct {
	PDOP *float64 `json:"pdop,omitempty"`
	HDOP *float64 `json:"hdop,omitempty"`
	VDOP *float64 `json:"vdop,omitempty"`
}

// SatelliteInfo is one satellite from a GSV group. A nil SNR means the
// satellite is in view but not tracked.
type SatelliteInfo struct {
	PRN       int  `json:"prn"`
	Elevation *int `json:"elevation_deg,omitempty"`
	Azimuth   *int `json:"azimuth_deg,omitempty"`
	SNR       *int `json:"snr_dbhz,omitempty"`
}

// TimeOfDay is a UTC hhmmss.sss field.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
	Valid      bool
}

func (t TimeOfDay) String() string {
	if !t.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Nanosecond/1e6)
}

// Date is a ddmmyy field. Two-digit years below 80 are 20xx.
type Date struct {
	Day   int
	Month int
	Year  int
	Valid bool
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FixType is the GSA navigation mode.
type FixType int

const (
	FixNone FixType = 1
	Fix2D   FixType = 2
	Fix3D   FixType = 3
)

// GGA: Global Positioning System Fix Data.
type GGA struct {
	Time            TimeOfDay
	Position        *Position // nil when FixQuality is NoFix and no coordinates were sent
	FixQuality      FixQuality
	SatellitesUsed  int
	HDOP            *float64
	GeoidSeparation *float64
	DGPSAge         *float64
	DGPSStation     string
}

// RMC: Recommended Minimum Specific GNSS Data.
type RMC struct {
	Time              TimeOfDay
	Valid             bool // status A
	Position          *Position
	SpeedKnots        *float64
	CourseDeg         *float64
	Date              Date
	MagneticVariation *float64 // degrees, west negative
	Mode              byte     // 0 when the receiver predates NMEA 2.3
}

// GSA: GNSS DOP and Active Satellites.
type GSA struct {
	SelectionMode byte // 'A' automatic, 'M' manual
	FixType       FixType
	PRNs          []int
	DOP           DOP
	SystemID      int // NMEA 4.10 GNSS system ID, 0 when absent
}

// GSV: GNSS Satellites in View. One GSV is a single part of a sequence of
// TotalMessages parts.
type GSV struct {
	TotalMessages    int
	MessageNumber    int
	SatellitesInView int
	Satellites       []SatelliteInfo
	SignalID         string
}

// Last reports whether this is the final part of its sequence.
func (g GSV) Last() bool { return g.MessageNumber == g.TotalMessages }

// GLL: Geographic Position, Latitude/Longitude.
type GLL struct {
	Position *Position
	Time     TimeOfDay
	Valid    bool
	Mode     byte
}

// VTG: Course Over Ground and Ground Speed.
type VTG struct {
	CourseTrue     *float64
	CourseMagnetic *float64
	SpeedKnots     *float64
	SpeedKPH       *float64
	Mode           byte
}

func (GGA) Kind() Kind { return KindGGA }
func (RMC) Kind() Kind { return KindRMC }
func (GSA) Kind() Kind { return KindGSA }
func (GSV) Kind() Kind { return KindGSV }
func (GLL) Kind() Kind { return KindGLL }
func (VTG) Kind() Kind { return KindVTG }

func (GGA) sentence() {}
func (RMC) sentence() {}
func (GSA) sentence() {}
func (GSV) sentence() {}
func (GLL) sentence() {}
func (VTG) sentence() {}
