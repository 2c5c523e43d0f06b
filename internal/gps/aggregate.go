package gps

import (
	"sort"
	"time"

	"gnssfuse/internal/nmea"
)

// SystemRecord is the latest known state of one constellation.
//
// Known is false until the first sentence for the system arrives; such a
// record is "unknown", which is different from a known NoFix.
type SystemRecord struct {
	System nmea.System `json:"system"`
	Known  bool        `json:"known"`

	// Stale is set by callers applying a freshness policy (see MarkStale); the
	// aggregator itself never sets it.
	Stale bool `json:"stale,omitempty"`

	FixQuality nmea.FixQuality `json:"fix_quality"`
	FixType    nmea.FixType    `json:"fix_type,omitempty"`
	Position   *nmea.Position  `json:"position,omitempty"`
	DOP        nmea.DOP        `json:"dop"`

	NumSatellites    int                  `json:"num_satellites"`
	SatellitesUsed   []int                `json:"satellites_used,omitempty"`
	SatellitesInView int                  `json:"satellites_in_view"`
	Satellites       []nmea.SatelliteInfo `json:"satellites,omitempty"`

	Time       nmea.TimeOfDay `json:"-"`
	Date       nmea.Date      `json:"-"`
	SpeedKnots *float64       `json:"speed_kt,omitempty"`
	CourseDeg  *float64       `json:"course_deg,omitempty"`

	UpdatedAt    time.Time `json:"updated_at"`
	LastSentence nmea.Kind `json:"last_sentence,omitempty"`
}

// HasFix reports whether the record can contribute to fusion.
func (r SystemRecord) HasFix() bool {
	return r.Known && !r.Stale && r.FixQuality != nmea.NoFix && r.Position != nil
}

// Age is the time since the last update; zero for unknown records.
func (r SystemRecord) Age(now time.Time) time.Duration {
	if !r.Known {
		return 0
	}
	return now.Sub(r.UpdatedAt)
}

// Snapshot is a copy of every system's record at one instant.
type Snapshot struct {
	At      time.Time                     `json:"at"`
	Systems [nmea.NumSystems]SystemRecord `json:"systems"`
}

// Record returns the record for sys.
func (s Snapshot) Record(sys nmea.System) SystemRecord {
	return s.Systems[sys]
}

// MarkStale flags known records not updated within maxAge of s.At. A
// non-positive maxAge disables the policy.
func (s Snapshot) MarkStale(maxAge time.Duration) Snapshot {
	if maxAge <= 0 {
		return s
	}
	for i := range s.Systems {
		r := &s.Systems[i]
		r.Stale = r.Known && r.Age(s.At) > maxAge
	}
	return s
}

type gsvSequence struct {
	total    int
	next     int
	reported map[int]struct{}
}

type slot struct {
	rec     SystemRecord
	sats    map[int]nmea.SatelliteInfo
	// GSV sequences are tracked per signal ID; receivers that report several
	// signals send one sequence per signal.
	gsv     map[string]*gsvSequence
	signals map[string]map[int]struct{}
}

// Aggregator holds exactly one slot per constellation. It is not safe for
// concurrent use.
type Aggregator struct {
	slots [nmea.NumSystems]slot
}

func NewAggregator() *Aggregator {
	a := &Aggregator{}
	for _, sys := range nmea.Systems {
		a.slots[sys] = slot{
			rec:     SystemRecord{System: sys},
			sats:    map[int]nmea.SatelliteInfo{},
			gsv:     map[string]*gsvSequence{},
			signals: map[string]map[int]struct{}{},
		}
	}
	return a
}

// Apply folds one decoded record into its system's slot. It reports false for
// records it cannot attribute.
func (a *Aggregator) Apply(now time.Time, rec nmea.Record) bool {
	if a == nil || !rec.System.Valid() || rec.Sentence == nil {
		return false
	}
	s := &a.slots[rec.System]

	switch m := rec.Sentence.(type) {
	case nmea.GGA:
		s.applyGGA(m)
	case nmea.RMC:
		s.rec.Time = m.Time
		if m.Date.Valid {
			s.rec.Date = m.Date
		}
		s.rec.SpeedKnots = m.SpeedKnots
		s.rec.CourseDeg = m.CourseDeg
		s.applyStatus(m.Valid, m.Mode, m.Position)
	case nmea.GLL:
		s.rec.Time = m.Time
		s.applyStatus(m.Valid, m.Mode, m.Position)
	case nmea.GSA:
		s.rec.DOP = m.DOP
		s.rec.FixType = m.FixType
		s.rec.SatellitesUsed = append([]int(nil), m.PRNs...)
		if m.FixType == nmea.FixNone {
			s.rec.FixQuality = nmea.NoFix
		}
	case nmea.GSV:
		s.applyGSV(m)
	case nmea.VTG:
		s.rec.SpeedKnots = m.SpeedKnots
		s.rec.CourseDeg = m.CourseTrue
	default:
		return false
	}

	s.rec.Known = true
	s.rec.UpdatedAt = now
	s.rec.LastSentence = rec.Kind
	return true
}

func (s *slot) applyGGA(g nmea.GGA) {
	s.rec.Time = g.Time
	s.rec.FixQuality = g.FixQuality
	s.rec.NumSatellites = g.SatellitesUsed
	if g.Position != nil {
		p := *g.Position
		s.rec.Position = &p
	}
	if g.HDOP != nil {
		s.rec.DOP.HDOP = g.HDOP
	}
}

// applyStatus handles the A/V status and optional mode indicator shared by
// RMC and GLL. V always downgrades to NoFix.
func (s *slot) applyStatus(valid bool, mode byte, pos *nmea.Position) {
	if !valid {
		s.rec.FixQuality = nmea.NoFix
		return
	}
	if q, ok := nmea.FixQualityForMode(mode); ok {
		s.rec.FixQuality = q
	} else if s.rec.FixQuality == nmea.NoFix {
		s.rec.FixQuality = nmea.GPSFix
	}
	if pos != nil {
		p := *pos
		// Neither RMC nor GLL carries altitude; keep the last GGA value.
		if p.Altitude == nil && s.rec.Position != nil {
			p.Altitude = s.rec.Position.Altitude
		}
		s.rec.Position = &p
	}
}

// applyGSV merges one GSV part keyed by PRN. When an in-order sequence
// completes, satellites no longer reported by any signal's latest complete
// sequence are dropped.
func (s *slot) applyGSV(g nmea.GSV) {
	seq := s.gsv[g.SignalID]
	switch {
	case g.MessageNumber == 1:
		seq = &gsvSequence{total: g.TotalMessages, next: 2, reported: map[int]struct{}{}}
		s.gsv[g.SignalID] = seq
	case seq != nil && seq.total == g.TotalMessages && seq.next == g.MessageNumber:
		seq.next++
	default:
		// Out of order or missed a part: merge only.
		delete(s.gsv, g.SignalID)
		seq = nil
	}

	for _, sat := range g.Satellites {
		s.sats[sat.PRN] = sat
		if seq != nil {
			seq.reported[sat.PRN] = struct{}{}
		}
	}
	s.rec.SatellitesInView = g.SatellitesInView

	if seq != nil && g.Last() {
		s.signals[g.SignalID] = seq.reported
		delete(s.gsv, g.SignalID)
		for prn := range s.sats {
			if !s.reportedByAnySignal(prn) {
				delete(s.sats, prn)
			}
		}
	}
	s.rec.Satellites = sortedSatellites(s.sats)
}

func (s *slot) reportedByAnySignal(prn int) bool {
	for _, set := range s.signals {
		if _, ok := set[prn]; ok {
			return true
		}
	}
	return false
}

func sortedSatellites(m map[int]nmea.SatelliteInfo) []nmea.SatelliteInfo {
	out := make([]nmea.SatelliteInfo, 0, len(m))
	for _, sat := range m {
		out = append(out, sat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PRN < out[j].PRN })
	return out
}

// Record returns a copy of the current record for sys.
func (a *Aggregator) Record(sys nmea.System) SystemRecord {
	if a == nil || !sys.Valid() {
		return SystemRecord{System: sys}
	}
	return copyRecord(a.slots[sys].rec)
}

// Snapshot copies every slot. The result shares nothing mutable with the
// aggregator.
func (a *Aggregator) Snapshot(now time.Time) Snapshot {
	out := Snapshot{At: now}
	for _, sys := range nmea.Systems {
		out.Systems[sys] = a.Record(sys)
	}
	return out
}

func copyRecord(r SystemRecord) SystemRecord {
	if r.Position != nil {
		p := *r.Position
		r.Position = &p
	}
	r.SatellitesUsed = append([]int(nil), r.SatellitesUsed...)
	r.Satellites = append([]nmea.SatelliteInfo(nil), r.Satellites...)
	return r
}
