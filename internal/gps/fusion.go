package gps

import (
	"fmt"
	"math"
	"sort"

	geo "github.com/kellydunn/golang-geo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gnssfuse/internal/nmea"
)

// Weighting selects which dilution of precision drives fusion weights.
type Weighting string

const (
	// WeightHDOP weights each system by 1/HDOP².
	WeightHDOP Weighting = "hdop"
	// WeightCombined uses sqrt(HDOP²+PDOP²) when both are known, else HDOP.
	WeightCombined Weighting = "combined"
)

// FusionConfig tunes the inverse-square DOP weighting.
type FusionConfig struct {
	// Epsilon is the floor applied to a DOP before squaring, so a reported
	// DOP of zero does not produce an infinite weight.
	Epsilon        float64
	// FallbackWeight is used for systems without a DOP. Zero selects the
	// median of the other systems' weights (1.0 when none have one).
	FallbackWeight float64
	Weighting      Weighting
	// UERE converts the fused accuracy (DOP units) to metres.
	UERE           float64
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{Epsilon: 0.1, Weighting: WeightHDOP, UERE: 3.0}
}

func (c FusionConfig) Validate() error {
	if c.Epsilon <= 0 {
		return fmt.Errorf("fusion epsilon must be > 0")
	}
	if c.FallbackWeight < 0 {
		return fmt.Errorf("fusion fallback weight must be >= 0")
	}
	switch c.Weighting {
	case WeightHDOP, WeightCombined:
	default:
		return fmt.Errorf("unknown fusion weighting %q", c.Weighting)
	}
	if c.UERE < 0 {
		return fmt.Errorf("fusion uere must be >= 0")
	}
	return nil
}

// Contribution is one system's share of a fused position.
type Contribution struct {
	System   nmea.System `json:"system"`
	Weight   float64     `json:"weight"`
	// Fallback is true when the system had no DOP and got the fallback weight.
	Fallback bool        `json:"fallback,omitempty"`
}

// FusedPosition is derived from a Snapshot and never updated in place.
type FusedPosition struct {
	Latitude   float64         `json:"lat_deg"`
	Longitude  float64         `json:"lon_deg"`
	Altitude   *float64        `json:"alt_m,omitempty"`
	FixQuality nmea.FixQuality `json:"fix_quality"`

	// Source is set when exactly one system contributed.
	Source        *nmea.System   `json:"source,omitempty"`
	Contributions []Contribution `json:"contributions"`
	DOP           nmea.DOP       `json:"dop"`

	// Accuracy is 1/sqrt(Σweights) in DOP units, nil when no contributor
	// reported a DOP. AccuracyM scales it by the configured UERE.
	Accuracy  *float64 `json:"accuracy,omitempty"`
	AccuracyM *float64 `json:"accuracy_m,omitempty"`
	// SpreadM is the largest distance from the fused point to a contributor.
	SpreadM   float64  `json:"spread_m"`
}

// Systems lists contributing systems in index order.
func (f FusedPosition) Systems() []nmea.System {
	out := make([]nmea.System, 0, len(f.Contributions))
	for _, c := range f.Contributions {
		out = append(out, c.System)
	}
	return out
}

// FusionResult is the outcome of Fuse. A nil Fused is the NoFusedFix case,
// the normal state while the receiver is still acquiring.
type FusionResult struct {
	Fused   *FusedPosition                `json:"fused,omitempty"`
	Systems [nmea.NumSystems]SystemRecord `json:"systems"`
}

// NoFusedFix reports whether no system contributed.
func (r FusionResult) NoFusedFix() bool { return r.Fused == nil }

// Fuse combines every system in s that has a fix (known, not stale, quality
// other than NoFix) into one position. It does not modify s.
func Fuse(s Snapshot, cfg FusionConfig) FusionResult {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultFusionConfig().Epsilon
	}
	res := FusionResult{Systems: s.Systems}

	var used []SystemRecord
	for _, r := range s.Systems {
		if r.HasFix() {
			used = append(used, r)
		}
	}
	switch len(used) {
	case 0:
		return res
	case 1:
		res.Fused = single(used[0], cfg)
		return res
	}

	weights := make([]float64, len(used))
	fallback := make([]bool, len(used))
	var known []float64
	anyDOP := false
	for i, r := range used {
		dop, ok := cfg.dop(r)
		if !ok {
			fallback[i] = true
			continue
		}
		anyDOP = true
		weights[i] = weightFor(dop, cfg.Epsilon)
		known = append(known, weights[i])
	}
	fw := cfg.FallbackWeight
	if fw <= 0 {
		fw = median(known)
	}
	for i := range weights {
		if fallback[i] {
			weights[i] = fw
		}
	}

	lats := make([]float64, len(used))
	lons := make([]float64, len(used))
	var alts, altWeights []float64
	ref := used[0].Position.Longitude
	best := nmea.NoFix
	for i, r := range used {
		lats[i] = r.Position.Latitude
		lons[i] = unwrapLongitude(r.Position.Longitude, ref)
		if r.Position.Altitude != nil {
			alts = append(alts, *r.Position.Altitude)
			altWeights = append(altWeights, weights[i])
		}
		if r.FixQuality > best {
			best = r.FixQuality
		}
	}

	f := &FusedPosition{
		Latitude:   stat.Mean(lats, weights),
		Longitude:  normalizeLongitude(stat.Mean(lons, weights)),
		FixQuality: best,
	}
	if len(alts) > 0 {
		alt := stat.Mean(alts, altWeights)
		f.Altitude = &alt
	}
	for i, r := range used {
		f.Contributions = append(f.Contributions, Contribution{System: r.System, Weight: weights[i], Fallback: fallback[i]})
	}
	if anyDOP {
		acc := 1 / math.Sqrt(floats.Sum(weights))
		f.setAccuracy(acc, cfg.UERE)
	}
	f.SpreadM = spread(f, used)
	res.Fused = f
	return res
}

func single(r SystemRecord, cfg FusionConfig) *FusedPosition {
	sys := r.System
	f := &FusedPosition{
		Latitude:   r.Position.Latitude,
		Longitude:  r.Position.Longitude,
		FixQuality: r.FixQuality,
		Source:     &sys,
		DOP:        r.DOP,
	}
	if r.Position.Altitude != nil {
		alt := *r.Position.Altitude
		f.Altitude = &alt
	}
	w := 1.0
	dop, ok := cfg.dop(r)
	if ok {
		w = weightFor(dop, cfg.Epsilon)
		f.setAccuracy(1/math.Sqrt(w), cfg.UERE)
	}
	f.Contributions = []Contribution{{System: sys, Weight: w, Fallback: !ok}}
	return f
}

func (f *FusedPosition) setAccuracy(acc, uere float64) {
	f.Accuracy = &acc
	if uere > 0 {
		m := acc * uere
		f.AccuracyM = &m
	}
}

func (c FusionConfig) dop(r SystemRecord) (float64, bool) {
	h := r.DOP.HDOP
	if h == nil {
		return 0, false
	}
	if c.Weighting == WeightCombined && r.DOP.PDOP != nil {
		p := *r.DOP.PDOP
		return math.Sqrt(*h**h + p*p), true
	}
	return *h, true
}

func weightFor(dop, eps float64) float64 {
	d := math.Max(dop, eps)
	return 1 / (d * d)
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 1.0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// unwrapLongitude moves lon to within 180° of ref so that averaging across
// the antimeridian does not land on the wrong side of the globe.
func unwrapLongitude(lon, ref float64) float64 {
	switch {
	case lon-ref > 180:
		return lon - 360
	case lon-ref < -180:
		return lon + 360
	default:
		return lon
	}
}

func normalizeLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func spread(f *FusedPosition, used []SystemRecord) float64 {
	center := geo.NewPoint(f.Latitude, f.Longitude)
	maxM := 0.0
	for _, r := range used {
		d := center.GreatCircleDistance(geo.NewPoint(r.Position.Latitude, r.Position.Longitude)) * 1000
		if d > maxM {
			maxM = d
		}
	}
	return maxM
}
