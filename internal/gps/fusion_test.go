package gps

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gnssfuse/internal/nmea"
)

func fp(v float64) *float64 { return &v }

// fixed builds a known, fresh record with a fix.
func fixed(sys nmea.System, lat, lon float64, hdop *float64) SystemRecord {
	return SystemRecord{
		System:     sys,
		Known:      true,
		FixQuality: nmea.GPSFix,
		Position:   &nmea.Position{Latitude: lat, Longitude: lon},
		DOP:        nmea.DOP{HDOP: hdop},
		UpdatedAt:  t0,
	}
}

func snapshotOf(recs ...SystemRecord) Snapshot {
	s := Snapshot{At: t0}
	for _, sys := range nmea.Systems {
		s.Systems[sys] = SystemRecord{System: sys}
	}
	for _, r := range recs {
		s.Systems[r.System] = r
	}
	return s
}

func TestFuse_NoFix(t *testing.T) {
	noFix := SystemRecord{System: nmea.GPS, Known: true, FixQuality: nmea.NoFix}
	res := Fuse(snapshotOf(noFix), DefaultFusionConfig())
	assert.True(t, res.NoFusedFix())
	assert.Nil(t, res.Fused)
	assert.True(t, res.Systems[nmea.GPS].Known)

	res = Fuse(snapshotOf(), DefaultFusionConfig())
	assert.True(t, res.NoFusedFix())
}

func TestFuse_SingleSystemIsExact(t *testing.T) {
	r := fixed(nmea.GPS, 48.1173, 11.516666666666667, fp(1.0))
	r.Position.Altitude = fp(545.4)
	r.DOP.PDOP = fp(1.8)

	res := Fuse(snapshotOf(r), DefaultFusionConfig())
	require.NotNil(t, res.Fused)
	f := res.Fused
	assert.Equal(t, 48.1173, f.Latitude)
	assert.Equal(t, 11.516666666666667, f.Longitude)
	require.NotNil(t, f.Altitude)
	assert.Equal(t, 545.4, *f.Altitude)
	assert.Equal(t, nmea.GPSFix, f.FixQuality)
	require.NotNil(t, f.Source)
	assert.Equal(t, nmea.GPS, *f.Source)
	assert.Equal(t, []nmea.System{nmea.GPS}, f.Systems())
	assert.Equal(t, r.DOP, f.DOP)
	require.NotNil(t, f.Accuracy)
	assert.InDelta(t, 1.0, *f.Accuracy, 1e-12)
	require.NotNil(t, f.AccuracyM)
	assert.InDelta(t, 3.0, *f.AccuracyM, 1e-12)
	assert.Equal(t, 0.0, f.SpreadM)
}

func TestFuse_InverseSquareWeighting(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 0, fp(1))
	glo := fixed(nmea.GLONASS, 0, 0.001, fp(4))

	f := Fuse(snapshotOf(gps, glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.Nil(t, f.Source)
	assert.Equal(t, []nmea.System{nmea.GPS, nmea.GLONASS}, f.Systems())

	// Weights 1 and 1/16: the fused point sits 1/17 of the way to GLONASS.
	assert.InDelta(t, 0.001/17, f.Longitude, 1e-12)
	assert.Less(t, f.Longitude, 0.0005)
	require.NotNil(t, f.Accuracy)
	assert.InDelta(t, 1/math.Sqrt(17.0/16), *f.Accuracy, 1e-12)
	assert.Less(t, *f.Accuracy, 1.0)
	// 0.001° of longitude at the equator is about 111 m.
	assert.InDelta(t, 111.2*16/17, f.SpreadM, 1.0)
}

func TestFuse_EqualWeightsBetweenContributors(t *testing.T) {
	gps := fixed(nmea.GPS, 10, 20, fp(1.2))
	gal := fixed(nmea.Galileo, 10.002, 20.002, fp(1.2))
	bds := fixed(nmea.BeiDou, 10.001, 20.004, fp(1.2))

	f := Fuse(snapshotOf(gps, gal, bds), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.InDelta(t, 10.001, f.Latitude, 1e-9)
	assert.InDelta(t, 20.002, f.Longitude, 1e-9)
	assert.Nil(t, f.Altitude)
}

func TestFuse_MedianFallbackWeight(t *testing.T) {
	gps := fixed(nmea.GPS, 1, 1, fp(1))      // w = 1
	glo := fixed(nmea.GLONASS, 1, 1, fp(2))  // w = 0.25
	gal := fixed(nmea.Galileo, 1, 1, nil)    // median = 0.625
	bds := fixed(nmea.BeiDou, 1, 1.001, nil) // median = 0.625

	f := Fuse(snapshotOf(gps, glo, gal, bds), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	require.Len(t, f.Contributions, 4)
	assert.InDelta(t, 1.0, f.Contributions[0].Weight, 1e-12)
	assert.InDelta(t, 0.25, f.Contributions[1].Weight, 1e-12)
	assert.InDelta(t, 0.625, f.Contributions[2].Weight, 1e-12)
	assert.True(t, f.Contributions[2].Fallback)
	assert.False(t, f.Contributions[0].Fallback)
	require.NotNil(t, f.Accuracy)
	assert.InDelta(t, 1/math.Sqrt(2.5), *f.Accuracy, 1e-12)

	cfg := DefaultFusionConfig()
	cfg.FallbackWeight = 0.1
	f = Fuse(snapshotOf(gps, gal), cfg).Fused
	require.NotNil(t, f)
	assert.InDelta(t, 0.1, f.Contributions[1].Weight, 1e-12)
}

func TestFuse_NoDOPAnywhere(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 0, nil)
	glo := fixed(nmea.GLONASS, 0.002, 0, nil)

	f := Fuse(snapshotOf(gps, glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.InDelta(t, 0.001, f.Latitude, 1e-12)
	assert.Nil(t, f.Accuracy)
	assert.Nil(t, f.AccuracyM)
}

func TestFuse_EpsilonFloorsZeroDOP(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 0, fp(0))
	glo := fixed(nmea.GLONASS, 0, 1, fp(1))

	f := Fuse(snapshotOf(gps, glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.InDelta(t, 100.0, f.Contributions[0].Weight, 1e-9)
	assert.False(t, math.IsInf(f.Longitude, 0))
	assert.InDelta(t, 1.0/101, f.Longitude, 1e-12)
}

func TestFuse_CombinedWeighting(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 0, fp(3))
	gps.DOP.PDOP = fp(4)
	glo := fixed(nmea.GLONASS, 0, 0, fp(3))

	cfg := DefaultFusionConfig()
	cfg.Weighting = WeightCombined
	f := Fuse(snapshotOf(gps, glo), cfg).Fused
	require.NotNil(t, f)
	assert.InDelta(t, 1.0/25, f.Contributions[0].Weight, 1e-12)
	assert.InDelta(t, 1.0/9, f.Contributions[1].Weight, 1e-12)
}

func TestFuse_BestQualityWins(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 0, fp(1))
	glo := fixed(nmea.GLONASS, 0, 0, fp(1))
	glo.FixQuality = nmea.DGPSFix

	f := Fuse(snapshotOf(gps, glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.Equal(t, nmea.DGPSFix, f.FixQuality)
}

func TestFuse_AltitudeFromReportingSystemsOnly(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 0, fp(1))
	gps.Position.Altitude = fp(100)
	glo := fixed(nmea.GLONASS, 0, 0, fp(1))

	f := Fuse(snapshotOf(gps, glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	require.NotNil(t, f.Altitude)
	assert.InDelta(t, 100.0, *f.Altitude, 1e-12)

	f = Fuse(snapshotOf(fixed(nmea.GPS, 0, 0, fp(1)), glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.Nil(t, f.Altitude)
}

func TestFuse_Antimeridian(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 179.9999, fp(1))
	glo := fixed(nmea.GLONASS, 0, -179.9999, fp(1))

	f := Fuse(snapshotOf(gps, glo), DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	assert.InDelta(t, 180.0, math.Abs(f.Longitude), 1e-6)
	assert.Less(t, f.SpreadM, 20.0)
}

func TestFuse_SkipsStaleAndNoFix(t *testing.T) {
	gps := fixed(nmea.GPS, 10, 10, fp(1))
	glo := fixed(nmea.GLONASS, 50, 50, fp(1))
	glo.UpdatedAt = t0.Add(-10 * time.Second)
	gal := fixed(nmea.Galileo, 60, 60, fp(1))
	gal.FixQuality = nmea.NoFix

	s := snapshotOf(gps, glo, gal).MarkStale(5 * time.Second)
	f := Fuse(s, DefaultFusionConfig()).Fused
	require.NotNil(t, f)
	require.NotNil(t, f.Source)
	assert.Equal(t, nmea.GPS, *f.Source)
	assert.Equal(t, 10.0, f.Latitude)
}

func TestFuse_DoesNotModifySnapshot(t *testing.T) {
	gps := fixed(nmea.GPS, 0, 179.9, fp(1))
	glo := fixed(nmea.GLONASS, 0, -179.9, nil)
	s := snapshotOf(gps, glo)

	res := Fuse(s, DefaultFusionConfig())
	assert.Equal(t, 179.9, s.Systems[nmea.GPS].Position.Longitude)
	assert.Equal(t, -179.9, s.Systems[nmea.GLONASS].Position.Longitude)
	assert.Nil(t, s.Systems[nmea.GLONASS].DOP.HDOP)
	assert.Equal(t, s.Systems, res.Systems)
}

func TestFusionConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultFusionConfig().Validate())

	bad := []FusionConfig{
		{Epsilon: 0, Weighting: WeightHDOP},
		{Epsilon: 0.1, FallbackWeight: -1, Weighting: WeightHDOP},
		{Epsilon: 0.1, Weighting: "pdop"},
		{Epsilon: 0.1, Weighting: WeightHDOP, UERE: -1},
	}
	for _, cfg := range bad {
		assert.Error(t, cfg.Validate(), "%+v", cfg)
	}
}
