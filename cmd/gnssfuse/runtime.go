package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"gnssfuse/internal/config"
	"gnssfuse/internal/gps"
	"gnssfuse/internal/nmea"
)

func serviceConfig(cfg config.Config) gps.Config {
	out := gps.Config{
		Device:      cfg.GPS.Device,
		Baud:        cfg.GPS.Baud,
		MaxRejected: cfg.Report.MaxRejected,
	}
	if cfg.GPS.Record.Enable {
		out.RecordPath = cfg.GPS.Record.Path
	}
	if cfg.GPS.Replay.Enable {
		out.Replay = gps.ReplayConfig{
			Path:  cfg.GPS.Replay.Path,
			Speed: cfg.GPS.Replay.Speed,
			Loop:  cfg.GPS.Replay.Loop,
		}
	}
	return out
}

func fusionConfig(cfg config.Config) gps.FusionConfig {
	return gps.FusionConfig{
		Epsilon:        cfg.Fusion.Epsilon,
		FallbackWeight: cfg.Fusion.FallbackWeight,
		Weighting:      gps.Weighting(cfg.Fusion.Weighting),
		UERE:           cfg.Fusion.UEREM,
	}
}

// reporter logs per-system state and the fused position on each tick.
type reporter struct {
	fusion     gps.FusionConfig
	staleAfter time.Duration
	emitGGA    bool
	out        io.Writer
}

func newReporter(cfg config.Config, out io.Writer) *reporter {
	return &reporter{
		fusion:     fusionConfig(cfg),
		staleAfter: cfg.Report.StaleAfter,
		emitGGA:    cfg.Report.EmitGGA,
		out:        out,
	}
}

func (r *reporter) report(now time.Time, st gps.Status) gps.FusionResult {
	snap := st.Snapshot
	snap.At = now
	snap = snap.MarkStale(r.staleAfter)
	res := gps.Fuse(snap, r.fusion)

	for _, rec := range res.Systems {
		if !rec.Known {
			continue
		}
		log.Printf("gps %s", formatSystem(rec, now))
	}
	log.Printf("nmea lines=%d accepted=%d rejected=%d", st.Stats.Lines, st.Stats.Accepted, st.Stats.Rejected)
	if res.NoFusedFix() {
		log.Printf("fusion no_fix")
		return res
	}
	log.Printf("fusion %s", formatFused(res.Fused))

	if r.emitGGA && r.out != nil {
		if _, err := fmt.Fprintf(r.out, "%s\r\n", fusedGGA(res, now)); err != nil {
			log.Printf("gga write failed: %v", err)
		}
	}
	return res
}

func formatSystem(rec gps.SystemRecord, now time.Time) string {
	return fmt.Sprintf("system=%s fix=%s stale=%t sats_used=%d in_view=%d hdop=%s age=%s",
		rec.System, rec.FixQuality, rec.Stale, rec.NumSatellites, rec.SatellitesInView,
		formatOpt(rec.DOP.HDOP, "%.1f"), rec.Age(now).Round(time.Millisecond))
}

func formatFused(f *gps.FusedPosition) string {
	sources := make([]string, 0, len(f.Contributions))
	for _, c := range f.Contributions {
		sources = append(sources, fmt.Sprintf("%s:%.3g", c.System, c.Weight))
	}
	return fmt.Sprintf("lat=%.7f lon=%.7f alt_m=%s quality=%s acc_m=%s spread_m=%.1f sources=%s",
		f.Latitude, f.Longitude, formatOpt(f.Altitude, "%.1f"), f.FixQuality,
		formatOpt(f.AccuracyM, "%.1f"), f.SpreadM, strings.Join(sources, ","))
}

func formatOpt(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// fusedGGA encodes the fused fix as a $GNGGA sentence. The HDOP field carries
// the fused accuracy in DOP units and the satellite count is the sum over
// contributing systems.
func fusedGGA(res gps.FusionResult, now time.Time) string {
	f := res.Fused
	lat, ns := nmea.FormatLatitude(f.Latitude)
	lon, ew := nmea.FormatLongitude(f.Longitude)

	sats := 0
	for _, c := range f.Contributions {
		sats += res.Systems[c.System].NumSatellites
	}
	if sats > 99 {
		sats = 99
	}

	hdop := ""
	if f.Accuracy != nil {
		hdop = fmt.Sprintf("%.1f", *f.Accuracy)
	}
	alt, altUnit := "", ""
	if f.Altitude != nil {
		alt, altUnit = fmt.Sprintf("%.1f", *f.Altitude), "M"
	}

	payload := fmt.Sprintf("GNGGA,%s,%s,%s,%s,%s,%d,%02d,%s,%s,%s,,,,",
		now.UTC().Format("150405.00"), lat, ns, lon, ew, int(f.FixQuality), sats, hdop, alt, altUnit)
	return nmea.Frame(payload)
}
