package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gnssfuse/internal/gps"
	"gnssfuse/internal/replay"
)

type captureSummary struct {
	Segments    int
	Lines       int
	MaxDuration time.Duration
	Stats       gps.Stats
	Result      gps.FusionResult
}

// summarizeCapture feeds every line through a fresh pipeline using capture
// time, so the result does not depend on how fast the file is read. No
// freshness policy is applied to the final fusion.
func summarizeCapture(records []replay.Record, fcfg gps.FusionConfig) captureSummary {
	var s captureSummary
	p := gps.NewPipeline(0)
	base := time.Unix(0, 0).UTC()

	origin := time.Duration(0)
	offset := time.Duration(0)
	segments := 0
	for _, r := range records {
		if r.Line == "" {
			segments++
			// Keep capture time monotonic across segments.
			offset += s.MaxDuration
			origin = r.At
			continue
		}
		s.Lines++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}
		_, _ = p.Feed(base.Add(offset+at), r.Line)
	}
	if segments == 0 && s.Lines > 0 {
		segments = 1
	}
	s.Segments = segments
	s.Stats = p.Stats()

	snap := p.Aggregator().Snapshot(base.Add(offset + s.MaxDuration))
	s.Result = gps.Fuse(snap, fcfg)
	return s
}

func printCaptureSummary(w io.Writer, path string, fcfg gps.FusionConfig) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	s := summarizeCapture(recs, fcfg)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "lines: %d\n", s.Lines)
	fmt.Fprintf(w, "accepted: %d\n", s.Stats.Accepted)
	fmt.Fprintf(w, "rejected: %d\n", s.Stats.Rejected)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	fmt.Fprintf(w, "sentences:\n")
	for _, k := range sortedKeys(s.Stats.BySentence) {
		fmt.Fprintf(w, "  %s: %d\n", k, s.Stats.BySentence[k])
	}
	fmt.Fprintf(w, "errors:\n")
	for _, k := range sortedKeys(s.Stats.ByError) {
		fmt.Fprintf(w, "  %s: %d\n", k, s.Stats.ByError[k])
	}

	fmt.Fprintf(w, "systems:\n")
	for _, rec := range s.Result.Systems {
		if !rec.Known {
			fmt.Fprintf(w, "  %s: unknown\n", rec.System)
			continue
		}
		fmt.Fprintf(w, "  %s: fix=%s sats_used=%d in_view=%d hdop=%s\n",
			rec.System, rec.FixQuality, rec.NumSatellites, rec.SatellitesInView, formatOpt(rec.DOP.HDOP, "%.1f"))
	}
	if s.Result.NoFusedFix() {
		fmt.Fprintf(w, "fused: none\n")
		return nil
	}
	fmt.Fprintf(w, "fused: %s\n", formatFused(s.Result.Fused))
	return nil
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
