package gps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gnssfuse/internal/nmea"
)

func writeCapture(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.nmea")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func waitDone(t *testing.T, s *Service) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not finish")
	}
}

func TestService_ReplayFeedsPipeline(t *testing.T) {
	path := writeCapture(t,
		"START",
		"0,"+ggaMunich,
		"1000,"+nmea.Frame("GLGGA,123519,4807.040,N,01131.002,E,1,05,1.8,546.0,M,46.9,M,,"),
		"2000,$GPGGA,garbage*00",
	)

	s := New(Config{Replay: ReplayConfig{Path: path, Speed: 1000}, MaxRejected: 8})
	if got := s.Status().Source; got != "replay" {
		t.Fatalf("Source=%q, want replay", got)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitDone(t, s)
	s.Close()

	st := s.Status()
	if st.Running {
		t.Fatalf("expected Running=false after replay end")
	}
	if st.Stats.Lines != 3 || st.Stats.Accepted != 2 || st.Stats.Rejected != 1 {
		t.Fatalf("unexpected stats: %+v", st.Stats)
	}
	if len(st.Rejected) != 1 || st.Rejected[0].Kind != "checksum_mismatch" {
		t.Fatalf("unexpected rejected tail: %+v", st.Rejected)
	}
	if st.LastError == "" {
		t.Fatalf("expected LastError to be set")
	}
	if !st.Snapshot.Record(nmea.GPS).HasFix() || !st.Snapshot.Record(nmea.GLONASS).HasFix() {
		t.Fatalf("expected GPS and GLONASS fixes, got %+v", st.Snapshot)
	}
	if res := Fuse(st.Snapshot, DefaultFusionConfig()); res.NoFusedFix() {
		t.Fatalf("expected a fused fix")
	}
}

func TestService_ReplayStopsOnCancel(t *testing.T) {
	path := writeCapture(t,
		"START",
		"0,"+ggaMunich,
		"1000000000,"+ggaMunich,
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(Config{Replay: ReplayConfig{Path: path, Speed: 1, Loop: true}})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	cancel()
	waitDone(t, s)
	s.Close()

	if st := s.Status(); st.LastError != "" {
		t.Fatalf("cancellation is not an error, got %q", st.LastError)
	}
}

func TestService_ReplayMissingFile(t *testing.T) {
	s := New(Config{Replay: ReplayConfig{Path: filepath.Join(t.TempDir(), "missing.nmea")}})
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if s.Status().LastError == "" {
		t.Fatalf("expected LastError to be set")
	}
}

func TestService_StartNilContext(t *testing.T) {
	s := New(Config{})
	if err := s.Start(nil); err == nil {
		t.Fatalf("expected error")
	}
	var nilSvc *Service
	if err := nilSvc.Start(context.Background()); err == nil {
		t.Fatalf("expected error for nil service")
	}
	nilSvc.Close()
}
