package replay

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const (
	ggaLine = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	rmcLine = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0, ` + ggaLine + `
10,` + rmcLine + `
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Line != "" {
		t.Fatalf("expected START marker (empty line), got %q", recs[0].Line)
	}
	if recs[1].At != 0 || recs[1].Line != ggaLine || !recs[1].Timed {
		t.Fatalf("unexpected record 1: %+v", recs[1])
	}
	if recs[2].At != 10*time.Nanosecond {
		t.Fatalf("expected At=10ns, got %s", recs[2].At)
	}
	if recs[2].Line != rmcLine {
		t.Fatalf("sentence commas must survive, got %q", recs[2].Line)
	}
}

func TestReaderReadAll_PlainDump(t *testing.T) {
	in := strings.NewReader(ggaLine + "\r\n" + rmcLine + "\r\n")
	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.Timed || r.At != 0 {
			t.Fatalf("record %d should be untimed at 0, got %+v", i, r)
		}
	}
}

func TestReaderReadAll_BareLineInheritsTime(t *testing.T) {
	in := strings.NewReader("START\n500," + ggaLine + "\n" + rmcLine + "\n")
	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if recs[2].At != 500 {
		t.Fatalf("expected bare line At=500ns, got %s", recs[2].At)
	}
}

func TestReaderReadAll_InvalidLines(t *testing.T) {
	cases := []string{
		"not-a-valid-line\n",
		"abc," + ggaLine + "\n",
		"-5," + ggaLine + "\n",
		"10,hello\n",
		"10,\n",
	}
	for _, in := range cases {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var lines []string
	fs := &fakeSleeper{}

	recs := []Record{
		{At: 1 * time.Second},
		{At: 1 * time.Second, Line: "$A"},
		{At: 1*time.Second + 100*time.Nanosecond, Line: "$B"},
		{At: 2 * time.Second},
		{At: 2*time.Second + 50*time.Nanosecond, Line: "$C"},
	}

	err := Play(recs, 1.0, false, fs, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"$A", "$B", "$C"}) {
		t.Fatalf("lines = %v", lines)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{100 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [100ns]", fs.slept)
	}
}

func TestPlay_SpeedMultiplier(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{
		{At: 0, Line: "$A"},
		{At: 100 * time.Nanosecond, Line: "$B"},
	}

	if err := Play(recs, 2.0, false, fs, func(string) error { return nil }); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{50 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [50ns]", fs.slept)
	}
}

func TestPlay_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	recs := []Record{{Line: "$A"}, {Line: "$B"}}
	n := 0
	err := Play(recs, 1.0, true, &fakeSleeper{}, func(string) error {
		n++
		if n == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if n != 3 {
		t.Fatalf("expected loop to reach the third line, got %d", n)
	}
}

func TestPlay_InvalidArgs(t *testing.T) {
	recs := []Record{{At: 0, Line: "$A"}}
	if err := Play(recs, 0, false, nil, func(string) error { return nil }); err == nil {
		t.Fatalf("expected error for zero speed")
	}
	if err := Play([]Record{{}}, 1, false, nil, func(string) error { return nil }); err == nil {
		t.Fatalf("expected error for markers only")
	}
}

func TestWriter_WritesExpectedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nmea")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	w.start = time.Unix(0, 0)

	if err := w.WriteLine(time.Unix(0, 20), ggaLine+"\r\n"); err != nil {
		t.Fatalf("WriteLine() error: %v", err)
	}
	if err := w.WriteLine(time.Unix(0, 30), "a\nb"); err == nil {
		t.Fatalf("expected error for embedded newline")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteLine(time.Unix(0, 40), ggaLine); err == nil {
		t.Fatalf("expected error after Close")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(b) != "START\n20,"+ggaLine+"\n" {
		t.Fatalf("unexpected file contents: %q", string(b))
	}
}

func TestRecordReplay_RoundTripInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.nmea")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	now := time.Now()
	in := []string{ggaLine, rmcLine, ggaLine}
	for _, l := range in {
		if err := w.WriteLine(now, l); err != nil {
			_ = w.Close()
			t.Fatalf("WriteLine() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var out []string
	fs := &fakeSleeper{}
	if err := Play(recs, 1.0, false, fs, func(line string) error {
		out = append(out, line)
		return nil
	}); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if len(fs.slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", fs.slept)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("lines mismatch\n got: %v\nwant: %v", out, in)
	}
}
