package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gnssfuse/internal/nmea"
	"gnssfuse/internal/replay"
)

// Config controls where raw NMEA lines come from.
//
// When Replay.Path is set the capture is played back instead of opening a
// serial device. Device may be empty to auto-detect /dev/ttyACM* and
// /dev/ttyUSB*.
type Config struct {
	Device string
	Baud   int

	Replay ReplayConfig
	// RecordPath, when set, captures every raw line received from the
	// serial device for later replay.
	RecordPath string

	MaxRejected int
}

type ReplayConfig struct {
	Path  string
	Speed float64
	Loop  bool
}

// Status is the published view of the service. Values handed out by
// Status() are copies and safe to keep.
type Status struct {
	Source  string `json:"source"`
	Device  string `json:"device,omitempty"`
	Baud    int    `json:"baud,omitempty"`
	Running bool   `json:"running"`

	Stats    Stats       `json:"stats"`
	Rejected []Rejection `json:"rejected,omitempty"`
	Snapshot Snapshot    `json:"snapshot"`

	UpdatedAt time.Time `json:"updated_at"`
	LastError string    `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	last atomic.Value // Status

	mu       sync.Mutex
	closer   io.Closer
	pipeline *Pipeline
	rec      *replay.Writer
}

func New(cfg Config) *Service {
	s := &Service{cfg: cfg, done: make(chan struct{})}
	s.last.Store(Status{Source: s.source(), Device: cfg.Device, Baud: cfg.Baud})
	return s
}

func (s *Service) source() string {
	if strings.TrimSpace(s.cfg.Replay.Path) != "" {
		return "replay"
	}
	return "serial"
}

// Start opens the line source and begins feeding it through a Pipeline. It
// returns once the source is open; reading continues until ctx is cancelled,
// Close is called, or the source ends (see Done).
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	s.pipeline = NewPipeline(s.cfg.MaxRejected)

	if s.source() == "replay" {
		return s.startReplayLocked(ctx)
	}
	return s.startSerialLocked(ctx)
}

func (s *Service) startSerialLocked(ctx context.Context) error {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			s.setErrorLocked("gps auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
			return fmt.Errorf("gps auto-detect failed")
		}
	}
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	port, err := openSerial(device, baud)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps open failed device=%s baud=%d: %v", device, baud, err))
		return err
	}
	if p := strings.TrimSpace(s.cfg.RecordPath); p != "" {
		w, err := replay.CreateWriter(p)
		if err != nil {
			_ = port.Close()
			s.setErrorLocked(fmt.Sprintf("gps record open failed path=%s: %v", p, err))
			return err
		}
		s.rec = w
		log.Printf("gps recording path=%s", p)
	}
	s.closer = port

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish()
		defer func() { _ = port.Close() }()

		log.Printf("gps enabled device=%s baud=%d", device, baud)

		reader := bufio.NewScanner(port)
		// NMEA sentences are at most 82 chars; allow headroom for chatter.
		reader.Buffer(make([]byte, 0, 256), 4096)
		for {
			select {
			case <-childCtx.Done():
				return
			default:
			}
			if !reader.Scan() {
				err := reader.Err()
				if err == nil {
					err = io.EOF
				}
				if childCtx.Err() == nil {
					s.setError(fmt.Sprintf("gps read stopped: %v", err))
				}
				return
			}
			s.handleLine(time.Now().UTC(), reader.Text(), true)
		}
	}()

	s.last.Store(Status{Source: "serial", Device: device, Baud: baud, Running: true, UpdatedAt: time.Now().UTC()})
	return nil
}

func (s *Service) startReplayLocked(ctx context.Context) error {
	path := strings.TrimSpace(s.cfg.Replay.Path)
	recs, err := replay.ReadFile(path)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps replay load failed: %v", err))
		return err
	}
	speed := s.cfg.Replay.Speed
	if speed == 0 {
		speed = 1
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish()

		log.Printf("gps replay path=%s records=%d speed=%.2f loop=%t", path, len(recs), speed, s.cfg.Replay.Loop)
		err := replay.Play(recs, speed, s.cfg.Replay.Loop, ctxSleeper{ctx: childCtx}, func(line string) error {
			if err := childCtx.Err(); err != nil {
				return err
			}
			s.handleLine(time.Now().UTC(), line, false)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.setError(fmt.Sprintf("gps replay stopped: %v", err))
			return
		}
		if err == nil {
			log.Printf("gps replay finished path=%s", path)
		}
	}()

	s.last.Store(Status{Source: "replay", Device: path, Running: true, UpdatedAt: time.Now().UTC()})
	return nil
}

// handleLine runs on the reader goroutine only.
func (s *Service) handleLine(now time.Time, line string, record bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if record && s.rec != nil {
		if err := s.rec.WriteLine(now, line); err != nil {
			log.Printf("gps record write failed: %v", err)
		}
	}

	_, err := s.pipeline.Feed(now, line)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.Status()
	cur.Running = true
	cur.Stats = s.pipeline.Stats()
	cur.Rejected = s.pipeline.Rejected()
	cur.Snapshot = s.pipeline.Aggregator().Snapshot(now)
	cur.UpdatedAt = now
	if err != nil && !nmea.Informational(err) {
		cur.LastError = err.Error()
	}
	s.last.Store(cur)
}

// finish runs when the reader goroutine exits.
func (s *Service) finish() {
	s.mu.Lock()
	if s.rec != nil {
		if err := s.rec.Close(); err != nil {
			log.Printf("gps record close failed: %v", err)
		}
		s.rec = nil
	}
	cur := s.Status()
	cur.Running = false
	s.last.Store(cur)
	s.mu.Unlock()
	close(s.done)
}

// Done is closed once the reader goroutine has exited, either because the
// source ended (replay without loop, device gone) or the service was closed.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

func (s *Service) Status() Status {
	if s == nil {
		return Status{}
	}
	v := s.last.Load()
	if v == nil {
		return Status{}
	}
	return v.(Status)
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(msg)
}

func (s *Service) setErrorLocked(msg string) {
	cur := s.Status()
	cur.LastError = msg
	s.last.Store(cur)
	log.Printf("%s", msg)
}

// ctxSleeper lets replay waits end early on cancellation; the next callback
// then observes ctx.Err and stops playback.
type ctxSleeper struct {
	ctx context.Context
}

func (c ctxSleeper) Sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
	case <-t.C:
	}
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
