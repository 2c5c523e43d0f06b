package gps

import (
	"errors"
	"strings"
	"time"

	"gnssfuse/internal/nmea"
)

// Stats counts what a Pipeline has seen.
type Stats struct {
	Lines    uint64 `json:"lines"`
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`

	// ByError is keyed by nmea.KindName.
	ByError    map[string]uint64 `json:"by_error,omitempty"`
	// BySentence is keyed by "SYSTEM/KIND", e.g. "GPS/GGA".
	BySentence map[string]uint64 `json:"by_sentence,omitempty"`
}

func (s Stats) clone() Stats {
	out := s
	out.ByError = make(map[string]uint64, len(s.ByError))
	for k, v := range s.ByError {
		out.ByError[k] = v
	}
	out.BySentence = make(map[string]uint64, len(s.BySentence))
	for k, v := range s.BySentence {
		out.BySentence[k] = v
	}
	return out
}

// Pipeline parses raw lines and applies the accepted ones to an Aggregator.
// A line that fails parsing is counted and leaves the aggregate untouched.
type Pipeline struct {
	agg      *Aggregator
	stats    Stats
	rejected *rejectTail
}

// NewPipeline returns a Pipeline with a fresh Aggregator that remembers the
// last maxRejected rejected lines.
func NewPipeline(maxRejected int) *Pipeline {
	return &Pipeline{
		agg: NewAggregator(),
		stats: Stats{
			ByError:    map[string]uint64{},
			BySentence: map[string]uint64{},
		},
		rejected: newRejectTail(maxRejected, 0),
	}
}

// Feed processes one line. Blank lines are ignored and return a nil error
// with a zero Record.
func (p *Pipeline) Feed(now time.Time, line string) (nmea.Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nmea.Record{}, nil
	}
	p.stats.Lines++

	rec, err := nmea.Parse(line)
	if err != nil {
		kind := nmea.KindName(err)
		p.stats.Rejected++
		p.stats.ByError[kind]++
		reason := err.Error()
		var ne *nmea.Error
		if errors.As(err, &ne) && ne.Reason != "" {
			reason = ne.Reason
		}
		p.rejected.add(Rejection{At: now.UnixMilli(), Kind: kind, Line: line, Reason: reason})
		return nmea.Record{}, err
	}

	p.stats.Accepted++
	p.stats.BySentence[rec.System.String()+"/"+string(rec.Kind)]++
	p.agg.Apply(now, rec)
	return rec, nil
}

func (p *Pipeline) Stats() Stats { return p.stats.clone() }

func (p *Pipeline) Rejected() []Rejection { return p.rejected.snapshot() }

func (p *Pipeline) Aggregator() *Aggregator { return p.agg }
