package gps

// Rejection is one line the pipeline could not use.
type Rejection struct {
	At     int64  `json:"at_unix_ms"`
	Kind   string `json:"kind"`
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// rejectTail keeps the most recent rejections. It is not safe for concurrent
// use; the owning Pipeline is driven from a single goroutine.
type rejectTail struct {
	maxEntries   int
	maxLineBytes int
	entries      []Rejection
}

func newRejectTail(maxEntries int, maxLineBytes int) *rejectTail {
	if maxEntries < 0 {
		maxEntries = 0
	}
	if maxLineBytes <= 0 {
		maxLineBytes = 256
	}
	return &rejectTail{maxEntries: maxEntries, maxLineBytes: maxLineBytes, entries: make([]Rejection, 0, maxEntries)}
}

func (t *rejectTail) add(r Rejection) {
	if t == nil || t.maxEntries == 0 {
		return
	}
	if len(r.Line) > t.maxLineBytes {
		r.Line = r.Line[:t.maxLineBytes]
	}
	if len(t.entries) < t.maxEntries {
		t.entries = append(t.entries, r)
		return
	}
	copy(t.entries, t.entries[1:])
	t.entries[len(t.entries)-1] = r
}

func (t *rejectTail) snapshot() []Rejection {
	if t == nil {
		return nil
	}
	out := make([]Rejection, 0, len(t.entries))
	out = append(out, t.entries...)
	return out
}
