package tcp

import (
	"sync/atomic"
	"time"
)

// Stats collects counters for one StateManager. All fields use atomics so
// a driver may read a snapshot while another goroutine holds the
// per-connection exclusion and drives the machine.
type Stats struct {
	transitions       atomic.Uint64
	segmentsAccepted  atomic.Uint64
	segmentsDiscarded atomic.Uint64
	invalidOperations atomic.Uint64
	outOfWindowSends  atomic.Uint64
	resetsSent        atomic.Uint64

	applyTime atomic.Uint64 // cumulative nanoseconds spent in Apply/ApplySegment

	// Latency distribution of Apply/ApplySegment calls, in microseconds:
	// 0-1, 1-2, 2-5, 5-10, 10-20, 20-50, 50-100, 100+
	latencyHistogram [8]atomic.Uint64
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats {
	return &Stats{}
}

// StatsSnapshot is a point-in-time copy of a Stats' counters.
type StatsSnapshot struct {
	Transitions       uint64
	SegmentsAccepted  uint64
	SegmentsDiscarded uint64
	InvalidOperations uint64
	OutOfWindowSends  uint64
	ResetsSent        uint64
	ApplyTime         time.Duration
	LatencyHistogram  [8]uint64
}

// Snapshot copies the current counter values.
func (st *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Transitions:       st.transitions.Load(),
		SegmentsAccepted:  st.segmentsAccepted.Load(),
		SegmentsDiscarded: st.segmentsDiscarded.Load(),
		InvalidOperations: st.invalidOperations.Load(),
		OutOfWindowSends:  st.outOfWindowSends.Load(),
		ResetsSent:        st.resetsSent.Load(),
		ApplyTime:         time.Duration(st.applyTime.Load()),
	}
	for i := range st.latencyHistogram {
		snap.LatencyHistogram[i] = st.latencyHistogram[i].Load()
	}
	return snap
}

func (st *Stats) recordApply(start time.Time) {
	d := time.Since(start)
	st.transitions.Add(1)
	st.applyTime.Add(uint64(d.Nanoseconds()))

	us := d.Microseconds()
	var bin int
	switch {
	case us < 1:
		bin = 0
	case us < 2:
		bin = 1
	case us < 5:
		bin = 2
	case us < 10:
		bin = 3
	case us < 20:
		bin = 4
	case us < 50:
		bin = 5
	case us < 100:
		bin = 6
	default:
		bin = 7
	}
	st.latencyHistogram[bin].Add(1)
}

// statsSink wraps the caller's Sink so reaction outcomes are counted as
// they are observed, without changing the calls the caller sees.
type statsSink struct {
	Sink
	stats *Stats
}

func (s statsSink) Accept() {
	s.stats.segmentsAccepted.Add(1)
	s.Sink.Accept()
}

func (s statsSink) Discard() {
	s.stats.segmentsDiscarded.Add(1)
	s.Sink.Discard()
}

func (s statsSink) InvalidOperation() {
	s.stats.invalidOperations.Add(1)
	s.Sink.InvalidOperation()
}

func (s statsSink) SeqOutofRange(wnd uint16) {
	s.stats.outOfWindowSends.Add(1)
	s.Sink.SeqOutofRange(wnd)
}

func (s statsSink) SendRst(seq uint32) {
	s.stats.resetsSent.Add(1)
	s.Sink.SendRst(seq)
}
