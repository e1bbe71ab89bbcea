package tcp

import (
	"sync"
	"time"
)

// flightEntry is one stamped segment awaiting acknowledgment, recorded
// as the half-open span of sequence space it occupies.
type flightEntry struct {
	start    uint32
	end      uint32 // start + TcpLength
	header   *TcpHeader
	sentAt   time.Time
	attempts int
}

// RetransmitQueue tracks stamped outbound segments until a cumulative
// acknowledgment covers the sequence span they occupy. The state machine
// never retransmits; a driver records each transmission with Track,
// clears coverage with Ack as acknowledgments arrive, and periodically
// asks Due which segments its timer should put back on the wire.
type RetransmitQueue struct {
	mu     sync.Mutex
	flight []*flightEntry
}

// NewRetransmitQueue returns an empty queue.
func NewRetransmitQueue() *RetransmitQueue {
	return &RetransmitQueue{}
}

// Track records a stamped segment sent at now. Segments that occupy no
// sequence space (pure ACKs) are not tracked; there is nothing for an
// acknowledgment to cover, so they would never leave the queue.
func (q *RetransmitQueue) Track(h *TcpHeader, now time.Time) {
	n := h.TcpLength()
	if n == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flight = append(q.flight, &flightEntry{
		start:  h.SequenceNumber,
		end:    h.SequenceNumber + n,
		header: h,
		sentAt: now,
	})
}

// Ack discards every tracked segment whose span the cumulative
// acknowledgment fully covers, and returns how many were discarded.
// A segment only partially covered stays queued.
func (q *RetransmitQueue) Ack(ack uint32) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.flight[:0]
	for _, e := range q.flight {
		if seqBefore(ack, e.end) {
			kept = append(kept, e)
		}
	}
	dropped := len(q.flight) - len(kept)
	q.flight = kept
	return dropped
}

// Due returns the headers of segments unacknowledged for at least rto as
// of now, restamping each one's sent time and attempt count on the way
// out. The caller transmits them; a segment not acknowledged by the next
// sweep comes due again.
func (q *RetransmitQueue) Due(now time.Time, rto time.Duration) []*TcpHeader {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*TcpHeader
	for _, e := range q.flight {
		if now.Sub(e.sentAt) >= rto {
			e.sentAt = now
			e.attempts++
			due = append(due, e.header)
		}
	}
	return due
}

// InFlight returns the number of segments awaiting acknowledgment.
func (q *RetransmitQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.flight)
}

// Clear drops every tracked segment, for a driver abandoning the
// connection.
func (q *RetransmitQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flight = nil
}
