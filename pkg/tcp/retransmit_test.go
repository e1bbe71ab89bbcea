package tcp

import (
	"testing"
	"time"
)

func TestRetransmitQueueTrackAndAck(t *testing.T) {
	q := NewRetransmitQueue()
	now := time.Now()

	if q.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", q.InFlight())
	}

	// Pure ACKs occupy no sequence space and are never tracked.
	q.Track(&TcpHeader{Ack: true, SequenceNumber: 11}, now)
	if q.InFlight() != 0 {
		t.Errorf("InFlight() after pure ACK = %d, want 0", q.InFlight())
	}

	q.Track(&TcpHeader{Syn: true, SequenceNumber: 10}, now)                        // [10,11)
	q.Track(&TcpHeader{Ack: true, SequenceNumber: 11, Data: []byte("hello")}, now) // [11,16)
	q.Track(&TcpHeader{Ack: true, SequenceNumber: 16, Data: []byte("world")}, now) // [16,21)
	if q.InFlight() != 3 {
		t.Fatalf("InFlight() = %d, want 3", q.InFlight())
	}

	// An ack covering only part of a segment's span leaves it queued.
	if dropped := q.Ack(13); dropped != 1 {
		t.Errorf("Ack(13) dropped %d, want 1 (the SYN)", dropped)
	}
	if q.InFlight() != 2 {
		t.Errorf("InFlight() = %d, want 2", q.InFlight())
	}

	// A cumulative ack at the end of a span retires it.
	if dropped := q.Ack(16); dropped != 1 {
		t.Errorf("Ack(16) dropped %d, want 1", dropped)
	}
	if dropped := q.Ack(21); dropped != 1 {
		t.Errorf("Ack(21) dropped %d, want 1", dropped)
	}
	if q.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", q.InFlight())
	}
}

func TestRetransmitQueueDue(t *testing.T) {
	q := NewRetransmitQueue()
	base := time.Now()

	q.Track(&TcpHeader{Ack: true, SequenceNumber: 11, Data: []byte("old")}, base)
	q.Track(&TcpHeader{Ack: true, SequenceNumber: 14, Data: []byte("new")}, base.Add(50*time.Millisecond))

	// Only the segment older than the timeout comes due.
	due := q.Due(base.Add(60*time.Millisecond), 55*time.Millisecond)
	if len(due) != 1 {
		t.Fatalf("Due() returned %d segments, want 1", len(due))
	}
	if string(due[0].Data) != "old" {
		t.Errorf("Due() returned %q, want %q", due[0].Data, "old")
	}

	// Due restamps, so an immediate second sweep finds nothing.
	if again := q.Due(base.Add(61*time.Millisecond), 55*time.Millisecond); len(again) != 0 {
		t.Errorf("second Due() returned %d segments, want 0", len(again))
	}

	// After another full timeout the restamped segment comes due again.
	later := q.Due(base.Add(200*time.Millisecond), 55*time.Millisecond)
	if len(later) != 2 {
		t.Errorf("third Due() returned %d segments, want 2", len(later))
	}
}

func TestRetransmitQueueClear(t *testing.T) {
	q := NewRetransmitQueue()
	q.Track(&TcpHeader{Syn: true, SequenceNumber: 10}, time.Now())
	q.Clear()
	if q.InFlight() != 0 {
		t.Errorf("InFlight() after Clear = %d, want 0", q.InFlight())
	}
}
