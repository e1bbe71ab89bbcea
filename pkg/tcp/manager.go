package tcp

import "time"

// StateManager is the facade a driver holds one of per connection: the
// single entry point into the state machine. It owns the TCB and the
// Params the machine consults when a connection leaves Closed.
//
// StateManager is not safe for concurrent use; callers must serialize
// calls to Apply/ApplySegment themselves, exactly one at a time per
// instance.
type StateManager struct {
	tcb    TCB
	params Params
	stats  *Stats
}

// Option configures a StateManager at construction.
type Option func(*StateManager)

// WithStats attaches a Stats collector that counts transitions and, once
// a reaction is invoked, the sink outcomes it produced.
func WithStats(st *Stats) Option {
	return func(m *StateManager) { m.stats = st }
}

// NewStateManager returns a StateManager in StateClosed using the given
// Params for ISS and window defaults.
func NewStateManager(params Params, opts ...Option) *StateManager {
	m := &StateManager{tcb: TCB{State: StateClosed}, params: params}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewDefaultStateManager returns a StateManager in StateClosed using
// DefaultParams.
func NewDefaultStateManager() *StateManager {
	return NewStateManager(DefaultParams())
}

// State returns the current state tag.
func (m *StateManager) State() State {
	return m.tcb.State
}

// LocalWindow returns the locally advertised send window (snd_wnd).
func (m *StateManager) LocalWindow() uint16 {
	return m.tcb.Window()
}

// PeerWindow returns the peer's last advertised window (rcv_wnd).
func (m *StateManager) PeerWindow() uint16 {
	return m.tcb.PeerWindow()
}

// TCB returns a copy of the manager's Transmission Control Block, for
// drivers that want to inspect sequence/ack bookkeeping without mutating
// it (tests, instrumentation).
func (m *StateManager) TCB() TCB {
	return m.tcb
}

// Reset unconditionally re-initializes the TCB to a fresh StateClosed,
// bypassing the transition table. It is the escape hatch for a driver
// aborting a connection after emitting its own RST; no reaction is
// produced and no sink call records the abort.
func (m *StateManager) Reset() {
	m.tcb = TCB{State: StateClosed}
}

// instrument wraps a reaction so the attached Stats sees the sink
// outcomes when the caller eventually invokes it.
func (m *StateManager) instrument(r Reaction, start time.Time) Reaction {
	if m.stats == nil {
		return r
	}
	st := m.stats
	st.recordApply(start)
	return func(s Sink) { r(statsSink{Sink: s, stats: st}) }
}

// Apply drives a local event into the state machine. header is only
// consulted (and, for EventSend, mutated) when e is EventSend; callers
// should pass nil for every other event.
func (m *StateManager) Apply(e Event, header *TcpHeader) Reaction {
	start := time.Now()
	var reaction Reaction
	var next State

	switch m.tcb.State {
	case StateClosed:
		reaction, next = onEventClosed(&m.tcb, e, header, m.params)
	case StateListen:
		reaction, next = onEventListen(&m.tcb, e, header, m.params)
	case StateSynSent:
		reaction, next = onEventSynSent(&m.tcb, e, header, m.params)
	case StateSynRcvd:
		reaction, next = onEventSynRcvd(&m.tcb, e, header, m.params)
	case StateEstab:
		reaction, next = onEventEstab(&m.tcb, e, header, m.params)
	case StateFinWait1:
		reaction, next = onEventFinWait1(&m.tcb, e, header, m.params)
	case StateFinWait2:
		reaction, next = onEventFinWait2(&m.tcb, e, header, m.params)
	case StateCloseWait:
		reaction, next = onEventCloseWait(&m.tcb, e, header, m.params)
	case StateClosing:
		reaction, next = onEventClosing(&m.tcb, e, header, m.params)
	case StateLastAck:
		reaction, next = onEventLastAck(&m.tcb, e, header, m.params)
	case StateTimeWait:
		reaction, next = onEventTimeWait(&m.tcb, e, header, m.params)
	default:
		reaction, next = invalidOperation(), m.tcb.State
	}

	m.tcb.State = next
	return m.instrument(reaction, start)
}

// ApplySegment drives an incoming decoded segment into the state machine.
func (m *StateManager) ApplySegment(header *TcpHeader) Reaction {
	start := time.Now()
	var reaction Reaction
	var next State

	switch m.tcb.State {
	case StateClosed:
		reaction, next = onSegmentClosed(&m.tcb, header, m.params)
	case StateListen:
		reaction, next = onSegmentListen(&m.tcb, header, m.params)
	case StateSynSent:
		reaction, next = onSegmentSynSent(&m.tcb, header, m.params)
	case StateSynRcvd:
		reaction, next = onSegmentSynRcvd(&m.tcb, header, m.params)
	case StateEstab:
		reaction, next = onSegmentEstab(&m.tcb, header, m.params)
	case StateFinWait1:
		reaction, next = onSegmentFinWait1(&m.tcb, header, m.params)
	case StateFinWait2:
		reaction, next = onSegmentFinWait2(&m.tcb, header, m.params)
	case StateCloseWait:
		reaction, next = onSegmentCloseWait(&m.tcb, header, m.params)
	case StateClosing:
		reaction, next = onSegmentClosing(&m.tcb, header, m.params)
	case StateLastAck:
		reaction, next = onSegmentLastAck(&m.tcb, header, m.params)
	case StateTimeWait:
		reaction, next = onSegmentTimeWait(&m.tcb, header, m.params)
	default:
		reaction, next = discard(), m.tcb.State
	}

	m.tcb.State = next
	return m.instrument(reaction, start)
}
