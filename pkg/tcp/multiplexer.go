package tcp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nsegment/tcpstate/pkg/common"
)

// Peer identifies a remote endpoint a Manager's children are keyed by.
type Peer struct {
	Addr common.IPv4Address
	Port uint16
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

// Transport is the outbound half of a driver's Sink: where emitted
// segments actually go. A Manager composes Transport with its own
// bookkeeping to implement Sink for every StateManager it owns.
type Transport interface {
	Send(peer Peer, header *TcpHeader) error
}

// Manager is the listener/child multiplexer: it owns one listening
// StateManager and a registry of per-peer child StateManagers, and
// implements the handoff described for NewConnection — allocate a child
// in Closed, replay the SYN into it, and register it so later segments
// for that peer route to the child instead of the listener.
type Manager struct {
	local common.IPv4Address
	port  uint16

	transport Transport
	params    Params
	log       *Logger

	mu       sync.Mutex
	listener *StateManager
	children map[Peer]*StateManager
	accept   chan Peer
}

// NewManager returns a Manager bound to local:port, sending outbound
// segments through transport and using params for every StateManager it
// creates. A nil logger falls back to slog.Default().
func NewManager(local common.IPv4Address, port uint16, transport Transport, params Params, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		local:     local,
		port:      port,
		transport: transport,
		params:    params,
		log:       NewLogger(logger),
		children:  make(map[Peer]*StateManager),
		accept:    make(chan Peer, 128),
	}
}

// Listen puts the manager's listening StateManager into StateListen.
func (m *Manager) Listen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = NewStateManager(m.params)
	m.listener.Apply(EventListen, nil)
}

// Accept blocks until the listener's handoff has registered a child
// connection, then returns its peer. The peer is queued when the child is
// allocated, so the child may not yet have reached StateEstab. Callers
// look the child's StateManager up with Child.
func (m *Manager) Accept() Peer {
	return <-m.accept
}

// Child returns the StateManager registered for peer, if any.
func (m *Manager) Child(peer Peer) (*StateManager, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sm, ok := m.children[peer]
	return sm, ok
}

// Connect actively opens a connection to peer, registering a fresh child
// StateManager and returning it. The mutex is released before the SYN
// reaction runs so a synchronous loopback transport can deliver the
// peer's answer straight back into this manager.
func (m *Manager) Connect(peer Peer) *StateManager {
	m.mu.Lock()
	sm := NewStateManager(m.params)
	m.children[peer] = sm
	m.mu.Unlock()

	reaction := sm.Apply(EventConnect, nil)
	reaction(m.sinkFor(peer))
	return sm
}

// Send stamps data onto a fresh header through the child StateManager for
// peer and hands it to the transport. Returns ErrWindowExceeded when the
// state machine reports the send would exceed the window, and an error if
// no child connection exists for peer.
func (m *Manager) Send(peer Peer, data []byte) error {
	m.mu.Lock()
	sm, ok := m.children[peer]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("tcp: no connection for peer %s", peer)
	}

	h := &TcpHeader{
		SourcePort:      m.port,
		DestinationPort: peer.Port,
		Window:          sm.LocalWindow(),
		Data:            data,
	}

	var outOfRange bool
	reaction := sm.Apply(EventSend, h)
	reaction(sinkFunc{
		seqOutofRange: func(uint16) { outOfRange = true },
		sendOther:     m.sinkFor(peer),
	})
	if outOfRange {
		return ErrWindowExceeded
	}
	return m.transport.Send(peer, h)
}

// Close drives an orderly EventClose into the child StateManager for peer.
func (m *Manager) Close(peer Peer) error {
	m.mu.Lock()
	sm, ok := m.children[peer]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("tcp: no connection for peer %s", peer)
	}
	reaction := sm.Apply(EventClose, nil)
	reaction(m.sinkFor(peer))
	return nil
}

// Deliver feeds an incoming segment from peer to the correct
// StateManager — the registered child if one exists, otherwise the
// listener — and runs the resulting reaction against the manager's
// transport.
func (m *Manager) Deliver(peer Peer, header *TcpHeader) {
	m.mu.Lock()
	sm, ok := m.children[peer]
	listener := m.listener
	m.mu.Unlock()

	if !ok {
		if listener == nil {
			return
		}
		sm = listener
	}

	from := sm.State()
	reaction := sm.ApplySegment(header)
	reaction(m.sinkFor(peer))
	m.log.logTransition(from, header.String(), sm.State())

	if !ok && sm.State() == StateListen {
		// Listener consumed a bare SYN; the sink's NewConnection call
		// (below) already spawned and registered the child, so replay
		// this SYN into it now that it exists.
		m.mu.Lock()
		child, spawned := m.children[peer]
		m.mu.Unlock()
		if spawned {
			childReaction := child.ApplySegment(header)
			childReaction(m.sinkFor(peer))
			m.log.info("tcp: spawned child connection", "peer", peer.String())
		}
	}
}

// SendRST emits a bare RST with the given sequence number to peer,
// bypassing the state machine. This is the only RST emission path this
// package exposes outside of Closed's automatic reject.
func (m *Manager) SendRST(peer Peer, seq uint32) error {
	m.log.warn("tcp: sending reset", "peer", peer.String(), "seq", seq)
	return m.transport.Send(peer, &TcpHeader{
		SourcePort:      m.port,
		DestinationPort: peer.Port,
		SequenceNumber:  seq,
		Rst:             true,
	})
}

// managerSink adapts a Manager+peer pair into a Sink, routing Send*
// reactions to the transport and handling NewConnection by allocating
// and registering a child StateManager in Closed.
type managerSink struct {
	m    *Manager
	peer Peer
}

func (m *Manager) sinkFor(peer Peer) Sink {
	return &managerSink{m: m, peer: peer}
}

func (s *managerSink) header(seq, ack uint32, wnd uint16, syn, ackFlag, fin bool) *TcpHeader {
	return &TcpHeader{
		SourcePort:            s.m.port,
		DestinationPort:       s.peer.Port,
		SequenceNumber:        seq,
		AcknowledgementNumber: ack,
		Window:                wnd,
		Syn:                   syn,
		Ack:                   ackFlag,
		Fin:                   fin,
	}
}

func (s *managerSink) SendSyn(seq uint32, wnd uint16) {
	s.m.transport.Send(s.peer, s.header(seq, 0, wnd, true, false, false))
}

func (s *managerSink) SendSynAck(seq, ack uint32, wnd uint16) {
	s.m.transport.Send(s.peer, s.header(seq, ack, wnd, true, true, false))
}

func (s *managerSink) SendAck(seq, ack uint32, wnd uint16) {
	s.m.transport.Send(s.peer, s.header(seq, ack, wnd, false, true, false))
}

func (s *managerSink) SendFin(seq, ack uint32, wnd uint16) {
	s.m.transport.Send(s.peer, s.header(seq, ack, wnd, false, true, true))
}

func (s *managerSink) SendRst(seq uint32) {
	s.m.transport.Send(s.peer, &TcpHeader{
		SourcePort:      s.m.port,
		DestinationPort: s.peer.Port,
		SequenceNumber:  seq,
		Rst:             true,
	})
}

func (s *managerSink) RecvSyn(seq uint32, wnd uint16) {}
func (s *managerSink) RecvAck(seq, ack uint32, wnd uint16) {}
func (s *managerSink) RecvFin(seq, ack uint32, wnd uint16) {}
func (s *managerSink) Accept() {}
func (s *managerSink) Discard() {}
func (s *managerSink) SeqOutofRange(wnd uint16) {}
func (s *managerSink) InvalidOperation() {}

// NewConnection allocates a fresh child StateManager in Closed and
// registers it under the listener's peer, per the handoff contract: the
// caller (Deliver) replays the triggering SYN into it immediately after.
func (s *managerSink) NewConnection() {
	s.m.mu.Lock()
	if _, exists := s.m.children[s.peer]; !exists {
		s.m.children[s.peer] = NewStateManager(s.m.params)
	}
	s.m.mu.Unlock()

	select {
	case s.m.accept <- s.peer:
	default:
	}
}
