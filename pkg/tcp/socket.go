// Package tcp implements the TCP socket adapter: a blocking,
// channel-based API layered over a StateManager for callers that want
// something closer to a conventional socket than the raw apply/reaction
// contract.
package tcp

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nsegment/tcpstate/pkg/common"
)

// Socket wraps one StateManager with the application-facing plumbing the
// state machine itself stays agnostic of: an outbound segment sink, a
// receive queue for accepted data, and a channel that is closed once an
// inbound segment leaves the connection in Closed or TimeWait.
type Socket struct {
	localAddr  common.IPv4Address
	localPort  uint16
	remoteAddr common.IPv4Address
	remotePort uint16

	sm *StateManager

	sendFunc func(*TcpHeader, common.IPv4Address, common.IPv4Address) error

	sendq   *SendQueue
	rtx     *RetransmitQueue
	recvq   *ReceiveQueue
	inbound *TcpHeader // segment currently being delivered; consumed by Accept
	dataCh  chan struct{}
	closeCh chan struct{}
	closed  bool
	log     *Logger

	mu sync.Mutex
}

// NewSocket creates a socket bound to localAddr:localPort, driving its
// own fresh StateManager in StateClosed. A nil logger falls back to
// slog.Default().
func NewSocket(localAddr common.IPv4Address, localPort uint16, params Params, logger *slog.Logger) *Socket {
	if logger == nil {
		logger = slog.Default()
	}
	return &Socket{
		localAddr: localAddr,
		localPort: localPort,
		sm:        NewStateManager(params),
		sendq:     NewSendQueue(),
		rtx:       NewRetransmitQueue(),
		recvq:     NewReceiveQueue(64 * 1024),
		dataCh:    make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
		log:       NewLogger(logger),
	}
}

// SetSendFunc installs the function invoked whenever a reaction calls one
// of the Send* sink operations.
func (s *Socket) SetSendFunc(f func(*TcpHeader, common.IPv4Address, common.IPv4Address) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendFunc = f
}

// Connect drives an active open against remoteAddr:remotePort.
func (s *Socket) Connect(remoteAddr common.IPv4Address, remotePort uint16) error {
	s.mu.Lock()
	s.remoteAddr = remoteAddr
	s.remotePort = remotePort
	s.mu.Unlock()

	reaction := s.sm.Apply(EventConnect, nil)
	reaction(s)
	s.log.info("tcp: connecting", "remote", remoteAddr.String(), "port", remotePort)
	return nil
}

// Listen puts the socket's StateManager into StateListen. A Socket does
// not perform the listener/child handoff (its NewConnection is a no-op);
// Manager implements the accept/handoff path.
func (s *Socket) Listen() error {
	reaction := s.sm.Apply(EventListen, nil)
	reaction(s)
	return nil
}

// Deliver feeds an inbound segment from the peer into the socket's state
// machine and runs the resulting reaction. While the reaction runs, h is
// the segment Accept refers to.
func (s *Socket) Deliver(h *TcpHeader) {
	s.mu.Lock()
	s.inbound = h
	s.mu.Unlock()

	from := s.sm.State()
	reaction := s.sm.ApplySegment(h)
	reaction(s)
	s.log.logTransition(from, h.String(), s.sm.State())

	if h.Ack {
		s.rtx.Ack(h.AcknowledgementNumber)
	}

	s.mu.Lock()
	s.inbound = nil
	st := s.sm.State()
	if (st == StateClosed || st == StateTimeWait) && !s.closed {
		s.closed = true
		close(s.closeCh)
	}
	s.mu.Unlock()
}

// Send stamps and transmits data through the connection. Returns
// ErrWindowExceeded if the state machine reports SeqOutofRange; the
// refused data is queued and can be retried with Flush once the window
// has room.
func (s *Socket) Send(data []byte) error {
	if err := s.sendSegment(data); err != nil {
		if errors.Is(err, ErrWindowExceeded) {
			s.sendq.Queue(data)
		}
		return err
	}
	return nil
}

func (s *Socket) sendSegment(data []byte) error {
	h := &TcpHeader{
		SourcePort:      s.localPort,
		DestinationPort: s.remotePort,
		Window:          s.sm.LocalWindow(),
		Data:            data,
	}

	var outOfRange bool
	reaction := s.sm.Apply(EventSend, h)
	reaction(sinkFunc{
		seqOutofRange: func(uint16) { outOfRange = true },
		sendOther:     s,
	})
	if outOfRange {
		return ErrWindowExceeded
	}

	s.mu.Lock()
	sendFunc := s.sendFunc
	remote := s.remoteAddr
	local := s.localAddr
	s.mu.Unlock()

	s.rtx.Track(h, time.Now())
	if sendFunc != nil {
		return sendFunc(h, local, remote)
	}
	return nil
}

// Flush retries data a previous Send left queued behind the window, in
// chunks sized to what the window currently allows. Returns
// ErrWindowExceeded with the remainder still queued when the window
// fills up again.
func (s *Socket) Flush() error {
	for s.sendq.Len() > 0 {
		tcb := s.sm.TCB()
		room := int64(tcb.SndWnd) - int64(tcb.SndNxt) - 1
		if room <= 0 {
			return ErrWindowExceeded
		}
		if err := s.sendSegment(s.sendq.Dequeue(int(room))); err != nil {
			return err
		}
	}
	return nil
}

// Pending reports the number of bytes queued behind the window.
func (s *Socket) Pending() int {
	return s.sendq.Len()
}

// Retransmit resends every segment that has gone unacknowledged for at
// least rto and restamps its sent time. Returns how many segments went
// out. The caller owns the timer; this package never schedules one.
func (s *Socket) Retransmit(rto time.Duration) int {
	due := s.rtx.Due(time.Now(), rto)

	s.mu.Lock()
	sendFunc := s.sendFunc
	local, remote := s.localAddr, s.remoteAddr
	s.mu.Unlock()

	for _, h := range due {
		if sendFunc != nil {
			sendFunc(h, local, remote)
		}
	}
	return len(due)
}

// Recv blocks until data has been accepted by the state machine, or
// timeout elapses (zero means wait forever). Returns io-style empty
// slice and false on timeout.
func (s *Socket) Recv(timeout time.Duration) ([]byte, bool) {
	for {
		if n := s.recvq.Len(); n > 0 {
			return s.recvq.Read(n), true
		}
		if timeout == 0 {
			select {
			case <-s.dataCh:
			case <-s.closeCh:
				return nil, false
			}
			continue
		}
		select {
		case <-s.dataCh:
		case <-s.closeCh:
			return nil, false
		case <-time.After(timeout):
			return nil, false
		}
	}
}

// Close drives an orderly EventClose into the state machine.
func (s *Socket) Close() error {
	reaction := s.sm.Apply(EventClose, nil)
	reaction(s)
	return nil
}

// State returns the socket's current connection state.
func (s *Socket) State() State {
	return s.sm.State()
}

func (s *Socket) signalData() {
	select {
	case s.dataCh <- struct{}{}:
	default:
	}
}

func (s *Socket) emit(seq, ack uint32, wnd uint16, syn, ackFlag, fin bool) {
	s.mu.Lock()
	sendFunc := s.sendFunc
	local, remote := s.localAddr, s.remoteAddr
	s.mu.Unlock()
	if sendFunc == nil {
		return
	}
	sendFunc(&TcpHeader{
		SourcePort:            s.localPort,
		DestinationPort:       s.remotePort,
		SequenceNumber:        seq,
		AcknowledgementNumber: ack,
		Window:                wnd,
		Syn:                   syn,
		Ack:                   ackFlag,
		Fin:                   fin,
	}, local, remote)
}

// Socket implements Sink directly so Deliver/Connect/Listen/Close can
// hand their reaction straight to it.
func (s *Socket) SendSyn(seq uint32, wnd uint16) { s.emit(seq, 0, wnd, true, false, false) }
func (s *Socket) SendSynAck(seq, ack uint32, wnd uint16) { s.emit(seq, ack, wnd, true, true, false) }
func (s *Socket) SendAck(seq, ack uint32, wnd uint16) { s.emit(seq, ack, wnd, false, true, false) }
func (s *Socket) SendFin(seq, ack uint32, wnd uint16) { s.emit(seq, ack, wnd, false, true, true) }
func (s *Socket) SendRst(seq uint32) {
	s.mu.Lock()
	sendFunc := s.sendFunc
	local, remote := s.localAddr, s.remoteAddr
	s.mu.Unlock()
	if sendFunc != nil {
		sendFunc(&TcpHeader{SourcePort: s.localPort, DestinationPort: s.remotePort, SequenceNumber: seq, Rst: true}, local, remote)
	}
}
func (s *Socket) RecvSyn(uint32, uint16) {}
func (s *Socket) RecvAck(uint32, uint32, uint16) {}
func (s *Socket) RecvFin(uint32, uint32, uint16) {}
func (s *Socket) Accept() {
	s.mu.Lock()
	h := s.inbound
	s.mu.Unlock()
	if h != nil && len(h.Data) > 0 {
		s.recvq.Insert(h.SequenceNumber, h.Data)
	}
	s.signalData()
}
func (s *Socket) Discard() {}
func (s *Socket) SeqOutofRange(uint16) {}
func (s *Socket) InvalidOperation() {}
func (s *Socket) NewConnection() {
	// A bare Socket isn't the listener/child collaborator described for
	// the core's handoff; that role belongs to Manager.
}

// sinkFunc is a throwaway Sink used by Send to intercept SeqOutofRange
// without losing the rest of the socket's normal Sink behavior.
type sinkFunc struct {
	seqOutofRange func(uint16)
	sendOther     Sink
}

func (f sinkFunc) SendSyn(seq uint32, wnd uint16) { f.sendOther.SendSyn(seq, wnd) }
func (f sinkFunc) SendSynAck(seq, ack uint32, wnd uint16) { f.sendOther.SendSynAck(seq, ack, wnd) }
func (f sinkFunc) SendAck(seq, ack uint32, wnd uint16) { f.sendOther.SendAck(seq, ack, wnd) }
func (f sinkFunc) SendFin(seq, ack uint32, wnd uint16) { f.sendOther.SendFin(seq, ack, wnd) }
func (f sinkFunc) SendRst(seq uint32) { f.sendOther.SendRst(seq) }
func (f sinkFunc) RecvSyn(seq uint32, wnd uint16) { f.sendOther.RecvSyn(seq, wnd) }
func (f sinkFunc) RecvAck(seq, ack uint32, wnd uint16) { f.sendOther.RecvAck(seq, ack, wnd) }
func (f sinkFunc) RecvFin(seq, ack uint32, wnd uint16) { f.sendOther.RecvFin(seq, ack, wnd) }
func (f sinkFunc) Accept() { f.sendOther.Accept() }
func (f sinkFunc) Discard() { f.sendOther.Discard() }
func (f sinkFunc) SeqOutofRange(wnd uint16) { f.seqOutofRange(wnd) }
func (f sinkFunc) InvalidOperation() { f.sendOther.InvalidOperation() }
func (f sinkFunc) NewConnection() { f.sendOther.NewConnection() }

// ErrWindowExceeded is returned by Socket.Send when the state machine
// reports SeqOutofRange for the attempted write.
var ErrWindowExceeded = fmt.Errorf("tcp: send exceeds window")
