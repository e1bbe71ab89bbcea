package tcp

// Sink is the abstract consumer of a Reaction: the driver's segment
// emitter and local-event reporter. The state machine never calls a Sink
// directly — it only composes a Reaction, which the facade's caller later
// invokes against its own Sink implementation.
type Sink interface {
	// SendSyn emits a SYN with the given sequence number and window.
	SendSyn(seq uint32, wnd uint16)
	// SendSynAck emits a SYN+ACK.
	SendSynAck(seq, ack uint32, wnd uint16)
	// SendAck emits an ACK.
	SendAck(seq, ack uint32, wnd uint16)
	// SendFin emits a FIN+ACK.
	SendFin(seq, ack uint32, wnd uint16)
	// SendRst emits a RST with the given sequence number.
	SendRst(seq uint32)

	// RecvSyn, RecvAck and RecvFin are upcalls for extended drivers that
	// want visibility into classified inbound segments. The transitions
	// in this package never call them.
	RecvSyn(seq uint32, wnd uint16)
	RecvAck(seq, ack uint32, wnd uint16)
	RecvFin(seq, ack uint32, wnd uint16)

	// Accept accepts the current inbound segment's payload for delivery
	// to the application.
	Accept()
	// Discard drops the current inbound segment.
	Discard()
	// SeqOutofRange reports that a requested send would exceed the window.
	SeqOutofRange(wnd uint16)
	// InvalidOperation reports that the local event is illegal in the
	// current state.
	InvalidOperation()
	// NewConnection notifies the listener that an incoming SYN opened a
	// child connection.
	NewConnection()
}

// Reaction is a suspended, ordered description of Sink calls produced by
// one transition. It performs no I/O and allocates nothing on its own;
// invoking it against a Sink is the facade caller's responsibility (in
// this package, Manager and Socket), never the state machine's. A
// Reaction that combines multiple Sink calls preserves the order they
// were composed in.
type Reaction func(Sink)

// noop is the Reaction for transitions that have no observable side effect
// (e.g. a successful EventSend stamp, or an idempotent Listen from Closed).
func noop(Sink) {}

// compound runs each Reaction in order against the same Sink, preserving
// the ordering guarantee required of a single transition's side effects
// (e.g. Accept before SendAck).
func compound(reactions ...Reaction) Reaction {
	return func(s Sink) {
		for _, r := range reactions {
			r(s)
		}
	}
}

func sendSyn(seq uint32, wnd uint16) Reaction {
	return func(s Sink) { s.SendSyn(seq, wnd) }
}

func sendSynAck(seq, ack uint32, wnd uint16) Reaction {
	return func(s Sink) { s.SendSynAck(seq, ack, wnd) }
}

func sendAck(seq, ack uint32, wnd uint16) Reaction {
	return func(s Sink) { s.SendAck(seq, ack, wnd) }
}

func sendFin(seq, ack uint32, wnd uint16) Reaction {
	return func(s Sink) { s.SendFin(seq, ack, wnd) }
}

func sendRst(seq uint32) Reaction {
	return func(s Sink) { s.SendRst(seq) }
}

func accept() Reaction {
	return func(s Sink) { s.Accept() }
}

func discard() Reaction {
	return func(s Sink) { s.Discard() }
}

func seqOutofRange(wnd uint16) Reaction {
	return func(s Sink) { s.SeqOutofRange(wnd) }
}

func invalidOperation() Reaction {
	return func(s Sink) { s.InvalidOperation() }
}

func newConnection() Reaction {
	return func(s Sink) { s.NewConnection() }
}
