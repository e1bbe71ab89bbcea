package tcp

import "fmt"

// State is the tag of the eleven protocol states a connection can occupy.
type State int

const (
	// StateClosed represents a connection that doesn't exist. Initial state.
	StateClosed State = iota

	// StateListen represents waiting for a connection request from any peer.
	StateListen

	// StateSynSent represents waiting for a matching connection request
	// after having sent one (active open).
	StateSynSent

	// StateSynRcvd represents waiting for a confirming ACK after having
	// both received and sent a SYN.
	StateSynRcvd

	// StateEstab is the open connection, data transfer state.
	StateEstab

	// StateFinWait1 represents waiting for a FIN from the peer, or an ACK
	// of the FIN previously sent.
	StateFinWait1

	// StateCloseWait represents waiting for the local application to close,
	// having already seen the peer's FIN.
	StateCloseWait

	// StateFinWait2 represents waiting for a FIN from the peer after our
	// own FIN has been acknowledged.
	StateFinWait2

	// StateClosing represents waiting for an ACK of our FIN after having
	// exchanged FINs with the peer (simultaneous close).
	StateClosing

	// StateLastAck represents waiting for an ACK of the FIN sent in
	// response to the peer's FIN.
	StateLastAck

	// StateTimeWait represents waiting for the external timer to expire
	// before releasing the connection. Transition out is timer-driven and
	// lives outside this package.
	StateTimeWait
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateListen:
		return "LISTEN"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynRcvd:
		return "SYN_RCVD"
	case StateEstab:
		return "ESTAB"
	case StateFinWait1:
		return "FIN_WAIT_1"
	case StateCloseWait:
		return "CLOSE_WAIT"
	case StateFinWait2:
		return "FIN_WAIT_2"
	case StateClosing:
		return "CLOSING"
	case StateLastAck:
		return "LAST_ACK"
	case StateTimeWait:
		return "TIME_WAIT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Event is a local stimulus driven into the state machine by the owning
// application, as opposed to a stimulus arriving from the peer.
type Event int

const (
	// EventListen requests a passive open.
	EventListen Event = iota

	// EventConnect requests an active open.
	EventConnect

	// EventSend requests that the given header be stamped and sequenced
	// for transmission. Only this event carries a header.
	EventSend

	// EventClose requests an orderly shutdown of the connection.
	EventClose
)

// String returns the event's name.
func (e Event) String() string {
	switch e {
	case EventListen:
		return "LISTEN"
	case EventConnect:
		return "CONNECT"
	case EventSend:
		return "SEND"
	case EventClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(e))
	}
}
