package tcp

// Per-state, per-stimulus handlers. Each state gets one onEvent and one
// onSegment function; together they form the (state × stimulus → handler)
// table the facade dispatches through.
//
// Both return the Reaction to run and the next state to install. Handlers
// mutate tcb in place before returning, matching the ordering guarantee
// that TCB mutation happens before the next state tag is installed.

func onEventClosed(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	switch e {
	case EventListen:
		return noop, StateListen
	case EventConnect:
		tcb.SndSeq = params.iss()
		tcb.SndUna = tcb.SndSeq + 1
		tcb.SndNxt = tcb.SndSeq + 1
		tcb.SndWnd = params.window()
		return sendSyn(tcb.SndSeq, tcb.SndWnd), StateSynSent
	default:
		return invalidOperation(), StateClosed
	}
}

func onSegmentClosed(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isSyn(h) {
		tcb.SndSeq = params.iss()
		tcb.SndUna = tcb.SndSeq + 1
		tcb.SndNxt = tcb.SndSeq + 1
		tcb.SndWnd = params.window()
		tcb.RcvNxt = h.SequenceNumber + 1
		tcb.RcvWnd = h.Window
		return compound(accept(), sendSynAck(tcb.SndSeq, tcb.RcvNxt, tcb.SndWnd)), StateSynRcvd
	}
	return compound(discard(), sendRst(h.AcknowledgementNumber)), StateClosed
}

func onEventListen(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateListen
}

func onSegmentListen(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isSyn(h) {
		return compound(accept(), newConnection()), StateListen
	}
	return discard(), StateListen
}

func onEventSynSent(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateSynSent
}

func onSegmentSynSent(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	switch {
	case isSyn(h):
		tcb.RcvNxt = h.SequenceNumber + 1
		tcb.RcvWnd = h.Window
		return compound(accept(), sendAck(tcb.SndNxt, tcb.RcvNxt, tcb.SndWnd)), StateSynRcvd
	case isSynAck(h) && ackInRange(h, tcb):
		tcb.RcvNxt = h.SequenceNumber + 1
		tcb.RcvWnd = h.Window
		return compound(accept(), sendAck(tcb.SndNxt, tcb.RcvNxt, tcb.SndWnd)), StateEstab
	default:
		return discard(), StateSynSent
	}
}

func onEventSynRcvd(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	if e == EventClose {
		seq := tcb.SndNxt
		tcb.SndNxt++
		return sendFin(seq, tcb.RcvNxt, tcb.SndWnd), StateFinWait1
	}
	return invalidOperation(), StateSynRcvd
}

func onSegmentSynRcvd(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isAck(h) && seqAckInRange(h, tcb) {
		tcb.SndUna = h.AcknowledgementNumber + 1
		return accept(), StateEstab
	}
	return discard(), StateSynRcvd
}

func onEventEstab(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	switch e {
	case EventSend:
		// Absolute snd_nxt+len >= snd_wnd check, no wraparound handling;
		// preserved as the source has it.
		if tcb.SndNxt+h.TcpLength() >= uint32(tcb.SndWnd) {
			return seqOutofRange(tcb.SndWnd), StateEstab
		}
		h.Ack = true
		h.SequenceNumber = tcb.SndNxt
		h.AcknowledgementNumber = tcb.RcvNxt
		tcb.SndNxt += h.TcpLength()
		return noop, StateEstab
	case EventClose:
		seq := tcb.SndNxt
		tcb.SndNxt++
		return sendFin(seq, tcb.RcvNxt, tcb.SndWnd), StateFinWait1
	default:
		return invalidOperation(), StateEstab
	}
}

func onSegmentEstab(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	switch {
	case isAck(h) && seqAckInRange(h, tcb):
		tcb.SndUna = h.AcknowledgementNumber
		tcb.RcvNxt = h.SequenceNumber + h.TcpLength()
		return compound(accept(), sendAck(tcb.SndNxt, tcb.RcvNxt, tcb.SndWnd)), StateEstab
	case isFin(h) && seqAckInRange(h, tcb):
		tcb.RcvNxt++
		return compound(accept(), sendAck(tcb.SndNxt, tcb.RcvNxt, tcb.SndWnd)), StateCloseWait
	default:
		return discard(), StateEstab
	}
}

func onEventFinWait1(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateFinWait1
}

func onSegmentFinWait1(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	switch {
	case isAck(h) && seqAckInRange(h, tcb):
		if h.AcknowledgementNumber == tcb.SndNxt {
			return accept(), StateFinWait2
		}
		return accept(), StateFinWait1
	case isFin(h) && seqAckInRange(h, tcb):
		return compound(accept(), sendAck(tcb.SndNxt, tcb.RcvNxt, tcb.SndWnd)), StateClosing
	default:
		return discard(), StateFinWait1
	}
}

func onEventFinWait2(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateFinWait2
}

func onSegmentFinWait2(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isFin(h) && seqAckInRange(h, tcb) {
		tcb.RcvNxt = h.SequenceNumber + 1
		tcb.RcvWnd = h.Window
		return compound(accept(), sendAck(tcb.SndNxt, tcb.RcvNxt, tcb.SndWnd)), StateTimeWait
	}
	return discard(), StateFinWait2
}

func onEventCloseWait(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	if e == EventClose {
		seq := tcb.SndNxt
		tcb.SndNxt++
		return sendFin(seq, tcb.RcvNxt, tcb.SndWnd), StateLastAck
	}
	return invalidOperation(), StateCloseWait
}

func onSegmentCloseWait(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isAck(h) && seqAckInRange(h, tcb) {
		tcb.SndUna = h.AcknowledgementNumber
		// rcv_nxt set to h.Seq, not h.Seq+TcpLength; differs from Estab's
		// handler and is preserved as the source has it.
		tcb.RcvNxt = h.SequenceNumber
		tcb.RcvWnd = h.Window
		return accept(), StateCloseWait
	}
	return discard(), StateCloseWait
}

func onEventClosing(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateClosing
}

func onSegmentClosing(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isAck(h) && seqAckInRange(h, tcb) && h.AcknowledgementNumber == tcb.SndNxt {
		return accept(), StateTimeWait
	}
	return discard(), StateClosing
}

func onEventLastAck(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateLastAck
}

func onSegmentLastAck(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	if isAck(h) && seqAckInRange(h, tcb) && h.AcknowledgementNumber == tcb.SndNxt {
		return accept(), StateClosed
	}
	return discard(), StateLastAck
}

func onEventTimeWait(tcb *TCB, e Event, h *TcpHeader, params Params) (Reaction, State) {
	return invalidOperation(), StateTimeWait
}

func onSegmentTimeWait(tcb *TCB, h *TcpHeader, params Params) (Reaction, State) {
	return discard(), StateTimeWait
}
