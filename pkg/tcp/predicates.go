package tcp

// Segment classification predicates. RST is never inspected on ingress by
// this core; a segment carrying Rst is classified the same as any other
// non-matching flag combination and falls through to the default arm of
// whichever state handles it.

// isAck reports whether h is a bare ACK: Ack set, Syn and Fin clear.
func isAck(h *TcpHeader) bool {
	return h.Ack && !h.Syn && !h.Fin
}

// isSyn reports whether h is a bare SYN: Syn set, Ack and Fin clear.
func isSyn(h *TcpHeader) bool {
	return h.Syn && !h.Ack && !h.Fin
}

// isSynAck reports whether h is a SYN+ACK: Syn and Ack set, Fin clear.
func isSynAck(h *TcpHeader) bool {
	return h.Syn && h.Ack && !h.Fin
}

// isFin reports whether h is a FIN+ACK. Bare FIN (Ack clear) does not
// classify as isFin and is discarded by every state that checks it.
func isFin(h *TcpHeader) bool {
	return h.Fin && h.Ack && !h.Syn
}

// seqInRange reports whether h's sequence number is exactly the next byte
// this side expects.
func seqInRange(h *TcpHeader, tcb *TCB) bool {
	return h.SequenceNumber == tcb.RcvNxt
}

// ackInRange reports whether h's acknowledgment number falls within the
// outstanding send window, using plain unsigned comparison (no modulo-2^32
// wraparound handling).
func ackInRange(h *TcpHeader, tcb *TCB) bool {
	return tcb.SndUna <= h.AcknowledgementNumber && h.AcknowledgementNumber <= tcb.SndNxt
}

// seqAckInRange reports whether both seqInRange and ackInRange hold.
func seqAckInRange(h *TcpHeader, tcb *TCB) bool {
	return seqInRange(h, tcb) && ackInRange(h, tcb)
}
