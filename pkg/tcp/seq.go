package tcp

// Sequence-space comparisons for the driver-side queues, using signed
// 32-bit distance so they stay correct across wraparound. The state
// machine's own range predicates deliberately use plain comparisons; see
// predicates.go.

// seqBefore reports whether a precedes b in sequence space.
func seqBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// seqAfter reports whether a follows b in sequence space.
func seqAfter(a, b uint32) bool {
	return int32(a-b) > 0
}
