package common

import "encoding/binary"

// accumulate folds data into an RFC 1071 one's complement running sum
// without finalizing it, so a caller can chain regions (pseudo-header
// fields, then segment bytes) and fold once at the end. An odd trailing
// byte is treated as the high half of a zero-padded word.
func accumulate(sum uint32, data []byte) uint32 {
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i : i+2]))
	}
	if len(data)&1 != 0 {
		sum += uint32(data[len(data)-1]) << 8
	}
	return sum
}

// finalize folds the carries of a running sum back into 16 bits and
// returns its one's complement.
func finalize(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return ^uint16(sum)
}

// Checksum computes the RFC 1071 Internet checksum of data.
func Checksum(data []byte) uint16 {
	return finalize(accumulate(0, data))
}

// VerifyChecksum reports whether data, with its checksum field included,
// sums to zero (0xFFFF is the equivalent one's complement form).
func VerifyChecksum(data []byte) bool {
	c := Checksum(data)
	return c == 0 || c == 0xFFFF
}

// PseudoHeader carries the IPv4 fields RFC 793 prefixes to a TCP segment
// for checksum purposes: the endpoint addresses, the protocol number,
// and the TCP length (header plus payload).
type PseudoHeader struct {
	SourceAddr      IPv4Address
	DestinationAddr IPv4Address
	Protocol        Protocol
	Length          uint16
}

// SegmentChecksum computes the checksum of segment under ph. The
// pseudo-header fields are accumulated straight into the running sum
// rather than serialized to a scratch buffer first.
func (ph PseudoHeader) SegmentChecksum(segment []byte) uint16 {
	sum := accumulate(0, ph.SourceAddr[:])
	sum = accumulate(sum, ph.DestinationAddr[:])
	sum += uint32(ph.Protocol)
	sum += uint32(ph.Length)
	return finalize(accumulate(sum, segment))
}
