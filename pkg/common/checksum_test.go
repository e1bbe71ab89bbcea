package common

import "testing"

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			// Worked example from RFC 1071 section 3: the one's
			// complement sum of these words is 0xddf2, so the checksum
			// is its complement.
			name: "rfc1071 example",
			data: []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7},
			want: ^uint16(0xddf2),
		},
		{
			name: "empty",
			data: nil,
			want: 0xFFFF,
		},
		{
			name: "all zeros",
			data: []byte{0x00, 0x00, 0x00, 0x00},
			want: 0xFFFF,
		},
		{
			name: "all ones",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF},
			want: 0x0000,
		},
		{
			// The odd trailing byte pads as the high half of a word.
			name: "odd length",
			data: []byte{0x12, 0x34, 0x56},
			want: ^uint16(0x1234 + 0x5600),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	// A packet whose checksum field is filled in verifies to zero.
	data := []byte{0x45, 0x00, 0x00, 0x1c, 0x00, 0x00, 0x00, 0x00, 0x40, 0x06, 0x00, 0x00}
	sum := Checksum(data)
	data[10] = byte(sum >> 8)
	data[11] = byte(sum)

	if !VerifyChecksum(data) {
		t.Error("VerifyChecksum() = false for a correctly checksummed packet")
	}

	data[0] ^= 0x01
	if VerifyChecksum(data) {
		t.Error("VerifyChecksum() = true for a corrupted packet")
	}
}

func TestSegmentChecksum(t *testing.T) {
	ph := PseudoHeader{
		SourceAddr:      IPv4Address{10, 0, 0, 1},
		DestinationAddr: IPv4Address{10, 0, 0, 2},
		Protocol:        ProtocolTCP,
		Length:          4,
	}
	segment := []byte{0xAB, 0xCD, 0x12, 0x34}

	// The pseudo-header folds in address words, the protocol in the low
	// byte of its word, and the TCP length.
	want := finalize(0x0a00 + 0x0001 + 0x0a00 + 0x0002 + uint32(ProtocolTCP) + 4 + 0xABCD + 0x1234)
	if got := ph.SegmentChecksum(segment); got != want {
		t.Errorf("SegmentChecksum() = 0x%04X, want 0x%04X", got, want)
	}

	// Any field of the pseudo-header participates in the sum.
	ph.Length = 5
	if got := ph.SegmentChecksum(segment); got == want {
		t.Error("SegmentChecksum() unchanged after pseudo-header modification")
	}
}
