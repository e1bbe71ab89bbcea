package tcp

import (
	"fmt"

	"github.com/nsegment/tcpstate/pkg/common"
)

const (
	// HeaderLength is the fixed TCP header length used by this core: 20
	// bytes, options processing being out of scope.
	HeaderLength = 20
)

// TCP control flags.
const (
	FlagFIN uint8 = 1 << 0
	FlagSYN uint8 = 1 << 1
	FlagRST uint8 = 1 << 2
	FlagPSH uint8 = 1 << 3
	FlagACK uint8 = 1 << 4
	FlagURG uint8 = 1 << 5
)

// TcpHeader is the decoded TCP segment the state machine reads and, for
// EventSend, writes. Field names follow the spec's RFC 793 naming rather
// than the wire's abbreviations, since this is the type apply() operates
// on directly.
type TcpHeader struct {
	SourcePort      uint16
	DestinationPort uint16

	SequenceNumber        uint32
	AcknowledgementNumber uint32
	Window                uint16

	Syn bool
	Ack bool
	Fin bool
	Rst bool

	Data []byte
}

// TcpLength returns the sequence-space length this segment occupies: the
// payload length, plus one for a SYN or FIN (which each consume one
// sequence number even though they carry no data).
func (h *TcpHeader) TcpLength() uint32 {
	n := uint32(len(h.Data))
	if h.Syn {
		n++
	}
	if h.Fin {
		n++
	}
	return n
}

func (h *TcpHeader) flags() uint8 {
	var f uint8
	if h.Fin {
		f |= FlagFIN
	}
	if h.Syn {
		f |= FlagSYN
	}
	if h.Rst {
		f |= FlagRST
	}
	if h.Ack {
		f |= FlagACK
	}
	return f
}

func (h *TcpHeader) setFlags(f uint8) {
	h.Fin = f&FlagFIN != 0
	h.Syn = f&FlagSYN != 0
	h.Rst = f&FlagRST != 0
	h.Ack = f&FlagACK != 0
}

// ParseHeader decodes a fixed 20-byte TCP header plus trailing payload
// from data.
func ParseHeader(data []byte) (*TcpHeader, error) {
	pb := common.NewPacketBuffer(data)

	h := &TcpHeader{}
	h.SourcePort = pb.ReadUint16()
	h.DestinationPort = pb.ReadUint16()
	h.SequenceNumber = pb.ReadUint32()
	h.AcknowledgementNumber = pb.ReadUint32()
	h.setFlags(pb.ReadUint8())
	pb.Skip(1) // reserved
	h.Window = pb.ReadUint16()
	pb.Skip(4) // checksum + urgent pointer
	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("tcp: malformed header: %w", err)
	}

	if rest := pb.Rest(); len(rest) > 0 {
		h.Data = append([]byte(nil), rest...)
	}
	return h, nil
}

// Serialize encodes h to wire bytes, using a pooled buffer for the header
// portion and appending the payload. The checksum field is left zero;
// callers that need it call Checksum separately with the endpoint
// addresses, the way the pseudo-header requires.
func (h *TcpHeader) Serialize() ([]byte, error) {
	buf := common.GetBuffer(HeaderLength)
	defer common.PutBuffer(buf)

	pb := common.NewPacketBuffer(buf[:HeaderLength])
	pb.WriteUint16(h.SourcePort)
	pb.WriteUint16(h.DestinationPort)
	pb.WriteUint32(h.SequenceNumber)
	pb.WriteUint32(h.AcknowledgementNumber)
	pb.WriteUint8(h.flags())
	pb.WriteUint8(0) // reserved
	pb.WriteUint16(h.Window)
	pb.WriteUint16(0) // checksum
	pb.WriteUint16(0) // urgent pointer, unused
	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("tcp: serialize header: %w", err)
	}

	out := make([]byte, HeaderLength+len(h.Data))
	copy(out, buf[:HeaderLength])
	copy(out[HeaderLength:], h.Data)
	return out, nil
}

// Checksum computes the TCP checksum over h using the standard IPv4
// pseudo-header.
func (h *TcpHeader) Checksum(srcIP, dstIP common.IPv4Address) (uint16, error) {
	seg, err := h.Serialize()
	if err != nil {
		return 0, err
	}
	pseudo := common.PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		Protocol:        common.ProtocolTCP,
		Length:          uint16(len(seg)),
	}
	return pseudo.SegmentChecksum(seg), nil
}

// String returns a compact human-readable summary of the segment for logs.
func (h *TcpHeader) String() string {
	flags := ""
	if h.Syn {
		flags += "S"
	}
	if h.Ack {
		flags += "A"
	}
	if h.Fin {
		flags += "F"
	}
	if h.Rst {
		flags += "R"
	}
	if flags == "" {
		flags = "-"
	}
	return fmt.Sprintf("[%s seq=%d ack=%d win=%d len=%d]", flags, h.SequenceNumber, h.AcknowledgementNumber, h.Window, len(h.Data))
}
