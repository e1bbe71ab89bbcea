package common

import (
	"bytes"
	"testing"
)

func TestPacketBufferRead(t *testing.T) {
	data := []byte{
		0x12,                   // uint8
		0x34, 0x56,             // uint16
		0x78, 0x9A, 0xBC, 0xDE, // uint32
		0x01, 0x02, 0x03,       // rest
	}
	pb := NewPacketBuffer(data)

	if pb.Len() != len(data) {
		t.Errorf("Len() = %d, want %d", pb.Len(), len(data))
	}

	if got := pb.ReadUint8(); got != 0x12 {
		t.Errorf("ReadUint8() = %#x, want 0x12", got)
	}
	if got := pb.ReadUint16(); got != 0x3456 {
		t.Errorf("ReadUint16() = %#x, want 0x3456", got)
	}
	if got := pb.ReadUint32(); got != 0x789ABCDE {
		t.Errorf("ReadUint32() = %#x, want 0x789abcde", got)
	}
	if pb.Remaining() != 3 {
		t.Errorf("Remaining() = %d, want 3", pb.Remaining())
	}
	if got := pb.Rest(); !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Rest() = %v, want [1 2 3]", got)
	}
	if pb.Err() != nil {
		t.Errorf("Err() = %v, want nil", pb.Err())
	}
}

func TestPacketBufferStickyError(t *testing.T) {
	pb := NewPacketBuffer([]byte{0x01, 0x02})

	// The first over-read latches the error; the cursor no longer moves
	// and every later access is a zero-valued no-op.
	if got := pb.ReadUint32(); got != 0 {
		t.Errorf("over-read ReadUint32() = %#x, want 0", got)
	}
	if pb.Err() == nil {
		t.Fatal("Err() = nil after over-read")
	}
	first := pb.Err()

	if got := pb.ReadUint16(); got != 0 {
		t.Errorf("ReadUint16() after error = %#x, want 0", got)
	}
	if pb.Rest() != nil {
		t.Error("Rest() after error should be nil")
	}
	if pb.Err() != first {
		t.Error("a later access replaced the latched error")
	}
}

func TestPacketBufferSkip(t *testing.T) {
	pb := NewPacketBuffer([]byte{0xAA, 0xBB, 0xCC})

	pb.Skip(2)
	if got := pb.ReadUint8(); got != 0xCC {
		t.Errorf("ReadUint8() after Skip = %#x, want 0xcc", got)
	}

	pb.Skip(1)
	if pb.Err() == nil {
		t.Error("Skip past the end should latch an error")
	}
}

func TestPacketBufferWrite(t *testing.T) {
	storage := make([]byte, 9)
	pb := NewPacketBuffer(storage)

	pb.WriteUint8(0x12)
	pb.WriteUint16(0x3456)
	pb.WriteUint32(0x789ABCDE)
	pb.WriteBytes([]byte{0xFE, 0xFF})
	if pb.Err() != nil {
		t.Fatalf("Err() = %v, want nil", pb.Err())
	}

	want := []byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xFE, 0xFF}
	if !bytes.Equal(storage, want) {
		t.Errorf("storage = %x, want %x", storage, want)
	}

	// Writes share the caller's storage, so a full buffer refuses more.
	pb.WriteUint8(0x00)
	if pb.Err() == nil {
		t.Error("write past the end should latch an error")
	}
}

func TestPacketBufferRoundTrip(t *testing.T) {
	storage := make([]byte, 8)
	w := NewPacketBuffer(storage)
	w.WriteUint32(0xDEADBEEF)
	w.WriteUint16(0x0102)
	w.WriteUint16(0x0304)

	r := NewPacketBuffer(storage)
	if got := r.ReadUint32(); got != 0xDEADBEEF {
		t.Errorf("ReadUint32() = %#x, want 0xdeadbeef", got)
	}
	if got := r.ReadUint16(); got != 0x0102 {
		t.Errorf("ReadUint16() = %#x, want 0x0102", got)
	}
	if got := r.ReadUint16(); got != 0x0304 {
		t.Errorf("ReadUint16() = %#x, want 0x0304", got)
	}
	if w.Err() != nil || r.Err() != nil {
		t.Errorf("Err() = %v / %v, want nil", w.Err(), r.Err())
	}
}
