package tcp

import (
	"errors"
	"testing"
	"time"

	"github.com/nsegment/tcpstate/pkg/common"
)

// wireSockets cross-connects two sockets so each one's emitted segments
// are delivered straight into the other, with the same empty-ACK
// suppression a synchronous loopback needs to avoid acking acks forever.
func wireSockets(a, b *Socket) {
	link := func(dst *Socket) func(*TcpHeader, common.IPv4Address, common.IPv4Address) error {
		return func(h *TcpHeader, _, _ common.IPv4Address) error {
			if h.Ack && !h.Syn && !h.Fin && len(h.Data) == 0 && dst.State() == StateEstab {
				return nil
			}
			dst.Deliver(h)
			return nil
		}
	}
	a.SetSendFunc(link(b))
	b.SetSendFunc(link(a))
}

func socketPair(t *testing.T) (client, server *Socket) {
	t.Helper()
	cliAddr := common.IPv4Address{10, 0, 0, 2}
	srvAddr := common.IPv4Address{10, 0, 0, 1}

	client = NewSocket(cliAddr, 49152, DefaultParams(), nil)
	server = NewSocket(srvAddr, 8080, DefaultParams(), nil)
	wireSockets(client, server)

	// The server socket stays in Closed: a SYN arriving there answers
	// with SYN+ACK directly, standing in for the manager's handoff.
	if err := client.Connect(srvAddr, 8080); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	return client, server
}

func TestSocketHandshake(t *testing.T) {
	client, server := socketPair(t)

	if client.State() != StateEstab {
		t.Errorf("client State() = %v, want %v", client.State(), StateEstab)
	}
	if server.State() != StateEstab {
		t.Errorf("server State() = %v, want %v", server.State(), StateEstab)
	}
}

func TestSocketDataBothDirections(t *testing.T) {
	client, server := socketPair(t)

	// Passive side first: its snd_una quirk means the active side's
	// data only ranges in after the passive side has sent something.
	if err := server.Send([]byte("greeting")); err != nil {
		t.Fatalf("server Send() error: %v", err)
	}
	got, ok := client.Recv(time.Second)
	if !ok || string(got) != "greeting" {
		t.Fatalf("client Recv() = %q, %v; want \"greeting\", true", got, ok)
	}

	if err := client.Send([]byte("reply")); err != nil {
		t.Fatalf("client Send() error: %v", err)
	}
	got, ok = server.Recv(time.Second)
	if !ok || string(got) != "reply" {
		t.Fatalf("server Recv() = %q, %v; want \"reply\", true", got, ok)
	}
}

func TestSocketRecvTimeout(t *testing.T) {
	client, _ := socketPair(t)

	start := time.Now()
	data, ok := client.Recv(50 * time.Millisecond)
	if ok || data != nil {
		t.Errorf("Recv() = %q, %v; want nil, false", data, ok)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("Recv() returned before the timeout elapsed")
	}
}

func TestSocketSendExceedsWindow(t *testing.T) {
	client, server := socketPair(t)
	_ = client

	if err := server.Send(make([]byte, 2000)); !errors.Is(err, ErrWindowExceeded) {
		t.Errorf("Send() = %v, want ErrWindowExceeded", err)
	}
	if server.State() != StateEstab {
		t.Errorf("State() after refused send = %v, want %v", server.State(), StateEstab)
	}
}

func TestSocketFlushDrainsQueuedData(t *testing.T) {
	client, server := socketPair(t)

	payload := make([]byte, 2000)
	if err := server.Send(payload); !errors.Is(err, ErrWindowExceeded) {
		t.Fatalf("Send() = %v, want ErrWindowExceeded", err)
	}
	if got := server.Pending(); got != len(payload) {
		t.Fatalf("Pending() = %d, want %d", got, len(payload))
	}

	// Flush moves as much as the window allows (snd_nxt+len must stay
	// under snd_wnd) and reports the window full for the remainder.
	if err := server.Flush(); !errors.Is(err, ErrWindowExceeded) {
		t.Fatalf("Flush() = %v, want ErrWindowExceeded", err)
	}
	if got := server.Pending(); got == 0 || got == len(payload) {
		t.Errorf("Pending() after Flush = %d, want partial drain", got)
	}

	got, ok := client.Recv(time.Second)
	if !ok || len(got) != len(payload)-server.Pending() {
		t.Errorf("client received %d bytes, want %d", len(got), len(payload)-server.Pending())
	}
}

func TestSocketRetransmit(t *testing.T) {
	var sent []*TcpHeader
	client := NewSocket(common.IPv4Address{10, 0, 0, 2}, 49152, DefaultParams(), nil)
	client.SetSendFunc(func(h *TcpHeader, _, _ common.IPv4Address) error {
		sent = append(sent, h)
		return nil
	})

	if err := client.Connect(common.IPv4Address{10, 0, 0, 1}, 8080); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	client.Deliver(&TcpHeader{
		Syn: true, Ack: true,
		SequenceNumber:        500,
		AcknowledgementNumber: 11,
		Window:                2048,
	})
	if client.State() != StateEstab {
		t.Fatalf("State() = %v, want %v", client.State(), StateEstab)
	}

	if err := client.Send([]byte("x")); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	before := len(sent)

	time.Sleep(5 * time.Millisecond)
	if n := client.Retransmit(time.Millisecond); n != 1 {
		t.Fatalf("Retransmit() = %d, want 1", n)
	}
	if len(sent) != before+1 {
		t.Fatalf("transport saw %d segments, want %d", len(sent), before+1)
	}
	if string(sent[len(sent)-1].Data) != "x" {
		t.Errorf("retransmitted payload = %q, want %q", sent[len(sent)-1].Data, "x")
	}

	// An ACK covering the segment clears it from the queue.
	client.Deliver(&TcpHeader{
		Ack:                   true,
		SequenceNumber:        501,
		AcknowledgementNumber: 12,
		Window:                2048,
	})
	time.Sleep(5 * time.Millisecond)
	if n := client.Retransmit(time.Millisecond); n != 0 {
		t.Errorf("Retransmit() after ack = %d, want 0", n)
	}
}

func TestSocketGracefulClose(t *testing.T) {
	client, server := socketPair(t)

	if err := server.Send([]byte("bye")); err != nil {
		t.Fatalf("server Send() error: %v", err)
	}
	if _, ok := client.Recv(time.Second); !ok {
		t.Fatal("client Recv() failed before close")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("client Close() error: %v", err)
	}
	if client.State() != StateFinWait2 {
		t.Fatalf("client State() = %v, want %v", client.State(), StateFinWait2)
	}
	if server.State() != StateCloseWait {
		t.Fatalf("server State() = %v, want %v", server.State(), StateCloseWait)
	}

	if err := server.Close(); err != nil {
		t.Fatalf("server Close() error: %v", err)
	}
	if client.State() != StateTimeWait {
		t.Errorf("client State() = %v, want %v", client.State(), StateTimeWait)
	}
	if server.State() != StateClosed {
		t.Errorf("server State() = %v, want %v", server.State(), StateClosed)
	}

	// Recv on the torn-down connection reports closure instead of
	// blocking until the timeout.
	start := time.Now()
	if _, ok := client.Recv(5 * time.Second); ok {
		t.Error("Recv() after close reported data")
	}
	if time.Since(start) > time.Second {
		t.Error("Recv() after close blocked instead of returning on the close signal")
	}
}
