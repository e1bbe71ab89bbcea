// tcpsim drives two TCP state-machine endpoints against each other over
// an in-memory loopback: a client actively opens a connection to a
// listening server, the server pushes a greeting through the established
// connection, and both sides tear down with the FIN/ACK exchange. Every
// segment on the wire is logged, so the full handshake and close
// sequence can be read off the output.
//
// Usage:
//
//	go run ./cmd/tcpsim -msg "hello" -v
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/nsegment/tcpstate/pkg/common"
	"github.com/nsegment/tcpstate/pkg/tcp"
)

var (
	serverAddr = flag.String("server", "10.0.0.1", "server IP address")
	serverPort = flag.Int("port", 8080, "server port")
	clientAddr = flag.String("client", "10.0.0.2", "client IP address")
	message    = flag.String("msg", "hello from tcpsim\n", "greeting the server sends once established")
	verbose    = flag.Bool("v", false, "log state transitions at debug level")
)

// loopback delivers segments sent by one manager straight into the
// other, stamping the sender's own address as the origin peer.
type loopback struct {
	logger *slog.Logger
	label  string
	dst    *tcp.Manager
	from   tcp.Peer
}

func (l *loopback) Send(peer tcp.Peer, h *tcp.TcpHeader) error {
	l.logger.Info("segment", "dir", l.label, "to", peer.String(), "hdr", h.String())

	// Suppress empty ACKs between two established endpoints: with
	// instantaneous delivery, an ACK of an ACK would bounce forever.
	if h.Ack && !h.Syn && !h.Fin && len(h.Data) == 0 {
		if child, ok := l.dst.Child(l.from); ok && child.State() == tcp.StateEstab {
			l.logger.Debug("ack suppressed", "dir", l.label)
			return nil
		}
	}
	l.dst.Deliver(l.from, h)
	return nil
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srvIP, err := common.ParseIPv4(*serverAddr)
	if err != nil {
		logger.Error("invalid server address", "addr", *serverAddr, "err", err)
		os.Exit(1)
	}
	cliIP, err := common.ParseIPv4(*clientAddr)
	if err != nil {
		logger.Error("invalid client address", "addr", *clientAddr, "err", err)
		os.Exit(1)
	}

	srvPeer := tcp.Peer{Addr: srvIP, Port: uint16(*serverPort)}
	cliPeer := tcp.Peer{Addr: cliIP, Port: 49152}

	srvWire := &loopback{logger: logger, label: "server->client"}
	cliWire := &loopback{logger: logger, label: "client->server"}

	server := tcp.NewManager(srvIP, srvPeer.Port, srvWire, tcp.DefaultParams(), logger)
	client := tcp.NewManager(cliIP, cliPeer.Port, cliWire, tcp.DefaultParams(), logger)

	srvWire.dst, srvWire.from = client, srvPeer
	cliWire.dst, cliWire.from = server, cliPeer

	// Three-way handshake: the Connect call below completes it
	// synchronously, since the loopback delivers each reply inline.
	server.Listen()
	logger.Info("server listening", "addr", srvPeer.String())

	client.Connect(srvPeer)
	accepted := server.Accept()
	logger.Info("server accepted connection", "peer", accepted.String())

	child, _ := server.Child(cliPeer)
	conn, _ := client.Child(srvPeer)
	logger.Info("handshake complete",
		"client", conn.State().String(),
		"server", child.State().String())

	// Data flows from the accepting side: the server pushes its
	// greeting through the established child connection.
	if err := server.Send(cliPeer, []byte(*message)); err != nil {
		logger.Error("server send failed", "err", err)
		os.Exit(1)
	}

	// Orderly teardown, client first.
	client.Close(srvPeer)
	server.Close(cliPeer)

	logger.Info("connection torn down",
		"client", conn.State().String(),
		"server", child.State().String())
}
