package check

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
)

// DefaultTCPPort is used when the target carries no port of its own.
const DefaultTCPPort = "80"

func NewTCPer(src Source) *TCPer {
	return &TCPer{src: src}
}

// TCPer probes a host by completing a TCP handshake. A refused connection
// still comes back as an error and is classified like any transport error.
type TCPer struct {
	src Source
}

func (t *TCPer) Attempt(ctx context.Context, host string) error {
	conn, err := dialTCP(ctx, t.src, withPort(host, DefaultTCPPort))
	if err != nil {
		logrus.Trace("Could not connect TCP: ", err)
		return err
	}
	return conn.Close()
}

// withPort appends port unless host already names one. Bare IPv6 literals are
// bracketed.
func withPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}
