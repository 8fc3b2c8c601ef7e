package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sync/errgroup"
)

const (
	trackerLength    = len(uuid.UUID{})
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

var (
	ipv4Proto = map[string]string{"icmp": "ip4:icmp", "udp": "udp4"}
	ipv6Proto = map[string]string{"icmp": "ip6:ipv6-icmp", "udp": "udp6"}
)

// NewPinger returns a Pinger sending unprivileged UDP echoes. A nil src
// leaves the source address to the kernel.
func NewPinger(src Source) *Pinger {
	r := rand.New(rand.NewSource(getSeed()))
	return &Pinger{
		Size:     trackerLength,
		TTL:      64,
		id:       r.Intn(math.MaxUint16),
		network:  "ip",
		protocol: "udp",
		src:      src,
	}
}

// Pinger sends one ICMP echo request per attempt and waits for the matching
// reply. Every request carries a fresh UUID so replies to abandoned attempts
// are never mistaken for the current one.
type Pinger struct {
	// Size of packet being sent, never less than the tracker.
	Size int

	TTL int

	src     Source
	id      int
	// network is one of "ip", "ip4", or "ip6".
	network string
	// protocol is "icmp" or "udp".
	protocol string

	lock     sync.Mutex
	sequence int
}

// SetNetwork allows configuration of DNS resolution.
// * "ip" will automatically select IPv4 or IPv6.
// * "ip4" will select IPv4.
// * "ip6" will select IPv6.
func (p *Pinger) SetNetwork(n string) {
	switch n {
	case "ip4":
		p.network = "ip4"
	case "ip6":
		p.network = "ip6"
	default:
		p.network = "ip"
	}
}

// SetPrivileged sets the type of ping pinger will send.
// false means pinger will send an "unprivileged" UDP ping.
// true means pinger will send a "privileged" raw ICMP ping.
// NOTE: setting to true requires that it be run with super-user privileges.
func (p *Pinger) SetPrivileged(privileged bool) {
	if privileged {
		p.protocol = "icmp"
	} else {
		p.protocol = "udp"
	}
}

func (p *Pinger) nextSequence() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	seq := p.sequence
	p.sequence = (p.sequence + 1) & 0xffff
	return seq
}

func (p *Pinger) Attempt(ctx context.Context, host string) error {
	if len(host) == 0 {
		return errors.New("addr cannot be empty")
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return err
	}
	ipaddr, err := p.pickAddr(addrs)
	if err != nil {
		return err
	}
	v4 := isIPv4(ipaddr.IP)

	var listen string
	if p.src != nil {
		local, err := p.src.For(ipaddr.IP)
		if err != nil {
			return err
		}
		listen = local.String()
	}

	var conn *icmp.PacketConn
	if v4 {
		conn, err = icmp.ListenPacket(ipv4Proto[p.protocol], listen)
	} else {
		conn, err = icmp.ListenPacket(ipv6Proto[p.protocol], listen)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	if v4 {
		conn.IPv4PacketConn().SetTTL(p.TTL)
	} else {
		conn.IPv6PacketConn().SetHopLimit(p.TTL)
	}

	tracker := uuid.New()
	seq := p.nextSequence()
	if err = p.sendICMP(conn, ipaddr, v4, tracker, seq); err != nil {
		return err
	}

	done := make(chan struct{})
	g := errgroup.Group{}
	g.Go(func() error {
		defer close(done)
		return p.recvICMP(ctx, conn, v4, tracker, seq)
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			// Unblock the pending read.
			return conn.SetReadDeadline(time.Now())
		case <-done:
			return nil
		}
	})

	return g.Wait()
}

func (p *Pinger) pickAddr(addrs []net.IPAddr) (*net.IPAddr, error) {
	for _, a := range addrs {
		switch {
		case p.network == "ip4" && !isIPv4(a.IP):
			continue
		case p.network == "ip6" && isIPv4(a.IP):
			continue
		}
		ipaddr := a
		return &ipaddr, nil
	}
	return nil, fmt.Errorf("no %s address found", p.network)
}

func (p *Pinger) sendICMP(conn *icmp.PacketConn, ipaddr *net.IPAddr, v4 bool, tracker uuid.UUID, seq int) error {
	var dst net.Addr = ipaddr
	if p.protocol == "udp" {
		dst = &net.UDPAddr{IP: ipaddr.IP, Zone: ipaddr.Zone}
	}

	t, err := tracker.MarshalBinary()
	if err != nil {
		return fmt.Errorf("unable to marshal UUID binary: %w", err)
	}
	if remainSize := p.Size - trackerLength; remainSize > 0 {
		t = append(t, bytes.Repeat([]byte{1}, remainSize)...)
	}

	var typ icmp.Type = ipv4.ICMPTypeEcho
	if !v4 {
		typ = ipv6.ICMPTypeEchoRequest
	}
	msg := &icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: t,
		},
	}

	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	_, err = conn.WriteTo(msgBytes, dst)
	return err
}

func (p *Pinger) recvICMP(ctx context.Context, conn *icmp.PacketConn, v4 bool, tracker uuid.UUID, seq int) error {
	proto := protocolICMP
	if !v4 {
		proto = protocolIPv6ICMP
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		m, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil {
			logrus.Debug("Received packet: ", fmt.Errorf("error parsing icmp message: %w", err))
			continue
		}
		if m.Type != ipv4.ICMPTypeEchoReply && m.Type != ipv6.ICMPTypeEchoReply {
			// Not an echo reply, ignore it
			continue
		}
		pkt, ok := m.Body.(*icmp.Echo)
		if !ok || pkt.Seq != seq || len(pkt.Data) < trackerLength {
			continue
		}
		// Unprivileged sockets rewrite the ID, the tracker is what identifies our request.
		if !bytes.Equal(pkt.Data[:trackerLength], tracker[:]) {
			continue
		}
		return nil
	}
}

func isIPv4(ip net.IP) bool {
	return len(ip.To4()) == net.IPv4len
}

var seed int64 = time.Now().UnixNano()

// getSeed returns a goroutine-safe unique seed
func getSeed() int64 {
	return atomic.AddInt64(&seed, 1)
}
