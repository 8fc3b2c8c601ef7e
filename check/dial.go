package check

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/thetooth/netprobe/util"
)

// Source picks the local address an attempt is sent from, given the resolved
// target. util.Sources and util.Interface both satisfy it.
type Source interface {
	For(target net.IP) (net.IP, error)
}

// dialTCP connects to address, binding each resolved target to a source of
// its own family. A nil source leaves binding to the kernel.
func dialTCP(ctx context.Context, src Source, address string) (net.Conn, error) {
	if src == nil {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", address)
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	var firstErr error
	for _, a := range addrs {
		local, err := src.For(a.IP)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d := net.Dialer{LocalAddr: &net.TCPAddr{IP: local}}
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(a.IP.String(), port))
		if err == nil {
			return conn, nil
		}
		// A real dial failure says more than a skipped family.
		if firstErr == nil || errors.Is(firstErr, util.ErrNoSource) {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no addresses found for %s", host)
	}
	return nil, firstErr
}
