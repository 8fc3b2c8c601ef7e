package util

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoSource is returned when no local address matches the target's family.
var ErrNoSource = errors.New("no source address for target family")

// Sources holds at most one local address per family.
type Sources struct {
	V4 net.IP
	V6 net.IP
}

// For returns the source matching the family of target.
func (s Sources) For(target net.IP) (net.IP, error) {
	if target.To4() != nil {
		if s.V4 == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSource, target)
		}
		return s.V4, nil
	}
	if s.V6 == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, target)
	}
	return s.V6, nil
}

// Fixed builds Sources from literal addresses, one per family.
func Fixed(addrs ...string) (s Sources, err error) {
	for _, a := range addrs {
		ip := net.ParseIP(a)
		switch {
		case ip == nil:
			return Sources{}, fmt.Errorf("invalid source address %q", a)
		case ip.To4() != nil:
			s.V4 = ip
		default:
			s.V6 = ip
		}
	}
	return
}

// Interface picks sources from a named interface, looked up on every call so
// address changes are followed.
type Interface string

func (i Interface) For(target net.IP) (net.IP, error) {
	s, err := BindIface(string(i))
	if err != nil {
		return nil, err
	}
	return s.For(target)
}

// BindIface returns the addresses probes can be sent from on ifaceName. Link
// local IPv6 addresses are skipped since they need a zone to be dialled from.
func BindIface(ifaceName string) (s Sources, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return
	}
	if !IsUp(iface) {
		err = errors.New("Interface is down")
		return
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return
	}
	for _, a := range addrs {
		ip, _, err := net.ParseCIDR(a.String())
		if err != nil {
			continue
		}
		if ip.To4() != nil {
			if s.V4 == nil {
				s.V4 = ip
			}
			continue
		}
		if s.V6 == nil && !ip.IsLinkLocalUnicast() {
			s.V6 = ip
		}
	}
	if s.V4 == nil && s.V6 == nil {
		err = errors.New("Interface has no addresses")
	}

	return
}

func IsUp(nif *net.Interface) bool { return nif.Flags&net.FlagUp != 0 }
