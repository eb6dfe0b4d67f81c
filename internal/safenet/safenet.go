// Package safenet keeps checks from reaching private or reserved addresses.
package safenet

import (
	"fmt"
	"net"
	"net/netip"
	"syscall"
)

var blocked = mustPrefixes(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.88.99.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, len(cidrs))
	for i, c := range cidrs {
		out[i] = netip.MustParsePrefix(c)
	}
	return out
}

// IsPrivate reports whether addr is in a private or reserved range.
// IPv4-mapped IPv6 addresses are checked as IPv4.
func IsPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range blocked {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// DialControl is a net.Dialer Control function. It runs after name
// resolution and rejects private or reserved destinations.
func DialControl(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		host, _, splitErr := net.SplitHostPort(address)
		if splitErr != nil {
			return fmt.Errorf("blocked: invalid address %q", address)
		}
		addr, parseErr := netip.ParseAddr(host)
		if parseErr != nil {
			return fmt.Errorf("blocked: could not parse IP %q", host)
		}
		ap = netip.AddrPortFrom(addr, 0)
	}
	if IsPrivate(ap.Addr()) {
		return fmt.Errorf("blocked: %s is a private or reserved address", ap.Addr())
	}
	return nil
}

// MaybeDialControl returns DialControl unless allowPrivate is set.
func MaybeDialControl(allowPrivate bool) func(string, string, syscall.RawConn) error {
	if allowPrivate {
		return nil
	}
	return DialControl
}
