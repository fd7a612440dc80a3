package internal

import "net/netip"

// VisitorNetwork reduces addr to the network it belongs to: /24 for IPv4
// (including IPv4-mapped IPv6) and /48 for IPv6. Logs carry the network
// instead of the exact address so traffic can be grouped without retaining
// per-visitor identifiers.
func VisitorNetwork(addr netip.Addr) (netip.Prefix, bool) {
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}

	prefix, err := addr.Prefix(bits)
	if err != nil {
		return netip.Prefix{}, false
	}

	return prefix, true
}
