package internal

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gaissmai/bart"
)

// TrustedProxies decides which TCP peers are allowed to speak for the real
// client through X-Forwarded-For. Lookups are prefix matches over the
// configured CIDRs.
type TrustedProxies struct {
	table *bart.Lite
}

// NewTrustedProxies builds the lookup table from already-parsed prefixes.
func NewTrustedProxies(prefixes []netip.Prefix) *TrustedProxies {
	table := new(bart.Lite)

	for _, prefix := range prefixes {
		table.Insert(prefix)
	}

	return &TrustedProxies{table: table}
}

// Trusts reports whether addr falls inside any configured proxy range. A nil
// receiver trusts nobody.
func (tp *TrustedProxies) Trusts(addr netip.Addr) bool {
	if tp == nil || tp.table == nil {
		return false
	}

	return tp.table.Contains(addr)
}

// ClientIP resolves the visitor's address for r. The TCP peer is
// authoritative unless it is a trusted proxy; then the rightmost
// X-Forwarded-For entry outside the trusted ranges wins, because that is the
// hop the nearest proxy vouched for. Errors degrade to the peer address.
func ClientIP(r *http.Request, trusted *TrustedProxies) (netip.Addr, bool) {
	peer, ok := remoteAddr(r)
	if !ok {
		return netip.Addr{}, false
	}

	if !trusted.Trusts(peer) {
		return peer, true
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			continue
		}

		if !trusted.Trusts(addr) {
			return addr.Unmap(), true
		}
	}

	// Every hop was one of ours; the peer is the best answer left.
	return peer, true
}

func remoteAddr(r *http.Request) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}
