// Package netutil parses and classifies IP addresses.
package netutil

import (
	"net/netip"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
)

// IPToBuffer returns the binary form of a textual IP address: 4 bytes for IPv4 and 16 bytes for IPv6.
func IPToBuffer(ip string) ([]byte, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, &errors.InvalidAddressError{Address: ip}
	}
	// Zones do not survive the binary form.
	return addr.WithZone("").AsSlice(), nil
}

// IsLoopback reports whether the textual address is a loopback address.
func IsLoopback(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.IsLoopback()
}
