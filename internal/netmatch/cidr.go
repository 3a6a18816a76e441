// Package netmatch tests IP addresses against CIDR ranges. It is a pure
// utility used by the DNS trigger; malformed input always fails closed
// (returns false) rather than returning an error or panicking.
package netmatch

import (
	"net"
	"strconv"
	"strings"
)

// IsIPv4 reports whether s is a syntactically valid IPv4 dotted-quad address.
func IsIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// IsIPv6 reports whether s is a syntactically valid IPv6 address.
func IsIPv6(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil && strings.Contains(s, ":")
}

// InCIDR reports whether addr falls inside the given CIDR range. IPv4 ranges
// use integer masking; IPv6 ranges use exact bitwise prefix comparison.
// Address-family mismatches and malformed input return false.
func InCIDR(addr, cidr string) bool {
	network, prefixStr, ok := strings.Cut(cidr, "/")
	if !ok {
		return false
	}
	prefix, err := strconv.Atoi(prefixStr)
	if err != nil {
		return false
	}

	if IsIPv4(addr) && IsIPv4(network) {
		return ipv4InCIDR(addr, network, prefix)
	}
	if IsIPv6(addr) && IsIPv6(network) {
		return ipv6InCIDR(addr, network, prefix)
	}
	return false
}

// InAnyCIDR reports whether addr falls inside at least one of the ranges.
func InAnyCIDR(addr string, cidrs []string) bool {
	for _, cidr := range cidrs {
		if InCIDR(addr, cidr) {
			return true
		}
	}
	return false
}

func ipv4InCIDR(addr, network string, prefix int) bool {
	if prefix < 0 || prefix > 32 {
		return false
	}
	addrInt, ok := ipv4ToUint32(addr)
	if !ok {
		return false
	}
	netInt, ok := ipv4ToUint32(network)
	if !ok {
		return false
	}
	if prefix == 0 {
		return true
	}
	mask := uint32(0xFFFFFFFF) << (32 - prefix)
	return addrInt&mask == netInt&mask
}

func ipv4ToUint32(s string) (uint32, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), true
}

func ipv6InCIDR(addr, network string, prefix int) bool {
	if prefix < 0 || prefix > 128 {
		return false
	}
	addrIP := net.ParseIP(addr)
	netIP := net.ParseIP(network)
	if addrIP == nil || netIP == nil {
		return false
	}
	a := addrIP.To16()
	n := netIP.To16()
	if a == nil || n == nil {
		return false
	}

	// Exact bit-level prefix comparison: whole bytes first, then the
	// remaining high bits of the partial byte.
	wholeBytes := prefix / 8
	for i := 0; i < wholeBytes; i++ {
		if a[i] != n[i] {
			return false
		}
	}
	if rem := prefix % 8; rem != 0 {
		mask := byte(0xFF) << (8 - rem)
		if a[wholeBytes]&mask != n[wholeBytes]&mask {
			return false
		}
	}
	return true
}
