package netmatch

import "testing"

func TestInCIDR_IPv4(t *testing.T) {
	tests := []struct {
		name string
		addr string
		cidr string
		want bool
	}{
		{name: "inside /24", addr: "10.0.0.5", cidr: "10.0.0.0/24", want: true},
		{name: "outside /24", addr: "10.0.1.5", cidr: "10.0.0.0/24", want: false},
		{name: "network address itself", addr: "10.0.0.0", cidr: "10.0.0.0/24", want: true},
		{name: "broadcast address", addr: "10.0.0.255", cidr: "10.0.0.0/24", want: true},
		{name: "host route match", addr: "192.168.1.1", cidr: "192.168.1.1/32", want: true},
		{name: "host route miss", addr: "192.168.1.2", cidr: "192.168.1.1/32", want: false},
		{name: "zero prefix matches everything", addr: "8.8.8.8", cidr: "0.0.0.0/0", want: true},
		{name: "prefix out of range", addr: "10.0.0.5", cidr: "10.0.0.0/33", want: false},
		{name: "negative prefix", addr: "10.0.0.5", cidr: "10.0.0.0/-1", want: false},
		{name: "malformed cidr", addr: "10.0.0.5", cidr: "not-a-cidr", want: false},
		{name: "non-numeric prefix", addr: "10.0.0.5", cidr: "10.0.0.0/abc", want: false},
		{name: "missing prefix", addr: "10.0.0.5", cidr: "10.0.0.0", want: false},
		{name: "malformed address", addr: "10.0.0", cidr: "10.0.0.0/24", want: false},
		{name: "family mismatch v6 addr", addr: "::1", cidr: "10.0.0.0/24", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InCIDR(tt.addr, tt.cidr); got != tt.want {
				t.Fatalf("InCIDR(%q, %q) = %v, want %v", tt.addr, tt.cidr, got, tt.want)
			}
		})
	}
}

func TestInCIDR_IPv6(t *testing.T) {
	tests := []struct {
		name string
		addr string
		cidr string
		want bool
	}{
		{name: "inside /32", addr: "2001:db8::1", cidr: "2001:db8::/32", want: true},
		{name: "outside /32", addr: "2001:db9::1", cidr: "2001:db8::/32", want: false},
		{name: "inside /64", addr: "fd00:1:2:3::42", cidr: "fd00:1:2:3::/64", want: true},
		{name: "outside /64", addr: "fd00:1:2:4::42", cidr: "fd00:1:2:3::/64", want: false},
		// A /33 differs inside the fifth byte; nibble-rounded matching
		// would wrongly accept the second address.
		{name: "bit-exact /33 match", addr: "2001:db8:8000::1", cidr: "2001:db8:8000::/33", want: true},
		{name: "bit-exact /33 miss", addr: "2001:db8:7fff::1", cidr: "2001:db8:8000::/33", want: false},
		{name: "full /128 match", addr: "::1", cidr: "::1/128", want: true},
		{name: "prefix out of range", addr: "::1", cidr: "::/129", want: false},
		{name: "family mismatch v4 addr", addr: "10.0.0.1", cidr: "2001:db8::/32", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InCIDR(tt.addr, tt.cidr); got != tt.want {
				t.Fatalf("InCIDR(%q, %q) = %v, want %v", tt.addr, tt.cidr, got, tt.want)
			}
		})
	}
}

func TestInAnyCIDR(t *testing.T) {
	cidrs := []string{"10.0.0.0/24", "192.168.0.0/16"}
	if !InAnyCIDR("192.168.7.7", cidrs) {
		t.Fatal("expected 192.168.7.7 to match one of the ranges")
	}
	if InAnyCIDR("172.16.0.1", cidrs) {
		t.Fatal("expected 172.16.0.1 to match no range")
	}
	if InAnyCIDR("10.0.0.5", nil) {
		t.Fatal("empty range list must never match")
	}
}

func TestAddressValidation(t *testing.T) {
	if !IsIPv4("127.0.0.1") || IsIPv4("::1") || IsIPv4("127.0.0") {
		t.Fatal("IsIPv4 misclassified an address")
	}
	if !IsIPv6("2001:db8::1") || IsIPv6("10.0.0.1") || IsIPv6("zz::1") {
		t.Fatal("IsIPv6 misclassified an address")
	}
}
