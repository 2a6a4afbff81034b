package netutil

import (
	"fmt"
	"net"
)

// Subnet24 returns the first three octets of an IPv4 address, or "" for anything else.
func Subnet24(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	ipv4 := parsed.To4()
	if ipv4 == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", ipv4[0], ipv4[1], ipv4[2])
}

// SameSubnet24 reports whether both addresses are IPv4 and share a /24. Unknown
// addresses never match.
func SameSubnet24(ip1, ip2 string) bool {
	a, b := Subnet24(ip1), Subnet24(ip2)
	return a != "" && a == b
}
