package utils

import (
	"net"
	"sort"
	"strings"
)

// PrimaryIP returns the LAN address peers are most likely to reach.
func PrimaryIP() string {
	if ips := rankIPv4(interfaceIPv4s()); len(ips) > 0 {
		return ips[0]
	}
	return outboundIP()
}

// LocalIPs lists every usable IPv4 address, best first.
func LocalIPs() []string {
	return rankIPv4(interfaceIPv4s())
}

func interfaceIPv4s() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			out = append(out, ip4.String())
		}
	}
	return out
}

// rankIPv4 drops loopback and 172.x (container bridges) and puts 192.168.x
// and 10.x ahead of everything else, keeping the input order within a group.
func rankIPv4(ips []string) []string {
	var out []string
	for _, ip := range ips {
		if strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "172.") {
			continue
		}
		out = append(out, ip)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return preferred(out[i]) && !preferred(out[j])
	})
	return out
}

func preferred(ip string) bool {
	return strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.")
}

// outboundIP asks the kernel which source address it would route through.
// No packet is sent.
func outboundIP() string {
	conn, err := net.Dial("udp4", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// IsLoopback reports whether host (an IP, optionally with a port) is a
// loopback address.
func IsLoopback(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
