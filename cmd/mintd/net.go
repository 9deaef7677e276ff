package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// guessIpAddress fills in a partial dotted-quad address's missing leading
// octets from baseAddress. Lets an addresses file give every peer but the
// first as a short suffix (e.g. "42" or "15.42") relative to peer 0's full
// address, rather than repeating the whole subnet on every line.
func guessIpAddress(baseAddress net.IP, partialAddr string) (net.IP, error) {
	ip := make(net.IP, len(baseAddress))
	copy(ip, baseAddress)
	if partialAddr == "" {
		return ip, nil
	}
	octets := strings.Split(partialAddr, ".")
	for i := 0; i < len(octets); i++ {
		var octet byte
		if _, err := fmt.Sscanf(octets[i], "%d", &octet); err != nil {
			return net.IP{}, err
		}
		ip[len(ip)-len(octets)+i] = octet
	}
	return ip, nil
}

// splitHostPort splits addr into host and port, appending defaultPort when
// addr names a host only.
func splitHostPort(addr string, defaultPort int) (string, string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port, err = net.SplitHostPort(addr + ":" + strconv.Itoa(defaultPort))
		if err != nil {
			return "", "", err
		}
	}
	return host, port, nil
}

// resolveAddresses expands every non-rank-0 entry of raw that is a bare
// suffix (no dot, or fewer than four octets) against rank 0's full IP, then
// normalizes every entry to host:port using defaultPort where no port was
// given.
func resolveAddresses(raw map[int]string, defaultPort int) (map[int]string, error) {
	base, ok := raw[0]
	if !ok {
		return nil, fmt.Errorf("addresses file is missing rank 0")
	}
	baseHost, _, err := splitHostPort(base, defaultPort)
	if err != nil {
		return nil, fmt.Errorf("bad address for rank 0: %v", err)
	}
	baseIP := net.ParseIP(baseHost)

	resolved := make(map[int]string, len(raw))
	for rank, addr := range raw {
		host, port, err := splitHostPort(addr, defaultPort)
		if err != nil {
			return nil, fmt.Errorf("bad address for rank %d: %v", rank, err)
		}
		if rank != 0 && baseIP != nil && net.ParseIP(host) == nil {
			ip, err := guessIpAddress(baseIP, host)
			if err != nil {
				return nil, fmt.Errorf("bad partial address for rank %d: %v", rank, err)
			}
			host = ip.String()
		}
		resolved[rank] = net.JoinHostPort(host, port)
	}
	return resolved, nil
}
