// Package security provides input validation and log redaction utilities.
package security

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Target validation errors.
var (
	ErrInvalidTarget    = errors.New("invalid target URL")
	ErrBlockedScheme    = errors.New("URL scheme not allowed")
	ErrPrivateIPBlocked = errors.New("private or internal addresses are not allowed")
	ErrMetadataBlocked  = errors.New("cloud metadata addresses are not allowed")
)

// metadataIPs contains addresses used by cloud provider metadata services.
// The service drives a real browser at attacker-supplied URLs, so these must
// be rejected before a page ever navigates.
var metadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6 metadata
}

// ValidateTarget checks whether a capture target URL is safe to hand to the
// browser. Non-HTTP(S) schemes are always rejected. When allowPrivate is
// false, loopback, RFC 1918/4193, link-local, and cloud metadata addresses
// are rejected too, including numeric-encoding bypasses (decimal, octal,
// hex, shortened IPv4) and IPv4-mapped IPv6 forms.
func ValidateTarget(rawURL string, allowPrivate bool) error {
	if rawURL == "" {
		return ErrInvalidTarget
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidTarget
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrBlockedScheme
	}

	if allowPrivate {
		return nil
	}

	hostname := strings.ToLower(parsed.Hostname())
	if isLocalHostname(hostname) {
		return ErrPrivateIPBlocked
	}

	if ip := parseEncodedIP(hostname); ip != nil {
		return checkIP(ip)
	}

	// For hostnames, resolve and check every address. A DNS failure is not
	// an error here: the browser will surface it on navigation.
	if addrs, err := net.LookupIP(hostname); err == nil {
		for _, addr := range addrs {
			if err := checkIP(addr); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkIP rejects loopback, private, link-local, unspecified, and cloud
// metadata addresses.
func checkIP(ip net.IP) error {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, meta := range metadataIPs {
		if ip.Equal(meta) {
			return ErrMetadataBlocked
		}
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return ErrPrivateIPBlocked
	}
	return nil
}

// isLocalHostname reports whether a hostname is a localhost variant,
// including subdomain forms like foo.localhost.
func isLocalHostname(hostname string) bool {
	switch hostname {
	case "localhost", "localhost.localdomain", "local", "metadata",
		"metadata.google.internal", "instance-data", "ip6-localhost", "ip6-loopback":
		return true
	}
	return strings.HasSuffix(hostname, ".localhost") || strings.HasPrefix(hostname, "localhost.")
}

// parseEncodedIP parses a hostname that encodes an IP address, covering the
// alternate notations used to slip past naive filters: plain decimal
// (2130706433), octal or hex octets (0177.0.0.1, 0x7f.0.0.1), and the
// shortened two-part form (127.1). Returns nil if the hostname is not an
// IP encoding.
func parseEncodedIP(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip
	}

	if num, err := strconv.ParseUint(hostname, 10, 32); err == nil {
		return net.IPv4(byte(num>>24), byte(num>>16), byte(num>>8), byte(num))
	}

	parts := strings.Split(hostname, ".")
	switch len(parts) {
	case 4:
		var octets [4]byte
		for i, part := range parts {
			val, err := parseOctet(part)
			if err != nil || val > 255 {
				return nil
			}
			octets[i] = byte(val)
		}
		return net.IPv4(octets[0], octets[1], octets[2], octets[3])
	case 2:
		first, err1 := parseOctet(parts[0])
		rest, err2 := parseOctet(parts[1])
		if err1 == nil && err2 == nil && first <= 255 && rest <= 0xFFFFFF {
			return net.IPv4(byte(first), byte(rest>>16), byte(rest>>8), byte(rest))
		}
	}
	return nil
}

// parseOctet parses a number in decimal, octal (0-prefixed), or hex
// (0x-prefixed) notation.
func parseOctet(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty octet")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if len(s) > 1 && s[0] == '0' {
		return strconv.ParseUint(s[1:], 8, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
