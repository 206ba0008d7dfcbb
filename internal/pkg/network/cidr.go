package network

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

const (
	baseVPCCIDR = "10.{octet}.0.0/16"

	octetPlaceholder = "{octet}"
)

var (
	natSubnets = []subnetTemplate{
		{name: "NATA", cidr: "10.{octet}.0.0/27"},
		{name: "NATB", cidr: "10.{octet}.0.32/27"},
	}
	interfaceSubnets = []subnetTemplate{
		{name: "InterfaceA", cidr: "10.{octet}.3.0/25"},
		{name: "InterfaceB", cidr: "10.{octet}.3.128/25"},
	}
	defaultPrivateSubnets = []subnetTemplate{
		{name: "{project}A", cidr: "10.{octet}.10.0/24"},
		{name: "{project}B", cidr: "10.{octet}.11.0/24"},
	}
)

type subnetTemplate struct {
	name string
	cidr string
}

func formatCIDR(template string, octet int) (netip.Prefix, error) {
	if octet < 0 || octet > 255 {
		return netip.Prefix{}, fmt.Errorf("%w: second octet %d out of range", ErrInvalidCIDR, octet)
	}
	return parseCIDR(strings.ReplaceAll(template, octetPlaceholder, strconv.Itoa(octet)))
}

// parseCIDR accepts only canonical network prefixes: 10.1.0.1/16 is rejected.
func parseCIDR(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %s", ErrInvalidCIDR, err)
	}
	if prefix.Masked() != prefix {
		return netip.Prefix{}, fmt.Errorf("%w: %s is not a network address", ErrInvalidCIDR, s)
	}
	return prefix, nil
}

// contains reports whether inner lies entirely within outer.
func contains(outer, inner netip.Prefix) bool {
	return outer.Bits() <= inner.Bits() && outer.Contains(inner.Addr())
}

// zoneOf maps the trailing letter of a subnet name to an availability zone
// index: "...A" is zone 0, "...B" zone 1.
func zoneOf(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty subnet name")
	}
	last := name[len(name)-1]
	if last < 'A' || last > 'Z' {
		return 0, fmt.Errorf("subnet %s must end with a zone letter", name)
	}
	return int(last - 'A'), nil
}
