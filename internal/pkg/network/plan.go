package network

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

type SubnetKind string

const (
	SubnetKindNAT       SubnetKind = "nat"
	SubnetKindInterface SubnetKind = "interface"
	SubnetKindPrivate   SubnetKind = "private"
)

type Subnet struct {
	Name    string     `yaml:"name"`
	CIDR    string     `yaml:"cidr"`
	Zone    int        `yaml:"zone"`
	Kind    SubnetKind `yaml:"kind"`
	Project string     `yaml:"project,omitempty"`
}

type ResolvedProject struct {
	Name        string  `yaml:"name"`
	SecondOctet int     `yaml:"secondOctet"`
	CIDR        string  `yaml:"cidr"`
	Queues      []Queue `yaml:"queues,omitempty"`
}

// PeerRoute is a route in the peer VPC sending a project's range back over
// the peering connection.
type PeerRoute struct {
	Project         string `yaml:"project"`
	Ordinal         int    `yaml:"ordinal"`
	RouteTableID    string `yaml:"routeTableId"`
	DestinationCIDR string `yaml:"destinationCidr"`
}

type ResolvedPeering struct {
	Name       string      `yaml:"name"`
	PeerVpcID  string      `yaml:"peerVpcId"`
	PeerRange  string      `yaml:"peerRange"`
	Projects   []string    `yaml:"projects"`
	PeerRoutes []PeerRoute `yaml:"peerRoutes"`
}

type Plan struct {
	Network          string            `yaml:"network"`
	Environment      string            `yaml:"environment"`
	SecondOctet      int               `yaml:"secondOctet"`
	CIDR             string            `yaml:"cidr"`
	Zones            int               `yaml:"zones"`
	NATSubnets       []Subnet          `yaml:"natSubnets"`
	InterfaceSubnets []Subnet          `yaml:"interfaceSubnets"`
	PrivateSubnets   []Subnet          `yaml:"privateSubnets"`
	Projects         []ResolvedProject `yaml:"projects"`
	Peerings         []ResolvedPeering `yaml:"peerings,omitempty"`
	Skipped          []*PeeringError   `yaml:"-"`
}

type Options struct {
	// SkipInvalidPeering drops a project's peering entry when its data is
	// incomplete or conflicting instead of failing. Dropped entries are
	// recorded in Plan.Skipped.
	SkipInvalidPeering bool
}

// Resolve looks up the static tables of d for one environment. Every problem
// found is reported, combined with multierr.
func Resolve(d *Definition, environment string, opts Options) (*Plan, error) {
	if !slices.Contains(d.Environments, environment) {
		return nil, fmt.Errorf("%w %q, expected one of %s", ErrUnknownEnvironment, environment, strings.Join(d.Environments, ", "))
	}
	octet, ok := d.SecondOctets[environment]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingSecondOctet, d.Name, environment)
	}
	vpcCIDR, err := formatCIDR(baseVPCCIDR, octet)
	if err != nil {
		return nil, fmt.Errorf("%s cidr: %w", d.Name, err)
	}

	r := &resolver{
		environment: environment,
		opts:        opts,
		vpcCIDR:     vpcCIDR,
		subnetNames: map[string]bool{},
		plan: &Plan{
			Network:     d.Name,
			Environment: environment,
			SecondOctet: octet,
			CIDR:        vpcCIDR.String(),
			Zones:       len(natSubnets),
		},
	}

	r.plan.NATSubnets = r.vpcSubnets(natSubnets, SubnetKindNAT, octet)
	r.plan.InterfaceSubnets = r.vpcSubnets(interfaceSubnets, SubnetKindInterface, octet)

	projectCIDRs := map[string]netip.Prefix{}
	for _, p := range d.Projects {
		cidr, ok := r.project(p)
		if ok {
			projectCIDRs[p.Name] = cidr
		}
	}
	r.checkProjectOverlap(projectCIDRs)

	for _, p := range d.Projects {
		cidr, ok := projectCIDRs[p.Name]
		if !ok {
			continue
		}
		r.peerings(p, cidr, projectCIDRs)
	}

	if r.errs == nil {
		r.checkIDs()
	}
	if r.errs != nil {
		return nil, r.errs
	}
	return r.plan, nil
}

type resolver struct {
	environment  string
	opts         Options
	vpcCIDR      netip.Prefix
	subnetNames  map[string]bool
	peeringIndex map[string]int
	plan         *Plan
	errs         error
}

func (r *resolver) fail(err error) {
	r.errs = multierr.Append(r.errs, err)
}

func (r *resolver) addSubnet(s Subnet) bool {
	if r.subnetNames[s.Name] {
		r.fail(fmt.Errorf("subnet %s defined twice", s.Name))
		return false
	}
	r.subnetNames[s.Name] = true
	return true
}

func (r *resolver) vpcSubnets(templates []subnetTemplate, kind SubnetKind, octet int) []Subnet {
	result := make([]Subnet, 0, len(templates))
	for _, t := range templates {
		cidr, err := formatCIDR(t.cidr, octet)
		if err != nil {
			r.fail(fmt.Errorf("subnet %s: %w", t.name, err))
			continue
		}
		zone, _ := zoneOf(t.name)
		s := Subnet{Name: t.name, CIDR: cidr.String(), Zone: zone, Kind: kind}
		if r.addSubnet(s) {
			result = append(result, s)
		}
	}
	return result
}

func (r *resolver) project(p Project) (netip.Prefix, bool) {
	octet, ok := p.SecondOctets[r.environment]
	if !ok {
		r.fail(fmt.Errorf("%w: %s in %s", ErrMissingSecondOctet, p.Name, r.environment))
		return netip.Prefix{}, false
	}
	cidr, err := formatCIDR(baseVPCCIDR, octet)
	if err != nil {
		r.fail(fmt.Errorf("project %s: %w", p.Name, err))
		return netip.Prefix{}, false
	}
	if cidr.Overlaps(r.vpcCIDR) {
		r.fail(fmt.Errorf("project %s: cidr %s overlaps vpc cidr %s", p.Name, cidr, r.vpcCIDR))
		return netip.Prefix{}, false
	}

	for _, t := range privateSubnetTemplates(p) {
		if !namePattern.MatchString(t.name) {
			r.fail(fmt.Errorf("project %s: subnet name %q must be alphanumeric", p.Name, t.name))
			continue
		}
		subnetCIDR, err := formatCIDR(t.cidr, octet)
		if err != nil {
			r.fail(fmt.Errorf("project %s subnet %s: %w", p.Name, t.name, err))
			continue
		}
		if !contains(cidr, subnetCIDR) {
			r.fail(fmt.Errorf("project %s subnet %s: %s is outside %s", p.Name, t.name, subnetCIDR, cidr))
			continue
		}
		zone, err := zoneOf(t.name)
		if err != nil {
			r.fail(fmt.Errorf("project %s: %w", p.Name, err))
			continue
		}
		if zone >= r.plan.Zones {
			r.fail(fmt.Errorf("project %s subnet %s: zone %d has no NAT subnet", p.Name, t.name, zone))
			continue
		}
		s := Subnet{Name: t.name, CIDR: subnetCIDR.String(), Zone: zone, Kind: SubnetKindPrivate, Project: p.Name}
		if r.addSubnet(s) {
			r.plan.PrivateSubnets = append(r.plan.PrivateSubnets, s)
		}
	}

	r.plan.Projects = append(r.plan.Projects, ResolvedProject{
		Name:        p.Name,
		SecondOctet: octet,
		CIDR:        cidr.String(),
		Queues:      p.Queues,
	})
	return cidr, true
}

func privateSubnetTemplates(p Project) []subnetTemplate {
	if len(p.PrivateSubnets) == 0 {
		result := make([]subnetTemplate, 0, len(defaultPrivateSubnets))
		for _, t := range defaultPrivateSubnets {
			result = append(result, subnetTemplate{
				name: strings.ReplaceAll(t.name, "{project}", p.Name),
				cidr: t.cidr,
			})
		}
		return result
	}

	names := sortedKeys(p.PrivateSubnets)
	result := make([]subnetTemplate, 0, len(names))
	for _, name := range names {
		result = append(result, subnetTemplate{name: name, cidr: p.PrivateSubnets[name]})
	}
	return result
}

func (r *resolver) checkProjectOverlap(cidrs map[string]netip.Prefix) {
	names := sortedKeys(cidrs)
	for i, a := range names {
		for _, b := range names[i+1:] {
			if cidrs[a].Overlaps(cidrs[b]) {
				r.fail(fmt.Errorf("projects %s and %s share cidr %s", a, b, cidrs[a]))
			}
		}
	}
}

func (r *resolver) peerings(p Project, cidr netip.Prefix, projectCIDRs map[string]netip.Prefix) {
	ordinal := 0
	for _, peering := range p.Peering {
		peerRange, ok := peering.Ranges[r.environment]
		if !ok {
			continue
		}

		resolved, routeTables, perr := r.checkPeering(p.Name, peering, peerRange, projectCIDRs)
		if perr != nil {
			if r.opts.SkipInvalidPeering {
				r.plan.Skipped = append(r.plan.Skipped, perr)
			} else {
				r.fail(perr)
			}
			continue
		}

		resolved.Projects = append(resolved.Projects, p.Name)
		for _, routeTable := range routeTables {
			ordinal++
			resolved.PeerRoutes = append(resolved.PeerRoutes, PeerRoute{
				Project:         p.Name,
				Ordinal:         ordinal,
				RouteTableID:    routeTable,
				DestinationCIDR: cidr.String(),
			})
		}
	}
}

// checkPeering returns the connection the peering entry belongs to, creating
// it on first use. The pointer is only valid until the next call.
func (r *resolver) checkPeering(
	project string,
	peering Peering,
	peerRange string,
	projectCIDRs map[string]netip.Prefix,
) (*ResolvedPeering, []string, *PeeringError) {
	perr := func(format string, args ...interface{}) *PeeringError {
		return &PeeringError{
			Project:     project,
			Peer:        peering.Name,
			Environment: r.environment,
			Reason:      fmt.Sprintf(format, args...),
		}
	}

	vpcID, ok := peering.VpcIDs[r.environment]
	if !ok || vpcID == "" {
		return nil, nil, perr("no peer vpc id")
	}
	routeTables := peering.RouteTables[r.environment]
	if len(routeTables) == 0 {
		return nil, nil, perr("no peer route tables")
	}
	for _, rt := range routeTables {
		if rt == "" {
			return nil, nil, perr("empty peer route table id")
		}
	}
	prefix, err := parseCIDR(peerRange)
	if err != nil {
		return nil, nil, perr("%v", err)
	}
	if prefix.Overlaps(r.vpcCIDR) {
		return nil, nil, perr("range %s overlaps vpc cidr %s", prefix, r.vpcCIDR)
	}
	for _, name := range sortedKeys(projectCIDRs) {
		if prefix.Overlaps(projectCIDRs[name]) {
			return nil, nil, perr("range %s overlaps project %s cidr %s", prefix, name, projectCIDRs[name])
		}
	}
	for _, other := range r.plan.Peerings {
		if other.Name == peering.Name {
			continue
		}
		if prefix.Overlaps(netip.MustParsePrefix(other.PeerRange)) {
			return nil, nil, perr("range %s overlaps range %s of peering %s", prefix, other.PeerRange, other.Name)
		}
	}

	if r.peeringIndex == nil {
		r.peeringIndex = map[string]int{}
	}
	if i, ok := r.peeringIndex[peering.Name]; ok {
		existing := &r.plan.Peerings[i]
		if existing.PeerVpcID != vpcID || existing.PeerRange != prefix.String() {
			return nil, nil, perr(
				"conflicts with %s/%s declared by %s",
				existing.PeerVpcID, existing.PeerRange, strings.Join(existing.Projects, ", "),
			)
		}
		return existing, routeTables, nil
	}

	r.plan.Peerings = append(r.plan.Peerings, ResolvedPeering{
		Name:      peering.Name,
		PeerVpcID: vpcID,
		PeerRange: prefix.String(),
	})
	r.peeringIndex[peering.Name] = len(r.plan.Peerings) - 1
	return &r.plan.Peerings[len(r.plan.Peerings)-1], routeTables, nil
}
