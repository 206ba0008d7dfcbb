package network

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func mustAPIVPC(t *testing.T) *Definition {
	t.Helper()
	d, err := APIVPC()
	require.NoError(t, err)
	return d
}

func TestResolveAPIVPCStaging(t *testing.T) {
	plan, err := Resolve(mustAPIVPC(t), "STG", Options{})
	require.NoError(t, err)

	assert.Equal(t, "APIVPC", plan.Network)
	assert.Equal(t, "10.180.0.0/16", plan.CIDR)
	assert.Equal(t, 2, plan.Zones)

	wantNAT := []Subnet{
		{Name: "NATA", CIDR: "10.180.0.0/27", Zone: 0, Kind: SubnetKindNAT},
		{Name: "NATB", CIDR: "10.180.0.32/27", Zone: 1, Kind: SubnetKindNAT},
	}
	if diff := cmp.Diff(wantNAT, plan.NATSubnets); diff != "" {
		t.Errorf("NAT subnets mismatch (-want +got):\n%s", diff)
	}

	wantInterface := []Subnet{
		{Name: "InterfaceA", CIDR: "10.180.3.0/25", Zone: 0, Kind: SubnetKindInterface},
		{Name: "InterfaceB", CIDR: "10.180.3.128/25", Zone: 1, Kind: SubnetKindInterface},
	}
	if diff := cmp.Diff(wantInterface, plan.InterfaceSubnets); diff != "" {
		t.Errorf("interface subnets mismatch (-want +got):\n%s", diff)
	}

	wantPrivate := []Subnet{
		{Name: "SharedBankStatementsAPIA", CIDR: "10.181.10.0/24", Zone: 0, Kind: SubnetKindPrivate, Project: "SharedBankStatementsAPI"},
		{Name: "SharedBankStatementsAPIB", CIDR: "10.181.11.0/24", Zone: 1, Kind: SubnetKindPrivate, Project: "SharedBankStatementsAPI"},
		{Name: "SharedApplyAPIA", CIDR: "10.182.10.0/24", Zone: 0, Kind: SubnetKindPrivate, Project: "SharedApplyAPI"},
		{Name: "SharedApplyAPIB", CIDR: "10.182.11.0/24", Zone: 1, Kind: SubnetKindPrivate, Project: "SharedApplyAPI"},
	}
	if diff := cmp.Diff(wantPrivate, plan.PrivateSubnets); diff != "" {
		t.Errorf("private subnets mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, plan.Projects, 2)
	assert.Equal(t, "10.181.0.0/16", plan.Projects[0].CIDR)
	assert.Equal(t, "10.182.0.0/16", plan.Projects[1].CIDR)

	wantPeerings := []ResolvedPeering{
		{
			Name:      "FAWSORG",
			PeerVpcID: "vpc-5e744b3a",
			PeerRange: "10.173.0.0/22",
			Projects:  []string{"SharedBankStatementsAPI"},
			PeerRoutes: []PeerRoute{
				{Project: "SharedBankStatementsAPI", Ordinal: 1, RouteTableID: "rtb-076b4660", DestinationCIDR: "10.181.0.0/16"},
				{Project: "SharedBankStatementsAPI", Ordinal: 2, RouteTableID: "rtb-05c0db8b6136b48a3", DestinationCIDR: "10.181.0.0/16"},
			},
		},
	}
	if diff := cmp.Diff(wantPeerings, plan.Peerings); diff != "" {
		t.Errorf("peerings mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, plan.Skipped)
}

func TestResolveAPIVPCProduction(t *testing.T) {
	plan, err := Resolve(mustAPIVPC(t), "PRD", Options{})
	require.NoError(t, err)

	assert.Equal(t, "10.190.0.0/16", plan.CIDR)
	require.Len(t, plan.Peerings, 1)
	routes := plan.Peerings[0].PeerRoutes
	require.Len(t, routes, 2)
	assert.Equal(t, "rtb-2e847549", routes[1].RouteTableID)
	assert.Equal(t, "10.191.0.0/16", routes[1].DestinationCIDR)
}

func TestResolveUnknownEnvironment(t *testing.T) {
	_, err := Resolve(mustAPIVPC(t), "DEV", Options{})
	require.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestResolveMissingSecondOctet(t *testing.T) {
	d := &Definition{
		Name:         "TestVPC",
		Environments: []string{"STG", "PRD"},
		SecondOctets: map[string]int{"STG": 10},
		Projects: []Project{
			{Name: "Alpha", SecondOctets: map[string]int{"PRD": 11}},
		},
	}

	_, err := Resolve(d, "PRD", Options{})
	require.ErrorIs(t, err, ErrMissingSecondOctet)

	_, err = Resolve(d, "STG", Options{})
	require.ErrorIs(t, err, ErrMissingSecondOctet)
	assert.Contains(t, err.Error(), "Alpha")
}

func peeringDefinition(peering ...Peering) *Definition {
	return &Definition{
		Name:         "TestVPC",
		Environments: []string{"STG", "PRD"},
		SecondOctets: map[string]int{"STG": 10, "PRD": 20},
		Projects: []Project{
			{Name: "Alpha", SecondOctets: map[string]int{"STG": 11, "PRD": 21}, Peering: peering},
		},
	}
}

func TestResolvePeeringSkipsEnvironmentWithoutRange(t *testing.T) {
	d := peeringDefinition(Peering{
		Name:        "Shared",
		VpcIDs:      map[string]string{"PRD": "vpc-1"},
		Ranges:      map[string]string{"PRD": "10.200.0.0/22"},
		RouteTables: map[string][]string{"PRD": {"rtb-1"}},
	})

	plan, err := Resolve(d, "STG", Options{})
	require.NoError(t, err)
	assert.Empty(t, plan.Peerings)
	assert.Empty(t, plan.Skipped)
}

func TestResolvePeeringErrors(t *testing.T) {
	tests := []struct {
		name    string
		peering Peering
		reason  string
	}{
		{
			name: "missing vpc id",
			peering: Peering{
				Name:        "Shared",
				Ranges:      map[string]string{"STG": "10.200.0.0/22"},
				RouteTables: map[string][]string{"STG": {"rtb-1"}},
			},
			reason: "no peer vpc id",
		},
		{
			name: "missing route tables",
			peering: Peering{
				Name:   "Shared",
				VpcIDs: map[string]string{"STG": "vpc-1"},
				Ranges: map[string]string{"STG": "10.200.0.0/22"},
			},
			reason: "no peer route tables",
		},
		{
			name: "invalid range",
			peering: Peering{
				Name:        "Shared",
				VpcIDs:      map[string]string{"STG": "vpc-1"},
				Ranges:      map[string]string{"STG": "10.200.0.1/22"},
				RouteTables: map[string][]string{"STG": {"rtb-1"}},
			},
			reason: "not a network address",
		},
		{
			name: "range overlaps vpc",
			peering: Peering{
				Name:        "Shared",
				VpcIDs:      map[string]string{"STG": "vpc-1"},
				Ranges:      map[string]string{"STG": "10.10.4.0/22"},
				RouteTables: map[string][]string{"STG": {"rtb-1"}},
			},
			reason: "overlaps vpc cidr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := peeringDefinition(tt.peering)

			_, err := Resolve(d, "STG", Options{})
			require.Error(t, err)

			var perr *PeeringError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "Alpha", perr.Project)
			assert.Equal(t, "Shared", perr.Peer)
			assert.Equal(t, "STG", perr.Environment)
			assert.Contains(t, perr.Reason, tt.reason)

			plan, err := Resolve(d, "STG", Options{SkipInvalidPeering: true})
			require.NoError(t, err)
			assert.Empty(t, plan.Peerings)
			require.Len(t, plan.Skipped, 1)
			assert.Contains(t, plan.Skipped[0].Reason, tt.reason)
		})
	}
}

func TestResolveMergesPeeringsByName(t *testing.T) {
	shared := Peering{
		Name:        "Shared",
		VpcIDs:      map[string]string{"STG": "vpc-1"},
		Ranges:      map[string]string{"STG": "10.200.0.0/22"},
		RouteTables: map[string][]string{"STG": {"rtb-1", "rtb-2"}},
	}
	d := peeringDefinition(shared)
	d.Projects = append(d.Projects, Project{
		Name:         "Beta",
		SecondOctets: map[string]int{"STG": 12},
		Peering:      []Peering{shared},
	})

	plan, err := Resolve(d, "STG", Options{})
	require.NoError(t, err)
	require.Len(t, plan.Peerings, 1)

	peering := plan.Peerings[0]
	assert.Equal(t, []string{"Alpha", "Beta"}, peering.Projects)
	want := []PeerRoute{
		{Project: "Alpha", Ordinal: 1, RouteTableID: "rtb-1", DestinationCIDR: "10.11.0.0/16"},
		{Project: "Alpha", Ordinal: 2, RouteTableID: "rtb-2", DestinationCIDR: "10.11.0.0/16"},
		{Project: "Beta", Ordinal: 1, RouteTableID: "rtb-1", DestinationCIDR: "10.12.0.0/16"},
		{Project: "Beta", Ordinal: 2, RouteTableID: "rtb-2", DestinationCIDR: "10.12.0.0/16"},
	}
	if diff := cmp.Diff(want, peering.PeerRoutes); diff != "" {
		t.Errorf("peer routes mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveConflictingPeering(t *testing.T) {
	d := peeringDefinition(Peering{
		Name:        "Shared",
		VpcIDs:      map[string]string{"STG": "vpc-1"},
		Ranges:      map[string]string{"STG": "10.200.0.0/22"},
		RouteTables: map[string][]string{"STG": {"rtb-1"}},
	})
	d.Projects = append(d.Projects, Project{
		Name:         "Beta",
		SecondOctets: map[string]int{"STG": 12},
		Peering: []Peering{{
			Name:        "Shared",
			VpcIDs:      map[string]string{"STG": "vpc-2"},
			Ranges:      map[string]string{"STG": "10.200.0.0/22"},
			RouteTables: map[string][]string{"STG": {"rtb-9"}},
		}},
	})

	_, err := Resolve(d, "STG", Options{})
	var perr *PeeringError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Beta", perr.Project)
	assert.Contains(t, perr.Reason, "conflicts with vpc-1")

	plan, err := Resolve(d, "STG", Options{SkipInvalidPeering: true})
	require.NoError(t, err)
	require.Len(t, plan.Peerings, 1)
	assert.Equal(t, []string{"Alpha"}, plan.Peerings[0].Projects)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "Beta", plan.Skipped[0].Project)
}

func TestResolveExplicitPrivateSubnets(t *testing.T) {
	d := &Definition{
		Name:         "TestVPC",
		Environments: []string{"STG"},
		SecondOctets: map[string]int{"STG": 10},
		Projects: []Project{{
			Name:         "Alpha",
			SecondOctets: map[string]int{"STG": 11},
			PrivateSubnets: map[string]string{
				"AlphaWorkersB": "10.{octet}.21.0/24",
				"AlphaWorkersA": "10.{octet}.20.0/24",
			},
		}},
	}

	plan, err := Resolve(d, "STG", Options{})
	require.NoError(t, err)

	want := []Subnet{
		{Name: "AlphaWorkersA", CIDR: "10.11.20.0/24", Zone: 0, Kind: SubnetKindPrivate, Project: "Alpha"},
		{Name: "AlphaWorkersB", CIDR: "10.11.21.0/24", Zone: 1, Kind: SubnetKindPrivate, Project: "Alpha"},
	}
	if diff := cmp.Diff(want, plan.PrivateSubnets); diff != "" {
		t.Errorf("private subnets mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveCollectsAllErrors(t *testing.T) {
	d := &Definition{
		Name:         "TestVPC",
		Environments: []string{"STG"},
		SecondOctets: map[string]int{"STG": 10},
		Projects: []Project{
			{Name: "Alpha", SecondOctets: map[string]int{"STG": 10}},
			{
				Name:         "Beta",
				SecondOctets: map[string]int{"STG": 12},
				PrivateSubnets: map[string]string{
					"BetaC": "10.{octet}.1.0/24",
					"BetaA": "10.99.1.0/24",
				},
			},
			{Name: "Gamma", SecondOctets: map[string]int{"STG": 300}},
		},
	}

	_, err := Resolve(d, "STG", Options{})
	require.Error(t, err)

	errs := multierr.Errors(err)
	assert.Len(t, errs, 4)
	assert.Contains(t, err.Error(), "project Alpha: cidr 10.10.0.0/16 overlaps vpc cidr")
	assert.Contains(t, err.Error(), "BetaA: 10.99.1.0/24 is outside 10.12.0.0/16")
	assert.Contains(t, err.Error(), "zone 2 has no NAT subnet")
	assert.ErrorIs(t, err, ErrInvalidCIDR)
}

func TestResolvePeerRouteOrdinalsSpanPeerings(t *testing.T) {
	d := peeringDefinition(
		Peering{
			Name:        "Shared",
			VpcIDs:      map[string]string{"STG": "vpc-1"},
			Ranges:      map[string]string{"STG": "10.200.0.0/22"},
			RouteTables: map[string][]string{"STG": {"rtb-1", "rtb-2"}},
		},
		Peering{
			Name:        "Legacy",
			VpcIDs:      map[string]string{"STG": "vpc-2"},
			Ranges:      map[string]string{"STG": "10.201.0.0/22"},
			RouteTables: map[string][]string{"STG": {"rtb-3"}},
		},
	)

	plan, err := Resolve(d, "STG", Options{})
	require.NoError(t, err)
	require.Len(t, plan.Peerings, 2)

	want := []PeerRoute{
		{Project: "Alpha", Ordinal: 3, RouteTableID: "rtb-3", DestinationCIDR: "10.11.0.0/16"},
	}
	if diff := cmp.Diff(want, plan.Peerings[1].PeerRoutes); diff != "" {
		t.Errorf("peer routes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Alpha3PeerVPCRoute", PeerRouteID(plan.Peerings[1].PeerRoutes[0]))
}

func TestResolveOverlappingPeerRanges(t *testing.T) {
	d := peeringDefinition(
		Peering{
			Name:        "Shared",
			VpcIDs:      map[string]string{"STG": "vpc-1"},
			Ranges:      map[string]string{"STG": "10.200.0.0/22"},
			RouteTables: map[string][]string{"STG": {"rtb-1"}},
		},
		Peering{
			Name:        "Legacy",
			VpcIDs:      map[string]string{"STG": "vpc-2"},
			Ranges:      map[string]string{"STG": "10.200.2.0/23"},
			RouteTables: map[string][]string{"STG": {"rtb-2"}},
		},
	)

	_, err := Resolve(d, "STG", Options{})
	var perr *PeeringError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Legacy", perr.Peer)
	assert.Equal(t, "range 10.200.2.0/23 overlaps range 10.200.0.0/22 of peering Shared", perr.Reason)

	plan, err := Resolve(d, "STG", Options{SkipInvalidPeering: true})
	require.NoError(t, err)
	require.Len(t, plan.Peerings, 1)
	assert.Equal(t, "Shared", plan.Peerings[0].Name)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "Legacy", plan.Skipped[0].Peer)
}

func TestResolveDuplicateSubnetName(t *testing.T) {
	d := &Definition{
		Name:         "TestVPC",
		Environments: []string{"STG"},
		SecondOctets: map[string]int{"STG": 10},
		Projects: []Project{{
			Name:         "Alpha",
			SecondOctets: map[string]int{"STG": 11},
			PrivateSubnets: map[string]string{
				"InterfaceA": "10.{octet}.20.0/24",
				"AlphaB":     "10.{octet}.21.0/24",
			},
		}},
	}

	_, err := Resolve(d, "STG", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subnet InterfaceA defined twice")
}

func TestResolveDuplicateIDs(t *testing.T) {
	tests := []struct {
		name     string
		projects []Project
		want     []string
	}{
		{
			name: "queue ids of different projects",
			projects: []Project{
				{Name: "Shared", SecondOctets: map[string]int{"STG": 11}, Queues: []Queue{{Name: "ApplyEvents"}}},
				{Name: "SharedApply", SecondOctets: map[string]int{"STG": 12}, Queues: []Queue{{Name: "Events"}}},
			},
			want: []string{
				"logical id SharedApplyEventsQueue used by queue ApplyEvents of Shared and queue Events of SharedApply",
				"queue name TestVPC-STG-SharedApplyEvents used by queue ApplyEvents of Shared and queue Events of SharedApply",
			},
		},
		{
			name: "dead-letter queue id",
			projects: []Project{{
				Name:         "Alpha",
				SecondOctets: map[string]int{"STG": 11},
				Queues: []Queue{
					{Name: "X", DeadLetter: &DeadLetter{MaxReceiveCount: 3}},
					{Name: "XDeadLetter"},
				},
			}},
			want: []string{
				"logical id AlphaXDeadLetterQueue used by queue X of Alpha and queue XDeadLetter of Alpha",
				"logical id AlphaXDeadLetterQueueArn used by queue X of Alpha and queue XDeadLetter of Alpha",
			},
		},
		{
			name: "dead-letter queue name",
			projects: []Project{{
				Name:         "Alpha",
				SecondOctets: map[string]int{"STG": 11},
				Queues: []Queue{
					{Name: "X", DeadLetter: &DeadLetter{MaxReceiveCount: 3}},
					{Name: "XDLQ"},
				},
			}},
			want: []string{
				"queue name TestVPC-STG-AlphaXDLQ used by queue X of Alpha and queue XDLQ of Alpha",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Definition{
				Name:         "TestVPC",
				Environments: []string{"STG"},
				SecondOctets: map[string]int{"STG": 10},
				Projects:     tt.projects,
			}

			_, err := Resolve(d, "STG", Options{})
			require.ErrorIs(t, err, ErrDuplicateID)
			for _, want := range tt.want {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
