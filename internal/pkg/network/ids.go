package network

import (
	"fmt"
	"sort"
)

// Logical ids of the stack resources and outputs. The stack builder uses
// these names, so Resolve can reject a plan whose ids collide before any
// construct is created.

const (
	VPCID                       = "VPC"
	InternetGatewayID           = "InternetGateway"
	InternetGatewayAttachmentID = "InternetGatewayAttachment"
	PublicRouteTableID          = "PublicRouteTable"
	PublicDefaultRouteID        = "PublicDefaultRoute"
	VPCIDOutput                 = "VpcId"
	VPCCidrOutput               = "VpcCidr"
)

func ZoneLetter(zone int) string {
	return string(rune('A' + zone))
}

func CidrBlockID(project string) string { return project + "CidrBlock" }

func SubnetID(subnet string) string { return subnet + "Subnet" }

func SubnetOutput(subnet string) string { return subnet + "SubnetId" }

func SubnetAssociationID(subnet string) string { return subnet + "SubnetRouteTableAssociation" }

func EIPID(subnet string) string { return subnet + "EIP" }

func NatGatewayID(subnet string) string { return subnet + "NatGateway" }

func PrivateRouteTableID(zone int) string { return "PrivateRouteTable" + ZoneLetter(zone) }

func PrivateDefaultRouteID(zone int) string { return PrivateRouteTableID(zone) + "DefaultRoute" }

func PeeringConnectionID(peer string) string { return peer + "PeeringConnection" }

func PeeringConnectionOutput(peer string) string { return peer + "PeeringConnectionId" }

func PeeringRouteID(peer string, zone int) string {
	return peer + PrivateRouteTableID(zone) + "Route"
}

func PeerRouteID(route PeerRoute) string {
	return fmt.Sprintf("%s%dPeerVPCRoute", route.Project, route.Ordinal)
}

func QueueID(project, queue string) string { return project + queue + "Queue" }

func DeadLetterQueueID(project, queue string) string { return project + queue + "DeadLetterQueue" }

func QueueURLOutput(project, queue string) string { return QueueID(project, queue) + "Url" }

func QueueARNOutput(project, queue string) string { return QueueID(project, queue) + "Arn" }

func DeadLetterQueueARNOutput(project, queue string) string {
	return DeadLetterQueueID(project, queue) + "Arn"
}

// QueueName is the SQS name of a project queue. FIFO queues carry the
// mandatory ".fifo" suffix.
func QueueName(plan *Plan, project, queue string, fifo bool) string {
	name := fmt.Sprintf("%s-%s-%s%s", plan.Network, plan.Environment, project, queue)
	if fifo {
		name += ".fifo"
	}
	return name
}

func DeadLetterQueueName(plan *Plan, project, queue string, fifo bool) string {
	return QueueName(plan, project, queue+"DLQ", fifo)
}

type idSet struct {
	kind   string
	owners map[string]string
	errs   []error
}

func newIDSet(kind string) *idSet {
	return &idSet{kind: kind, owners: map[string]string{}}
}

func (s *idSet) add(id string, owner string) {
	if previous, ok := s.owners[id]; ok {
		s.errs = append(s.errs, fmt.Errorf("%w: %s %s used by %s and %s", ErrDuplicateID, s.kind, id, previous, owner))
		return
	}
	s.owners[id] = owner
}

// checkIDs reports every logical id and SQS queue name that the plan would
// declare more than once.
func (r *resolver) checkIDs() {
	plan := r.plan
	ids := newIDSet("logical id")
	names := newIDSet("queue name")

	for _, id := range []string{
		VPCID, InternetGatewayID, InternetGatewayAttachmentID,
		PublicRouteTableID, PublicDefaultRouteID, VPCIDOutput, VPCCidrOutput,
	} {
		ids.add(id, "vpc")
	}
	for zone := 0; zone < plan.Zones; zone++ {
		owner := "zone " + ZoneLetter(zone)
		ids.add(PrivateRouteTableID(zone), owner)
		ids.add(PrivateDefaultRouteID(zone), owner)
	}

	for _, project := range plan.Projects {
		ids.add(CidrBlockID(project.Name), "project "+project.Name)
	}
	for _, subnets := range [][]Subnet{plan.NATSubnets, plan.InterfaceSubnets, plan.PrivateSubnets} {
		for _, s := range subnets {
			owner := "subnet " + s.Name
			ids.add(SubnetID(s.Name), owner)
			ids.add(SubnetOutput(s.Name), owner)
			ids.add(SubnetAssociationID(s.Name), owner)
			if s.Kind == SubnetKindNAT {
				ids.add(EIPID(s.Name), owner)
				ids.add(NatGatewayID(s.Name), owner)
			}
		}
	}

	for _, peering := range plan.Peerings {
		owner := "peering " + peering.Name
		ids.add(PeeringConnectionID(peering.Name), owner)
		ids.add(PeeringConnectionOutput(peering.Name), owner)
		for zone := 0; zone < plan.Zones; zone++ {
			ids.add(PeeringRouteID(peering.Name, zone), owner)
		}
		for _, route := range peering.PeerRoutes {
			ids.add(PeerRouteID(route), fmt.Sprintf("peering %s route %s", peering.Name, route.RouteTableID))
		}
	}

	for _, project := range plan.Projects {
		for _, q := range project.Queues {
			owner := fmt.Sprintf("queue %s of %s", q.Name, project.Name)
			ids.add(QueueID(project.Name, q.Name), owner)
			ids.add(QueueURLOutput(project.Name, q.Name), owner)
			ids.add(QueueARNOutput(project.Name, q.Name), owner)
			names.add(QueueName(plan, project.Name, q.Name, q.FIFO), owner)
			if q.DeadLetter != nil {
				ids.add(DeadLetterQueueID(project.Name, q.Name), owner)
				ids.add(DeadLetterQueueARNOutput(project.Name, q.Name), owner)
				names.add(DeadLetterQueueName(plan, project.Name, q.Name, q.FIFO), owner)
			}
		}
	}

	for _, set := range []*idSet{ids, names} {
		for _, err := range set.errs {
			r.fail(err)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
