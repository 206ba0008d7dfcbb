package cloudformation

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"

	"github.com/andrey-berenda/apivpc/internal/pkg/network"
	"github.com/andrey-berenda/apivpc/internal/pkg/ptr"
)

// addPeering declares the connection to a peer VPC, the routes from every
// private route table to the peer range, and the routes in the peer's route
// tables back to each peered project.
func (b *builder) addPeering(peering network.ResolvedPeering) {
	connection := awsec2.NewCfnVPCPeeringConnection(b.stack, ptr.Of(network.PeeringConnectionID(peering.Name)), &awsec2.CfnVPCPeeringConnectionProps{
		VpcId:     b.vpc.Ref(),
		PeerVpcId: ptr.Of(peering.PeerVpcID),
		Tags:      b.nameTag(fmt.Sprintf("%s-to-%s-%s", b.plan.Network, peering.Name, b.plan.Environment)),
	})
	b.output(network.PeeringConnectionOutput(peering.Name), connection.Ref(), fmt.Sprintf("peering connection to %s", peering.PeerVpcID))

	for zone, routeTable := range b.privateRouteTables {
		awsec2.NewCfnRoute(b.stack, ptr.Of(network.PeeringRouteID(peering.Name, zone)), &awsec2.CfnRouteProps{
			RouteTableId:           routeTable.Ref(),
			DestinationCidrBlock:   ptr.Of(peering.PeerRange),
			VpcPeeringConnectionId: connection.Ref(),
		})
	}

	for _, route := range peering.PeerRoutes {
		awsec2.NewCfnRoute(b.stack, ptr.Of(network.PeerRouteID(route)), &awsec2.CfnRouteProps{
			RouteTableId:           ptr.Of(route.RouteTableID),
			DestinationCidrBlock:   ptr.Of(route.DestinationCIDR),
			VpcPeeringConnectionId: connection.Ref(),
		})
	}
}
