package cloudformation

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"

	"github.com/andrey-berenda/apivpc/internal/pkg/network"
	"github.com/andrey-berenda/apivpc/internal/pkg/ptr"
)

const anyIPv4 = "0.0.0.0/0"

func (b *builder) addVPC() {
	b.vpc = awsec2.NewCfnVPC(b.stack, ptr.Of(network.VPCID), &awsec2.CfnVPCProps{
		CidrBlock:          ptr.Of(b.plan.CIDR),
		EnableDnsSupport:   ptr.Of(true),
		EnableDnsHostnames: ptr.Of(true),
		Tags:               b.nameTag(fmt.Sprintf("%s-%s", b.plan.Network, b.plan.Environment)),
	})
	b.output(network.VPCIDOutput, b.vpc.Ref(), "VPC id")
	b.output(network.VPCCidrOutput, b.vpc.AttrCidrBlock(), "VPC primary cidr")

	// project subnets live outside the primary range
	for _, project := range b.plan.Projects {
		b.cidrBlocks[project.Name] = awsec2.NewCfnVPCCidrBlock(b.stack, ptr.Of(network.CidrBlockID(project.Name)), &awsec2.CfnVPCCidrBlockProps{
			VpcId:     b.vpc.Ref(),
			CidrBlock: ptr.Of(project.CIDR),
		})
	}

	for _, subnets := range [][]network.Subnet{b.plan.NATSubnets, b.plan.InterfaceSubnets, b.plan.PrivateSubnets} {
		for _, s := range subnets {
			b.addSubnet(s)
		}
	}
}

func (b *builder) addSubnet(s network.Subnet) {
	subnet := awsec2.NewCfnSubnet(b.stack, ptr.Of(network.SubnetID(s.Name)), &awsec2.CfnSubnetProps{
		VpcId:               b.vpc.Ref(),
		CidrBlock:           ptr.Of(s.CIDR),
		AvailabilityZone:    awscdk.Fn_Select(jsii.Number(float64(s.Zone)), awscdk.Fn_GetAzs(ptr.Of(""))),
		MapPublicIpOnLaunch: ptr.Of(s.Kind == network.SubnetKindNAT),
		Tags:                b.nameTag(fmt.Sprintf("%s-%s-%s", b.plan.Network, b.plan.Environment, s.Name)),
	})
	if s.Project != "" {
		subnet.Node().AddDependency(b.cidrBlocks[s.Project])
	}
	b.subnets[s.Name] = subnet
	b.output(network.SubnetOutput(s.Name), subnet.Ref(), fmt.Sprintf("%s subnet %s", s.Kind, s.CIDR))
}

func (b *builder) associate(subnetName string, routeTable awsec2.CfnRouteTable) {
	awsec2.NewCfnSubnetRouteTableAssociation(b.stack, ptr.Of(network.SubnetAssociationID(subnetName)), &awsec2.CfnSubnetRouteTableAssociationProps{
		SubnetId:     b.subnets[subnetName].Ref(),
		RouteTableId: routeTable.Ref(),
	})
}

// addPublicRouting sends the NAT subnets to the internet gateway and puts a
// NAT gateway in each of them.
func (b *builder) addPublicRouting() {
	igw := awsec2.NewCfnInternetGateway(b.stack, ptr.Of(network.InternetGatewayID), &awsec2.CfnInternetGatewayProps{
		Tags: b.nameTag(fmt.Sprintf("%s-%s", b.plan.Network, b.plan.Environment)),
	})
	attachment := awsec2.NewCfnVPCGatewayAttachment(b.stack, ptr.Of(network.InternetGatewayAttachmentID), &awsec2.CfnVPCGatewayAttachmentProps{
		VpcId:             b.vpc.Ref(),
		InternetGatewayId: igw.Ref(),
	})

	publicRouteTable := awsec2.NewCfnRouteTable(b.stack, ptr.Of(network.PublicRouteTableID), &awsec2.CfnRouteTableProps{
		VpcId: b.vpc.Ref(),
		Tags:  b.nameTag(fmt.Sprintf("%s-%s-public", b.plan.Network, b.plan.Environment)),
	})
	route := awsec2.NewCfnRoute(b.stack, ptr.Of(network.PublicDefaultRouteID), &awsec2.CfnRouteProps{
		RouteTableId:         publicRouteTable.Ref(),
		DestinationCidrBlock: ptr.Of(anyIPv4),
		GatewayId:            igw.Ref(),
	})
	route.Node().AddDependency(attachment)

	b.natGateways = make([]awsec2.CfnNatGateway, b.plan.Zones)
	for _, s := range b.plan.NATSubnets {
		b.associate(s.Name, publicRouteTable)

		eip := awsec2.NewCfnEIP(b.stack, ptr.Of(network.EIPID(s.Name)), &awsec2.CfnEIPProps{
			Domain: ptr.Of("vpc"),
		})
		eip.Node().AddDependency(attachment)

		b.natGateways[s.Zone] = awsec2.NewCfnNatGateway(b.stack, ptr.Of(network.NatGatewayID(s.Name)), &awsec2.CfnNatGatewayProps{
			AllocationId: eip.AttrAllocationId(),
			SubnetId:     b.subnets[s.Name].Ref(),
			Tags:         b.nameTag(fmt.Sprintf("%s-%s-%s", b.plan.Network, b.plan.Environment, s.Name)),
		})
	}
}

// addPrivateRouting creates one route table per zone defaulting to that
// zone's NAT gateway.
func (b *builder) addPrivateRouting() {
	b.privateRouteTables = make([]awsec2.CfnRouteTable, b.plan.Zones)
	for zone := 0; zone < b.plan.Zones; zone++ {
		routeTable := awsec2.NewCfnRouteTable(b.stack, ptr.Of(network.PrivateRouteTableID(zone)), &awsec2.CfnRouteTableProps{
			VpcId: b.vpc.Ref(),
			Tags:  b.nameTag(fmt.Sprintf("%s-%s-private-%s", b.plan.Network, b.plan.Environment, network.ZoneLetter(zone))),
		})
		b.privateRouteTables[zone] = routeTable

		awsec2.NewCfnRoute(b.stack, ptr.Of(network.PrivateDefaultRouteID(zone)), &awsec2.CfnRouteProps{
			RouteTableId:         routeTable.Ref(),
			DestinationCidrBlock: ptr.Of(anyIPv4),
			NatGatewayId:         b.natGateways[zone].Ref(),
		})
	}

	for _, subnets := range [][]network.Subnet{b.plan.InterfaceSubnets, b.plan.PrivateSubnets} {
		for _, s := range subnets {
			b.associate(s.Name, b.privateRouteTables[s.Zone])
		}
	}
}
