package cloudformation

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"

	"github.com/andrey-berenda/apivpc/internal/pkg/network"
	"github.com/andrey-berenda/apivpc/internal/pkg/ptr"
)

type builder struct {
	stack              awscdk.Stack
	plan               *network.Plan
	vpc                awsec2.CfnVPC
	cidrBlocks         map[string]awsec2.CfnVPCCidrBlock
	subnets            map[string]awsec2.CfnSubnet
	natGateways        []awsec2.CfnNatGateway
	privateRouteTables []awsec2.CfnRouteTable
}

// NewStack declares every resource of the resolved plan in a new stack.
func NewStack(scope constructs.Construct, id string, props *awscdk.StackProps, plan *network.Plan) awscdk.Stack {
	if props == nil {
		props = &awscdk.StackProps{}
	}
	if props.Synthesizer == nil {
		props.Synthesizer = awscdk.NewBootstraplessSynthesizer(&awscdk.BootstraplessSynthesizerProps{})
	}
	if props.Description == nil {
		props.Description = ptr.Of(fmt.Sprintf("%s network (%s)", plan.Network, plan.Environment))
	}

	stack := awscdk.NewStack(scope, &id, props)
	awscdk.Tags_Of(stack).Add(ptr.Of("Network"), ptr.Of(plan.Network), nil)
	awscdk.Tags_Of(stack).Add(ptr.Of("Environment"), ptr.Of(plan.Environment), nil)

	b := &builder{
		stack:      stack,
		plan:       plan,
		cidrBlocks: map[string]awsec2.CfnVPCCidrBlock{},
		subnets:    map[string]awsec2.CfnSubnet{},
	}

	b.addVPC()
	b.addPublicRouting()
	b.addPrivateRouting()
	for _, peering := range plan.Peerings {
		b.addPeering(peering)
	}
	for _, project := range plan.Projects {
		for _, queue := range project.Queues {
			b.addQueue(project.Name, queue)
		}
	}

	return stack
}

func (b *builder) nameTag(name string) *[]*awscdk.CfnTag {
	return &[]*awscdk.CfnTag{
		{Key: ptr.Of("Name"), Value: ptr.Of(name)},
	}
}

func (b *builder) output(id string, value *string, description string) {
	awscdk.NewCfnOutput(b.stack, ptr.Of(id), &awscdk.CfnOutputProps{
		Value:       value,
		Description: ptr.Of(description),
		ExportName:  awscdk.Fn_Sub(ptr.Of("${AWS::StackName}-"+id), nil),
	})
}
