package cloudformation

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"

	"github.com/andrey-berenda/apivpc/internal/pkg/network"
	"github.com/andrey-berenda/apivpc/internal/pkg/ptr"
)

func NewApp() awscdk.App {
	return awscdk.NewApp(&awscdk.AppProps{
		AnalyticsReporting: ptr.Of(false),
	})
}

// Template builds the plan's stack in a fresh app and synthesizes it.
func Template(stackName string, props *awscdk.StackProps, plan *network.Plan) (template []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build stack %s: %v", stackName, r)
		}
	}()

	app := NewApp()
	stack := NewStack(app, stackName, props, plan)
	return Synthesize(app, stack)
}

// Synthesize returns the stack's CloudFormation template as indented JSON.
func Synthesize(app awscdk.App, stack awscdk.Stack) (template []byte, err error) {
	// jsii reports failures from the CDK runtime as panics
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("app.Synth: %v", r)
		}
	}()

	assembly := app.Synth(nil)
	artifact := assembly.GetStackArtifact(stack.ArtifactId())

	template, err = json.MarshalIndent(artifact.Template(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent: %w", err)
	}
	return append(template, '\n'), nil
}
