package main

import (
	"fmt"
	"io"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andrey-berenda/apivpc/internal/pkg/cloudformation"
	"github.com/andrey-berenda/apivpc/internal/pkg/config"
	"github.com/andrey-berenda/apivpc/internal/pkg/log"
	"github.com/andrey-berenda/apivpc/internal/pkg/network"
	"github.com/andrey-berenda/apivpc/internal/pkg/output"
	"github.com/andrey-berenda/apivpc/internal/pkg/ptr"
)

type cli struct {
	stdout     io.Writer
	cfg        *config.Config
	logger     *zap.SugaredLogger
	definition *network.Definition
}

// newRootCmd builds the CLI. A nil logger is built from LOG_PATH and LOG_LEVEL.
func newRootCmd(stdout io.Writer, logger *zap.SugaredLogger) *cobra.Command {
	c := &cli{stdout: stdout, logger: logger}
	flags := &config.Config{}

	cmd := &cobra.Command{
		Use:          "apivpc",
		Short:        "Generate the CloudFormation template of the shared-services API VPC",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd, flags)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.generate()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.Environment, "environment", "e", "", "deployment environment (overrides ENVIRONMENT)")
	cmd.PersistentFlags().StringVar(&flags.NetworkConfig, "network", "", "network definition file (overrides NETWORK_CONFIG, default: embedded APIVPC)")
	cmd.PersistentFlags().BoolVar(&flags.SkipInvalidPeering, "skip-invalid-peering", false, "skip peering entries with incomplete data instead of failing")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "template destination, - for stdout (overrides OUTPUT)")
	cmd.Flags().StringVar(&flags.StackName, "stack-name", "", "stack name (overrides STACK_NAME)")

	cmd.AddCommand(c.newPlanCmd())
	return cmd
}

func (c *cli) newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved network plan as YAML without synthesizing",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			plan, err := c.resolve()
			if err != nil {
				return err
			}
			encoder := yaml.NewEncoder(c.stdout)
			encoder.SetIndent(2)
			if err = encoder.Encode(plan); err != nil {
				return fmt.Errorf("yaml.Encode: %w", err)
			}
			return encoder.Close()
		},
	}
}

// setup merges flags over the environment and loads the network definition.
func (c *cli) setup(cmd *cobra.Command, flags *config.Config) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("environment") {
		cfg.Environment = flags.Environment
	}
	if changed("network") {
		cfg.NetworkConfig = flags.NetworkConfig
	}
	if changed("skip-invalid-peering") {
		cfg.SkipInvalidPeering = flags.SkipInvalidPeering
	}
	if changed("output") {
		cfg.Output = flags.Output
	}
	if changed("stack-name") {
		cfg.StackName = flags.StackName
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	if c.logger == nil {
		c.logger, err = log.NewLogger(cfg.Log.Path, cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("log.NewLogger: %w", err)
		}
	}
	c.logger = c.logger.With(log.Environment(cfg.Environment))

	if cfg.NetworkConfig == "" {
		c.definition, err = network.APIVPC()
	} else {
		c.definition, err = network.Load(cfg.NetworkConfig)
	}
	if err != nil {
		return fmt.Errorf("network definition: %w", err)
	}
	return nil
}

func (c *cli) resolve() (*network.Plan, error) {
	plan, err := network.Resolve(c.definition, c.cfg.Environment, network.Options{
		SkipInvalidPeering: c.cfg.SkipInvalidPeering,
	})
	if err != nil {
		return nil, fmt.Errorf("network.Resolve: %w", err)
	}
	for _, skipped := range plan.Skipped {
		c.logger.Desugar().Warn(
			"peering skipped",
			log.Project(skipped.Project),
			log.Peer(skipped.Peer),
			zap.String("reason", skipped.Reason),
		)
	}
	return plan, nil
}

func (c *cli) generate() error {
	plan, err := c.resolve()
	if err != nil {
		return err
	}

	stackName := c.cfg.StackNameFor(plan.Network)
	template, err := cloudformation.Template(stackName, &awscdk.StackProps{Env: c.stackEnv()}, plan)
	if err != nil {
		return fmt.Errorf("cloudformation.Template: %w", err)
	}
	if err = output.Write(c.cfg.Output, template, c.stdout); err != nil {
		return fmt.Errorf("output.Write: %w", err)
	}

	c.logger.Infow(
		"template generated",
		"stack", stackName,
		"output", c.cfg.Output,
		"projects", len(plan.Projects),
		"peerings", len(plan.Peerings),
		"bytes", len(template),
	)
	return nil
}

func (c *cli) stackEnv() *awscdk.Environment {
	if c.cfg.AWS.Account == "" && c.cfg.AWS.Region == "" {
		return nil
	}
	env := &awscdk.Environment{}
	if c.cfg.AWS.Account != "" {
		env.Account = ptr.Of(c.cfg.AWS.Account)
	}
	if c.cfg.AWS.Region != "" {
		env.Region = ptr.Of(c.cfg.AWS.Region)
	}
	return env
}
