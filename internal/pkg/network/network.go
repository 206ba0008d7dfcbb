package network

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed apivpc.yaml
var apiVPCDefinition []byte

// logical ids in the template are built from these names
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

type Definition struct {
	Name         string         `yaml:"name"`
	Environments []string       `yaml:"environments"`
	SecondOctets map[string]int `yaml:"secondOctets"`
	Projects     []Project      `yaml:"projects"`
}

type Project struct {
	Name         string         `yaml:"name"`
	SecondOctets map[string]int `yaml:"secondOctets"`
	// PrivateSubnets maps subnet name to a CIDR template, "{octet}" is
	// replaced with the project's second octet.
	PrivateSubnets map[string]string `yaml:"privateSubnets,omitempty"`
	Peering        []Peering         `yaml:"peering,omitempty"`
	Queues         []Queue           `yaml:"queues,omitempty"`
}

type Peering struct {
	Name        string              `yaml:"name"`
	VpcIDs      map[string]string   `yaml:"vpcIds"`
	Ranges      map[string]string   `yaml:"ranges"`
	RouteTables map[string][]string `yaml:"routeTables"`
}

type Queue struct {
	Name              string      `yaml:"name"`
	FIFO              bool        `yaml:"fifo,omitempty"`
	VisibilityTimeout int         `yaml:"visibilityTimeout,omitempty"`
	RetentionPeriod   int         `yaml:"retentionPeriod,omitempty"`
	DeadLetter        *DeadLetter `yaml:"deadLetter,omitempty"`
}

type DeadLetter struct {
	MaxReceiveCount int `yaml:"maxReceiveCount"`
}

// APIVPC returns the embedded shared-services API VPC definition.
func APIVPC() (*Definition, error) {
	return Parse(apiVPCDefinition)
}

func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s): %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

func Parse(data []byte) (*Definition, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	d := &Definition{}
	if err := decoder.Decode(d); err != nil {
		return nil, fmt.Errorf("yaml.Decode: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Definition) validate() error {
	var errs error
	if !namePattern.MatchString(d.Name) {
		errs = multierr.Append(errs, fmt.Errorf("network name %q must be alphanumeric", d.Name))
	}
	if len(d.Environments) == 0 {
		errs = multierr.Append(errs, errors.New("no environments defined"))
	}

	projects := map[string]bool{}
	for _, p := range d.Projects {
		if !namePattern.MatchString(p.Name) {
			errs = multierr.Append(errs, fmt.Errorf("project name %q must be alphanumeric", p.Name))
		}
		if projects[p.Name] {
			errs = multierr.Append(errs, fmt.Errorf("project %s defined twice", p.Name))
		}
		projects[p.Name] = true

		peerings := map[string]bool{}
		for _, peering := range p.Peering {
			if !namePattern.MatchString(peering.Name) {
				errs = multierr.Append(errs, fmt.Errorf("project %s: peering name %q must be alphanumeric", p.Name, peering.Name))
			}
			if peerings[peering.Name] {
				errs = multierr.Append(errs, fmt.Errorf("project %s: peering %s defined twice", p.Name, peering.Name))
			}
			peerings[peering.Name] = true
		}

		queues := map[string]bool{}
		for _, q := range p.Queues {
			if err := q.validate(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("project %s: %w", p.Name, err))
			}
			if queues[q.Name] {
				errs = multierr.Append(errs, fmt.Errorf("project %s: queue %s defined twice", p.Name, q.Name))
			}
			queues[q.Name] = true
		}
	}
	return errs
}

func (q Queue) validate() error {
	if !namePattern.MatchString(q.Name) {
		return fmt.Errorf("queue name %q must be alphanumeric", q.Name)
	}
	if q.VisibilityTimeout < 0 || q.VisibilityTimeout > 43200 {
		return fmt.Errorf("queue %s: visibilityTimeout %d out of range [0, 43200]", q.Name, q.VisibilityTimeout)
	}
	if q.RetentionPeriod != 0 && (q.RetentionPeriod < 60 || q.RetentionPeriod > 1209600) {
		return fmt.Errorf("queue %s: retentionPeriod %d out of range [60, 1209600]", q.Name, q.RetentionPeriod)
	}
	if q.DeadLetter != nil && (q.DeadLetter.MaxReceiveCount < 1 || q.DeadLetter.MaxReceiveCount > 1000) {
		return fmt.Errorf("queue %s: maxReceiveCount %d out of range [1, 1000]", q.Name, q.DeadLetter.MaxReceiveCount)
	}
	return nil
}
