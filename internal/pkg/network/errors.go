package network

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrMissingSecondOctet = errors.New("missing second octet")
	ErrInvalidCIDR        = errors.New("invalid cidr")
	ErrDuplicateID        = errors.New("duplicate id")
)

// PeeringError reports peering data that cannot be turned into resources for
// one project and environment.
type PeeringError struct {
	Project     string
	Peer        string
	Environment string
	Reason      string
}

func (e *PeeringError) Error() string {
	return fmt.Sprintf("peering %s for project %s in %s: %s", e.Peer, e.Project, e.Environment, e.Reason)
}
