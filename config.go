// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/set"
)

// Committee is the validator set of a single epoch: an ordered leader
// schedule indexed by view, and the member set whose signatures count
// towards a quorum.
type Committee struct {
	Leaders []NodeID
	Members set.Set[NodeID]
}

// Config holds the fixed system parameters and the per-epoch staking table.
// The table repeats cyclically, so a finite configuration covers an unbounded
// number of epochs.
type Config struct {
	// EpochLength is the number of blocks in an epoch.
	EpochLength uint64
	// QuorumSize is the number of signatures a certificate needs per committee.
	QuorumSize int
	// MaxFaults is the number of nodes per committee that may behave arbitrarily.
	MaxFaults int
	// Committees holds one entry per epoch, starting at epoch 1.
	Committees []Committee
}

// Verify checks the configuration invariants. These are the only failures the
// protocol treats as fatal, and only at startup.
func (c *Config) Verify() error {
	if c.EpochLength == 0 {
		return fmt.Errorf("epoch length must be positive")
	}
	if c.QuorumSize <= 2*c.MaxFaults {
		return fmt.Errorf("quorum size %d must exceed twice the fault bound %d", c.QuorumSize, c.MaxFaults)
	}
	if len(c.Committees) == 0 {
		return fmt.Errorf("no committees configured")
	}
	for i, committee := range c.Committees {
		if committee.Members.Len() == 0 {
			return fmt.Errorf("committee for epoch %d has no members", i+1)
		}
		if len(committee.Leaders) == 0 {
			return fmt.Errorf("committee for epoch %d has no leader schedule", i+1)
		}
	}
	return nil
}

// committee returns the committee for the given epoch, wrapping around the
// configured table. Epoch 0 only ever refers to the genesis certificate, and
// shares the first epoch's committee.
func (c *Config) committee(epoch uint64) Committee {
	if epoch == 0 {
		return c.Committees[0]
	}
	return c.Committees[(epoch-1)%uint64(len(c.Committees))]
}

// Leader returns the node authorized to propose at the given view of the
// given epoch.
func (c *Config) Leader(view, epoch uint64) NodeID {
	leaders := c.committee(epoch).Leaders
	return leaders[view%uint64(len(leaders))]
}

// IsMember reports whether the node belongs to the committee of the given epoch.
func (c *Config) IsMember(node NodeID, epoch uint64) bool {
	members := c.committee(epoch).Members
	return members.Contains(node)
}

// Members returns the member set of the given epoch's committee.
func (c *Config) Members(epoch uint64) set.Set[NodeID] {
	return c.committee(epoch).Members
}
