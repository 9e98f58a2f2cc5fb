// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

// BlockEpoch maps a block height to the epoch it belongs to. Epoch e covers
// heights (e-1)*K+1 through e*K, so the last block of an epoch is the only
// one whose height divides the epoch length.
func (c *Config) BlockEpoch(block uint64) uint64 {
	if block%c.EpochLength == 0 {
		return block / c.EpochLength
	}
	return block/c.EpochLength + 1
}

// IsFirstBlockOfEpoch reports whether the block opens an epoch.
func (c *Config) IsFirstBlockOfEpoch(block uint64) bool {
	return block%c.EpochLength == 1
}

// IsLastBlockOfEpoch reports whether the block is an epoch boundary. The
// chain may not cross past such a block without an extended certificate.
func (c *Config) IsLastBlockOfEpoch(block uint64) bool {
	return block%c.EpochLength == 0
}

// epochsOfBlock returns every epoch in which a certificate over the block
// needs a quorum: the block's own epoch, plus the next one when the block
// sits on an epoch boundary.
func (c *Config) epochsOfBlock(block uint64) []uint64 {
	epoch := c.BlockEpoch(block)
	if c.IsLastBlockOfEpoch(block) {
		return []uint64{epoch, epoch + 1}
	}
	return []uint64{epoch}
}

// RelevantEpochs returns the epochs for which the node's signature on the
// block counts. For a boundary block these are the departing and incoming
// epochs the node is a member of; a single vote then updates one tally per
// returned epoch.
func (c *Config) RelevantEpochs(node NodeID, block uint64) []uint64 {
	epoch := c.BlockEpoch(block)
	if !c.IsLastBlockOfEpoch(block) {
		return []uint64{epoch}
	}

	epochs := make([]uint64, 0, 2)
	if c.IsMember(node, epoch) {
		epochs = append(epochs, epoch)
	}
	if c.IsMember(node, epoch+1) {
		epochs = append(epochs, epoch+1)
	}
	return epochs
}
