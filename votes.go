// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"
)

// accumulate records the vote's sender under every epoch tally its signature
// is relevant to. A signer that is not a member of an epoch's committee is
// never counted under that epoch, so a vote recorded under the wrong key
// cannot inflate a quorum. Tallies are sets, so re-delivered votes count once.
func (n *Node) accumulate(vote Vote) {
	for _, epoch := range n.Config.RelevantEpochs(vote.Sender, vote.Block) {
		if !n.Config.IsMember(vote.Sender, epoch) {
			continue
		}
		key := voteKey{Type: vote.Type, Block: vote.Block, View: vote.View, Epoch: epoch}
		tally := n.tallies[key]
		tally.Add(vote.Sender)
		n.tallies[key] = tally
	}
}

// thresholdReached reports whether every epoch relevant to the vote's block
// has gathered a quorum of signers. A boundary block requires a quorum in
// both the departing and the incoming committee before a certificate may be
// formed; this is what forces cooperation across the hand-off.
func (n *Node) thresholdReached(vote Vote) bool {
	for _, epoch := range n.Config.epochsOfBlock(vote.Block) {
		key := voteKey{Type: vote.Type, Block: vote.Block, View: vote.View, Epoch: epoch}
		count := n.tallies[key].Len()
		if count < n.Config.QuorumSize {
			n.Logger.Verbo("Counting votes",
				zap.Uint64("block", vote.Block),
				zap.Uint64("view", vote.View),
				zap.Uint64("epoch", epoch),
				zap.Int("votes", count))
			return false
		}
	}
	return true
}

// buildCertificate packages the accumulated signer sets into a certificate.
// For a boundary block the incoming committee's signers travel in
// NextEpochSigners.
func (n *Node) buildCertificate(certType CertType, view, block uint64) Certificate {
	epoch := n.Config.BlockEpoch(block)
	cert := Certificate{
		Type:    certType,
		View:    view,
		Block:   block,
		Signers: cloneSigners(n.tallies[voteKey{Type: certType, Block: block, View: view, Epoch: epoch}]),
	}
	if n.Config.IsLastBlockOfEpoch(block) {
		cert.NextEpochSigners = cloneSigners(n.tallies[voteKey{Type: certType, Block: block, View: view, Epoch: epoch + 1}])
	}
	return cert
}

func cloneSigners(signers set.Set[NodeID]) set.Set[NodeID] {
	clone := set.NewSet[NodeID](signers.Len())
	clone.Union(signers)
	return clone
}
