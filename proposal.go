// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"
)

// formProposal derives the next proposal from a certificate. An ordinary
// certificate lets the chain advance to the next height. A certificate over
// an epoch boundary cannot: the boundary block is re-proposed until both
// committees have certified it, and only an extended certificate lets the
// chain cross into the new epoch.
func (n *Node) formProposal(cert Certificate) Proposal {
	if !n.Config.IsLastBlockOfEpoch(cert.Block) || cert.Type == Extended {
		// Either an interior block, or a completed hand-off: propose the next
		// height. Right after an extended certificate that height opens the
		// new epoch.
		return Proposal{
			Sender: n.ID,
			Type:   Quorum,
			View:   n.view,
			Block:  cert.Block + 1,
			Cert:   cert,
		}
	}

	// The boundary block must be re-certified across the hand-off. It becomes
	// an extended proposal once this node can show three consecutive certified
	// views ending just below the current one, all on the boundary block.
	certType := Quorum
	if n.highQC != nil && n.lockedQC != nil &&
		n.highQC.Block == n.lockedQC.Block &&
		n.view == n.highQC.View+1 &&
		n.highQC.View == n.lockedQC.View+1 {
		certType = Extended
	}
	return Proposal{
		Sender: n.ID,
		Type:   certType,
		View:   n.view,
		Block:  cert.Block,
		Cert:   cert,
	}
}

// isProposalSafe holds when the proposal cannot conflict with this node's
// lock: either there is no lock, or the proposal extends the locked block,
// or its certificate outranks the lock (the liveness override).
func (n *Node) isProposalSafe(p Proposal) bool {
	return n.lockedQC == nil ||
		p.Block > n.lockedQC.Block ||
		p.Cert.View > n.lockedQC.View
}

// isCertValid checks the embedded certificate against the position of the
// proposed block within its epoch.
func (n *Node) isCertValid(p Proposal) bool {
	epoch := n.Config.BlockEpoch(p.Block)

	switch {
	case n.Config.IsLastBlockOfEpoch(p.Block) && p.Block == p.Cert.Block:
		// The boundary block proposed again during the hand-off. Each
		// committee must reach a quorum among its own members.
		return p.Cert.Type != Extended &&
			countMembers(p.Cert.Signers, n.Config.Members(epoch)) >= n.Config.QuorumSize &&
			countMembers(p.Cert.NextEpochSigners, n.Config.Members(epoch+1)) >= n.Config.QuorumSize

	case n.Config.IsLastBlockOfEpoch(p.Block):
		// The chain advancing onto the boundary for the first time.
		return n.isProposalSafe(p) &&
			countMembers(p.Cert.Signers, n.Config.Members(epoch)) >= n.Config.QuorumSize

	case n.Config.IsFirstBlockOfEpoch(p.Block) && epoch > 1:
		// Crossing into a new epoch needs an extended certificate. Its signer
		// sets were restricted per committee when they were accumulated, so
		// raw sizes are checked here.
		return p.Cert.Type == Extended &&
			n.isProposalSafe(p) &&
			p.Cert.Signers.Len() >= n.Config.QuorumSize &&
			p.Cert.NextEpochSigners.Len() >= n.Config.QuorumSize

	default:
		return p.Cert.Type != Extended &&
			n.isProposalSafe(p) &&
			countMembers(p.Cert.Signers, n.Config.Members(epoch)) >= n.Config.QuorumSize
	}
}

// isExtendedProposalValid accepts an extended proposal when the proposal, its
// certificate and this node's high certificate witness three consecutive
// certified views on the boundary block. A node whose high certificate has
// already advanced onto the certificate it just packaged would reject its own
// proposal under the first pattern, so its own output is exempted under the
// second.
func (n *Node) isExtendedProposalValid(p Proposal) bool {
	if n.highQC == nil {
		return false
	}
	if p.View != p.Cert.View+1 || p.Cert.Block != n.highQC.Block {
		return false
	}

	if p.Cert.View == n.highQC.View+1 {
		return true
	}
	return p.Sender == n.ID && p.Cert.View == n.highQC.View
}

// isProposalValid runs every acceptance check on an inbound proposal. Any
// failure is soft: the proposal stays archived and is otherwise discarded.
func (n *Node) isProposalValid(p Proposal) bool {
	if p.View < n.view {
		n.Logger.Debug("Dropping stale proposal",
			zap.Uint64("view", p.View), zap.Uint64("my view", n.view))
		return false
	}
	if err := n.Verifier.VerifyProposal(p); err != nil {
		n.Logger.Debug("Proposal signature verification failed",
			zap.Stringer("sender", p.Sender), zap.Error(err))
		return false
	}
	epoch := n.Config.BlockEpoch(p.Block)
	if leader := n.Config.Leader(p.View, epoch); leader != p.Sender {
		n.Logger.Debug("Proposal sender is not the leader for its view",
			zap.Stringer("sender", p.Sender),
			zap.Stringer("leader", leader),
			zap.Uint64("view", p.View),
			zap.Uint64("epoch", epoch))
		return false
	}
	if p.Type == Extended && !n.isExtendedProposalValid(p) {
		n.Logger.Debug("Extended proposal lacks three consecutive certified views",
			zap.Uint64("view", p.View), zap.Uint64("block", p.Block))
		return false
	}
	if !n.isCertValid(p) {
		n.Logger.Debug("Proposal carries an invalid certificate",
			zap.Uint64("view", p.View),
			zap.Uint64("block", p.Block),
			zap.Stringer("certType", p.Cert.Type))
		return false
	}
	return true
}

// isVoteValid decides whether this node should tally an inbound vote. Votes
// are addressed to the leader of the next view; only extended votes on a
// boundary block fan out to an entire committee, so only they are exempt from
// the addressed-leader rule.
func (n *Node) isVoteValid(vote Vote) bool {
	if vote.View < n.view {
		n.Logger.Debug("Dropping stale vote",
			zap.Uint64("view", vote.View), zap.Uint64("my view", n.view))
		return false
	}
	if err := n.Verifier.VerifyVote(vote); err != nil {
		n.Logger.Debug("Vote signature verification failed",
			zap.Stringer("sender", vote.Sender), zap.Error(err))
		return false
	}

	epoch := n.Config.BlockEpoch(vote.Block)
	if n.Config.IsLastBlockOfEpoch(vote.Block) {
		if !n.Config.IsMember(n.ID, epoch) && !n.Config.IsMember(n.ID, epoch+1) {
			return false
		}
		return vote.Type == Extended || n.ID == n.Config.Leader(vote.View+1, epoch)
	}

	return n.Config.IsMember(n.ID, epoch) && n.ID == n.Config.Leader(vote.View+1, epoch)
}

func countMembers(signers set.Set[NodeID], members set.Set[NodeID]) int {
	count := 0
	for signer := range signers {
		if members.Contains(signer) {
			count++
		}
	}
	return count
}
