// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"fmt"
	"slices"

	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"
)

type NodeConfig struct {
	Logger   Logger
	ID       NodeID
	Verifier SignatureVerifier
	Config   Config
}

// Node is a single validator's protocol state machine. It exclusively owns
// its state; cross-node effects happen only through the messages its handlers
// return, which the environment queues for future delivery. Handlers never
// block and either fully apply or leave the state untouched apart from the
// archives.
type Node struct {
	NodeConfig

	view      uint64
	highQC    *Certificate
	lockedQC  *Certificate
	decidedQC *Certificate

	// chain holds the committed heights per epoch the node belongs to.
	chain map[uint64][]uint64
	// highQCArchive keeps the highest-view certificate seen per block.
	highQCArchive map[uint64]Certificate
	// proposals archives every proposal ever received, keyed by the pair a
	// certificate uses to reference its justifying proposal. First write
	// wins, so an equivocating leader cannot displace what we voted on.
	proposals map[proposalKey]Proposal
	// votes archives every vote ever received, valid or not.
	votes set.Set[Vote]
	// tallies accumulates signer sets per (type, block, view, epoch).
	tallies map[voteKey]set.Set[NodeID]
}

// NewNode creates a node seeded with the well-known genesis certificate and
// proposal, standing at view 1.
func NewNode(conf NodeConfig) (*Node, error) {
	if err := conf.Config.Verify(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	n := &Node{
		NodeConfig:    conf,
		chain:         make(map[uint64][]uint64),
		highQCArchive: make(map[uint64]Certificate),
		proposals:     make(map[proposalKey]Proposal),
		tallies:       make(map[voteKey]set.Set[NodeID]),
	}

	n.updateCerts(GenesisCertificate(conf.Config))
	genesis := GenesisProposal(conf.Config)
	n.proposals[proposalKey{Block: genesis.Block, View: genesis.View}] = genesis
	n.view = 1

	return n, nil
}

// GenesisCertificate is the well-known certificate seeding every node: block
// 0, signed by the entire first-epoch committee.
func GenesisCertificate(c Config) Certificate {
	return Certificate{
		Type:    Quorum,
		View:    0,
		Block:   0,
		Signers: cloneSigners(c.Members(1)),
	}
}

// GenesisProposal is the well-known proposal for block 1 at view 1, attributed
// to the first epoch's view-1 leader.
func GenesisProposal(c Config) Proposal {
	return Proposal{
		Sender: c.Leader(1, 1),
		Type:   Quorum,
		View:   1,
		Block:  1,
		Cert:   GenesisCertificate(c),
	}
}

// HandleMessage dispatches a delivered message to the matching handler and
// returns the messages to queue for future delivery.
func (n *Node) HandleMessage(msg *Message) []Message {
	switch {
	case msg.Proposal != nil:
		return n.HandleProposal(*msg.Proposal)
	case msg.Vote != nil:
		return n.HandleVote(*msg.Vote)
	default:
		n.Logger.Warn("Received a message with no payload")
		return nil
	}
}

// HandleVote archives and validates a vote, tallies it, and, once every
// relevant committee has reached a quorum, forms the certificate and moves to
// the next view. If this node leads that view it multicasts the next
// proposal.
func (n *Node) HandleVote(vote Vote) []Message {
	n.votes.Add(vote)

	if !n.isVoteValid(vote) {
		return nil
	}

	n.accumulate(vote)
	if !n.thresholdReached(vote) {
		return nil
	}

	cert := n.buildCertificate(vote.Type, vote.View, vote.Block)
	n.Logger.Info("Collected quorum of votes",
		zap.Uint64("block", cert.Block),
		zap.Uint64("view", cert.View),
		zap.Stringer("certType", cert.Type))

	n.updateCerts(cert)
	n.view = cert.View + 1

	return n.maybePropose(cert)
}

// HandleProposal archives and validates a proposal, adopts its certificate,
// and answers with this node's vote. An extended proposal's vote fans out to
// the entire incoming committee; any other vote goes to the leader of the
// next view.
func (n *Node) HandleProposal(p Proposal) []Message {
	n.storeProposal(p)

	if !n.isProposalValid(p) {
		return nil
	}

	n.updateCerts(p.Cert)
	n.view = p.View

	vote := Vote{
		Sender: n.ID,
		Type:   p.Type,
		View:   p.View,
		Block:  p.Block,
	}

	epoch := n.Config.BlockEpoch(p.Block)
	if p.Type == Extended {
		// The extended vote must reach every member of the new committee, not
		// just the next leader: each of them needs the two-committee tally.
		n.Logger.Debug("Multicasting extended vote to incoming committee",
			zap.Uint64("block", p.Block), zap.Uint64("epoch", epoch+1))
		return votesTo(vote, n.Config.Members(epoch+1))
	}

	nextLeader := n.Config.Leader(p.View+1, epoch)
	n.Logger.Debug("Voting",
		zap.Uint64("block", p.Block),
		zap.Uint64("view", p.View),
		zap.Stringer("nextLeader", nextLeader))
	return []Message{{Destination: nextLeader, Vote: &vote}}
}

// SyncView is the entry point for the view-synchronization oracle: it raises
// the node to the given view, and if the node leads the proposal its high
// certificate justifies, that proposal is multicast immediately.
func (n *Node) SyncView(view uint64) []Message {
	if view < n.view {
		return nil
	}
	n.Logger.Debug("View synchronized",
		zap.Uint64("from", n.view), zap.Uint64("to", view))
	n.view = view

	if n.highQC == nil {
		return nil
	}
	return n.maybePropose(*n.highQC)
}

// maybePropose forms the next proposal from the certificate and multicasts it
// if this node is the leader for the proposal's (view, epoch). A proposal
// re-certifying an epoch boundary goes to both committees; everything else
// goes to the committee of the block's epoch.
func (n *Node) maybePropose(cert Certificate) []Message {
	p := n.formProposal(cert)
	epoch := n.Config.BlockEpoch(p.Block)
	if n.Config.Leader(p.View, epoch) != n.ID {
		return nil
	}

	n.storeProposal(p)

	recipients := cloneSigners(n.Config.Members(epoch))
	if n.Config.IsLastBlockOfEpoch(p.Block) {
		recipients.Union(n.Config.Members(epoch + 1))
	}

	n.Logger.Info("Multicasting proposal",
		zap.Uint64("block", p.Block),
		zap.Uint64("view", p.View),
		zap.Stringer("type", p.Type),
		zap.Int("recipients", recipients.Len()))

	msgs := make([]Message, 0, recipients.Len())
	for _, node := range sortedNodes(recipients) {
		proposal := p
		msgs = append(msgs, Message{Destination: node, Proposal: &proposal})
	}
	return msgs
}

// storeProposal archives a proposal. The first proposal seen for a
// (block, view) pair wins; a conflicting one is logged and dropped.
func (n *Node) storeProposal(p Proposal) {
	key := proposalKey{Block: p.Block, View: p.View}
	if existing, ok := n.proposals[key]; ok {
		if existing.Sender != p.Sender || existing.Type != p.Type {
			n.Logger.Warn("Conflicting proposal for an archived (block, view) pair",
				zap.Uint64("block", p.Block),
				zap.Uint64("view", p.View),
				zap.Stringer("sender", p.Sender))
		}
		return
	}
	n.proposals[key] = p
}

func votesTo(vote Vote, recipients set.Set[NodeID]) []Message {
	msgs := make([]Message, 0, recipients.Len())
	for _, node := range sortedNodes(recipients) {
		v := vote
		msgs = append(msgs, Message{Destination: node, Vote: &v})
	}
	return msgs
}

// sortedNodes keeps outbound fan-out deterministic for a given state, which
// the protocol does not require but makes simulations reproducible.
func sortedNodes(nodes set.Set[NodeID]) []NodeID {
	list := nodes.List()
	slices.Sort(list)
	return list
}

// View returns the node's current view.
func (n *Node) View() uint64 {
	return n.view
}

// HighQC, LockedQC and DecidedQC return copies of the node's tracked
// certificates, or nil when a certificate has not been established yet.
func (n *Node) HighQC() *Certificate {
	return copyCert(n.highQC)
}

func (n *Node) LockedQC() *Certificate {
	return copyCert(n.lockedQC)
}

func (n *Node) DecidedQC() *Certificate {
	return copyCert(n.decidedQC)
}

// CommittedChain returns the committed heights for the given epoch, in commit
// order.
func (n *Node) CommittedChain(epoch uint64) []uint64 {
	return slices.Clone(n.chain[epoch])
}

// ArchivedCert returns the highest-view certificate the node has archived for
// the given block.
func (n *Node) ArchivedCert(block uint64) (Certificate, bool) {
	cert, ok := n.highQCArchive[block]
	return cert, ok
}

func copyCert(c *Certificate) *Certificate {
	if c == nil {
		return nil
	}
	cert := *c
	return &cert
}
