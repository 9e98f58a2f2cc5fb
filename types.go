// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/set"
)

// NodeID identifies a validator. Nodes are drawn from a fixed, finite
// universe known to every participant at startup.
type NodeID uint16

func (n NodeID) String() string {
	return fmt.Sprintf("node-%d", uint16(n))
}

// CertType distinguishes ordinary quorum certificates from the extended
// certificates that carry signatures of both the outgoing and incoming
// committees across an epoch boundary.
type CertType uint8

const (
	Quorum CertType = iota
	Extended
)

func (t CertType) String() string {
	switch t {
	case Quorum:
		return "quorum"
	case Extended:
		return "extended"
	default:
		return fmt.Sprintf("certtype-%d", uint8(t))
	}
}

// Certificate attests that a quorum of committee members voted for the given
// block at the given view. For a certificate over the last block of an epoch,
// NextEpochSigners holds the signatures gathered from the incoming committee;
// for any other block it is empty.
type Certificate struct {
	Type             CertType
	Signers          set.Set[NodeID]
	NextEpochSigners set.Set[NodeID]
	View             uint64
	Block            uint64
}

func (c *Certificate) String() string {
	return fmt.Sprintf("%s certificate for block %d at view %d (%d+%d signers)",
		c.Type, c.Block, c.View, c.Signers.Len(), c.NextEpochSigners.Len())
}

// Vote is a single node's signature-bearing endorsement of a block at a view.
// Votes are comparable so that archives and tallies can deduplicate them.
type Vote struct {
	Sender NodeID
	Type   CertType
	View   uint64
	Block  uint64
}

// Proposal is a leader's suggestion for the block to certify at a view. It
// always embeds the certificate that justifies building on that block.
type Proposal struct {
	Sender NodeID
	Type   CertType
	View   uint64
	Block  uint64
	Cert   Certificate
}

// Message is the unit handed to a node by the delivery environment. Exactly
// one of the payload fields is set; HandleMessage dispatches on which.
type Message struct {
	Destination NodeID

	Proposal *Proposal
	Vote     *Vote
}

// proposalKey indexes archived proposals by the pair a certificate uses to
// reference its justifying proposal.
type proposalKey struct {
	Block uint64
	View  uint64
}

// voteKey indexes a signer tally. A vote on a boundary block updates one key
// per epoch the sender belongs to.
type voteKey struct {
	Type  CertType
	Block uint64
	View  uint64
	Epoch uint64
}
