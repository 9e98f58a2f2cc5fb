// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// nopLogger satisfies Logger for unit tests that exercise internals directly.
// Scenario tests use the richer testutil.TestLogger instead.
type nopLogger struct {
	*zap.Logger
}

func (nopLogger) Trace(string, ...zap.Field) {}

func (nopLogger) Verbo(string, ...zap.Field) {}

type acceptAllVerifier struct{}

func (acceptAllVerifier) VerifyVote(Vote) error { return nil }

func (acceptAllVerifier) VerifyProposal(Proposal) error { return nil }

type rejectAllVerifier struct{}

func (rejectAllVerifier) VerifyVote(Vote) error { return errors.New("bad signature") }

func (rejectAllVerifier) VerifyProposal(Proposal) error { return errors.New("bad signature") }

// testConfig is the canonical scenario configuration: four nodes, epochs of
// five blocks, quorum of three with one tolerated fault, a single committee
// repeating forever.
func testConfig() Config {
	return Config{
		EpochLength: 5,
		QuorumSize:  3,
		MaxFaults:   1,
		Committees: []Committee{
			{
				Leaders: []NodeID{1, 2, 3, 4},
				Members: set.Of[NodeID](1, 2, 3, 4),
			},
		},
	}
}

// rotatingConfig swaps node 1 out for node 5 in even epochs.
func rotatingConfig() Config {
	return Config{
		EpochLength: 5,
		QuorumSize:  3,
		MaxFaults:   1,
		Committees: []Committee{
			{
				Leaders: []NodeID{1, 2, 3, 4},
				Members: set.Of[NodeID](1, 2, 3, 4),
			},
			{
				Leaders: []NodeID{2, 3, 4, 5},
				Members: set.Of[NodeID](2, 3, 4, 5),
			},
		},
	}
}

func newTestNode(t *testing.T, id NodeID, cfg Config) *Node {
	node, err := NewNode(NodeConfig{
		Logger:   nopLogger{zap.NewNop()},
		ID:       id,
		Verifier: acceptAllVerifier{},
		Config:   cfg,
	})
	require.NoError(t, err)
	return node
}

func makeCert(certType CertType, view, block uint64, signers ...NodeID) Certificate {
	return Certificate{
		Type:    certType,
		View:    view,
		Block:   block,
		Signers: set.Of(signers...),
	}
}

// seedChain installs a linear run of proposals and certificates so that block
// i is certified at view i and each proposal embeds the previous certificate.
// It returns the certificates indexed by height, with the genesis certificate
// at index 0.
func seedChain(n *Node, upToBlock uint64) []Certificate {
	certs := make([]Certificate, upToBlock+1)
	certs[0] = GenesisCertificate(n.Config)
	for block := uint64(1); block <= upToBlock; block++ {
		certs[block] = makeCert(Quorum, block, block, 1, 2, 3)
		n.proposals[proposalKey{Block: block, View: block}] = Proposal{
			Sender: n.Config.Leader(block, n.Config.BlockEpoch(block)),
			Type:   Quorum,
			View:   block,
			Block:  block,
			Cert:   certs[block-1],
		}
	}
	return certs
}
