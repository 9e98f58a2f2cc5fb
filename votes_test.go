// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"testing"

	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAccumulateFiltersNonMembers(t *testing.T) {
	n := newTestNode(t, 3, rotatingConfig())

	// Boundary block: each signer counts only under the committees it sits on.
	n.accumulate(Vote{Sender: 1, Type: Quorum, View: 5, Block: 5})
	n.accumulate(Vote{Sender: 5, Type: Quorum, View: 5, Block: 5})
	n.accumulate(Vote{Sender: 3, Type: Quorum, View: 5, Block: 5})

	outgoing := n.tallies[voteKey{Type: Quorum, Block: 5, View: 5, Epoch: 1}]
	incoming := n.tallies[voteKey{Type: Quorum, Block: 5, View: 5, Epoch: 2}]
	require.Equal(t, set.Of[NodeID](1, 3), outgoing)
	require.Equal(t, set.Of[NodeID](3, 5), incoming)

	// Interior block of epoch 2: node 1 is not on that committee, so its vote
	// updates no tally at all.
	n.accumulate(Vote{Sender: 1, Type: Quorum, View: 9, Block: 7})
	require.Empty(t, n.tallies[voteKey{Type: Quorum, Block: 7, View: 9, Epoch: 2}])
}

func TestVotesAreSingleUse(t *testing.T) {
	// Node 3 leads view 2, so it is the addressee of view-1 votes.
	n := newTestNode(t, 3, testConfig())
	vote := Vote{Sender: 1, Type: Quorum, View: 1, Block: 1}

	require.Empty(t, n.HandleVote(vote))
	require.Empty(t, n.HandleVote(vote))
	require.Empty(t, n.HandleVote(vote))
	require.Equal(t, 1, n.tallies[voteKey{Type: Quorum, Block: 1, View: 1, Epoch: 1}].Len())

	require.Empty(t, n.HandleVote(Vote{Sender: 2, Type: Quorum, View: 1, Block: 1}))
	out := n.HandleVote(Vote{Sender: 4, Type: Quorum, View: 1, Block: 1})

	// The third distinct signer completes the quorum; node 3 leads view 2 and
	// multicasts the proposal for block 2.
	require.Len(t, out, 4)
	for _, msg := range out {
		require.NotNil(t, msg.Proposal)
		require.Equal(t, uint64(2), msg.Proposal.Block)
		require.Equal(t, uint64(2), msg.Proposal.View)
	}
	require.Equal(t, uint64(2), n.View())
}

func TestBoundaryThresholdNeedsBothCommittees(t *testing.T) {
	// Node 3 leads view 6 of epoch 1, so it is the addressee of view-5 votes.
	n := newTestNode(t, 3, rotatingConfig())
	n.view = 5

	require.Empty(t, n.HandleVote(Vote{Sender: 1, Type: Quorum, View: 5, Block: 5}))
	require.Empty(t, n.HandleVote(Vote{Sender: 2, Type: Quorum, View: 5, Block: 5}))
	// Three outgoing-committee signatures are not enough on a boundary block.
	require.Empty(t, n.HandleVote(Vote{Sender: 4, Type: Quorum, View: 5, Block: 5}))

	// Node 5 completes the incoming committee's quorum. The certificate forms
	// and node 3, leading the next view, re-proposes the boundary block to the
	// union of both committees.
	out := n.HandleVote(Vote{Sender: 5, Type: Quorum, View: 5, Block: 5})
	require.Len(t, out, 5)
	for _, msg := range out {
		require.NotNil(t, msg.Proposal)
		require.Equal(t, uint64(5), msg.Proposal.Block)
		require.Equal(t, uint64(6), msg.Proposal.View)
		require.Equal(t, Quorum, msg.Proposal.Type)
	}

	cert := n.HighQC()
	require.Equal(t, uint64(5), cert.Block)
	require.Equal(t, uint64(5), cert.View)
	require.Equal(t, set.Of[NodeID](1, 2, 4), cert.Signers)
	require.Equal(t, set.Of[NodeID](2, 4, 5), cert.NextEpochSigners)
}

func TestInvalidVotesArchivedButNotTallied(t *testing.T) {
	n := newTestNode(t, 3, testConfig())

	stale := Vote{Sender: 1, Type: Quorum, View: 0, Block: 1}
	require.Empty(t, n.HandleVote(stale))
	require.True(t, n.votes.Contains(stale))
	require.Empty(t, n.tallies)

	// A vote addressed past this node's leadership window is ignored too:
	// node 3 does not lead view 3.
	misdirected := Vote{Sender: 1, Type: Quorum, View: 2, Block: 2}
	n.view = 2
	require.Empty(t, n.HandleVote(misdirected))
	require.True(t, n.votes.Contains(misdirected))
	require.Empty(t, n.tallies)
}

func TestForgedVoteRejected(t *testing.T) {
	node, err := NewNode(NodeConfig{
		Logger:   nopLogger{zap.NewNop()},
		ID:       3,
		Verifier: rejectAllVerifier{},
		Config:   testConfig(),
	})
	require.NoError(t, err)

	require.Empty(t, node.HandleVote(Vote{Sender: 1, Type: Quorum, View: 1, Block: 1}))
	require.Empty(t, node.tallies)
}
