// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"testing"

	"rotor"

	"github.com/stretchr/testify/require"
)

// MessageFilter decides whether an outbound message enters the pending queue.
type MessageFilter func(msg rotor.Message) bool

// AllowAllMessages lets every message through.
func AllowAllMessages(rotor.Message) bool {
	return true
}

// DenyVotesTo drops every vote addressed to the given node, simulating a
// partition between the voters and a would-be leader.
func DenyVotesTo(node rotor.NodeID) MessageFilter {
	return func(msg rotor.Message) bool {
		return msg.Vote == nil || msg.Destination != node
	}
}

// Network is the in-memory delivery environment driving a set of correct
// nodes. It owns the global pending-message queue and decides, under test
// control, which message is delivered next. Faulty nodes are simulated by
// injecting arbitrary messages attributed to them.
type Network struct {
	t       *testing.T
	cfg     rotor.Config
	order   []rotor.NodeID
	nodes   map[rotor.NodeID]*rotor.Node
	pending []rotor.Message
	filter  MessageFilter
}

// NewNetwork creates one correct node per given ID and seeds the queue with
// the genesis proposal addressed to every first-epoch committee member.
func NewNetwork(t *testing.T, cfg rotor.Config, ids []rotor.NodeID) *Network {
	require.NoError(t, cfg.Verify())

	net := &Network{
		t:      t,
		cfg:    cfg,
		order:  ids,
		nodes:  make(map[rotor.NodeID]*rotor.Node, len(ids)),
		filter: AllowAllMessages,
	}

	for _, id := range ids {
		node, err := rotor.NewNode(rotor.NodeConfig{
			Logger:   MakeLogger(t, int(id)),
			ID:       id,
			Verifier: NoopVerifier{},
			Config:   cfg,
		})
		require.NoError(t, err)
		net.nodes[id] = node
	}

	genesis := rotor.GenesisProposal(cfg)
	for _, id := range ids {
		if cfg.IsMember(id, 1) {
			proposal := genesis
			net.pending = append(net.pending, rotor.Message{Destination: id, Proposal: &proposal})
		}
	}
	return net
}

// Node returns the instance with the given ID.
func (n *Network) Node(id rotor.NodeID) *rotor.Node {
	node, ok := n.nodes[id]
	require.True(n.t, ok, "unknown node %s", id)
	return node
}

// Nodes returns all correct nodes in their creation order.
func (n *Network) Nodes() []*rotor.Node {
	nodes := make([]*rotor.Node, 0, len(n.order))
	for _, id := range n.order {
		nodes = append(nodes, n.nodes[id])
	}
	return nodes
}

// SetFilter installs a filter applied to every subsequently queued message.
func (n *Network) SetFilter(filter MessageFilter) {
	n.filter = filter
}

// Enqueue adds messages to the pending queue, subject to the filter. Tests
// use it directly to inject messages attributable to faulty nodes.
func (n *Network) Enqueue(msgs ...rotor.Message) {
	for _, msg := range msgs {
		if n.filter(msg) {
			n.pending = append(n.pending, msg)
		}
	}
}

// Pending returns the number of undelivered messages.
func (n *Network) Pending() int {
	return len(n.pending)
}

// Step delivers the oldest pending message to its destination and queues
// whatever the handler returns. It reports false when the queue is empty.
// Messages addressed to nodes outside the network (e.g. faulty ones) are
// silently dropped.
func (n *Network) Step() bool {
	if len(n.pending) == 0 {
		return false
	}
	msg := n.pending[0]
	n.pending = n.pending[1:]

	node, ok := n.nodes[msg.Destination]
	if !ok {
		return true
	}
	n.Enqueue(node.HandleMessage(&msg)...)
	return true
}

// Drain delivers pending messages in order until the queue empties or
// maxSteps deliveries have happened, and returns the number delivered. The
// chain extends itself indefinitely under full delivery, so a bound is
// always required.
func (n *Network) Drain(maxSteps int) int {
	delivered := 0
	for delivered < maxSteps && n.Step() {
		delivered++
	}
	return delivered
}

// RunUntil drains the queue until the predicate holds, failing the test if it
// does not within maxSteps deliveries.
func (n *Network) RunUntil(maxSteps int, pred func() bool) {
	for steps := 0; steps < maxSteps; steps++ {
		if pred() {
			return
		}
		require.True(n.t, n.Step(), "ran out of pending messages before the predicate held")
	}
	require.True(n.t, pred(), "predicate did not hold within %d deliveries", maxSteps)
}

// SyncViews models the view-synchronization oracle: an instantaneous global
// operation raising every correct node to the highest observed view, letting
// the leader of that view propose immediately.
func (n *Network) SyncViews() {
	var max uint64
	for _, node := range n.nodes {
		if node.View() > max {
			max = node.View()
		}
	}
	for _, id := range n.order {
		n.Enqueue(n.nodes[id].SyncView(max)...)
	}
}
