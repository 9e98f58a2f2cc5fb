// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import (
	"sort"

	"go.uber.org/zap"
)

// certView and certBlock compare optional certificates. The -1 sentinel is an
// implementation convenience for these comparisons and must not leak out of
// this file.
func certView(c *Certificate) int64 {
	if c == nil {
		return -1
	}
	return int64(c.View)
}

func certBlock(c *Certificate) uint64 {
	if c == nil {
		return 0
	}
	return c.Block
}

// updateCerts applies a newly formed or newly learned certificate. The high
// certificate always advances; the locked and decided certificates advance
// only when the justification chain recovered from the proposal archive shows
// consecutive certified views. Re-applying a certificate no higher than the
// current high certificate is a no-op, so re-delivery is harmless.
func (n *Node) updateCerts(newQC Certificate) {
	if int64(newQC.View) <= certView(n.highQC) {
		n.Logger.Verbo("Ignoring certificate at or below our high certificate",
			zap.Uint64("view", newQC.View), zap.Uint64("block", newQC.Block))
		return
	}

	high := newQC
	n.highQC = &high
	if prev, ok := n.highQCArchive[newQC.Block]; !ok || newQC.View > prev.View {
		n.highQCArchive[newQC.Block] = newQC
	}

	// Recover the proposal this certificate certified, and hop the
	// justification chain two certificates back. A missing proposal is the
	// expected steady state under message loss: the high certificate has
	// already advanced, and locking or deciding waits for a later delivery.
	justify, ok := n.justification(newQC)
	if !ok {
		n.Logger.Debug("No justifying proposal for certificate",
			zap.Uint64("view", newQC.View), zap.Uint64("block", newQC.Block))
		return
	}
	justify2, ok2 := n.justification(justify)

	if newQC.View == justify.View+1 && int64(justify.View) > certView(n.lockedQC) {
		locked := justify
		n.lockedQC = &locked
		n.Logger.Debug("Locked certificate advanced",
			zap.Uint64("view", locked.View), zap.Uint64("block", locked.Block))
	}

	// The locked and decided certificates advance independently; either, both,
	// or neither may move on a single call.
	if ok2 && justify.View == justify2.View+1 && int64(justify2.View) > certView(n.decidedQC) {
		oldDecided := n.decidedQC
		decided := justify2
		n.decidedQC = &decided
		n.commit(oldDecided, decided)
	}
}

// justification looks up the proposal the certificate certified and returns
// the certificate embedded in it.
func (n *Node) justification(c Certificate) (Certificate, bool) {
	proposal, ok := n.proposals[proposalKey{Block: c.Block, View: c.View}]
	if !ok {
		return Certificate{}, false
	}
	return proposal.Cert, true
}

// commit appends the newly decided blocks to the node's committed chain and
// drops state kept for committees the node is no longer part of.
func (n *Node) commit(oldDecided *Certificate, newDecided Certificate) {
	committed := n.committedBlocks(newDecided, oldDecided)
	for _, cert := range committed {
		epoch := n.Config.BlockEpoch(cert.Block)
		if !n.Config.IsMember(n.ID, epoch) {
			continue
		}
		n.chain[epoch] = append(n.chain[epoch], cert.Block)
		n.Logger.Info("Committed block",
			zap.Uint64("block", cert.Block),
			zap.Uint64("view", cert.View),
			zap.Uint64("epoch", epoch))
	}

	n.pruneDepartedEpochs()
}

// committedBlocks selects the archived certificates for the block range the
// decided certificate just crossed, ordered by ascending view. Views and
// heights are order-consistent by construction.
func (n *Node) committedBlocks(newDecided Certificate, oldDecided *Certificate) []Certificate {
	lo := certBlock(oldDecided)
	certs := make([]Certificate, 0, newDecided.Block-lo)
	for block, cert := range n.highQCArchive {
		if block > lo && block <= newDecided.Block {
			certs = append(certs, cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool {
		return certs[i].View < certs[j].View
	})
	return certs
}

// pruneDepartedEpochs removes archived certificates and chain segments for
// epochs whose committee the node does not belong to. A node must not retain
// state for committees it is no longer part of.
func (n *Node) pruneDepartedEpochs() {
	for block := range n.highQCArchive {
		epoch := n.Config.BlockEpoch(block)
		if epoch > 0 && !n.Config.IsMember(n.ID, epoch) {
			delete(n.highQCArchive, block)
			n.Logger.Debug("Pruned certificate for departed epoch",
				zap.Uint64("block", block), zap.Uint64("epoch", epoch))
		}
	}
	for epoch := range n.chain {
		if !n.Config.IsMember(n.ID, epoch) {
			delete(n.chain, epoch)
		}
	}
}
