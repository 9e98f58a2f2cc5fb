// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"errors"

	"rotor"
)

var errForgedSignature = errors.New("forged signature")

// NoopVerifier accepts every signature. The protocol core treats signature
// checking as an oracle, so simulations run with this by default.
type NoopVerifier struct{}

func (NoopVerifier) VerifyVote(rotor.Vote) error {
	return nil
}

func (NoopVerifier) VerifyProposal(rotor.Proposal) error {
	return nil
}

// DenylistVerifier rejects every message attributed to one of the denied
// nodes, simulating forged signatures from faulty senders.
type DenylistVerifier struct {
	Denied map[rotor.NodeID]struct{}
}

func (d DenylistVerifier) VerifyVote(vote rotor.Vote) error {
	if _, ok := d.Denied[vote.Sender]; ok {
		return errForgedSignature
	}
	return nil
}

func (d DenylistVerifier) VerifyProposal(p rotor.Proposal) error {
	if _, ok := d.Denied[p.Sender]; ok {
		return errForgedSignature
	}
	return nil
}
