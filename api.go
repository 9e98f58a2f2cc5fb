// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rotor

import "go.uber.org/zap"

type Logger interface {
	// Log that a fatal error has occurred. The program should likely exit soon
	// after this is called
	Fatal(msg string, fields ...zap.Field)
	// Log that an error has occurred. The program should be able to recover
	// from this error
	Error(msg string, fields ...zap.Field)
	// Log that an event has occurred that may indicate a future error or
	// vulnerability
	Warn(msg string, fields ...zap.Field)
	// Log an event that may be useful for a user to see to measure the progress
	// of the protocol
	Info(msg string, fields ...zap.Field)
	// Log an event that may be useful for understanding the order of the
	// execution of the protocol
	Trace(msg string, fields ...zap.Field)
	// Log an event that may be useful for a programmer to see when debuging the
	// execution of the protocol
	Debug(msg string, fields ...zap.Field)
	// Log extremely detailed events that can be useful for inspecting every
	// aspect of the program
	Verbo(msg string, fields ...zap.Field)
}

// SignatureVerifier checks that a message was produced by the node claiming to
// have sent it. The protocol core never inspects key material; a failed
// verification causes the message to be dropped, never a fatal condition.
type SignatureVerifier interface {
	// VerifyVote returns an error if the vote's signature does not check out
	// against its claimed sender.
	VerifyVote(vote Vote) error

	// VerifyProposal returns an error if the proposal's signature does not
	// check out against its claimed sender.
	VerifyProposal(proposal Proposal) error
}
