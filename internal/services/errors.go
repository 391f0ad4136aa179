// Package services defines the business logic of the mirror engine.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
package services

import "errors"

var (
	// ErrSourceChatUnknown is returned by CreateMirror when the source chat
	// has no Chat record yet.
	ErrSourceChatUnknown = errors.New("source chat is not known")

	// ErrTargetChatUnknown is returned by CreateMirror when the target chat
	// has no Chat record yet.
	ErrTargetChatUnknown = errors.New("target chat is not known")

	// ErrMirrorNotFound indicates that the requested mirror does not exist.
	ErrMirrorNotFound = errors.New("mirror not found")
)
