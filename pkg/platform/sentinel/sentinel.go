package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and key/material loaders
// return these (optionally wrapped) so services can translate them into coded
// domain errors without depending on storage details.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity or artifact does not exist
// - ErrConflict: a uniqueness constraint rejected a write
// - ErrExpired: token or grant has expired
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
