package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Provider clients, stores,
// and transports return these (optionally wrapped) so workflow handlers
// can translate them into failure results without string matching.
//
// These represent factual states about resources, not scoring outcomes:
// - ErrNotFound: entity does not exist in store
// - ErrUnavailable: broker, database, or provider temporarily unreachable
// - ErrInvalidState: component used outside its lifecycle (e.g. Start twice)
//
// For caller-facing verification failures, use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
