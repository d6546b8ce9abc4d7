package moc

import "errors"

// Topology and dispatch errors for the coupling graph.
var (
	// ErrDuplicateEdge indicates two modules that are already coupled.
	ErrDuplicateEdge = errors.New("moc: modules are already coupled")

	// ErrCardinality indicates a coupler that already holds a neighbor
	// on the requested side.
	ErrCardinality = errors.New("moc: coupler already linked in that direction")

	// ErrNotBasin indicates a basin-only operation invoked on a coupler.
	ErrNotBasin = errors.New("moc: not a basin module")

	// ErrNotCoupler indicates a coupler-only operation invoked on a basin.
	ErrNotCoupler = errors.New("moc: not a coupler module")

	// ErrDuplicateName indicates a registration under an occupied key.
	ErrDuplicateName = errors.New("moc: module name already registered")

	// ErrUnknownModule indicates a lookup for an unregistered key.
	ErrUnknownModule = errors.New("moc: no module registered under that name")

	// ErrDegenerateAxis indicates a universal buoyancy axis with no
	// usable span (all downstream buoyancy samples coincide).
	ErrDegenerateAxis = errors.New("moc: degenerate universal buoyancy axis")
)
