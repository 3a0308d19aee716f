package fillet

import (
	"errors"
	"fmt"

	"github.com/soypat/brep/topo"
)

var (
	// ErrEdgeNotFound is returned for requested edges no face uses.
	ErrEdgeNotFound = errors.New("fillet: edge not found")
	// ErrNonManifold is returned for requested edges not bordering exactly two faces.
	ErrNonManifold = errors.New("fillet: non-manifold edge")
	// ErrRadiusCount is returned when the per-edge radius count differs
	// from the edge count.
	ErrRadiusCount = errors.New("fillet: radius count does not match edge count")
	// ErrDegenerateEdge is returned for edges not longer than twice their radius.
	ErrDegenerateEdge = errors.New("fillet: edge too short for radius")
	// ErrConstruction is returned when blend geometry cannot be built,
	// typically because a solver did not converge.
	ErrConstruction = errors.New("fillet: construction failed")
	// ErrMarchAborted is returned when the first relay sphere of a march
	// cannot be seeded.
	ErrMarchAborted = errors.New("fillet: march aborted")
)

// EdgeError reports a fault attached to a requested edge.
type EdgeError struct {
	Edge topo.EdgeID
	// Faces is the number of faces found using the edge.
	Faces int
	Err   error
}

func (e *EdgeError) Error() string {
	if errors.Is(e.Err, ErrNonManifold) {
		return fmt.Sprintf("edge %d borders %d faces: %v", e.Edge, e.Faces, e.Err)
	}
	return fmt.Sprintf("edge %d: %v", e.Edge, e.Err)
}

func (e *EdgeError) Unwrap() error { return e.Err }

// panicErr wraps a panic raised while constructing a chain, for example by
// a curve that does not support second derivatives.
type panicErr struct {
	panicObj interface{}
	stack    string
}

func (p *panicErr) Error() string {
	return fmt.Sprintf("panic: %v", p.panicObj)
}

func (p *panicErr) Unwrap() error {
	err, _ := p.panicObj.(error)
	return err
}
