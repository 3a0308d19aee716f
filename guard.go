package brep

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Guard returns a surface that serializes every query to s behind a
// mutex. The lock is held for a single evaluation only, so iterative
// solves over guarded surfaces never hold it across iterations and
// two guarded surfaces can be queried alternately without deadlock.
func Guard(s Surface) Surface {
	if g, ok := s.(*guarded); ok {
		return g
	}
	return &guarded{s: s}
}

type guarded struct {
	mu sync.Mutex
	s  Surface
}

func (g *guarded) Subs(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.Subs(u, v)
}

func (g *guarded) UDer(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.UDer(u, v)
}

func (g *guarded) VDer(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.VDer(u, v)
}

func (g *guarded) UUDer(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.UUDer(u, v)
}

func (g *guarded) UVDer(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.UVDer(u, v)
}

func (g *guarded) VVDer(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.VVDer(u, v)
}

func (g *guarded) Normal(u, v float64) r3.Vec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.Normal(u, v)
}

func (g *guarded) Range() r2.Box {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.Range()
}

// SearchNearestParameter holds the lock only for closed-form searches.
// Iterative searches go through the guarded per-query methods.
func (g *guarded) SearchNearestParameter(p r3.Vec, hint *r2.Vec, trials int) (r2.Vec, bool) {
	if ns, ok := g.s.(NearestSearcher); ok {
		g.mu.Lock()
		defer g.mu.Unlock()
		return ns.SearchNearestParameter(p, hint, trials)
	}
	return searchNearest(g, p, hint, trials)
}
