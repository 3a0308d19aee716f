package fillet

import (
	"fmt"
	"io"
	"strings"

	"github.com/soypat/brep"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Profile is the cross-section shape of a blend.
type Profile int

const (
	// Round blends with a circular cross-section (fillet).
	Round Profile = iota
	// Chamfer blends with a straight cross-section.
	Chamfer
)

func (p Profile) String() string {
	switch p {
	case Round:
		return "round"
	case Chamfer:
		return "chamfer"
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// ParseProfile parses "round" or "chamfer".
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "round", "fillet", "":
		return Round, nil
	case "chamfer":
		return Chamfer, nil
	}
	return Round, fmt.Errorf("fillet: unknown profile %q", s)
}

// Radius specifies the blend radius: constant, a function of normalized
// position along the chain, or one value per requested edge.
type Radius struct {
	value   float64
	fn      func(s float64) float64
	perEdge []float64
}

// Constant returns a constant radius.
func Constant(r float64) Radius { return Radius{value: r} }

// Variable returns a radius that varies with the normalized arc length
// s in [0,1] along each chain.
func Variable(fn func(s float64) float64) Radius { return Radius{fn: fn} }

// Linear returns a variable radius going from r0 to r1 along each chain.
func Linear(r0, r1 float64) Radius {
	return Variable(func(s float64) float64 { return brep.Mix(r0, r1, s) })
}

// PerEdge returns one radius per requested edge, in request order.
func PerEdge(rs ...float64) Radius { return Radius{perEdge: append([]float64(nil), rs...)} }

// IsPerEdge reports whether r holds one value per edge.
func (r Radius) IsPerEdge() bool { return r.perEdge != nil }

// at returns the radius for the edge at request index i and chain position s.
func (r Radius) at(i int, s float64) float64 {
	switch {
	case r.perEdge != nil:
		return r.perEdge[i]
	case r.fn != nil:
		return r.fn(brep.Clamp(s, 0, 1))
	}
	return r.value
}

// max returns the largest radius edge i can see.
func (r Radius) max(i int) float64 {
	if r.fn == nil {
		return r.at(i, 0)
	}
	m := 0.0
	for k := 0; k <= radiusSamples; k++ {
		if v := r.fn(float64(k) / radiusSamples); v > m {
			m = v
		}
	}
	return m
}

const radiusSamples = 16

// Options configures a fillet operation.
type Options struct {
	Radius Radius
	// Division is the number of relay spheres marched per edge.
	Division int
	Profile  Profile
	// Transactional makes Apply work on a copy of the shell and commit
	// only when every chain succeeded. Otherwise chains already built
	// remain applied when a later chain fails.
	Transactional bool
	// Workers bounds the goroutines marching relay spheres. Values below
	// two march sequentially.
	Workers int
	// Logger receives progress and failure reports. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns a round fillet of radius 0.1 with 5 divisions.
func DefaultOptions() Options {
	return Options{
		Radius:   Constant(0.1),
		Division: 5,
		Profile:  Round,
		Workers:  1,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// optionsFile is the YAML form of Options.
type optionsFile struct {
	Radius struct {
		Constant *float64  `yaml:"constant"`
		Linear   []float64 `yaml:"linear"`
		PerEdge  []float64 `yaml:"per_edge"`
	} `yaml:"radius"`
	Division      *int   `yaml:"division"`
	Profile       string `yaml:"profile"`
	Transactional bool   `yaml:"transactional"`
	Workers       *int   `yaml:"workers"`
}

// LoadOptions reads options from YAML. Unset fields keep their default
// values. Example:
//
//	radius:
//	  linear: [0.1, 0.2]
//	division: 8
//	profile: chamfer
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	var f optionsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return opts, fmt.Errorf("failed to parse fillet options: %w", err)
	}
	set := 0
	if f.Radius.Constant != nil {
		opts.Radius = Constant(*f.Radius.Constant)
		set++
	}
	if f.Radius.Linear != nil {
		if len(f.Radius.Linear) != 2 {
			return opts, fmt.Errorf("fillet: linear radius needs two values, got %d", len(f.Radius.Linear))
		}
		opts.Radius = Linear(f.Radius.Linear[0], f.Radius.Linear[1])
		set++
	}
	if f.Radius.PerEdge != nil {
		opts.Radius = PerEdge(f.Radius.PerEdge...)
		set++
	}
	if set > 1 {
		return opts, fmt.Errorf("fillet: radius must be one of constant, linear or per_edge")
	}
	if f.Division != nil {
		opts.Division = *f.Division
	}
	if f.Workers != nil {
		opts.Workers = *f.Workers
	}
	profile, err := ParseProfile(f.Profile)
	if err != nil {
		return opts, err
	}
	opts.Profile = profile
	opts.Transactional = f.Transactional
	return opts, opts.validate()
}

func (o Options) validate() error {
	if o.Division < 1 {
		return fmt.Errorf("fillet: division must be positive, got %d", o.Division)
	}
	if o.Radius.perEdge == nil && o.Radius.fn == nil && o.Radius.value <= 0 {
		return fmt.Errorf("fillet: radius must be positive, got %g", o.Radius.value)
	}
	for i, r := range o.Radius.perEdge {
		if r <= 0 {
			return fmt.Errorf("fillet: radius of edge %d must be positive, got %g", i, r)
		}
	}
	return nil
}
