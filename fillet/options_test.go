package fillet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	opts, err := LoadOptions(strings.NewReader(`
radius:
  linear: [0.1, 0.3]
division: 8
profile: chamfer
transactional: true
workers: 4
`))
	require.NoError(t, err)
	assert.Equal(t, 8, opts.Division)
	assert.Equal(t, Chamfer, opts.Profile)
	assert.True(t, opts.Transactional)
	assert.Equal(t, 4, opts.Workers)
	assert.InDelta(t, 0.2, opts.Radius.at(0, 0.5), 1e-15)
	assert.InDelta(t, 0.3, opts.Radius.max(0), 1e-15)

	opts, err = LoadOptions(strings.NewReader("radius:\n  per_edge: [0.1, 0.2]\n"))
	require.NoError(t, err)
	assert.True(t, opts.Radius.IsPerEdge())
	assert.Equal(t, 0.2, opts.Radius.at(1, 0))
	assert.Equal(t, DefaultOptions().Division, opts.Division)

	opts, err = LoadOptions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0.1, opts.Radius.at(0, 0))
	assert.Equal(t, Round, opts.Profile)
}

func TestLoadOptionsErrors(t *testing.T) {
	for _, doc := range []string{
		"radius:\n  constant: 0.1\n  per_edge: [0.1]\n",
		"radius:\n  linear: [0.1]\n",
		"radius:\n  constant: -1\n",
		"division: 0\n",
		"profile: wavy\n",
		"radiuss: 1\n",
	} {
		_, err := LoadOptions(strings.NewReader(doc))
		assert.Error(t, err, "accepted %q", doc)
	}
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile(" Fillet ")
	require.NoError(t, err)
	assert.Equal(t, Round, p)
	assert.Equal(t, "chamfer", Chamfer.String())
	assert.Equal(t, "Profile(7)", Profile(7).String())
}
