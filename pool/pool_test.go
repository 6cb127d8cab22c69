package pool_test

import (
	"testing"

	"github.com/lookbusy1344/minilang/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIdentReusesSlot(t *testing.T) {
	p := pool.New()

	a := p.InternIdent("x")
	b := p.InternIdent("y")
	c := p.InternIdent("x")

	assert.Equal(t, a, c, "re-interning the same name must return the same slot")
	assert.NotEqual(t, a, b)

	slot, ok := p.LookupIdent("x")
	require.True(t, ok)
	assert.Equal(t, a, slot)

	_, ok = p.LookupIdent("z")
	assert.False(t, ok)
}

func TestInternLabelReusesSlot(t *testing.T) {
	p := pool.New()

	a := p.InternLabel("start")
	b := p.InternLabel("start")
	assert.Equal(t, a, b)

	lbl := p.Label(a)
	assert.False(t, lbl.Defined)
}

func TestUndefinedLabels(t *testing.T) {
	p := pool.New()

	defined := p.InternLabel("done")
	p.Label(defined).Defined = true
	p.Label(defined).Target = 5

	p.InternLabel("nowhere")

	missing := p.UndefinedLabels()
	require.Len(t, missing, 1)
	assert.Equal(t, "nowhere", missing[0].Name)
}

func TestRealAndStringPoolsAreStableAndAppendOnly(t *testing.T) {
	p := pool.New()

	r0 := p.AddReal(3.14)
	r1 := p.AddReal(2.71)
	assert.Equal(t, 3.14, p.Real(r0))
	assert.Equal(t, 2.71, p.Real(r1))
	assert.NotEqual(t, r0, r1)

	s0 := p.AddString("hi")
	s1 := p.AddString("hi") // not deduplicated: every literal occurrence gets its own slot
	assert.Equal(t, "hi", p.String(s0))
	assert.Equal(t, "hi", p.String(s1))
	assert.NotEqual(t, s0, s1)
}

func TestIdentDefaultsToUndeclared(t *testing.T) {
	p := pool.New()
	slot := p.InternIdent("count")

	id := p.Ident(slot)
	assert.False(t, id.Declared)
	assert.False(t, id.Assigned)
	assert.Equal(t, "count", id.Name)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "int", pool.INT.String())
	assert.Equal(t, "real", pool.REAL.String())
	assert.Equal(t, "string", pool.STRING.String())
}
