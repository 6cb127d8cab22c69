package diag_test

import (
	"testing"

	"github.com/lookbusy1344/minilang/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLexicalError(t *testing.T) {
	err := diag.NewLexical(3, "#", "")
	assert.Equal(t, diag.KindLexical, err.Kind)
	assert.Equal(t, 3, err.Pos.Line)
	assert.Contains(t, err.Error(), "lexical")
	assert.Contains(t, err.Error(), "line 3")
}

func TestNewSyntaxError(t *testing.T) {
	err := diag.NewSyntax(10, ";", "identifier")
	assert.Equal(t, diag.KindSyntax, err.Kind)
	assert.Contains(t, err.Error(), "expected identifier")
}

func TestNewSemanticError(t *testing.T) {
	err := diag.NewSemantic(7, "x", "undeclared variable")
	assert.Equal(t, diag.KindSemantic, err.Kind)
	assert.Contains(t, err.Error(), "x")
	assert.Contains(t, err.Error(), "undeclared variable")
}

func TestNewRuntimeError(t *testing.T) {
	err := diag.NewRuntime("/", "division by zero")
	assert.Equal(t, diag.KindRuntime, err.Kind)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestListAddAndFirst(t *testing.T) {
	var l diag.List
	assert.False(t, l.HasErrors())
	assert.Nil(t, l.First())

	e1 := diag.NewSyntax(1, "}", "statement")
	e2 := diag.NewSemantic(2, "y", "already declared")
	l.Add(e1)
	l.Add(e2)

	require.True(t, l.HasErrors())
	assert.Same(t, e1, l.First())
	assert.Contains(t, l.Error(), "already declared")
}
