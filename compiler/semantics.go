package compiler

import (
	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/pool"
	"github.com/lookbusy1344/minilang/token"
)

// declare records a fresh declaration, failing if the identifier was
// already declared (spec.md §4.3).
func (c *Compiler) declare(slot int, kind pool.Kind, line int) *diag.Error {
	id := c.pool.Ident(slot)
	if id.Declared {
		return diag.NewSemantic(line, id.Name, "already declared")
	}
	id.Declared = true
	id.Kind = kind
	return nil
}

// checkDeclared fails if the identifier has never been declared.
func (c *Compiler) checkDeclared(slot int, line int) *diag.Error {
	id := c.pool.Ident(slot)
	if !id.Declared {
		return diag.NewSemantic(line, id.Name, "undeclared variable")
	}
	return nil
}

// init validates a declaration's optional initializer: the identifier
// must already be declared, and constKind must be assignment-compatible
// with its declared kind (spec.md §4.3: "declaration check, then
// kind-compatibility"); it marks the identifier assigned.
func (c *Compiler) init(slot int, constKind pool.Kind, line int) *diag.Error {
	id := c.pool.Ident(slot)
	if !id.Declared {
		return diag.NewSemantic(line, id.Name, "undeclared variable")
	}
	if !assignCompatible(id.Kind, constKind) {
		return diag.NewSemantic(line, id.Name, "incompatible initializer type")
	}
	id.Assigned = true
	return nil
}

// pushType pushes a compile-time kind, per spec.md §3: literals set
// rvalue true, a fresh identifier reference sets rvalue false.
func (c *Compiler) pushType(k pool.Kind, fromIdent bool) {
	c.typeStack = append(c.typeStack, k)
	c.rvalue = !fromIdent
}

func (c *Compiler) popType() pool.Kind {
	n := len(c.typeStack)
	k := c.typeStack[n-1]
	c.typeStack = c.typeStack[:n-1]
	return k
}

func isNumeric(k pool.Kind) bool {
	return k == pool.INT || k == pool.REAL
}

// assignCompatible implements spec.md §4.3's assign compatibility
// matrix: STRING only matches STRING exactly; INT and REAL freely
// widen/truncate into each other.
func assignCompatible(dst, src pool.Kind) bool {
	if dst == pool.STRING || src == pool.STRING {
		return dst == pool.STRING && src == pool.STRING
	}
	return true
}

// applyUnary implements spec.md §4.3's row for NOT/UNARY_+/UNARY_-:
// INT operand only, INT result.
func (c *Compiler) applyUnary(op token.Kind, line int) *diag.Error {
	operand := c.popType()
	if operand != pool.INT {
		return diag.NewSemantic(line, op.String(), "operand must be int")
	}
	c.pushType(pool.INT, false)
	return nil
}

// applyMulDivSub implements the `*`,`/`,`-` row: no STRING operand,
// (INT,INT)->INT, any other numeric pair widens to REAL.
func (c *Compiler) applyMulDivSub(op token.Kind, line int) *diag.Error {
	b := c.popType()
	a := c.popType()
	if a == pool.STRING || b == pool.STRING {
		return diag.NewSemantic(line, op.String(), "operand must be numeric")
	}
	if a == pool.INT && b == pool.INT {
		c.pushType(pool.INT, false)
	} else {
		c.pushType(pool.REAL, false)
	}
	return nil
}

// applyPlus implements the `+` row: (INT,INT)->INT, (STRING,STRING)
// concatenates, any other numeric pair widens to REAL; STRING mixed
// with a numeric type is an error.
func (c *Compiler) applyPlus(line int) *diag.Error {
	b := c.popType()
	a := c.popType()
	switch {
	case a == pool.STRING && b == pool.STRING:
		c.pushType(pool.STRING, false)
	case a == pool.STRING || b == pool.STRING:
		return diag.NewSemantic(line, "+", "cannot mix string and numeric operands")
	case a == pool.INT && b == pool.INT:
		c.pushType(pool.INT, false)
	default:
		c.pushType(pool.REAL, false)
	}
	return nil
}

// applyCompare implements the relational-operator row: numeric×numeric
// or STRING×STRING, INT (0/1) result.
func (c *Compiler) applyCompare(op token.Kind, line int) *diag.Error {
	b := c.popType()
	a := c.popType()
	if a == pool.STRING && b == pool.STRING {
		c.pushType(pool.INT, false)
		return nil
	}
	if isNumeric(a) && isNumeric(b) {
		c.pushType(pool.INT, false)
		return nil
	}
	return diag.NewSemantic(line, op.String(), "cannot compare string and numeric operands")
}

// applyLogical implements the `and`/`or` row: both operands INT.
func (c *Compiler) applyLogical(op token.Kind, line int) *diag.Error {
	b := c.popType()
	a := c.popType()
	if a != pool.INT || b != pool.INT {
		return diag.NewSemantic(line, op.String(), "operands must be int")
	}
	c.pushType(pool.INT, false)
	return nil
}

// applyAssign implements the `=` row: the left operand must have been
// a fresh lvalue reference (lhsWasLvalue, captured before the right
// side was parsed), and the two kinds must be assignment-compatible.
// Pushes the left's type and marks the result an rvalue, so assignment
// chains (`a = b = c`) compose correctly.
func (c *Compiler) applyAssign(lhsWasLvalue bool, line int) *diag.Error {
	rhs := c.popType()
	lhs := c.popType()
	if !lhsWasLvalue {
		return diag.NewSemantic(line, "=", "left side of assignment must be a variable")
	}
	if !assignCompatible(lhs, rhs) {
		return diag.NewSemantic(line, "=", "incompatible types in assignment")
	}
	c.pushType(lhs, false)
	c.rvalue = true
	return nil
}

// applyCondition implements the FALSE_GO/TRUE_GO row: the condition on
// top of the type stack must be INT; it produces no result.
func (c *Compiler) applyCondition(line int) *diag.Error {
	k := c.popType()
	if k != pool.INT {
		return diag.NewSemantic(line, "condition", "must be int")
	}
	return nil
}

// applyDrop implements the DROP row: pops one value, any kind.
func (c *Compiler) applyDrop() {
	c.popType()
}
