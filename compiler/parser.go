package compiler

import (
	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/pool"
	"github.com/lookbusy1344/minilang/token"
)

// parseProgram implements spec.md §4.2's top production:
// program ::= 'program' '{' decls statements '}' EOF
func (c *Compiler) parseProgram() *diag.Error {
	if err := c.expect(token.PROGRAM, "program"); err != nil {
		return err
	}
	if err := c.expect(token.LBRACE, "{"); err != nil {
		return err
	}
	if err := c.parseDecls(); err != nil {
		return err
	}
	if err := c.parseStatements(); err != nil {
		return err
	}
	if err := c.expect(token.RBRACE, "}"); err != nil {
		return err
	}
	return c.expect(token.EOF, "end of file")
}

func kindForKeyword(k token.Kind) pool.Kind {
	switch k {
	case token.KwREAL:
		return pool.REAL
	case token.KwSTRING:
		return pool.STRING
	default:
		return pool.INT
	}
}

// parseDecls implements:
// decls ::= {type_kw ident ['=' const] {',' ident ['=' const]} ';'}
// A declaration's optional initializer is a constant, not an
// expression, so it has no emitted instructions: it is folded directly
// into the identifier's pool entry at compile time.
func (c *Compiler) parseDecls() *diag.Error {
	for c.at(token.KwINT) || c.at(token.KwREAL) || c.at(token.KwSTRING) {
		kind := kindForKeyword(c.cur.Kind)
		if err := c.advance(); err != nil {
			return err
		}
		for {
			if !c.at(token.ID) {
				return diag.NewSyntax(c.cur.Line, c.cur.Kind.String(), "identifier")
			}
			slot := int(c.cur.Payload)
			line := c.cur.Line
			if err := c.advance(); err != nil {
				return err
			}
			if err := c.declare(slot, kind, line); err != nil {
				return err
			}
			if c.at(token.ASSIGNTOK) {
				if err := c.advance(); err != nil {
					return err
				}
				if err := c.parseDeclInit(slot, kind, line); err != nil {
					return err
				}
			}
			if c.at(token.COMMA) {
				if err := c.advance(); err != nil {
					return err
				}
				continue
			}
			break
		}
		if err := c.expect(token.SEMI, ";"); err != nil {
			return err
		}
	}
	return nil
}

// parseDeclInit reads a single constant (spec.md's `const` production)
// and stores it, widened or truncated per spec.md §4.3's assign matrix,
// directly into the declared identifier's pool entry.
func (c *Compiler) parseDeclInit(slot int, declKind pool.Kind, line int) *diag.Error {
	var constKind pool.Kind
	var i int64
	var r float64
	var s string

	switch c.cur.Kind {
	case token.INTCONST:
		i = int64(c.cur.Payload)
		constKind = pool.INT
	case token.REALCONST:
		r = c.pool.Real(int(c.cur.Payload))
		constKind = pool.REAL
	case token.STRINGCONST:
		s = c.pool.String(int(c.cur.Payload))
		constKind = pool.STRING
	default:
		return diag.NewSyntax(c.cur.Line, c.cur.Kind.String(), "constant")
	}
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.init(slot, constKind, line); err != nil {
		return err
	}

	id := c.pool.Ident(slot)
	switch declKind {
	case pool.INT:
		if constKind == pool.REAL {
			id.IntVal = int64(r)
		} else {
			id.IntVal = i
		}
	case pool.REAL:
		if constKind == pool.INT {
			id.RealVal = float64(i)
		} else {
			id.RealVal = r
		}
	case pool.STRING:
		id.StrVal = s
	}
	return nil
}

func (c *Compiler) parseStatements() *diag.Error {
	for !c.at(token.RBRACE) && !c.at(token.EOF) {
		if err := c.parseStatement(); err != nil {
			return err
		}
	}
	return nil
}

// parseStatement dispatches on the lead token per spec.md §4.2's
// `statement` alternation.
func (c *Compiler) parseStatement() *diag.Error {
	switch c.cur.Kind {
	case token.READ:
		return c.parseReadStmt()
	case token.WRITE:
		return c.parseWriteStmt()
	case token.WHILE:
		return c.parseWhileStmt()
	case token.DO:
		return c.parseDoStmt()
	case token.IF:
		return c.parseIfStmt()
	case token.GOTO:
		return c.parseGotoStmt()
	case token.LBRACE:
		return c.parseBlock()
	case token.GOTOLABEL:
		return c.parseLabelStmt()
	default:
		return c.parseExprStmt()
	}
}

// read_stmt ::= 'read' '(' ID ')' ';'  →  emit ID, READ
func (c *Compiler) parseReadStmt() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.LPAREN, "("); err != nil {
		return err
	}
	if !c.at(token.ID) {
		return diag.NewSyntax(c.cur.Line, c.cur.Kind.String(), "identifier")
	}
	slot := int(c.cur.Payload)
	line := c.cur.Line
	if err := c.checkDeclared(slot, line); err != nil {
		return err
	}
	c.emit(token.ID, uint32(slot))
	if err := c.advance(); err != nil {
		return err
	}
	c.emit(token.READOP, 0)
	if err := c.expect(token.RPAREN, ")"); err != nil {
		return err
	}
	return c.expect(token.SEMI, ";")
}

// write_stmt ::= 'write' '(' expr {',' expr} ')' ';'  →  per argument,
// emit expr then WRITE (spec.md §4.2).
func (c *Compiler) parseWriteStmt() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.LPAREN, "("); err != nil {
		return err
	}
	for {
		if err := c.parseExpr(); err != nil {
			return err
		}
		c.applyDrop()
		c.emit(token.WRITEOP, 0)
		if c.at(token.COMMA) {
			if err := c.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	if err := c.expect(token.RPAREN, ")"); err != nil {
		return err
	}
	return c.expect(token.SEMI, ";")
}

// while_stmt ::= 'while' '(' expr ')' statement, back-patched per
// spec.md §4.2's "Control-flow emission" while rule.
func (c *Compiler) parseWhileStmt() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.LPAREN, "("); err != nil {
		return err
	}
	l0 := c.here()
	if err := c.parseExpr(); err != nil {
		return err
	}
	if err := c.expect(token.RPAREN, ")"); err != nil {
		return err
	}
	line := c.cur.Line
	if err := c.applyCondition(line); err != nil {
		return err
	}
	placeholder := c.emit(token.LABEL, 0)
	c.emit(token.FALSEGO, 0)
	if err := c.parseStatement(); err != nil {
		return err
	}
	c.emit(token.LABEL, uint32(l0))
	c.emit(token.GO, 0)
	c.patch(placeholder, c.here())
	return nil
}

// do_stmt ::= 'do' statement 'while' '(' expr ')' ';'
func (c *Compiler) parseDoStmt() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	l0 := c.here()
	if err := c.parseStatement(); err != nil {
		return err
	}
	if err := c.expect(token.WHILE, "while"); err != nil {
		return err
	}
	if err := c.expect(token.LPAREN, "("); err != nil {
		return err
	}
	if err := c.parseExpr(); err != nil {
		return err
	}
	if err := c.expect(token.RPAREN, ")"); err != nil {
		return err
	}
	line := c.cur.Line
	if err := c.applyCondition(line); err != nil {
		return err
	}
	c.emit(token.LABEL, uint32(l0))
	c.emit(token.TRUEGO, 0)
	return c.expect(token.SEMI, ";")
}

// if_stmt ::= 'if' '(' expr ')' statement 'else' statement
func (c *Compiler) parseIfStmt() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.LPAREN, "("); err != nil {
		return err
	}
	if err := c.parseExpr(); err != nil {
		return err
	}
	if err := c.expect(token.RPAREN, ")"); err != nil {
		return err
	}
	line := c.cur.Line
	if err := c.applyCondition(line); err != nil {
		return err
	}
	falseJump := c.emit(token.LABEL, 0)
	c.emit(token.FALSEGO, 0)
	if err := c.parseStatement(); err != nil {
		return err
	}
	endJump := c.emit(token.LABEL, 0)
	c.emit(token.GO, 0)
	c.patch(falseJump, c.here())
	if err := c.expect(token.ELSE, "else"); err != nil {
		return err
	}
	if err := c.parseStatement(); err != nil {
		return err
	}
	c.patch(endJump, c.here())
	return nil
}

// labelSlotFor resolves a goto target to a label-pool slot regardless
// of whether the lexer classified the occurrence as GOTO_LABEL (it was
// immediately followed by ':' where it was seen) or as a plain ID (any
// other occurrence, including every forward `goto` reference, since
// the lexer's one-byte look-ahead only fires at the label's own
// defining occurrence). Resolving by name, not by lexed kind, is what
// lets a `goto` reach a label defined later in the source.
func (c *Compiler) labelSlotFor(tok token.Token) (int, bool) {
	switch tok.Kind {
	case token.GOTOLABEL:
		return int(tok.Payload), true
	case token.ID:
		name := c.pool.Ident(int(tok.Payload)).Name
		return c.pool.InternLabel(name), true
	default:
		return 0, false
	}
}

// emitGoto implements spec.md §4.2's "goto L" rule: emit the resolved
// (or, if still unresolved, a placeholder) target followed by GO,
// recording a fix-up when the label has not been defined yet.
func (c *Compiler) emitGoto(labelSlot int) {
	lbl := c.pool.Label(labelSlot)
	if lbl.Defined {
		c.emit(token.LABEL, uint32(lbl.Target))
	} else {
		idx := c.emit(token.LABEL, 0)
		c.labelFixups[labelSlot] = append(c.labelFixups[labelSlot], idx)
	}
	c.emit(token.GO, 0)
}

// defineLabel implements spec.md §4.2's "label:" rule: record the
// label's target as the current emission point and back-patch every
// fix-up recorded by an earlier forward-referencing goto.
func (c *Compiler) defineLabel(slot int, line int) *diag.Error {
	lbl := c.pool.Label(slot)
	if lbl.Defined {
		return diag.NewSemantic(line, lbl.Name, "label already defined")
	}
	lbl.Defined = true
	lbl.Target = c.here()
	for _, idx := range c.labelFixups[slot] {
		c.patch(idx, lbl.Target)
	}
	delete(c.labelFixups, slot)
	return nil
}

// goto_stmt ::= 'goto' GOTO_LABEL ';'
func (c *Compiler) parseGotoStmt() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	slot, ok := c.labelSlotFor(c.cur)
	if !ok {
		return diag.NewSyntax(c.cur.Line, c.cur.Kind.String(), "label")
	}
	if err := c.advance(); err != nil {
		return err
	}
	c.emitGoto(slot)
	return c.expect(token.SEMI, ";")
}

// label_stmt ::= GOTO_LABEL ':'
func (c *Compiler) parseLabelStmt() *diag.Error {
	slot := int(c.cur.Payload)
	line := c.cur.Line
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.COLON, ":"); err != nil {
		return err
	}
	return c.defineLabel(slot, line)
}

func (c *Compiler) parseBlock() *diag.Error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.parseStatements(); err != nil {
		return err
	}
	return c.expect(token.RBRACE, "}")
}

// expr_stmt ::= expr ';'  →  emit expr then DROP, clearing its residue.
func (c *Compiler) parseExprStmt() *diag.Error {
	if err := c.parseExpr(); err != nil {
		return err
	}
	c.applyDrop()
	c.emit(token.DROP, 0)
	return c.expect(token.SEMI, ";")
}

// expr ::= or_op {'=' or_op}, right-chained (spec.md §9: assignment is
// right-associative, `a = b = c` ≡ `a = (b = c)`).
func (c *Compiler) parseExpr() *diag.Error {
	if err := c.parseOr(); err != nil {
		return err
	}
	if c.at(token.ASSIGNTOK) {
		lhsWasLvalue := !c.rvalue
		line := c.cur.Line
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseExpr(); err != nil {
			return err
		}
		if err := c.applyAssign(lhsWasLvalue, line); err != nil {
			return err
		}
		c.emit(token.ASSIGN, 0)
	}
	return nil
}

// or_op ::= and_op {'or' and_op}
func (c *Compiler) parseOr() *diag.Error {
	if err := c.parseAnd(); err != nil {
		return err
	}
	for c.at(token.OR) {
		line := c.cur.Line
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseAnd(); err != nil {
			return err
		}
		if err := c.applyLogical(token.OR, line); err != nil {
			return err
		}
		c.emit(token.OROP, 0)
	}
	return nil
}

// and_op ::= cmp_op {'and' cmp_op}
func (c *Compiler) parseAnd() *diag.Error {
	if err := c.parseCmp(); err != nil {
		return err
	}
	for c.at(token.AND) {
		line := c.cur.Line
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseCmp(); err != nil {
			return err
		}
		if err := c.applyLogical(token.AND, line); err != nil {
			return err
		}
		c.emit(token.ANDOP, 0)
	}
	return nil
}

func isCmpOp(k token.Kind) bool {
	switch k {
	case token.EQTOK, token.NEQTOK, token.LTTOK, token.GTTOK, token.LEQTOK, token.GEQTOK:
		return true
	default:
		return false
	}
}

func cmpInstr(k token.Kind) token.Kind {
	switch k {
	case token.EQTOK:
		return token.EQ
	case token.NEQTOK:
		return token.NEQ
	case token.LTTOK:
		return token.LESS
	case token.GTTOK:
		return token.GREATER
	case token.LEQTOK:
		return token.LEQ
	case token.GEQTOK:
		return token.GEQ
	default:
		return token.EOF
	}
}

// cmp_op ::= add_op [('=='|'!='|'<'|'>'|'<='|'>=') add_op] — a single
// optional comparison, not a chain.
func (c *Compiler) parseCmp() *diag.Error {
	if err := c.parseAdd(); err != nil {
		return err
	}
	if isCmpOp(c.cur.Kind) {
		op := c.cur.Kind
		line := c.cur.Line
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseAdd(); err != nil {
			return err
		}
		if err := c.applyCompare(op, line); err != nil {
			return err
		}
		c.emit(cmpInstr(op), 0)
	}
	return nil
}

// add_op ::= mul_op {('+'|'-') mul_op}
func (c *Compiler) parseAdd() *diag.Error {
	if err := c.parseMul(); err != nil {
		return err
	}
	for c.at(token.PLUSTOK) || c.at(token.MINUSTOK) {
		op := c.cur.Kind
		line := c.cur.Line
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseMul(); err != nil {
			return err
		}
		if op == token.PLUSTOK {
			if err := c.applyPlus(line); err != nil {
				return err
			}
			c.emit(token.PLUS, 0)
		} else {
			if err := c.applyMulDivSub(op, line); err != nil {
				return err
			}
			c.emit(token.MINUS, 0)
		}
	}
	return nil
}

// mul_op ::= unary {('*'|'/') unary}
func (c *Compiler) parseMul() *diag.Error {
	if err := c.parseUnary(); err != nil {
		return err
	}
	for c.at(token.STARTOK) || c.at(token.SLASHTOK) {
		op := c.cur.Kind
		line := c.cur.Line
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseUnary(); err != nil {
			return err
		}
		if err := c.applyMulDivSub(op, line); err != nil {
			return err
		}
		if op == token.STARTOK {
			c.emit(token.MULTIPLY, 0)
		} else {
			c.emit(token.DIVIDE, 0)
		}
	}
	return nil
}

// unary ::= {'not'|'+'|'-'} atom. Emission rule (spec.md §4.2): unary
// operators are collected on a local deferral slice while parsing runs
// forward, then appended in reverse (outer-last) once the operand has
// been emitted.
func (c *Compiler) parseUnary() *diag.Error {
	var ops []token.Kind
	var lines []int
	for c.at(token.NOT) || c.at(token.PLUSTOK) || c.at(token.MINUSTOK) {
		ops = append(ops, c.cur.Kind)
		lines = append(lines, c.cur.Line)
		if err := c.advance(); err != nil {
			return err
		}
	}
	if err := c.parseAtom(); err != nil {
		return err
	}
	for i := len(ops) - 1; i >= 0; i-- {
		op, line := ops[i], lines[i]
		if err := c.applyUnary(op, line); err != nil {
			return err
		}
		switch op {
		case token.NOT:
			c.emit(token.NOTOP, 0)
		case token.PLUSTOK:
			c.emit(token.UNARYPLUS, 0)
		default:
			c.emit(token.UNARYMINUS, 0)
		}
	}
	return nil
}

// atom ::= ID | const | '(' expr ')'
func (c *Compiler) parseAtom() *diag.Error {
	switch c.cur.Kind {
	case token.ID:
		slot := int(c.cur.Payload)
		line := c.cur.Line
		if err := c.checkDeclared(slot, line); err != nil {
			return err
		}
		c.emit(token.ID, uint32(slot))
		c.pushType(c.pool.Ident(slot).Kind, true)
		return c.advance()
	case token.INTCONST:
		c.emit(token.INTCONST, c.cur.Payload)
		c.pushType(pool.INT, false)
		return c.advance()
	case token.REALCONST:
		c.emit(token.REALCONST, c.cur.Payload)
		c.pushType(pool.REAL, false)
		return c.advance()
	case token.STRINGCONST:
		c.emit(token.STRINGCONST, c.cur.Payload)
		c.pushType(pool.STRING, false)
		return c.advance()
	case token.LPAREN:
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parseExpr(); err != nil {
			return err
		}
		return c.expect(token.RPAREN, ")")
	default:
		return diag.NewSyntax(c.cur.Line, c.cur.Kind.String(), "expression")
	}
}
