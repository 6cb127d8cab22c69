// Package compiler implements spec.md §4.2 and §4.3: a recursive-descent
// parser over an operator-precedence grammar that emits a postfix
// instruction stream while a type stack, interleaved with parsing,
// validates operators and assignments (spec.md §4.3). Parsing, semantic
// analysis, and code emission share one Compiler value and run as a
// single pass — there is no separate AST.
package compiler

import (
	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/lexer"
	"github.com/lookbusy1344/minilang/pool"
	"github.com/lookbusy1344/minilang/token"
)

// Compiler holds every piece of state spec.md §3 names as living for
// the compile phase: the lexer, the shared Pool, the growing instruction
// buffer, and the compile-time type stack. There is no accumulated
// diagnostic list: spec.md §7 specifies no recovery past the first
// error, so Compile returns the first *diag.Error directly.
type Compiler struct {
	lex      *lexer.Lexer
	pool     *pool.Pool
	filename string

	cur  token.Token
	peek token.Token

	code []token.Token

	// labelFixups maps a label slot to every code index of a LABEL
	// placeholder emitted for a goto to that label before it was
	// defined (spec.md §9: "Jump patching... Forward references to
	// goto labels require a patch list keyed by label id").
	labelFixups map[int][]int

	// typeStack and rvalue mirror spec.md §3's "Compile-time type
	// stack": kinds only, one expression's worth of lifetime.
	typeStack []pool.Kind
	rvalue    bool
}

// Compile lexes, parses, semantically checks, and emits minilang source
// in one pass, returning the finished Program or the first diagnostic
// encountered (spec.md §7: no recovery past the first error).
func Compile(source, filename string) (*Program, *diag.Error) {
	p := pool.New()
	c := &Compiler{
		lex:         lexer.New(source, filename, p),
		pool:        p,
		filename:    filename,
		labelFixups: make(map[int][]int),
	}

	if err := c.advance(); err != nil {
		return nil, err
	}
	if err := c.advance(); err != nil {
		return nil, err
	}

	if err := c.parseProgram(); err != nil {
		return nil, err
	}

	if undefined := p.UndefinedLabels(); len(undefined) > 0 {
		return nil, diag.NewSemantic(c.cur.Line, undefined[0].Name, "goto target is never defined")
	}

	return &Program{Pool: p, Code: c.code}, nil
}

// advance shifts the two-token lookahead window forward by one token.
func (c *Compiler) advance() *diag.Error {
	c.cur = c.peek
	tok, err := c.lex.Next()
	if err != nil {
		return err
	}
	c.peek = tok
	return nil
}

// Compile primes cur/peek by calling advance twice before parsing, so
// that cur holds the first real token and peek holds the second.
// (advance is also reused as the steady-state "consume and fetch next".)

func (c *Compiler) expect(k token.Kind, what string) *diag.Error {
	if c.cur.Kind != k {
		return diag.NewSyntax(c.cur.Line, c.cur.Kind.String(), what)
	}
	return c.advance()
}

func (c *Compiler) at(k token.Kind) bool {
	return c.cur.Kind == k
}

// emit appends an instruction to the buffer and returns its index.
func (c *Compiler) emit(kind token.Kind, payload uint32) int {
	c.code = append(c.code, token.Token{Kind: kind, Line: c.cur.Line, Payload: payload})
	return len(c.code) - 1
}

// patch back-fills a previously emitted placeholder's payload once its
// jump target is known (spec.md §3: "individual slots are mutated
// exactly once after creation when their jump target is back-filled").
func (c *Compiler) patch(index int, target int) {
	c.code[index].Payload = uint32(target)
}

func (c *Compiler) here() int {
	return len(c.code)
}
