package compiler

import (
	"github.com/lookbusy1344/minilang/pool"
	"github.com/lookbusy1344/minilang/token"
)

// Program is the fully-built output of compilation: the postfix
// instruction buffer and the symbol/literal pool it references
// (spec.md §2, data flow: "fully-built Instruction Buffer + populated
// Pool"). It is append-only during emission; the VM only reads it.
type Program struct {
	Pool *pool.Pool
	Code []token.Token
}
