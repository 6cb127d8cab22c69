// Package vm implements spec.md §4.4: a linear-scan virtual machine
// that executes the compiler's postfix instruction buffer against a
// single operand stack, reading and writing variables through the
// shared pool.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/lookbusy1344/minilang/compiler"
	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/pool"
	"github.com/lookbusy1344/minilang/token"
)

// Limits bounds an otherwise unbounded interpreted program (spec.md's
// Execution.MaxSteps, an ambient concern the reference implementation
// left to the host's patience).
type Limits struct {
	// MaxSteps caps the number of dispatched instructions; zero means
	// unlimited.
	MaxSteps uint64
}

// VM holds everything spec.md §4.4 names as living for the run phase:
// the instruction buffer, the pool it indexes into, the operand stack,
// and the instruction pointer.
type VM struct {
	pool *pool.Pool
	code []token.Token

	stack []Value
	ip    int

	in  *bufio.Scanner
	out io.Writer

	limits Limits
	Stats  *Statistics
}

// New builds a VM ready to run prog, reading `read` input from in and
// writing `write` output to out.
func New(prog *compiler.Program, in io.Reader, out io.Writer, limits Limits) *VM {
	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	return &VM{
		pool:   prog.Pool,
		code:   prog.Code,
		in:     sc,
		out:    out,
		limits: limits,
		Stats:  NewStatistics(),
	}
}

// Run executes the instruction buffer to completion or to the first
// runtime fault (spec.md §4.4, §7).
func (m *VM) Run() *diag.Error {
	m.Stats.start()
	defer m.Stats.finalize()

	var steps uint64
	for m.ip = 0; m.ip < len(m.code); m.ip++ {
		instr := m.code[m.ip]

		if m.limits.MaxSteps > 0 {
			steps++
			if steps > m.limits.MaxSteps {
				err := diag.NewRuntime("step-limit", "exceeded maximum instruction count")
				err.Pos.Line = instr.Line
				return err
			}
		}
		m.Stats.recordInstruction(instr.Kind.String())

		if instr.Kind.IsOperand() {
			m.push(m.operandValue(instr))
			continue
		}
		if err := m.exec(instr); err != nil {
			err.Pos.Line = instr.Line
			return err
		}
	}

	if len(m.stack) != 0 {
		panic(fmt.Sprintf("minilang: operand stack not empty at termination: %d residual values", len(m.stack)))
	}
	return nil
}

func (m *VM) operandValue(instr token.Token) Value {
	switch instr.Kind {
	case token.ID:
		return Value{kind: vIdent, slot: int(instr.Payload)}
	case token.INTCONST:
		return Value{kind: vInt, i: int64(instr.Payload)}
	case token.REALCONST:
		return Value{kind: vReal, r: m.pool.Real(int(instr.Payload))}
	case token.STRINGCONST:
		return Value{kind: vString, s: m.pool.String(int(instr.Payload))}
	case token.LABEL:
		return Value{kind: vLabel, slot: int(instr.Payload)}
	default:
		panic(fmt.Sprintf("minilang: %s is not an operand kind", instr.Kind))
	}
}

func (m *VM) push(v Value) { m.stack = append(m.stack, v) }

func (m *VM) pop() Value {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v
}

// resolve turns an identifier reference into its current value,
// faulting if the identifier has never been assigned (spec.md §4.4:
// "ID→value coercion at use... unassigned variable is a runtime
// fault"). Any other Value is already concrete and is returned as-is.
func (m *VM) resolve(v Value) (Value, *diag.Error) {
	if v.kind != vIdent {
		return v, nil
	}
	id := m.pool.Ident(v.slot)
	if !id.Assigned {
		return Value{}, diag.NewRuntime(id.Name, "variable used before assignment")
	}
	switch id.Kind {
	case pool.INT:
		return Value{kind: vInt, i: id.IntVal}, nil
	case pool.REAL:
		return Value{kind: vReal, r: id.RealVal}, nil
	default:
		return Value{kind: vString, s: id.StrVal}, nil
	}
}

func (m *VM) popResolved() (Value, *diag.Error) {
	return m.resolve(m.pop())
}

func (m *VM) exec(instr token.Token) *diag.Error {
	switch instr.Kind {
	case token.GO, token.FALSEGO, token.TRUEGO:
		return m.execJump(instr.Kind)
	case token.READOP:
		return m.execRead()
	case token.WRITEOP:
		return m.execWrite()
	case token.DROP:
		m.pop()
		return nil
	case token.ASSIGN:
		return m.execAssign()
	case token.PLUS, token.MINUS, token.MULTIPLY, token.DIVIDE:
		return m.execBinaryArith(instr.Kind)
	case token.UNARYPLUS, token.UNARYMINUS, token.NOTOP:
		return m.execUnary(instr.Kind)
	case token.ANDOP, token.OROP:
		return m.execLogical(instr.Kind)
	case token.EQ, token.NEQ, token.LESS, token.GREATER, token.LEQ, token.GEQ:
		return m.execCompare(instr.Kind)
	default:
		panic(fmt.Sprintf("minilang: unknown instruction kind %s", instr.Kind))
	}
}

// execJump implements the GO/FALSE_GO/TRUE_GO row: pop the label
// operand, optionally pop and test a condition, and if the jump is
// taken set ip one before the target so the loop's ip++ lands on it.
func (m *VM) execJump(kind token.Kind) *diag.Error {
	target := m.pop()
	if target.kind != vLabel {
		panic("minilang: jump missing LABEL operand")
	}
	if kind == token.GO {
		m.Stats.recordJump(true)
		m.ip = target.slot - 1
		return nil
	}
	cond, err := m.popResolved()
	if err != nil {
		return err
	}
	condTrue := cond.i != 0
	taken := (kind == token.FALSEGO && !condTrue) || (kind == token.TRUEGO && condTrue)
	m.Stats.recordJump(taken)
	if taken {
		m.ip = target.slot - 1
	}
	return nil
}

// execBinaryArith implements the `+`,`-`,`*`,`/` rows of spec.md §4.4's
// operator handler table.
func (m *VM) execBinaryArith(kind token.Kind) *diag.Error {
	b, err := m.popResolved()
	if err != nil {
		return err
	}
	a, err := m.popResolved()
	if err != nil {
		return err
	}

	if kind == token.PLUS && a.kind == vString && b.kind == vString {
		m.push(Value{kind: vString, s: a.s + b.s})
		return nil
	}

	bothInt := a.kind == vInt && b.kind == vInt
	switch kind {
	case token.PLUS:
		if bothInt {
			m.push(Value{kind: vInt, i: a.i + b.i})
		} else {
			m.push(Value{kind: vReal, r: numericOf(a) + numericOf(b)})
		}
	case token.MINUS:
		if bothInt {
			m.push(Value{kind: vInt, i: a.i - b.i})
		} else {
			m.push(Value{kind: vReal, r: numericOf(a) - numericOf(b)})
		}
	case token.MULTIPLY:
		if bothInt {
			m.push(Value{kind: vInt, i: a.i * b.i})
		} else {
			m.push(Value{kind: vReal, r: numericOf(a) * numericOf(b)})
		}
	case token.DIVIDE:
		if bothInt {
			if b.i == 0 {
				return diag.NewRuntime("/", "division by zero")
			}
			m.push(Value{kind: vInt, i: a.i / b.i}) // Go's int64 / truncates toward zero already
		} else {
			divisor := numericOf(b)
			if divisor == 0 {
				return diag.NewRuntime("/", "division by zero")
			}
			m.push(Value{kind: vReal, r: numericOf(a) / divisor})
		}
	}
	return nil
}

// execUnary implements the NOT/UNARY_+/UNARY_- row.
func (m *VM) execUnary(kind token.Kind) *diag.Error {
	a, err := m.popResolved()
	if err != nil {
		return err
	}
	switch kind {
	case token.UNARYPLUS:
		m.push(a)
	case token.UNARYMINUS:
		if a.kind == vInt {
			m.push(Value{kind: vInt, i: -a.i})
		} else {
			m.push(Value{kind: vReal, r: -a.r})
		}
	case token.NOTOP:
		if a.i == 0 {
			m.push(Value{kind: vInt, i: 1})
		} else {
			m.push(Value{kind: vInt, i: 0})
		}
	}
	return nil
}

// execLogical implements the `and`/`or` row: both operands evaluated,
// no short-circuit (spec.md §4.4).
func (m *VM) execLogical(kind token.Kind) *diag.Error {
	b, err := m.popResolved()
	if err != nil {
		return err
	}
	a, err := m.popResolved()
	if err != nil {
		return err
	}
	av, bv := a.i != 0, b.i != 0
	var result int64
	if kind == token.ANDOP {
		if av && bv {
			result = 1
		}
	} else if av || bv {
		result = 1
	}
	m.push(Value{kind: vInt, i: result})
	return nil
}

// execCompare implements the relational row: strings compared
// lexicographically, numerics by value, 0/1 INT result.
func (m *VM) execCompare(kind token.Kind) *diag.Error {
	b, err := m.popResolved()
	if err != nil {
		return err
	}
	a, err := m.popResolved()
	if err != nil {
		return err
	}

	var result bool
	if a.kind == vString && b.kind == vString {
		switch kind {
		case token.EQ:
			result = a.s == b.s
		case token.NEQ:
			result = a.s != b.s
		case token.LESS:
			result = a.s < b.s
		case token.GREATER:
			result = a.s > b.s
		case token.LEQ:
			result = a.s <= b.s
		case token.GEQ:
			result = a.s >= b.s
		}
	} else {
		av, bv := numericOf(a), numericOf(b)
		switch kind {
		case token.EQ:
			result = av == bv
		case token.NEQ:
			result = av != bv
		case token.LESS:
			result = av < bv
		case token.GREATER:
			result = av > bv
		case token.LEQ:
			result = av <= bv
		case token.GEQ:
			result = av >= bv
		}
	}
	if result {
		m.push(Value{kind: vInt, i: 1})
	} else {
		m.push(Value{kind: vInt, i: 0})
	}
	return nil
}

// execAssign implements the ASSIGN row: the destination identifier
// itself sits below the already-resolved source value; it writes
// through, widening or truncating per spec.md §9, and pushes the
// destination's new value back (assignment is an expression).
func (m *VM) execAssign() *diag.Error {
	src, err := m.popResolved()
	if err != nil {
		return err
	}
	dst := m.pop()
	if dst.kind != vIdent {
		panic("minilang: ASSIGN destination is not an identifier")
	}
	id := m.pool.Ident(dst.slot)
	switch id.Kind {
	case pool.INT:
		if src.kind == vReal {
			id.IntVal = int64(src.r)
		} else {
			id.IntVal = src.i
		}
		m.push(Value{kind: vInt, i: id.IntVal})
	case pool.REAL:
		if src.kind == vInt {
			id.RealVal = float64(src.i)
		} else {
			id.RealVal = src.r
		}
		m.push(Value{kind: vReal, r: id.RealVal})
	default:
		id.StrVal = src.s
		m.push(Value{kind: vString, s: id.StrVal})
	}
	id.Assigned = true
	return nil
}

// execRead implements READ: one whitespace-delimited input token,
// parsed per the destination's declared kind.
func (m *VM) execRead() *diag.Error {
	dst := m.pop()
	id := m.pool.Ident(dst.slot)

	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return diag.NewRuntime(id.Name, "failed to read input: "+err.Error())
		}
		return diag.NewRuntime(id.Name, "no more input to read")
	}
	text := m.in.Text()

	switch id.Kind {
	case pool.INT:
		v, perr := strconv.ParseInt(text, 10, 64)
		if perr != nil {
			return diag.NewRuntime(id.Name, "could not parse \""+text+"\" as an integer")
		}
		id.IntVal = v
	case pool.REAL:
		v, perr := strconv.ParseFloat(text, 64)
		if perr != nil {
			return diag.NewRuntime(id.Name, "could not parse \""+text+"\" as a real")
		}
		id.RealVal = v
	default:
		id.StrVal = text
	}
	id.Assigned = true
	return nil
}

// execWrite implements WRITE: pop the value, print it on its own
// line using the host's default numeric formatting.
func (m *VM) execWrite() *diag.Error {
	v, err := m.popResolved()
	if err != nil {
		return err
	}
	switch v.kind {
	case vInt:
		fmt.Fprintln(m.out, v.i)
	case vReal:
		fmt.Fprintln(m.out, strconv.FormatFloat(v.r, 'g', -1, 64))
	default:
		fmt.Fprintln(m.out, v.s)
	}
	return nil
}
