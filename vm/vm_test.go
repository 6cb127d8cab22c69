package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lookbusy1344/minilang/compiler"
	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string, stdin string) (string, *diag.Error) {
	t.Helper()
	prog, err := compiler.Compile(source, "t.mini")
	require.Nil(t, err, "compile error: %v", err)

	var out bytes.Buffer
	machine := vm.New(prog, strings.NewReader(stdin), &out, vm.Limits{MaxSteps: 100000})
	runErr := machine.Run()
	return out.String(), runErr
}

func TestArithmeticAndOutput(t *testing.T) {
	out, err := run(t, `program { int a; a = 2 + 3 * 4; write(a); }`, "")
	require.Nil(t, err)
	assert.Equal(t, "14\n", out)
}

func TestRealWidening(t *testing.T) {
	out, err := run(t, `program { int i; real r; i = 3; r = i / 2; write(r); }`, "")
	require.Nil(t, err)
	// i / 2 is INT/INT division (truncating, per TestIntDivisionTruncatesTowardZero)
	// before the result widens into r; it does not become a real division.
	assert.Equal(t, "1\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `program {
		int n; int s;
		n = 5; s = 0;
		while (n > 0) { s = s + n; n = n - 1; }
		write(s);
	}`, "")
	require.Nil(t, err)
	assert.Equal(t, "15\n", out)
}

func TestIfElseWithStrings(t *testing.T) {
	out, err := run(t, `program {
		string a; string b;
		a = "hi"; b = "lo";
		if (a > b) write(a); else write(b);
	}`, "")
	require.Nil(t, err)
	assert.Equal(t, "lo\n", out)
}

func TestGotoLoop(t *testing.T) {
	out, err := run(t, `program {
		int i;
		i = 0;
		start: i = i + 1;
		if (i < 3) goto start; else i = i;
		write(i);
	}`, "")
	require.Nil(t, err)
	assert.Equal(t, "3\n", out)
}

func TestDoWhileConcatenation(t *testing.T) {
	out, err := run(t, `program {
		string s; int n;
		s = ""; n = 0;
		do { s = s + "."; n = n + 1; } while (n < 3);
		write(s);
	}`, "")
	require.Nil(t, err)
	assert.Equal(t, "...\n", out)
}

func TestReadThenWrite(t *testing.T) {
	out, err := run(t, `program { int x; read(x); write(x); }`, "42")
	require.Nil(t, err)
	assert.Equal(t, "42\n", out)
}

func TestDivisionByZeroIsRuntimeFault(t *testing.T) {
	_, err := run(t, `program { int a; int b; a = 1; b = 0; write(a / b); }`, "")
	require.NotNil(t, err)
	assert.Equal(t, diag.KindRuntime, err.Kind)
}

func TestUnassignedVariableIsRuntimeFault(t *testing.T) {
	_, err := run(t, `program { int a; int b; a = b + 1; write(a); }`, "")
	require.NotNil(t, err)
	assert.Equal(t, diag.KindRuntime, err.Kind)
}

func TestReadParseFailureIsRuntimeFault(t *testing.T) {
	_, err := run(t, `program { int x; read(x); write(x); }`, "not-a-number")
	require.NotNil(t, err)
	assert.Equal(t, diag.KindRuntime, err.Kind)
}

func TestAssignmentChainIsRightAssociative(t *testing.T) {
	out, err := run(t, `program { int a; int b; int c; c = 7; a = b = c; write(a); write(b); }`, "")
	require.Nil(t, err)
	assert.Equal(t, "7\n7\n", out)
}

func TestIntDivisionTruncatesTowardZero(t *testing.T) {
	out, err := run(t, `program { int a; a = 0 - 7 / 2; write(a); }`, "")
	require.Nil(t, err)
	assert.Equal(t, "-3\n", out)
}

func TestStepLimitIsRuntimeFault(t *testing.T) {
	prog, err := compiler.Compile(`program { int i; i = 0; top: i = i + 1; goto top; }`, "t.mini")
	require.Nil(t, err)

	var out bytes.Buffer
	machine := vm.New(prog, strings.NewReader(""), &out, vm.Limits{MaxSteps: 50})
	runErr := machine.Run()
	require.NotNil(t, runErr)
	assert.Equal(t, diag.KindRuntime, runErr.Kind)
}

func TestStatisticsRecordInstructions(t *testing.T) {
	prog, err := compiler.Compile(`program { int a; a = 1 + 1; write(a); }`, "t.mini")
	require.Nil(t, err)

	var out bytes.Buffer
	machine := vm.New(prog, strings.NewReader(""), &out, vm.Limits{})
	machine.Stats.Enabled = true
	require.Nil(t, machine.Run())

	assert.Greater(t, machine.Stats.TotalInstructions, uint64(0))
	assert.Greater(t, machine.Stats.InstructionCounts["WRITE"], uint64(0))
}
