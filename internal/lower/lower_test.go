package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bxc/internal/check"
	"bxc/internal/grammar"
	"bxc/internal/llvm"
	"bxc/internal/rtl"
	"bxc/internal/source"
	"bxc/internal/ssa"
)

func lowerSource(t *testing.T, src string) (*rtl.Program, *rtl.Counters) {
	t.Helper()
	program, errs := grammar.ParseSource("test.bx", src)
	require.Empty(t, errs)
	res, diags := check.Check(program)
	require.Empty(t, diags)
	counters := rtl.NewCounters()
	prog, err := Lower(program, res, counters)
	require.NoError(t, err)
	return prog, counters
}

func find(cbl *rtl.Callable, match func(rtl.Instr) bool) []rtl.Instr {
	var out []rtl.Instr
	for _, lab := range cbl.Schedule {
		if instr := cbl.Body[lab]; match(instr) {
			out = append(out, instr)
		}
	}
	return out
}

func TestLowerConstantReturn(t *testing.T) {
	prog, _ := lowerSource(t, `
def f() : int {
	return 42;
}

def main() {
	print(f());
}
`)

	require.Len(t, prog.Callables, 2)
	f := prog.Callables[0]
	assert.Equal(t, "f", f.Name)
	assert.Equal(t, source.TypeInt64, f.Result)
	assert.NoError(t, f.Validate())

	moves := find(f, func(i rtl.Instr) bool {
		mv, ok := i.(*rtl.Move)
		return ok && mv.Source == 42
	})
	require.Len(t, moves, 1)
	assert.Equal(t, f.Output, moves[0].(*rtl.Move).Dest, "the constant lands in the output pseudo")

	rets := find(f, func(i rtl.Instr) bool { _, ok := i.(*rtl.Return); return ok })
	require.Len(t, rets, 1)
	assert.Equal(t, f.Output, rets[0].(*rtl.Return).Arg)
}

func TestLowerVoidMainGetsImplicitReturn(t *testing.T) {
	prog, _ := lowerSource(t, "def main() { }")

	main := prog.Callables[0]
	rets := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Return); return ok })
	require.Len(t, rets, 1)
	assert.True(t, rets[0].(*rtl.Return).Arg.IsDiscard())
}

func TestLowerWhileShapesLoop(t *testing.T) {
	prog, _ := lowerSource(t, `
def main() {
	var i = 3 : int;
	while (i > 0) {
		i = i - 1;
	}
}
`)

	main := prog.Callables[0]
	require.NoError(t, main.Validate())

	branches := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Bbranch); return ok })
	require.Len(t, branches, 1)
	branch := branches[0].(*rtl.Bbranch)
	assert.Equal(t, rtl.JG, branch.Op)

	// A goto into the condition chain exists both before the loop and as the
	// back edge.
	gotos := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Goto); return ok })
	assert.GreaterOrEqual(t, len(gotos), 2)

	subs := find(main, func(i rtl.Instr) bool {
		b, ok := i.(*rtl.Binop)
		return ok && b.Op == rtl.SUB
	})
	assert.Len(t, subs, 1)
}

func TestLowerGlobalsUseLoadStore(t *testing.T) {
	prog, _ := lowerSource(t, `
var counter = 0 : int;

def main() {
	counter = counter + 1;
}
`)

	main := prog.Callables[0]
	loads := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Load); return ok })
	stores := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Store); return ok })
	require.Len(t, loads, 1)
	require.Len(t, stores, 1)
	assert.Equal(t, "counter", loads[0].(*rtl.Load).Src)
	assert.Equal(t, "counter", stores[0].(*rtl.Store).Dest)
}

func TestLowerPrintCallsRuntime(t *testing.T) {
	prog, _ := lowerSource(t, "def main() { print(7); }")

	main := prog.Callables[0]
	calls := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Call); return ok })
	require.Len(t, calls, 1)
	call := calls[0].(*rtl.Call)
	assert.Equal(t, llvm.PrintIntRuntime, call.Func)
	assert.True(t, call.Ret.IsDiscard(), "print's result is discarded")
	assert.Len(t, call.Args, 1)
}

func TestLowerComparisonInValuePositionMaterializes(t *testing.T) {
	prog, _ := lowerSource(t, `
def main() {
	var b = 1 < 2 : bool;
	if (b) {
		print(1);
	}
}
`)

	main := prog.Callables[0]
	require.NoError(t, main.Validate())

	// The comparison produces a Bbranch feeding Move 1 / Move 0 arms.
	branches := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Bbranch); return ok })
	require.Len(t, branches, 1)

	ones := find(main, func(i rtl.Instr) bool {
		mv, ok := i.(*rtl.Move)
		return ok && mv.Source == 1
	})
	zeros := find(main, func(i rtl.Instr) bool {
		mv, ok := i.(*rtl.Move)
		return ok && mv.Source == 0
	})
	// Moves of 1: the comparison's left operand, the materialized true arm,
	// and the print argument.
	require.Len(t, ones, 3)
	require.Len(t, zeros, 1)

	zero := zeros[0].(*rtl.Move)
	var arm *rtl.Move
	for _, i := range ones {
		if mv := i.(*rtl.Move); mv.Dest == zero.Dest {
			arm = mv
		}
	}
	require.NotNil(t, arm, "a true arm writes the same pseudo as the false arm")
	assert.Equal(t, arm.Succ, zero.Succ, "both arms rejoin")
}

func TestLowerShortCircuitSkipsRightOperand(t *testing.T) {
	prog, _ := lowerSource(t, `
def f() : bool {
	return true;
}

def main() {
	if (false && f()) {
		print(1);
	}
}
`)

	main := prog.Callables[1]
	require.NoError(t, main.Validate())

	// && chains through an intermediate label: the left Goto jumps straight
	// to the false target without touching the call to f.
	ubranches := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Ubranch); return ok })
	require.Len(t, ubranches, 1, "only f()'s boolean value is branch-tested")
}

func TestLowerStatementsAfterReturnAreDropped(t *testing.T) {
	prog, _ := lowerSource(t, `
def main() {
	return;
	print(1);
}
`)

	main := prog.Callables[0]
	calls := find(main, func(i rtl.Instr) bool { _, ok := i.(*rtl.Call); return ok })
	assert.Empty(t, calls, "unreachable statements are not lowered")
}

// The whole middle end accepts everything the lowerer produces.
func TestLowerFeedsPipelineEndToEnd(t *testing.T) {
	prog, counters := lowerSource(t, `
var limit = 10 : int;

def fib(n : int) : int {
	if (n <= 1) {
		return n;
	}
	return fib(n - 1) + fib(n - 2);
}

def main() {
	var i = 0 : int;
	while (i < limit) {
		print(fib(i));
		i = i + 1;
	}
}
`)

	ssaProg, err := ssa.Transform(prog, counters)
	require.NoError(t, err)

	text, err := llvm.GenerateText(ssaProg)
	require.NoError(t, err)

	assert.Contains(t, text, "@limit = global i64 10, align 8")
	assert.Contains(t, text, "define i64 @fib(i64 %x0) {")
	assert.Contains(t, text, "define void @main() {")
	assert.Contains(t, text, "call i64 @fib(")
	assert.Contains(t, text, "call void @bx_print_int(")
	assert.Contains(t, text, "= phi i64 ", "the loop counter needs a φ")
	assert.Contains(t, text, "ret void")
}
