package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bxc/internal/diag"
	"bxc/internal/grammar"
	"bxc/internal/source"
)

func checkSource(t *testing.T, src string) (*Result, []diag.Diagnostic) {
	t.Helper()
	program, errs := grammar.ParseSource("test.bx", src)
	require.Empty(t, errs)
	return Check(program)
}

func codes(diags []diag.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestCheckAcceptsWellTypedProgram(t *testing.T) {
	res, diags := checkSource(t, `
var counter = 0 : int;
var enabled = true : bool;

def fact(n : int) : int {
	if (n <= 1) {
		return 1;
	}
	return n * fact(n - 1);
}

def main() {
	var i = 0 : int;
	while (i < 10 && enabled) {
		print(fact(i));
		i = i + 1;
	}
	counter = i;
}
`)
	assert.Empty(t, diags)

	require.Len(t, res.Globals, 2)
	assert.Equal(t, source.TypeInt64, res.Globals[0].Type)
	assert.Equal(t, int64(0), res.Globals[0].Init.Value())
	assert.Equal(t, source.TypeBool, res.Globals[1].Type)
	assert.Equal(t, int64(1), res.Globals[1].Init.Value())

	fact := res.Procs["fact"]
	require.NotNil(t, fact)
	assert.Equal(t, source.TypeInt64, fact.Return)
	assert.Equal(t, []source.Type{source.TypeInt64}, fact.Params)

	assert.True(t, res.Procs["print"].Builtin)
}

func TestCheckRejectsMissingMain(t *testing.T) {
	_, diags := checkSource(t, "def helper() { }")
	assert.Contains(t, codes(diags), diag.CodeMissingMain)
}

func TestCheckRejectsMainWithParams(t *testing.T) {
	_, diags := checkSource(t, "def main(x : int) { }")
	assert.Contains(t, codes(diags), diag.CodeMissingMain)
}

func TestCheckRejectsUndeclaredVariable(t *testing.T) {
	_, diags := checkSource(t, "def main() { x = 1; }")
	assert.Contains(t, codes(diags), diag.CodeUndeclaredVar)
}

func TestCheckRejectsUseBeforeDeclaration(t *testing.T) {
	_, diags := checkSource(t, "def main() { var x = y : int; }")
	assert.Contains(t, codes(diags), diag.CodeUndeclaredVar)
}

func TestCheckRejectsRedeclarationInScope(t *testing.T) {
	_, diags := checkSource(t, `
def main() {
	var x = 1 : int;
	var x = 2 : int;
}
`)
	assert.Contains(t, codes(diags), diag.CodeRedeclaredVar)
}

func TestCheckAllowsShadowingInInnerScope(t *testing.T) {
	_, diags := checkSource(t, `
def main() {
	var x = 1 : int;
	{
		var x = true : bool;
		print(1);
	}
	x = 2;
}
`)
	assert.Empty(t, diags)
}

func TestCheckRejectsTypeMismatches(t *testing.T) {
	_, diags := checkSource(t, `
def main() {
	var x = true : int;
	var b = 1 : bool;
	x = x + b;
}
`)
	got := codes(diags)
	assert.Contains(t, got, diag.CodeTypeMismatch)
	assert.GreaterOrEqual(t, len(got), 3)
}

func TestCheckRejectsNonBoolCondition(t *testing.T) {
	_, diags := checkSource(t, `
def main() {
	if (1 + 2) {
		print(1);
	}
	while (3) {
		print(2);
	}
}
`)
	got := codes(diags)
	assert.Equal(t, []string{diag.CodeBadCondition, diag.CodeBadCondition}, got)
}

func TestCheckRejectsBadCalls(t *testing.T) {
	_, diags := checkSource(t, `
def f(x : int) : int {
	return x;
}

def main() {
	f(1, 2);
	g();
	f(true);
}
`)
	got := codes(diags)
	assert.Contains(t, got, diag.CodeArityMismatch)
	assert.Contains(t, got, diag.CodeUndeclaredProc)
	assert.Contains(t, got, diag.CodeTypeMismatch)
}

func TestCheckRejectsVoidCallInExpression(t *testing.T) {
	_, diags := checkSource(t, `
def main() {
	var x = print(1) : int;
}
`)
	assert.Contains(t, codes(diags), diag.CodeVoidInExpr)
}

func TestCheckRejectsBadReturns(t *testing.T) {
	_, diags := checkSource(t, `
def f() : int {
	return true;
}

def g() {
	return 1;
}

def main() { }
`)
	got := codes(diags)
	assert.Contains(t, got, diag.CodeBadReturn)
	assert.Equal(t, 2, countOf(got, diag.CodeBadReturn))
}

func TestCheckRequiresReturnOnAllPaths(t *testing.T) {
	_, diags := checkSource(t, `
def f(b : bool) : int {
	if (b) {
		return 1;
	}
}

def main() { }
`)
	assert.Contains(t, codes(diags), diag.CodeMissingReturn)
}

func TestCheckAcceptsIfElseReturningOnAllPaths(t *testing.T) {
	_, diags := checkSource(t, `
def f(b : bool) : int {
	if (b) {
		return 1;
	} else {
		return 2;
	}
}

def main() {
	print(f(true));
}
`)
	assert.Empty(t, diags)
}

func TestCheckRejectsOutOfRangeLiteral(t *testing.T) {
	_, diags := checkSource(t, `
def main() {
	var x = 99999999999999999999 : int;
}
`)
	assert.Contains(t, codes(diags), diag.CodeIntOutOfRange)
}

func TestCheckRejectsGlobalInitializerMismatch(t *testing.T) {
	_, diags := checkSource(t, `
var flag = 1 : bool;

def main() { }
`)
	assert.Contains(t, codes(diags), diag.CodeTypeMismatch)
}

func countOf(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
