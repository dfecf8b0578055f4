package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestCollectDiagnosticsCleanFile(t *testing.T) {
	diags := CollectDiagnostics("ok.bx", `
def main() {
	print(1);
}
`)
	assert.Empty(t, diags)
}

func TestCollectDiagnosticsSyntaxError(t *testing.T) {
	diags := CollectDiagnostics("broken.bx", "def main( {\n}\n")
	require.NotEmpty(t, diags)
	assert.Equal(t, "bxc-parser", *diags[0].Source)
	assert.Equal(t, protocol.DiagnosticSeverityError, *diags[0].Severity)
}

func TestCollectDiagnosticsTypeError(t *testing.T) {
	diags := CollectDiagnostics("bad.bx", `
def main() {
	x = 1;
}
`)
	require.NotEmpty(t, diags)
	assert.Equal(t, "bxc-check", *diags[0].Source)
	assert.Contains(t, diags[0].Message, "undeclared")
	require.NotNil(t, diags[0].Code)
	assert.Equal(t, "E0102", diags[0].Code.Value)
}

func TestDiagnosticPositionsAreZeroBased(t *testing.T) {
	diags := CollectDiagnostics("bad.bx", "def main() {\n\tx = 1;\n}\n")
	require.NotEmpty(t, diags)
	assert.Equal(t, uint32(1), diags[0].Range.Start.Line, "line 2 maps to 1")
}

func TestNewBxHandler(t *testing.T) {
	h := NewBxHandler()
	require.NotNil(t, h)
	assert.Empty(t, h.content)
}
