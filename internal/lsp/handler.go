package lsp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"bxc/internal/check"
	"bxc/internal/grammar"
)

// BxHandler implements the LSP handlers for BX. On every open and change it
// re-reads the document's file from disk, re-parses and re-checks it, and
// publishes the resulting diagnostics; the text sent by the client is not used.
type BxHandler struct {
	mu      sync.RWMutex
	content map[string]string
}

// NewBxHandler creates a new handler instance.
func NewBxHandler() *BxHandler {
	return &BxHandler{
		content: make(map[string]string),
	}
}

// Initialize advertises the server's capabilities.
func (h *BxHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *BxHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (h *BxHandler) Shutdown(ctx *glsp.Context) error {
	return nil
}

func (h *BxHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen checks the opened file and publishes diagnostics.
func (h *BxHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI)
}

// TextDocumentDidChange re-checks the file and publishes fresh diagnostics.
func (h *BxHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI)
}

// TextDocumentDidClose drops the cached buffer.
func (h *BxHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	return nil
}

// refresh parses and type-checks the file behind uri and publishes whatever
// diagnostics fall out.
func (h *BxHandler) refresh(ctx *glsp.Context, uri protocol.DocumentUri) error {
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	h.mu.Lock()
	h.content[path] = string(content)
	h.mu.Unlock()

	diagnostics := CollectDiagnostics(path, string(content))
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
	return nil
}

// CollectDiagnostics runs the front end over src and converts every problem
// to an LSP diagnostic.
func CollectDiagnostics(path, src string) []protocol.Diagnostic {
	program, parseErrs := grammar.ParseSource(path, src)
	if len(parseErrs) > 0 {
		return ConvertParseErrors(parseErrs)
	}
	_, diags := check.Check(program)
	return ConvertCheckDiagnostics(diags)
}

// uriToPath converts a document URI to a platform-local file path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
