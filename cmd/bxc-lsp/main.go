// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"bxc/internal/lsp"
)

const lsName = "bxc" // Name identifier for the language server

var (
	handler protocol.Handler
)

func main() {
	// Configure logging (1 = info level, nil = log to stderr)
	commonlog.Configure(1, nil)

	bxHandler := lsp.NewBxHandler()

	handler = protocol.Handler{
		Initialize:            bxHandler.Initialize,
		Initialized:           bxHandler.Initialized,
		Shutdown:              bxHandler.Shutdown,
		SetTrace:              bxHandler.SetTrace,
		TextDocumentDidOpen:   bxHandler.TextDocumentDidOpen,
		TextDocumentDidClose:  bxHandler.TextDocumentDidClose,
		TextDocumentDidChange: bxHandler.TextDocumentDidChange,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting BX LSP server...")

	// Serve over standard input/output, the transport editors use.
	err := s.RunStdio()
	if err != nil {
		log.Println("Error starting BX LSP server:", err)
		os.Exit(1)
	}
}
