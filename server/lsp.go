// Package server implements a language server for Brainfuck sources.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/brainfck/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "bfc-lsp"

var log = commonlog.GetLogger("bfc.lsp")

// document is an open editor buffer and its tokenization.
type document struct {
	text string
	prog compiler.Program // nil when err is set
	err  error
}

func newDocument(text string) *document {
	prog, err := compiler.Tokenize(text)
	return &document{text: text, prog: prog, err: err}
}

// LspServer answers editor requests about open Brainfuck documents.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*document // URI → latest content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:             s.textDocumentHover,
		TextDocumentDefinition:        s.textDocumentDefinition,
		TextDocumentDocumentHighlight: s.textDocumentDocumentHighlight,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("bfc LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.DocumentHighlightProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

// update stores new content for uri and returns its diagnostics.
func (s *LspServer) update(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	doc := newDocument(text)

	s.mu.Lock()
	s.docs[string(uri)] = doc
	s.mu.Unlock()

	return diagnose(uri, doc)
}

func (s *LspServer) lookup(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[string(uri)]
}

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.publish(ctx, uri, s.update(uri, params.TextDocument.Text))
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.publish(ctx, uri, s.update(uri, whole.Text))
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil || doc.prog == nil {
		return nil, nil
	}
	i, ok := tokenAt(doc, offsetAt(doc.text, params.Position))
	if !ok {
		return nil, nil
	}
	r := tokenRange(doc, i)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: describe(doc.prog, i),
		},
		Range: &r,
	}, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc := s.lookup(uri)
	if doc == nil || doc.prog == nil {
		return nil, nil
	}
	i, ok := tokenAt(doc, offsetAt(doc.text, params.Position))
	if !ok || !doc.prog[i].Kind.IsJump() {
		return nil, nil
	}
	return []protocol.Location{{
		URI:   uri,
		Range: tokenRange(doc, doc.prog[i].Operand),
	}}, nil
}

func (s *LspServer) textDocumentDocumentHighlight(ctx *glsp.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil || doc.prog == nil {
		return nil, nil
	}
	i, ok := tokenAt(doc, offsetAt(doc.text, params.Position))
	if !ok || !doc.prog[i].Kind.IsJump() {
		return nil, nil
	}
	kind := protocol.DocumentHighlightKindText
	return []protocol.DocumentHighlight{
		{Range: tokenRange(doc, i), Kind: &kind},
		{Range: tokenRange(doc, doc.prog[i].Operand), Kind: &kind},
	}, nil
}

// --- Diagnostics ---

// diagnose converts a tokenizer failure into an LSP diagnostic. An unclosed
// loop is reported on the innermost open bracket, a stray one on itself.
func diagnose(uri protocol.DocumentUri, doc *document) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	if doc.err == nil {
		return diagnostics
	}

	var lexErr *compiler.LexError
	if !errors.As(doc.err, &lexErr) {
		return diagnostics
	}

	at := lexErr.Offset
	if lexErr.Unclosed {
		at = lexErr.Open
	}
	severity := protocol.DiagnosticSeverityError
	source := lspName
	d := protocol.Diagnostic{
		Range:    charRange(doc.text, at),
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: lexErr.Kind.String()},
		Source:   &source,
		Message:  lexErr.Error(),
	}
	if lexErr.Unclosed {
		d.RelatedInformation = []protocol.DiagnosticRelatedInformation{{
			Location: protocol.Location{URI: uri, Range: charRange(doc.text, lexErr.Offset)},
			Message:  "input ends here",
		}}
	}
	return append(diagnostics, d)
}

func describe(prog compiler.Program, i int) string {
	tok := prog[i]

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`", tok.Kind.Name(), tok.Kind)
	switch tok.Kind {
	case compiler.LoopStart:
		fmt.Fprintf(&b, "\n\nJumps past token %d when the cell is zero.", tok.Operand)
	case compiler.LoopEnd:
		fmt.Fprintf(&b, "\n\nJumps back to token %d when the cell is nonzero.", tok.Operand)
	default:
		fmt.Fprintf(&b, " x%d", tok.Operand)
	}
	fmt.Fprintf(&b, "\n\nToken %d of %d, loop depth %d", i, len(prog), depthAt(prog, i))
	return b.String()
}

// depthAt returns how many loops enclose token i.
func depthAt(prog compiler.Program, i int) int {
	depth := 0
	for _, tok := range prog[:i] {
		switch tok.Kind {
		case compiler.LoopStart:
			depth++
		case compiler.LoopEnd:
			depth--
		}
	}
	return depth
}

// --- Position helpers ---

// tokenAt returns the index of the token that owns the operator character
// at offset. Runs may be interrupted by comments, so the owner is the last
// token starting at or before offset.
func tokenAt(doc *document, offset int) (int, bool) {
	if offset < 0 || offset >= len(doc.text) {
		return 0, false
	}
	if !strings.ContainsRune("+-<>.,[]", rune(doc.text[offset])) {
		return 0, false
	}
	n := sort.Search(len(doc.prog), func(i int) bool {
		return doc.prog[i].Offset > offset
	})
	if n == 0 {
		return 0, false
	}
	return n - 1, true
}

// tokenRange spans token i from its first operator to its last.
func tokenRange(doc *document, i int) protocol.Range {
	tok := doc.prog[i]
	end := tok.Offset + 1
	if !tok.Kind.IsJump() {
		limit := len(doc.text)
		if i+1 < len(doc.prog) {
			limit = doc.prog[i+1].Offset
		}
		op := tok.Kind.Op()
		for j := tok.Offset; j < limit; j++ {
			if doc.text[j] == op {
				end = j + 1
			}
		}
	}
	return protocol.Range{
		Start: positionAt(doc.text, tok.Offset),
		End:   positionAt(doc.text, end),
	}
}

// charRange spans the character at offset.
func charRange(text string, offset int) protocol.Range {
	end := len(text)
	if offset < len(text) {
		_, size := utf8.DecodeRuneInString(text[offset:])
		end = offset + size
	}
	return protocol.Range{Start: positionAt(text, offset), End: positionAt(text, end)}
}

// positionAt converts a byte offset to a zero-based LSP position. Character
// counts UTF-16 code units from the start of the line.
func positionAt(text string, offset int) protocol.Position {
	p := compiler.Locate(text, offset)
	lineStart := p.Offset - (p.Column - 1)
	return protocol.Position{
		Line:      protocol.UInteger(p.Line - 1),
		Character: protocol.UInteger(utf16Len(text[lineStart:p.Offset])),
	}
}

// offsetAt converts an LSP position to a byte offset, or -1 when the
// position lies outside the text or inside a surrogate pair.
func offsetAt(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return -1
		}
		offset += nl + 1
	}
	lineEnd := strings.IndexByte(text[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text) - offset
	}
	line := text[offset : offset+lineEnd]

	want := int(pos.Character)
	units := 0
	for i, r := range line {
		if units == want {
			return offset + i
		}
		if units > want {
			return -1
		}
		units += runeUnits(r)
	}
	if units == want {
		return offset + lineEnd
	}
	return -1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// runeUnits is the UTF-16 width of r. Invalid bytes decode to U+FFFD, one unit.
func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func boolPtr(b bool) *bool {
	return &b
}
