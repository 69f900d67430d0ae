// Package lsp implements the language-server companion surface: it
// reuses the lexer/parser but is not part of the core event-driven
// application. It speaks a minimal JSON-RPC framing over stdio, built
// on the standard library since no JSON-RPC/LSP framework was
// available to reach for (see DESIGN.md).
package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dbshell/dbshell/internal/lexer"
	"github.com/dbshell/dbshell/internal/parser"
)

// builtinTypes seeds the completion table: a type name maps to the
// method names available on values of that type. "db" is the sole
// seeded entry.
var builtinTypes = map[string][]string{
	"db": {"find", "count", "aggregate", "distinct", "getIndexes"},
}

// dbCollectionTrigger matches a document that ends right after "db."
// with, at most, a partial collection name typed so far — the point at
// which real collection names (rather than the static method table)
// are the useful completion. The grammar's truncate-and-retry partial
// parse strategy can't recover a bare trailing "db." as a parse-tree
// node, so this is handled textually rather than through parser.TryParse.
var dbCollectionTrigger = regexp.MustCompile(`db\.([A-Za-z_$][\w$]*)?$`)

// Server reads Content-Length framed JSON-RPC requests from r and
// writes responses/notifications to w, tracking the latest text of
// every open document by URI.
type Server struct {
	r               *bufio.Reader
	w               io.Writer
	docs            map[string]string
	collectionsPath string
}

// New returns a Server reading from r and writing to w. collectionsPath
// is the `.collections.txt` file a connected docstore connector keeps
// refreshed with the live database's collection names; it is read
// fresh on every completion request rather than cached, so a
// `use`/reconnect mid-session is picked up without restarting the
// language-server.
func New(r io.Reader, w io.Writer, collectionsPath string) *Server {
	return &Server{r: bufio.NewReader(r), w: w, docs: map[string]string{}, collectionsPath: collectionsPath}
}

// collectionNames reads the current collection list, one name per
// line. Missing or unreadable files (no connection has been made yet)
// just yield no completions.
func (s *Server) collectionNames() []string {
	if s.collectionsPath == "" {
		return nil
	}
	data, err := os.ReadFile(s.collectionsPath)
	if err != nil {
		return nil
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Serve processes requests until the client sends "exit" or the input
// stream ends.
func (s *Server) Serve() error {
	for {
		req, err := s.readMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch req.Method {
		case "textDocument/didOpen":
			s.handleDidOpen(req.Params)
		case "textDocument/didChange":
			s.handleDidChange(req.Params)
		case "textDocument/completion":
			s.handleCompletion(req)
		case "shutdown":
			s.reply(req.ID, json.RawMessage("null"))
		case "exit":
			return nil
		}
	}
}

func (s *Server) readMessage() (rpcRequest, error) {
	contentLength := -1
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return rpcRequest{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if n, ok := strings.CutPrefix(line, "Content-Length:"); ok {
			contentLength, err = strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return rpcRequest{}, errors.Wrapf(err, "malformed Content-Length header")
			}
		}
	}
	if contentLength < 0 {
		return rpcRequest{}, errors.New("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.r, body); err != nil {
		return rpcRequest{}, err
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return rpcRequest{}, errors.Wrapf(err, "malformed JSON-RPC request")
	}
	return req, nil
}

func (s *Server) writeMessage(v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "Content-Length: %d\r\n\r\n%s", len(body), body)
}

func (s *Server) reply(id json.RawMessage, result json.RawMessage) {
	s.writeMessage(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{"2.0", id, result})
}

type textDocumentItem struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

func (s *Server) handleDidOpen(raw json.RawMessage) {
	var p didOpenParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.docs[p.TextDocument.URI] = p.TextDocument.Text
	s.publishDiagnostics(p.TextDocument.URI, p.TextDocument.Text)
}

type contentChange struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	ContentChanges []contentChange `json:"contentChanges"`
}

func (s *Server) handleDidChange(raw json.RawMessage) {
	var p didChangeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if len(p.ContentChanges) == 0 {
		return
	}
	text := p.ContentChanges[len(p.ContentChanges)-1].Text
	s.docs[p.TextDocument.URI] = text
	s.publishDiagnostics(p.TextDocument.URI, text)
}

type diagnostic struct {
	Range    diagnosticRange `json:"range"`
	Severity int             `json:"severity"`
	Message  string          `json:"message"`
}

type diagnosticRange struct {
	Start diagnosticPos `json:"start"`
	End   diagnosticPos `json:"end"`
}

type diagnosticPos struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// severityError is the LSP DiagnosticSeverity.Error value.
const severityError = 1

// publishDiagnostics feeds text through the lexer and parser and
// publishes the first error's source range as a severity-Error
// diagnostic.
func (s *Server) publishDiagnostics(uri, text string) {
	_, perr := parser.TryParse(text)
	diags := []diagnostic{}
	if perr != nil {
		diags = append(diags, diagnostic{
			Range: diagnosticRange{
				Start: diagnosticPos{Line: 0, Character: perr.TokenPos},
				End:   diagnosticPos{Line: 0, Character: perr.TokenPos + 1},
			},
			Severity: severityError,
			Message:  perr.Error(),
		})
	}

	s.writeMessage(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  struct {
			URI         string       `json:"uri"`
			Diagnostics []diagnostic `json:"diagnostics"`
		} `json:"params"`
	}{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params: struct {
			URI         string       `json:"uri"`
			Diagnostics []diagnostic `json:"diagnostics"`
		}{URI: uri, Diagnostics: diags},
	})
}

type completionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

type completionItem struct {
	Label string `json:"label"`
}

// handleCompletion traverses the partial tree for the open document
// and, if the root identifier resolves to a known type in
// builtinTypes, responds with that type's methods.
func (s *Server) handleCompletion(req rpcRequest) {
	var p completionParams
	_ = json.Unmarshal(req.Params, &p)

	text := s.docs[p.TextDocument.URI]
	items := s.completionsFor(text)

	result, _ := json.Marshal(items)
	s.reply(req.ID, result)
}

func (s *Server) completionsFor(text string) []completionItem {
	if m := dbCollectionTrigger.FindStringSubmatch(text); m != nil {
		prefix := m[1]
		var items []completionItem
		for _, name := range s.collectionNames() {
			if prefix == "" || strings.HasPrefix(name, prefix) {
				items = append(items, completionItem{Label: name})
			}
		}
		return items
	}

	prog, _ := parser.TryParse(text)
	if prog == nil || len(prog.Body) == 0 {
		return nil
	}

	root := rootIdentifier(prog.Body[len(prog.Body)-1].Expression)
	methods, ok := builtinTypes[root]
	if !ok {
		return nil
	}

	items := make([]completionItem, len(methods))
	for i, m := range methods {
		items[i] = completionItem{Label: m}
	}
	return items
}

// rootIdentifier walks down the callee/object chain of a (possibly
// partial) Call/Member expression to find the leading bare identifier.
func rootIdentifier(n parser.Node) string {
	switch t := n.(type) {
	case *parser.Call:
		return rootIdentifier(t.Callee)
	case *parser.Member:
		return rootIdentifier(t.Object)
	case *parser.Literal:
		if t.IsIdent {
			if s, ok := t.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Tokenize exposes the lexer's raw token stream for callers that want
// tokens without a full parse.
func Tokenize(src string) ([]lexer.Token, []*lexer.Error) {
	return lexer.Tokenize(src)
}
