package parser

import (
	"fmt"

	"github.com/dbshell/dbshell/internal/lexer"
)

// Error is a structural parse error.
type Error struct {
	Message  string
	TokenPos int
	Expected []string
	Found    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (found %q, expected %v)", e.Message, e.Found, e.Expected)
}

// Parser consumes a fixed token slice and produces an expression tree.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New returns a Parser over tokens. tokens must end with an EOF token.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses source fully and deterministically; it fails on the first
// structural error with no recovery.
func Parse(src string) (*Program, error) {
	tokens, lexErrs := lexer.Tokenize(src)
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	return New(tokens).ParseProgram()
}

// TryParse never returns a nil Program: it applies the partial-parse
// fallback described by the grammar, truncating the token stream to just
// before the first offending token and retrying, so that syntax
// highlighting and completion keep working on an otherwise-broken buffer.
// It returns the partial program plus the first error encountered, if any.
func TryParse(src string) (*Program, *Error) {
	tokens, lexErrs := lexer.Tokenize(src)
	var firstLexErr *Error
	if len(lexErrs) > 0 {
		firstLexErr = &Error{Message: lexErrs[0].Message, Found: lexErrs[0].Found}
	}

	prog, perr := tryParseTokens(tokens)
	if firstLexErr != nil {
		return prog, firstLexErr
	}
	return prog, perr
}

// tryParseTokens implements the truncate-and-retry strategy: parse
// statements until one fails, then re-parse the prefix ending just before
// the failing token so that any later, unrelated failures don't mask
// statements that did parse.
func tryParseTokens(tokens []lexer.Token) (*Program, *Error) {
	p := New(tokens)
	prog, err := p.ParseProgram()
	if err == nil {
		return prog, nil
	}

	perr, ok := err.(*Error)
	if !ok {
		perr = &Error{Message: err.Error()}
	}

	cut := perr.TokenPos
	if cut <= 0 || cut >= len(tokens) {
		return &Program{}, perr
	}

	truncated := append(append([]lexer.Token{}, tokens[:cut]...), lexer.Token{Kind: lexer.EOF})
	p2 := New(truncated)
	partial, _ := p2.ParseProgram()
	if partial == nil {
		partial = &Program{}
	}
	return partial, perr
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(message string, expected ...string) *Error {
	tok := p.peek()
	return &Error{
		Message:  message,
		TokenPos: p.pos,
		Expected: expected,
		Found:    tok.Lexeme,
	}
}

func (p *Parser) expect(kind lexer.Kind, name string) (lexer.Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.errorf(fmt.Sprintf("expected %s", name), name)
	}
	return p.advance(), nil
}

// ParseProgram parses { ExpressionStatement } until EOF.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for {
		for p.peek().Kind == lexer.Semicolon {
			p.advance()
		}
		if p.peek().Kind == lexer.EOF {
			return prog, nil
		}

		stmt, err := p.parseExpressionStatement()
		if err != nil {
			return prog, err
		}
		prog.Body = append(prog.Body, stmt)
	}
}

// parseExpressionStatement = ( Member | Identifier ) CallTail, represented
// uniformly by parseChain and validated to end up as a Call.
func (p *Parser) parseExpressionStatement() (*ExpressionStatement, error) {
	node, err := p.parseChain()
	if err != nil {
		return nil, err
	}

	call, ok := node.(*Call)
	if !ok {
		return nil, p.errorf("expected a call expression with a parameter list", "(")
	}

	return &ExpressionStatement{Expression: call}, nil
}

// parseChain parses a base value and then folds in any run of ".name" and
// "(params)" suffixes, building Member and Call nodes as it goes. It is
// used both for the top-level statement chain (db.col.find(...).sort(...))
// and for value positions where a constructor-like call can appear
// (e.g. {field: ObjectId("...")}).
func (p *Parser) parseChain() (Node, error) {
	node, err := p.parseBaseValue()
	if err != nil {
		return nil, err
	}

	for {
		switch p.peek().Kind {
		case lexer.Dot:
			p.advance()
			nameTok, err := p.expect(lexer.Identifier, "identifier")
			if err != nil {
				return nil, err
			}
			lit := Literal{Value: nameTok.Literal, IsIdent: true, Range: nameTok.Range}

			if m, ok := node.(*Member); ok {
				m.Properties = append(m.Properties, lit)
			} else {
				node = &Member{Object: node, Properties: []Literal{lit}}
			}
		case lexer.LeftParen:
			params, err := p.parseParamList()
			if err != nil {
				return nil, err
			}
			call := &Call{Callee: node, Params: params}

			for p.peek().Kind == lexer.LeftParen {
				moreParams, err := p.parseParamList()
				if err != nil {
					return nil, err
				}
				call.Tail = append(call.Tail, &Call{Params: moreParams})
			}

			node = call
		default:
			return node, nil
		}
	}
}

// parseParamList consumes "(" [ Identifier {"," Identifier} [","] ] ")".
func (p *Parser) parseParamList() ([]Node, error) {
	if _, err := p.expect(lexer.LeftParen, "("); err != nil {
		return nil, err
	}

	var params []Node
	for p.peek().Kind != lexer.RightParen {
		v, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		params = append(params, v)

		if p.peek().Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}

	if _, err := p.expect(lexer.RightParen, ")"); err != nil {
		return nil, err
	}

	return params, nil
}

// parseBaseValue parses Literal | Object | Array | Regex.
func (p *Parser) parseBaseValue() (Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Identifier:
		p.advance()
		return &Literal{Value: tok.Literal, IsIdent: true, Range: tok.Range}, nil
	case lexer.String:
		p.advance()
		return &Literal{Value: tok.Literal, Range: tok.Range}, nil
	case lexer.Number:
		p.advance()
		return &Literal{Value: tok.Literal, Range: tok.Range}, nil
	case lexer.Bool:
		p.advance()
		return &Literal{Value: tok.Literal, Range: tok.Range}, nil
	case lexer.Null:
		p.advance()
		return &Literal{Value: nil, Range: tok.Range}, nil
	case lexer.LeftBrace:
		return p.parseObject()
	case lexer.LeftBracket:
		return p.parseArray()
	case lexer.Regex:
		return p.parseRegex()
	default:
		return nil, p.errorf("unexpected token", "identifier", "string", "number", "bool", "null", "{", "[", "regex")
	}
}

func (p *Parser) parseObject() (Node, error) {
	start := p.peek().Range
	if _, err := p.expect(lexer.LeftBrace, "{"); err != nil {
		return nil, err
	}

	obj := &Object{}
	for p.peek().Kind != lexer.RightBrace {
		key, err := p.parseLiteralKey()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		obj.Properties = append(obj.Properties, Property{Key: key, Value: val})

		if p.peek().Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}

	end, err := p.expect(lexer.RightBrace, "}")
	if err != nil {
		return nil, err
	}
	obj.Range = lexer.Range{Start: start.Start, End: end.Range.End}
	return obj, nil
}

// parseLiteralKey parses an object key: always a string or identifier
// literal, never a number/bool/null.
func (p *Parser) parseLiteralKey() (Literal, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Identifier:
		p.advance()
		return Literal{Value: tok.Literal, IsIdent: true, Range: tok.Range}, nil
	case lexer.String:
		p.advance()
		return Literal{Value: tok.Literal, Range: tok.Range}, nil
	default:
		return Literal{}, p.errorf("expected object key", "identifier", "string")
	}
}

func (p *Parser) parseArray() (Node, error) {
	start := p.peek().Range
	if _, err := p.expect(lexer.LeftBracket, "["); err != nil {
		return nil, err
	}

	arr := &Array{}
	for p.peek().Kind != lexer.RightBracket {
		el, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, el)

		if p.peek().Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}

	end, err := p.expect(lexer.RightBracket, "]")
	if err != nil {
		return nil, err
	}
	arr.Range = lexer.Range{Start: start.Start, End: end.Range.End}
	return arr, nil
}

func (p *Parser) parseRegex() (Node, error) {
	tok, err := p.expect(lexer.Regex, "regex")
	if err != nil {
		return nil, err
	}

	flags := ""
	flagsEnd := tok.Range.End
	if p.peek().Kind == lexer.RegexFlags {
		flagsTok := p.advance()
		flags = flagsTok.Lexeme
		flagsEnd = flagsTok.Range.End
	}

	pattern, _ := tok.Literal.(string)
	return &Regex{
		Pattern: pattern,
		Flags:   flags,
		Range:   lexer.Range{Start: tok.Range.Start, End: flagsEnd},
	}, nil
}
