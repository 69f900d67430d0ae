// Package parser consumes the lexer's token stream and produces an
// expression tree of call/member expressions, object and array literals,
// and regex literals — the abstract syntax of the query sublanguage.
package parser

import "github.com/dbshell/dbshell/internal/lexer"

// Node is any expression in the tree.
type Node interface {
	node()
}

// Literal is a scalar value position: a string, number, bool, null, or a
// bare identifier (a name used as a callee, collection, or modifier).
type Literal struct {
	Value   any
	IsIdent bool
	Range   lexer.Range
}

func (*Literal) node() {}

// Object is an object literal; keys are always Literal (string or
// identifier), values are any value-position node.
type Object struct {
	Properties []Property
	Range      lexer.Range
}

func (*Object) node() {}

// Property is one key/value pair of an Object.
type Property struct {
	Key   Literal
	Value Node
}

// Array is an array literal.
type Array struct {
	Elements []Node
	Range    lexer.Range
}

func (*Array) node() {}

// Regex is a regex literal, e.g. /^foo$/i.
type Regex struct {
	Pattern string
	Flags   string
	Range   lexer.Range
}

func (*Regex) node() {}

// Call is a call expression: callee(params)(tail0)(tail1)...
// Tail holds chained call suffixes applied to the same callee, i.e. the
// parenthesized groups in a(b)(c)(d).
type Call struct {
	Callee Node
	Params []Node
	Tail   []*Call
	Range  lexer.Range
}

func (*Call) node() {}

// Member is a dotted member-access path of length >= 2 (Object plus at
// least one Property); it may itself be the callee of a Call.
type Member struct {
	Object     Node
	Properties []Literal
	Range      lexer.Range
}

func (*Member) node() {}

// ExpressionStatement is the only statement kind: a top-level call whose
// parameter list is never missing.
type ExpressionStatement struct {
	Expression *Call
}

func (*ExpressionStatement) node() {}

// Program is the root of a parsed source: zero or more statements.
type Program struct {
	Body []*ExpressionStatement
}

func (*Program) node() {}
