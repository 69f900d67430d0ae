// Package plan folds a parsed expression tree into a typed backend
// command plus a modifier list, ready for the execution layer.
package plan

import "github.com/dbshell/dbshell/internal/value"

// Kind identifies the primary command a query chain resolves to.
type Kind int

const (
	Find Kind = iota
	Count
	Aggregate
	Distinct
	GetIndexes
)

func (k Kind) String() string {
	switch k {
	case Find:
		return "find"
	case Count:
		return "count"
	case Aggregate:
		return "aggregate"
	case Distinct:
		return "distinct"
	case GetIndexes:
		return "getIndexes"
	default:
		return "unknown"
	}
}

// Modifiers is the shared bag of chained modifiers attached to a primary
// command.
type Modifiers struct {
	Sort         *value.Value
	Limit        *int64
	Skip         *int64
	AllowDiskUse bool
	Hint         *value.Value
	Explain      bool
	CountMode    bool
}

// Command is the outcome of the Plan Builder: a typed command plus
// modifiers. It is built once per query submission and consumed once by
// the execution layer.
type Command struct {
	Kind       Kind
	Collection string

	// Find / Count
	Filter     *value.Value
	Projection *value.Value

	// Aggregate
	Pipeline []value.Value

	// Distinct
	Field   string
	Options *value.Value

	Modifiers Modifiers
}
