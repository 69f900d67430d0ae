package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dbshell/dbshell/internal/parser"
	"github.com/dbshell/dbshell/internal/value"
)

// InterpreterError is raised by the Plan Builder when a command or
// modifier is misused.
type InterpreterError struct {
	Message string
}

func (e *InterpreterError) Error() string { return e.Message }

func interpErrorf(format string, args ...any) error {
	return &InterpreterError{Message: fmt.Sprintf(format, args...)}
}

// segment is one step in the flattened command chain: segment[0] is
// always "db", segment[1] is the collection, segment[2] is the primary
// command, and the rest are modifiers.
type segment struct {
	Name    string
	Params  []parser.Node
	HasCall bool
}

// Build flattens root (the head Call of an ExpressionStatement) and
// interprets it into a Command.
func Build(root *parser.Call) (*Command, error) {
	segs, err := flatten(root)
	if err != nil {
		return nil, err
	}
	if len(segs) < 3 {
		return nil, interpErrorf("Failed to execute db call")
	}
	if segs[0].Name != "db" {
		return nil, interpErrorf("Failed to execute db call")
	}

	collection := segs[1]
	if collection.HasCall {
		return nil, interpErrorf("collection segment %q must not be called", collection.Name)
	}

	primary := segs[2]
	cmd, err := buildPrimary(collection.Name, primary)
	if err != nil {
		return nil, err
	}

	for _, mod := range segs[3:] {
		if err := applyModifier(cmd, mod); err != nil {
			return nil, err
		}
	}

	return cmd, nil
}

// flatten walks the Member/Call chain built by the parser and produces
// the ordered segment list the plan builder interprets.
func flatten(n parser.Node) ([]segment, error) {
	switch e := n.(type) {
	case *parser.Literal:
		if !e.IsIdent {
			return nil, interpErrorf("expected a bare identifier, found a literal value")
		}
		name, _ := e.Value.(string)
		return []segment{{Name: name}}, nil

	case *parser.Member:
		base, err := flatten(e.Object)
		if err != nil {
			return nil, err
		}
		for _, prop := range e.Properties {
			name, _ := prop.Value.(string)
			base = append(base, segment{Name: name})
		}
		return base, nil

	case *parser.Call:
		segs, err := flatten(e.Callee)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			return nil, interpErrorf("call has no named segment")
		}
		segs[len(segs)-1].HasCall = true
		segs[len(segs)-1].Params = e.Params

		// a(b)(c): additional parenthesized groups applied to the same
		// callee repeat the last segment, carrying their own params.
		for _, tail := range e.Tail {
			segs = append(segs, segment{Name: segs[len(segs)-1].Name, HasCall: true, Params: tail.Params})
		}
		return segs, nil

	default:
		return nil, interpErrorf("unsupported expression in command chain")
	}
}

func buildPrimary(collection string, seg segment) (*Command, error) {
	name := strings.ToLower(seg.Name)
	cmd := &Command{Collection: collection}

	switch name {
	case "find":
		if len(seg.Params) > 2 {
			return nil, interpErrorf("find accepts at most 2 parameters")
		}
		cmd.Kind = Find
		if len(seg.Params) > 0 {
			filter, err := evalObjectParam(seg.Params[0], "find filter")
			if err != nil {
				return nil, err
			}
			cmd.Filter = &filter
		}
		if len(seg.Params) > 1 {
			proj, err := evalObjectParam(seg.Params[1], "find projection")
			if err != nil {
				return nil, err
			}
			cmd.Projection = &proj
		}

	case "count":
		if len(seg.Params) > 1 {
			return nil, interpErrorf("count accepts at most 1 parameter")
		}
		cmd.Kind = Count
		if len(seg.Params) > 0 {
			filter, err := evalObjectParam(seg.Params[0], "count filter")
			if err != nil {
				return nil, err
			}
			cmd.Filter = &filter
		}

	case "aggregate":
		if len(seg.Params) != 1 {
			return nil, interpErrorf("aggregate requires exactly 1 parameter")
		}
		arr, ok := seg.Params[0].(*parser.Array)
		if !ok {
			return nil, interpErrorf("aggregate requires an array of stages")
		}
		cmd.Kind = Aggregate
		for _, el := range arr.Elements {
			stage, err := evalValue(el)
			if err != nil {
				return nil, err
			}
			if stage.Kind != value.KindObject {
				return nil, interpErrorf("aggregate stages must be objects")
			}
			cmd.Pipeline = append(cmd.Pipeline, stage)
		}

	case "distinct":
		if len(seg.Params) == 0 || len(seg.Params) > 3 {
			return nil, interpErrorf("distinct requires a field and up to 2 more parameters")
		}
		fieldLit, ok := seg.Params[0].(*parser.Literal)
		if !ok || fieldLit.IsIdent {
			return nil, interpErrorf("distinct's first parameter must be a string field name")
		}
		field, ok := fieldLit.Value.(string)
		if !ok {
			return nil, interpErrorf("distinct's first parameter must be a string field name")
		}
		cmd.Kind = Distinct
		cmd.Field = field
		if len(seg.Params) > 1 {
			filter, err := evalObjectParam(seg.Params[1], "distinct filter")
			if err != nil {
				return nil, err
			}
			cmd.Filter = &filter
		}
		if len(seg.Params) > 2 {
			opts, err := evalObjectParam(seg.Params[2], "distinct options")
			if err != nil {
				return nil, err
			}
			cmd.Options = &opts
		}

	case "getindexes":
		if len(seg.Params) != 0 {
			return nil, interpErrorf("getIndexes takes no parameters")
		}
		cmd.Kind = GetIndexes

	default:
		return nil, interpErrorf("unknown command %q", seg.Name)
	}

	return cmd, nil
}

var modifierSupport = map[string]map[Kind]bool{
	"sort":         {Find: true, Aggregate: true},
	"limit":        {Find: true, Aggregate: true, Distinct: true},
	"skip":         {Find: true, Aggregate: true},
	"allowdiskuse": {Aggregate: true},
	"explain":      {Find: true, Aggregate: true, Count: true, Distinct: true},
	"hint":         {Find: true, Aggregate: true},
	"count":        {Find: true},
}

func applyModifier(cmd *Command, seg segment) error {
	name := strings.ToLower(seg.Name)
	support, known := modifierSupport[name]
	if !known {
		return interpErrorf("unknown modifier %q", seg.Name)
	}
	if !support[cmd.Kind] {
		return interpErrorf("%s does not support %s", cmd.Kind, seg.Name)
	}

	switch name {
	case "sort":
		if len(seg.Params) != 1 {
			return interpErrorf("sort requires exactly 1 parameter")
		}
		doc, err := evalObjectParam(seg.Params[0], "sort")
		if err != nil {
			return err
		}
		cmd.Modifiers.Sort = &doc

	case "limit":
		n, err := evalIntParam(seg.Params, "limit")
		if err != nil {
			return err
		}
		cmd.Modifiers.Limit = &n

	case "skip":
		n, err := evalIntParam(seg.Params, "skip")
		if err != nil {
			return err
		}
		cmd.Modifiers.Skip = &n

	case "allowdiskuse":
		if len(seg.Params) != 0 {
			return interpErrorf("allowDiskUse takes no parameters")
		}
		cmd.Modifiers.AllowDiskUse = true

	case "explain":
		if len(seg.Params) != 0 {
			return interpErrorf("explain takes no parameters")
		}
		cmd.Modifiers.Explain = true

	case "hint":
		if len(seg.Params) != 1 {
			return interpErrorf("hint requires exactly 1 parameter")
		}
		v, err := evalValue(seg.Params[0])
		if err != nil {
			return err
		}
		cmd.Modifiers.Hint = &v

	case "count":
		if len(seg.Params) != 0 {
			return interpErrorf("count takes no parameters")
		}
		cmd.Modifiers.CountMode = true
	}

	return nil
}

func evalIntParam(params []parser.Node, modifier string) (int64, error) {
	if len(params) != 1 {
		return 0, interpErrorf("%s requires exactly 1 parameter", modifier)
	}
	lit, ok := params[0].(*parser.Literal)
	if !ok {
		return 0, interpErrorf("%s requires an integer parameter", modifier)
	}
	switch v := lit.Value.(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, interpErrorf("%s requires an integer parameter", modifier)
	}
}

func evalObjectParam(n parser.Node, context string) (value.Value, error) {
	v, err := evalValue(n)
	if err != nil {
		return value.Value{}, err
	}
	if v.Kind != value.KindObject {
		return value.Value{}, interpErrorf("%s must be an object literal", context)
	}
	return v, nil
}

// evalValue interprets a value-position node into a driver-native
// DatabaseValue, resolving constructor-like calls (ObjectId, DateTime)
// along the way.
func evalValue(n parser.Node) (value.Value, error) {
	switch e := n.(type) {
	case *parser.Literal:
		if e.IsIdent {
			return value.Value{}, interpErrorf("unexpected bare identifier %q in value position", e.Value)
		}
		return literalToValue(e.Value), nil

	case *parser.Object:
		b := value.NewObject()
		for _, prop := range e.Properties {
			key, ok := prop.Key.Value.(string)
			if !ok {
				return value.Value{}, interpErrorf("object keys must be strings or identifiers")
			}
			v, err := evalValue(prop.Value)
			if err != nil {
				return value.Value{}, err
			}
			b.Set(key, v)
		}
		return b.Build(), nil

	case *parser.Array:
		vs := make([]value.Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := evalValue(el)
			if err != nil {
				return value.Value{}, err
			}
			vs[i] = v
		}
		return value.ArrayValue(vs), nil

	case *parser.Regex:
		return value.Regex(e.Pattern, e.Flags), nil

	case *parser.Call:
		return evalConstructor(e)

	default:
		return value.Value{}, interpErrorf("unsupported expression in value position")
	}
}

func literalToValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null
	case string:
		return value.String(t)
	case bool:
		return value.Bool_(t)
	case int32:
		return value.Int32(t)
	case int64:
		return value.Int64(t)
	case float64:
		return value.Float64(t)
	default:
		return value.Null
	}
}

// evalConstructor resolves ObjectId(...) and DateTime(...) constructor
// calls; any other callee is rejected.
func evalConstructor(c *parser.Call) (value.Value, error) {
	lit, ok := c.Callee.(*parser.Literal)
	if !ok || !lit.IsIdent {
		return value.Value{}, interpErrorf("unsupported call in value position")
	}
	name, _ := lit.Value.(string)

	switch name {
	case "ObjectId":
		if len(c.Params) != 1 {
			return value.Value{}, interpErrorf("ObjectId requires exactly 1 parameter")
		}
		s, err := stringParam(c.Params[0], "ObjectId")
		if err != nil {
			return value.Value{}, err
		}
		id, err := value.ObjectIDFromHex(s)
		if err != nil {
			return value.Value{}, interpErrorf("%s", err.Error())
		}
		return value.ObjectIDValue(id), nil

	case "DateTime":
		if len(c.Params) != 1 {
			return value.Value{}, interpErrorf("DateTime requires exactly 1 parameter")
		}
		s, err := stringParam(c.Params[0], "DateTime")
		if err != nil {
			return value.Value{}, err
		}
		t, err := parseDateTime(s)
		if err != nil {
			return value.Value{}, interpErrorf("invalid DateTime %q: %s", s, err.Error())
		}
		return value.DateTime(t), nil

	default:
		return value.Value{}, interpErrorf("unknown constructor %q", name)
	}
}

func stringParam(n parser.Node, ctx string) (string, error) {
	lit, ok := n.(*parser.Literal)
	if !ok || lit.IsIdent {
		return "", interpErrorf("%s requires a string parameter", ctx)
	}
	s, ok := lit.Value.(string)
	if !ok {
		return "", interpErrorf("%s requires a string parameter", ctx)
	}
	return s, nil
}

// parseDateTime accepts a bare "YYYY-MM-DD" date (midnight UTC) or a full
// RFC3339 timestamp.
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.Newf("expected YYYY-MM-DD or RFC3339, got %q", s)
}
