package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFindWithProjectionSortLimit(t *testing.T) {
	prog, err := Parse(`db.orders.find({status:"NEW"},{_id:1,total:1}).sort({createdAt:-1}).limit(5)`)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	root := prog.Body[0].Expression
	require.Len(t, root.Params, 1)
	require.Equal(t, int32(5), root.Params[0].(*Literal).Value)

	limitMember := root.Callee.(*Member)
	require.Equal(t, "limit", limitMember.Properties[0].Value)

	sortCall := limitMember.Object.(*Call)
	sortMember := sortCall.Callee.(*Member)
	require.Equal(t, "sort", sortMember.Properties[0].Value)

	findCall := sortMember.Object.(*Call)
	findMember := findCall.Callee.(*Member)
	require.Equal(t, []string{"orders", "find"}, literalStrings(findMember.Properties))
	require.Equal(t, "db", findMember.Object.(*Literal).Value)
	require.Len(t, findCall.Params, 2)
}

func TestParseAggregateWithExplain(t *testing.T) {
	prog, err := Parse(`db.events.aggregate([{$match:{kind:"click"}},{$group:{_id:"$user",n:{$sum:1}}}]).explain()`)
	require.NoError(t, err)
	root := prog.Body[0].Expression
	require.Empty(t, root.Params)

	explainMember := root.Callee.(*Member)
	require.Equal(t, "explain", explainMember.Properties[0].Value)

	aggCall := explainMember.Object.(*Call)
	require.Len(t, aggCall.Params, 1)
	arr := aggCall.Params[0].(*Array)
	require.Len(t, arr.Elements, 2)
}

func TestParseTrailingCommas(t *testing.T) {
	prog, err := Parse(`db.a.find({x:1,})`)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
}

func TestParseArrayTrailingComma(t *testing.T) {
	prog, err := Parse(`db.a.aggregate([{x:1},{y:2},])`)
	require.NoError(t, err)
	root := prog.Body[0].Expression
	arr := root.Params[0].(*Array)
	require.Len(t, arr.Elements, 2)
}

func TestParseCallChainTail(t *testing.T) {
	prog, err := Parse(`db.a.find()(1)(2)`)
	require.NoError(t, err)
	root := prog.Body[0].Expression
	require.Len(t, root.Tail, 2)
}

func TestParsePropertyValueCall(t *testing.T) {
	prog, err := Parse(`db.a.find({_id:ObjectId("507f1f77bcf86cd799439011")})`)
	require.NoError(t, err)
	root := prog.Body[0].Expression
	filter := root.Params[0].(*Object)
	idCall := filter.Properties[0].Value.(*Call)
	callee := idCall.Callee.(*Literal)
	require.Equal(t, "ObjectId", callee.Value)
}

func TestTryParseRecoversPartialProgram(t *testing.T) {
	prog, perr := TryParse(`db.a.find({x:1}); db.b.count(`)
	require.NotNil(t, perr)
	require.Len(t, prog.Body, 1)
}

func TestTryParseMonotonicWithSuccess(t *testing.T) {
	src := `db.orders.find({status:"NEW"}).limit(5)`
	full, err := Parse(src)
	require.NoError(t, err)

	partial, perr := TryParse(src)
	require.Nil(t, perr)
	require.Equal(t, len(full.Body), len(partial.Body))
}

func literalStrings(lits []Literal) []string {
	out := make([]string, len(lits))
	for i, l := range lits {
		out[i] = l.Value.(string)
	}
	return out
}
