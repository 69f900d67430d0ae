package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbshell/dbshell/internal/parser"
	"github.com/dbshell/dbshell/internal/value"
)

func mustParse(t *testing.T, src string) *parser.Call {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	return prog.Body[0].Expression
}

func TestBuildFindWithProjectionSortLimit(t *testing.T) {
	root := mustParse(t, `db.orders.find({status:"NEW"},{_id:1,total:1}).sort({createdAt:-1}).limit(5)`)
	cmd, err := Build(root)
	require.NoError(t, err)

	require.Equal(t, Find, cmd.Kind)
	require.Equal(t, "orders", cmd.Collection)
	require.NotNil(t, cmd.Filter)
	status, ok := cmd.Filter.Field("status")
	require.True(t, ok)
	require.Equal(t, "NEW", status.Str)
	require.NotNil(t, cmd.Projection)
	require.NotNil(t, cmd.Modifiers.Sort)
	require.NotNil(t, cmd.Modifiers.Limit)
	require.Equal(t, int64(5), *cmd.Modifiers.Limit)
}

func TestBuildAggregateWithExplain(t *testing.T) {
	root := mustParse(t, `db.events.aggregate([{$match:{kind:"click"}},{$group:{_id:"$user",n:{$sum:1}}}]).explain()`)
	cmd, err := Build(root)
	require.NoError(t, err)

	require.Equal(t, Aggregate, cmd.Kind)
	require.Len(t, cmd.Pipeline, 2)
	require.True(t, cmd.Modifiers.Explain)
}

func TestBuildModifierRejectedForWrongCommand(t *testing.T) {
	root := mustParse(t, `db.a.getIndexes().limit(5)`)
	_, err := Build(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not support")
}

func TestBuildRequiresDbRoot(t *testing.T) {
	root := mustParse(t, `foo.a.find()`)
	_, err := Build(root)
	require.Error(t, err)
}

func TestBuildObjectIdConstructor(t *testing.T) {
	root := mustParse(t, `db.a.find({_id:ObjectId("507f1f77bcf86cd799439011")})`)
	cmd, err := Build(root)
	require.NoError(t, err)
	id, ok := cmd.Filter.Field("_id")
	require.True(t, ok)
	require.Equal(t, value.KindObjectID, id.Kind)
}

func TestBuildDateTimeConstructorBareDate(t *testing.T) {
	root := mustParse(t, `db.a.find({createdAt:DateTime("2026-07-29")})`)
	cmd, err := Build(root)
	require.NoError(t, err)
	created, ok := cmd.Filter.Field("createdAt")
	require.True(t, ok)
	require.Equal(t, value.KindDateTime, created.Kind)
	require.Equal(t, 0, created.Time.Hour())
}

func TestBuildDistinctWithOptions(t *testing.T) {
	root := mustParse(t, `db.a.distinct("status",{active:true},{maxTime:100})`)
	cmd, err := Build(root)
	require.NoError(t, err)
	require.Equal(t, Distinct, cmd.Kind)
	require.Equal(t, "status", cmd.Field)
	require.NotNil(t, cmd.Options)
}

func TestBuildUnknownCommand(t *testing.T) {
	root := mustParse(t, `db.a.bogus()`)
	_, err := Build(root)
	require.Error(t, err)
}
