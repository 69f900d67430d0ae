package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundTripScalarAndComposite(t *testing.T) {
	obj := NewObject().
		Set("name", String("ann")).
		Set("active", Bool_(true)).
		Set("count", Int64(42)).
		Set("score", Float64(3.5)).
		Set("tags", ArrayValue([]Value{String("a"), String("b")})).
		Set("nothing", Null).
		Build()

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))

	v, ok := back.Field("name")
	require.True(t, ok)
	require.Equal(t, "ann", v.Str)

	v, ok = back.Field("active")
	require.True(t, ok)
	require.Equal(t, true, v.Bool)

	v, ok = back.Field("count")
	require.True(t, ok)
	require.Equal(t, int64(42), v.I64)

	v, ok = back.Field("score")
	require.True(t, ok)
	require.Equal(t, 3.5, v.F64)

	v, ok = back.Field("tags")
	require.True(t, ok)
	require.Len(t, v.Array, 2)

	v, ok = back.Field("nothing")
	require.True(t, ok)
	require.Equal(t, KindNull, v.Kind)
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewObject().Set("z", Int32(1)).Set("a", Int32(2)).Set("m", Int32(3)).Build()
	require.Equal(t, []string{"z", "a", "m"}, obj.Keys())
}

func TestDateTimeAndObjectIDAreLossyButStable(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	dt := DateTime(now)
	data, err := json.Marshal(dt)
	require.NoError(t, err)
	require.Contains(t, string(data), "2026-07-29T12:00:00Z")

	id, err := ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	oidVal := ObjectIDValue(id)
	data, err = json.Marshal(oidVal)
	require.NoError(t, err)
	require.Equal(t, `"507f1f77bcf86cd799439011"`, string(data))
}

func TestObjectIDFromHexRejectsBadInput(t *testing.T) {
	_, err := ObjectIDFromHex("not-hex")
	require.Error(t, err)
}
