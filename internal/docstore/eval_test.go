package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyArrayOps(t *testing.T) {
	base := Data{"likerIds": []any{"a"}, "n": int64(1)}

	out, err := Apply(base, []Update{ArrayUnion("likerIds", "a", "b"), Increment("n", 2)})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out["likerIds"])
	assert.Equal(t, int64(3), out["n"])
	// input untouched
	assert.Equal(t, []any{"a"}, base["likerIds"])

	out, err = Apply(out, []Update{ArrayRemove("likerIds", "a", "missing")})
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, out["likerIds"])
}

func TestApplyMissingFields(t *testing.T) {
	out, err := Apply(Data{}, []Update{ArrayUnion("ids", "x"), Increment("count", -1), Set("name", "n")})
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, out["ids"])
	assert.Equal(t, int64(-1), out["count"])
	assert.Equal(t, "n", out["name"])
}

func TestApplyRejectsWrongType(t *testing.T) {
	_, err := Apply(Data{"ids": "x"}, []Update{ArrayUnion("ids", "y")})
	assert.Error(t, err)
	_, err = Apply(Data{"n": "x"}, []Update{Increment("n", 1)})
	assert.Error(t, err)
}

func TestMatchesNullIsNotMissing(t *testing.T) {
	filters := []Filter{Eq("parentId", nil)}
	assert.True(t, Matches(Data{"parentId": nil}, filters))
	assert.False(t, Matches(Data{}, filters))
	assert.False(t, Matches(Data{"parentId": "p1"}, filters))
}

func TestMatchesInAndRange(t *testing.T) {
	d := Data{"authorId": "b", "n": int64(5)}
	assert.True(t, Matches(d, []Filter{In("authorId", []string{"a", "b"})}))
	assert.False(t, Matches(d, []Filter{In("authorId", []string{"a"})}))
	assert.True(t, Matches(d, []Filter{Gte("n", 5), Lt("n", 6)}))
	assert.False(t, Matches(d, []Filter{Gt("n", 5)}))
}

func TestEvaluateOrderAndLimit(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []Doc{
		{ID: "a", Data: Data{"createdAt": t0.Add(time.Minute)}},
		{ID: "b", Data: Data{"createdAt": t0}},
		{ID: "c", Data: Data{"createdAt": t0.Add(2 * time.Minute)}},
		{ID: "d", Data: Data{}},
	}

	out := Evaluate(docs, Query{Collection: "posts", OrderBy: "createdAt", Descending: true, Limit: 2})
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "a", out[1].ID)

	out = Evaluate(docs, Query{Collection: "posts", OrderBy: "createdAt"})
	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].ID)

	out = Evaluate(docs, Query{Collection: "posts"})
	require.Len(t, out, 4)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "d", out[3].ID)
}

func TestQueryValidateInLimit(t *testing.T) {
	ids := make([]string, MaxInFilter+1)
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}
	err := Query{Collection: "posts", Filters: []Filter{In("authorId", ids)}}.Validate()
	assert.ErrorIs(t, err, ErrTooManyValues)

	err = Query{Collection: "posts", Filters: []Filter{In("authorId", ids[:MaxInFilter])}}.Validate()
	assert.NoError(t, err)
}

func TestNormalizeAndAccessors(t *testing.T) {
	now := time.Now()
	d := Data{"n": 3, "tags": []string{"x"}, "at": now, "s": "v"}.Clone()
	assert.Equal(t, int64(3), d["n"])
	assert.Equal(t, []string{"x"}, d.Strings("tags"))
	assert.True(t, d.Time("at").Equal(now))
	assert.Equal(t, "v", *d.OptString("s"))
	assert.Nil(t, d.OptString("missing"))
	assert.Nil(t, d.OptTime("missing"))
}

func TestCheckBatch(t *testing.T) {
	ops := make([]BatchOp, MaxBatchOps+1)
	assert.ErrorIs(t, CheckBatch(ops), ErrBatchTooLarge)
	assert.NoError(t, CheckBatch(ops[:MaxBatchOps]))
}
