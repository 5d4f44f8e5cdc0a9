package octokit_test

import (
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoBody = `{
  "id": 1296269,
  "full_name": "octocat/Hello-World",
  "private": false,
  "owner": {"login": "octocat", "site_admin": false},
  "topics": ["octocat", "api"],
  "score": 1.5,
  "license": null
}`

func TestParseValue_Accessors(t *testing.T) {
	t.Parallel()

	v, err := octokit.ParseValue([]byte(repoBody))
	require.NoError(t, err)

	assert.Equal(t, octokit.KindMap, v.Kind())
	assert.Equal(t, []string{"id", "full_name", "private", "owner", "topics", "score", "license"}, v.Keys())
	assert.Equal(t, 7, v.Len())

	id, ok := v.Get("id").Int()
	assert.True(t, ok)
	assert.Equal(t, int64(1296269), id)

	name, ok := v.Get("full_name").Str()
	assert.True(t, ok)
	assert.Equal(t, "octocat/Hello-World", name)

	private, ok := v.Get("private").Bool()
	assert.True(t, ok)
	assert.False(t, private)

	score, ok := v.Get("score").Float()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, score, 0.0001)

	_, ok = v.Get("score").Int()
	assert.False(t, ok)

	assert.Equal(t, "octocat", v.Get("owner").Get("login").String())
	assert.Equal(t, "api", v.Get("topics").Index(1).String())
	assert.True(t, v.Get("license").IsNull())
	assert.True(t, v.Has("license"))
	assert.False(t, v.Has("missing"))
	assert.True(t, v.Get("missing").Get("deeper").IsNull())
	assert.True(t, v.Get("topics").Index(9).IsNull())
}

func TestValue_MarshalKeepsOrder(t *testing.T) {
	t.Parallel()

	v, err := octokit.ParseValue([]byte(`{"z": 1, "a": [true, null, "x"], "m": {"b": 2, "a": 1}}`))
	require.NoError(t, err)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":1,"a":[true,null,"x"],"m":{"b":2,"a":1}}`, string(data))
	assert.Equal(t, `{"z":1,"a":[true,null,"x"],"m":{"b":2,"a":1}}`, string(data))
}

func TestValue_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		Hook octokit.Value `json:"hook"`
	}

	err := json.Unmarshal([]byte(`{"hook": {"app_id": 42, "type": "App"}}`), &payload)
	require.NoError(t, err)

	appID, ok := payload.Hook.Get("app_id").Int()
	assert.True(t, ok)
	assert.Equal(t, int64(42), appID)
	assert.Equal(t, []string{"app_id", "type"}, payload.Hook.Keys())
}

func TestParseValue_Invalid(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "not json", `{"a": 1} trailing`, `{"a":`} {
		_, err := octokit.ParseValue([]byte(body))
		require.ErrorIs(t, err, octokit.ErrNotJSON, body)
	}
}

func TestValue_Interface(t *testing.T) {
	t.Parallel()

	v, err := octokit.ParseValue([]byte(`{"n": 3, "f": 0.5, "l": ["a"], "b": true, "z": null}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"n": int64(3),
		"f": 0.5,
		"l": []any{"a"},
		"b": true,
		"z": nil,
	}, v.Interface())
}

func TestValue_Path(t *testing.T) {
	t.Parallel()

	v, err := octokit.ParseValue([]byte(`[
		{"number": 1, "user": {"login": "octocat"}},
		{"number": 2, "user": {"login": "hubot"}}
	]`))
	require.NoError(t, err)

	logins, err := v.Path("$[*].user.login")
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "octocat", logins[0].String())
	assert.Equal(t, "hubot", logins[1].String())

	numbers, err := v.Path("$[1].number")
	require.NoError(t, err)
	require.Len(t, numbers, 1)

	n, ok := numbers[0].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	_, err = v.Path("$[")
	require.ErrorIs(t, err, octokit.ErrInvalidPath)
}

func TestFromInterface(t *testing.T) {
	t.Parallel()

	v := octokit.FromInterface(map[string]any{"b": 1, "a": []any{int32(2), 2.5, "s", nil}})

	assert.Equal(t, []string{"a", "b"}, v.Keys())
	assert.Equal(t, octokit.KindList, v.Get("a").Kind())

	n, ok := v.Get("a").Index(0).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.True(t, v.Get("a").Index(3).IsNull())
	assert.Equal(t, `{"a":[2,2.5,"s",null],"b":1}`, v.String())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "map", octokit.KindMap.String())
	assert.Equal(t, "null", octokit.Value{}.Kind().String())
}
