// invoker/invoker_test.go
package invoker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlyhq/cardly/cache"
	cardly_errors "github.com/cardlyhq/cardly/errors"
)

func TestCacheKeyIsDeterministic(t *testing.T) {
	si := New(cache.New(), "enterprise")

	params := Params{P("teamId", "team_5"), P("userId", "u1")}
	key := si.CacheKey("get_members", params)

	assert.Equal(t, "enterprise_get_members_team_5_u1", key)
	assert.Equal(t, key, si.CacheKey("get_members", Params{P("teamId", "team_5"), P("userId", "u1")}))

	// Parameter order is part of the key; call sites own the ordering.
	swapped := si.CacheKey("get_members", Params{P("userId", "u1"), P("teamId", "team_5")})
	assert.NotEqual(t, key, swapped)

	assert.Equal(t, "enterprise_ping", si.CacheKey("ping", nil))
}

func TestInvokeMemoizes(t *testing.T) {
	si := New(cache.New(), "enterprise")
	ctx := context.Background()

	calls := 0
	factory := func(ctx context.Context) (interface{}, error) {
		calls++
		return "result", nil
	}

	params := Params{P("teamId", "t1")}
	v, err := si.Invoke(ctx, "get_team", factory, cache.CategoryDefault, params)
	require.NoError(t, err)
	assert.Equal(t, "result", v)

	v, err = si.Invoke(ctx, "get_team", factory, cache.CategoryDefault, params)
	require.NoError(t, err)
	assert.Equal(t, "result", v)
	assert.Equal(t, 1, calls)
}

func TestInvokeTranslatesErrors(t *testing.T) {
	si := New(cache.New(), "enterprise")

	_, err := si.Invoke(context.Background(), "get_team", func(ctx context.Context) (interface{}, error) {
		return nil, context.DeadlineExceeded
	}, cache.CategoryDefault, nil)

	var appErr *cardly_errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, cardly_errors.TypeTimeout, appErr.Type)
}

func TestInvalidateDefaultsToNamespace(t *testing.T) {
	store := cache.New()
	si := New(store, "enterprise")
	other := New(store, "directory")

	store.Set(si.CacheKey("get_team", Params{P("id", "t1")}), 1, cache.CategoryDefault)
	store.Set(other.CacheKey("get_team", Params{P("id", "t1")}), 2, cache.CategoryDefault)

	removed := si.Invalidate()
	assert.Equal(t, 1, removed)

	_, ok := store.Peek("directory_get_team_t1")
	assert.True(t, ok, "other namespaces must survive")
}

func TestInvalidateExplicitPatterns(t *testing.T) {
	store := cache.New()
	si := New(store, "enterprise")

	store.Set("enterprise_get_team_t1", 1, cache.CategoryDefault)
	store.Set("enterprise_get_team_t2", 2, cache.CategoryDefault)

	removed := si.Invalidate("t1")
	assert.Equal(t, 1, removed)
	_, ok := store.Peek("enterprise_get_team_t2")
	assert.True(t, ok)
}

func TestRequireParams(t *testing.T) {
	si := New(cache.New(), "enterprise")

	params := Params{P("teamId", "t1"), P("userId", "")}

	assert.NoError(t, si.RequireParams(params, "teamId"))

	err := si.RequireParams(params, "teamId", "userId", "role")
	var appErr *cardly_errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, cardly_errors.TypeValidation, appErr.Type)
	assert.Contains(t, appErr.Message, "userId")
	assert.NotContains(t, appErr.Message, "role", "only the first missing key is reported")
}
