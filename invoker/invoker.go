// invoker/invoker.go
package invoker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cardlyhq/cardly/cache"
	cardly_errors "github.com/cardlyhq/cardly/errors"
	logger "github.com/cardlyhq/cardly/logging"
)

// Param is one named call parameter. Params are an ordered slice, not a
// map, so a cache key built from them is deterministic by construction:
// call sites supply the same order and get the same key.
type Param struct {
	Key   string
	Value string
}

// P builds a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}

// Params is an ordered parameter list.
type Params []Param

// Get returns the value for key, if present.
func (p Params) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Values returns the parameter values in declaration order.
func (p Params) Values() []string {
	values := make([]string, len(p))
	for i, param := range p {
		values[i] = param.Value
	}
	return values
}

// ServiceInvoker wraps outbound calls with cache-backed memoization and
// standardized error translation. One invoker owns one key namespace;
// invalidation defaults to that namespace.
type ServiceInvoker struct {
	store     *cache.Store
	namespace string
}

// New creates an invoker over the shared cache store.
func New(store *cache.Store, namespace string) *ServiceInvoker {
	return &ServiceInvoker{store: store, namespace: namespace}
}

// CacheKey builds the deterministic key for an operation and its
// parameters: namespace, operation name, then parameter values joined
// in declaration order.
func (si *ServiceInvoker) CacheKey(operation string, params Params) string {
	parts := append([]string{si.namespace, operation}, params.Values()...)
	return strings.Join(parts, "_")
}

// Invoke memoizes factory behind the cache store. Concurrent calls for
// the same operation and parameters collapse into one fetch. Factory
// failures are translated into typed errors and are not cached.
func (si *ServiceInvoker) Invoke(ctx context.Context, operation string, factory cache.Factory, category cache.Category, params Params) (interface{}, error) {
	key := si.CacheKey(operation, params)
	value, err := si.store.Get(ctx, key, factory, category)
	if err != nil {
		appErr := cardly_errors.Translate(err)
		logger.Warn("Invocation failed",
			zap.String("operation", operation),
			zap.String("type", string(appErr.Type)),
			zap.Error(err))
		return nil, appErr
	}
	return value, nil
}

// Invalidate drops cached entries matching the given patterns, or
// everything under the invoker's namespace when none are given. Returns
// the number of entries removed.
func (si *ServiceInvoker) Invalidate(patterns ...string) int {
	if len(patterns) == 0 {
		return si.store.Invalidate(si.namespace)
	}
	removed := 0
	for _, pattern := range patterns {
		removed += si.store.Invalidate(pattern)
	}
	return removed
}

// RequireParams fails with a validation error naming the first missing
// key.
func (si *ServiceInvoker) RequireParams(params Params, required ...string) error {
	for _, key := range required {
		if value, ok := params.Get(key); !ok || value == "" {
			return cardly_errors.NewValidation(fmt.Sprintf("missing required parameter: %s", key))
		}
	}
	return nil
}

// Stats exposes the underlying cache counters.
func (si *ServiceInvoker) Stats() cache.Stats {
	return si.store.GetStats()
}
