package restful

import (
	"context"
	"fmt"
)

// OpInfo describes the domain call an interceptor wraps.
type OpInfo struct {
	Resource string
	Op       Op
	// Check is set on the Find call delete and update make to verify the
	// resource exists before mutating it.
	Check bool
}

// String returns "Resource.op", e.g. "Item.find".
func (i *OpInfo) String() string {
	return i.Resource + "." + string(i.Op)
}

// OpFunc represents the next step in an interceptor chain.
type OpFunc func(ctx context.Context, input any) (any, error)

// Interceptor wraps every domain operation call. input is the primary
// argument of the operation: the identifier for find, the query for list,
// the found resource for delete and the decoded payload for create and update.
//
//	func timing(ctx context.Context, info *restful.OpInfo, input any, next restful.OpFunc) (any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, input)
//	    log.Printf("%s took %v", info, time.Since(start))
//	    return res, err
//	}
//
// Interceptors may replace input with a value of the same type, short-circuit
// by returning without calling next, or add values to ctx.
type Interceptor func(ctx context.Context, info *OpInfo, input any, next OpFunc) (any, error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []Interceptor) Interceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx context.Context, info *OpInfo, input any, final OpFunc) (any, error) {
		chain := final
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(ctx context.Context, input any) (any, error) {
				return current(ctx, info, input, next)
			}
		}
		return chain(ctx, input)
	}
}

// invoke runs fn behind the interceptors of cfg, converting between the typed
// operation and the untyped chain.
func invoke[In, Out any](ctx context.Context, cfg *handlerConfig, info *OpInfo, input In, fn func(context.Context, In) (Out, error)) (Out, error) {
	chain := chainInterceptors(cfg.interceptors)
	if chain == nil {
		return fn(ctx, input)
	}

	final := func(ctx context.Context, v any) (any, error) {
		var typed In
		if v != nil {
			var ok bool
			typed, ok = v.(In)
			if !ok {
				return nil, fmt.Errorf("restful: interceptor passed %T as %s input", v, info)
			}
		}
		return fn(ctx, typed)
	}

	var zero Out
	res, err := chain(ctx, info, input, final)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	out, ok := res.(Out)
	if !ok {
		return zero, fmt.Errorf("restful: interceptor returned %T as %s result", res, info)
	}
	return out, nil
}
