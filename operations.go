package restful

import (
	"context"
	"reflect"
)

// Operations is the domain contract of one resource family. It is the only
// extension point of the package: the generated handlers bind the request,
// call one of these methods and map the result, and never look at how
// resources are stored.
//
// Type parameters:
//
//	ID  identifier, bound from the {id} path segment
//	R   the resource, produced by Find, Save and Delete
//	N   creation payload, decoded from the create request body
//	U   updatable resource, decoded from the update request body
//	L   result of List
//	FQ, LQ, DQ, SQ, UQ  query types of find, list, delete, create and update
//	S   shared state, passed unchanged to every call
//
// Implementations are called concurrently and are responsible for any
// synchronization state requires.
type Operations[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S any] interface {
	Find(ctx context.Context, id ID, query FQ, state S) (R, error)
	List(ctx context.Context, query LQ, state S) (L, error)
	// Delete receives the resource located by a preceding Find.
	Delete(ctx context.Context, resource R, query DQ, state S) (R, error)
	Save(ctx context.Context, resource N, query SQ, state S) (R, error)
	// Update receives the decoded request body, not the stored resource.
	Update(ctx context.Context, resource U, query UQ, state S) (U, error)
}

// Defaulter is implemented by query types with structural defaults.
// SetDefaults is called on a zero value before the query string is decoded
// into it, and when delete and update build the query of their existence check.
type Defaulter interface {
	SetDefaults()
}

// DefaultQuery returns the default value of Q: its zero value, with
// SetDefaults applied when *Q implements Defaulter. When Q is a pointer type a
// new element is allocated and SetDefaults is applied to it instead.
func DefaultQuery[Q any]() Q {
	var q Q
	if t := reflect.TypeFor[Q](); t.Kind() == reflect.Pointer {
		reflect.ValueOf(&q).Elem().Set(reflect.New(t.Elem()))
		if d, ok := any(q).(Defaulter); ok {
			d.SetDefaults()
		}
		return q
	}
	if d, ok := any(&q).(Defaulter); ok {
		d.SetDefaults()
	}
	return q
}
