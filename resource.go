package restful

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
)

// Resource is the handler family synthesized for one resource: five
// http.HandlerFuncs sharing a descriptor, the domain operations and the state
// passed to them. A Resource holds no per-request state and is safe for
// concurrent use.
type Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S any] struct {
	desc  Descriptor
	ops   Operations[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]
	state S
}

// New synthesizes the handlers for desc. It fails with a *DescriptorError when
// desc is incomplete, when one of its types differs from the type ops is
// instantiated with, or when a query type cannot be decoded from a query string.
//
// Example:
//
//	type itemOps = restful.Operations[int64, Item, NewItem, UpdatableItem, []Item,
//		FindQuery, ListQuery, DeleteQuery, SaveQuery, UpdateQuery, *AppState]
//
//	res, err := restful.New(desc, itemOps(store), state)
func New[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S any](desc Descriptor, ops Operations[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S], state S) (*Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S], error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if ops == nil {
		return nil, &DescriptorError{Resource: desc.Name, Reason: "nil operations"}
	}

	slots := []struct {
		key      string
		declared reflect.Type
		actual   reflect.Type
		query    bool
	}{
		{KeyID, desc.ID, reflect.TypeFor[ID](), false},
		{KeyFind, desc.FindQuery, reflect.TypeFor[FQ](), true},
		{KeyList, desc.ListQuery, reflect.TypeFor[LQ](), true},
		{KeyDelete, desc.DeleteQuery, reflect.TypeFor[DQ](), true},
		{KeyCreate, desc.CreateQuery, reflect.TypeFor[SQ](), true},
		{KeyUpdate, desc.UpdateQuery, reflect.TypeFor[UQ](), true},
	}
	for _, s := range slots {
		if s.declared != s.actual {
			return nil, &DescriptorError{
				Resource: desc.Name,
				Field:    s.key,
				Reason:   fmt.Sprintf("declares %s but %T expects %s", s.declared, ops, s.actual),
			}
		}
		if s.query && !isQueryType(s.actual) {
			return nil, &DescriptorError{
				Resource: desc.Name,
				Field:    s.key,
				Reason:   fmt.Sprintf("query type %s is not a struct", s.actual),
			}
		}
	}

	return &Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]{
		desc:  desc,
		ops:   ops,
		state: state,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S any](desc Descriptor, ops Operations[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S], state S) *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S] {
	res, err := New(desc, ops, state)
	if err != nil {
		panic(err)
	}
	return res
}

// Descriptor returns the descriptor the resource was built from.
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) Descriptor() Descriptor {
	return res.desc
}

// Routes returns the five routes of the resource:
//
//	GET    {scope}/{path}/{id}  find
//	GET    {scope}/{path}       list
//	POST   {scope}/{path}       create
//	PUT    {scope}/{path}/{id}  update
//	DELETE {scope}/{path}/{id}  delete
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) Routes() []Route {
	return buildRoutes(res.desc.Name, res.desc.Scope, res.desc.Path, map[Op]http.Handler{
		OpFind:   http.HandlerFunc(res.ServeFind),
		OpList:   http.HandlerFunc(res.ServeList),
		OpCreate: http.HandlerFunc(res.ServeCreate),
		OpUpdate: http.HandlerFunc(res.ServeUpdate),
		OpDelete: http.HandlerFunc(res.ServeDelete),
	})
}

// ServeList binds the list query and writes the result of List.
// A List error is written as 500.
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := configFromContext(ctx)

	query, err := BindQuery[LQ](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}

	list, err := invoke(ctx, cfg, res.info(OpList, false), query, func(ctx context.Context, query LQ) (L, error) {
		return res.ops.List(ctx, query, res.state)
	})
	writeResult(w, list, err, internalOnError, cfg.logger)
}

// ServeFind binds the identifier and find query and writes the result of Find.
// Every Find error is written as 404 with NotFoundBody.
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) ServeFind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := configFromContext(ctx)

	id, err := BindPath[ID](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}
	query, err := BindQuery[FQ](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}

	found, err := res.find(ctx, cfg, id, query, false)
	writeResult(w, found, err, notFoundOnError, cfg.logger)
}

// ServeDelete binds the identifier and delete query, locates the resource with
// Find and the default find query, then writes the result of Delete on it.
// The delete query is never passed to Find.
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := configFromContext(ctx)

	id, err := BindPath[ID](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}
	query, err := BindQuery[DQ](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}

	found, err := res.find(ctx, cfg, id, DefaultQuery[FQ](), true)
	if err != nil {
		writeNotFound(w)
		return
	}

	deleted, err := invoke(ctx, cfg, res.info(OpDelete, false), found, func(ctx context.Context, found R) (R, error) {
		return res.ops.Delete(ctx, found, query, res.state)
	})
	writeResult(w, deleted, err, internalOnError, cfg.logger)
}

// ServeCreate binds the creation payload and save query and writes the result of Save.
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) ServeCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := configFromContext(ctx)

	payload, err := BindBody[N](r, cfg.maxRequestBodySize)
	if err != nil {
		writeBindingError(w, err)
		return
	}
	query, err := BindQuery[SQ](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}

	saved, err := invoke(ctx, cfg, res.info(OpCreate, false), *payload, func(ctx context.Context, payload N) (R, error) {
		return res.ops.Save(ctx, payload, query, res.state)
	})
	writeResult(w, saved, err, internalOnError, cfg.logger)
}

// ServeUpdate binds the identifier, the update payload and the update query,
// checks the resource exists with Find and the default find query, then writes
// the result of Update on the payload. The found resource is discarded: Update
// only ever sees client-supplied data.
func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := configFromContext(ctx)

	id, err := BindPath[ID](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}
	payload, err := BindBody[U](r, cfg.maxRequestBodySize)
	if err != nil {
		writeBindingError(w, err)
		return
	}
	query, err := BindQuery[UQ](r)
	if err != nil {
		writeBindingError(w, err)
		return
	}

	if _, err := res.find(ctx, cfg, id, DefaultQuery[FQ](), true); err != nil {
		writeNotFound(w)
		return
	}

	updated, err := invoke(ctx, cfg, res.info(OpUpdate, false), *payload, func(ctx context.Context, payload U) (U, error) {
		return res.ops.Update(ctx, payload, query, res.state)
	})
	writeResult(w, updated, err, internalOnError, cfg.logger)
}

func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) find(ctx context.Context, cfg *handlerConfig, id ID, query FQ, check bool) (R, error) {
	return invoke(ctx, cfg, res.info(OpFind, check), id, func(ctx context.Context, id ID) (R, error) {
		return res.ops.Find(ctx, id, query, res.state)
	})
}

func (res *Resource[ID, R, N, U, L, FQ, LQ, DQ, SQ, UQ, S]) info(op Op, check bool) *OpInfo {
	return &OpInfo{Resource: res.desc.Name, Op: op, Check: check}
}
