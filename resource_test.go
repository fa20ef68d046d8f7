package restful

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/broady/restful/testutil"
)

func TestNew(t *testing.T) {
	store := newItemStore()
	res, err := New(itemDescriptor(t), itemOps(store), &appState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Descriptor().Name; got != "itemStore" {
		t.Errorf("expected descriptor name itemStore, got %q", got)
	}
	if got := len(res.Routes()); got != 5 {
		t.Errorf("expected 5 routes, got %d", got)
	}
	for _, r := range res.Routes() {
		if r.Handler == nil {
			t.Errorf("route %s has no handler", r)
		}
	}
}

func TestNew_DescriptorMismatch(t *testing.T) {
	type otherQuery struct{}

	tests := []struct {
		name  string
		edit  func(*Descriptor)
		field string
	}{
		{"id", func(d *Descriptor) { d.ID = reflect.TypeFor[string]() }, KeyID},
		{"find", func(d *Descriptor) { d.FindQuery = reflect.TypeFor[otherQuery]() }, KeyFind},
		{"list", func(d *Descriptor) { d.ListQuery = reflect.TypeFor[FindQuery]() }, KeyList},
		{"delete", func(d *Descriptor) { d.DeleteQuery = reflect.TypeFor[*DeleteQuery]() }, KeyDelete},
		{"create", func(d *Descriptor) { d.CreateQuery = reflect.TypeFor[UpdateQuery]() }, KeyCreate},
		{"update", func(d *Descriptor) { d.UpdateQuery = reflect.TypeFor[SaveQuery]() }, KeyUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := itemDescriptor(t)
			tt.edit(&desc)

			_, err := New(desc, itemOps(newItemStore()), &appState{})
			var descErr *DescriptorError
			if !errors.As(err, &descErr) {
				t.Fatalf("expected *DescriptorError, got %v", err)
			}
			if descErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, descErr.Field)
			}
		})
	}
}

func TestNew_IncompleteDescriptor(t *testing.T) {
	desc := itemDescriptor(t)
	desc.Path = ""

	_, err := New(desc, itemOps(newItemStore()), &appState{})
	var descErr *DescriptorError
	if !errors.As(err, &descErr) || descErr.Field != KeyPath {
		t.Fatalf("expected path DescriptorError, got %v", err)
	}
}

func TestNew_NilOperations(t *testing.T) {
	_, err := New(itemDescriptor(t), itemOps(nil), &appState{})
	if err == nil || !strings.Contains(err.Error(), "nil operations") {
		t.Fatalf("expected nil operations error, got %v", err)
	}
}

type scalarQueryOps struct{}

func (scalarQueryOps) Find(context.Context, int64, string, struct{}) (Item, error) {
	return Item{}, nil
}
func (scalarQueryOps) List(context.Context, ListQuery, struct{}) ([]Item, error) { return nil, nil }
func (scalarQueryOps) Delete(context.Context, Item, DeleteQuery, struct{}) (Item, error) {
	return Item{}, nil
}
func (scalarQueryOps) Save(context.Context, NewItem, SaveQuery, struct{}) (Item, error) {
	return Item{}, nil
}
func (scalarQueryOps) Update(context.Context, UpdatableItem, UpdateQuery, struct{}) (UpdatableItem, error) {
	return UpdatableItem{}, nil
}

func TestNew_ScalarQueryRejected(t *testing.T) {
	desc := itemDescriptor(t)
	desc.FindQuery = reflect.TypeFor[string]()

	ops := Operations[int64, Item, NewItem, UpdatableItem, []Item, string, ListQuery, DeleteQuery, SaveQuery, UpdateQuery, struct{}](scalarQueryOps{})
	_, err := New(desc, ops, struct{}{})
	if err == nil || !strings.Contains(err.Error(), "not a struct") {
		t.Fatalf("expected query type error, got %v", err)
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustNew(Descriptor{Name: "broken"}, itemOps(newItemStore()), &appState{})
}

func TestServeFind(t *testing.T) {
	store := newItemStore(Item{ID: 42, Content: "answer"})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		GET("/v1/item/42?include_deleted=true").
		WithPathValue("id", "42").
		Serve(http.HandlerFunc(res.ServeFind))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, Item{ID: 42, Content: "answer"})

	if len(store.finds) != 1 {
		t.Fatalf("expected 1 Find call, got %d", len(store.finds))
	}
	got := store.finds[0]
	if got.id != 42 {
		t.Errorf("expected id 42, got %d", got.id)
	}
	if got.query.Fields != "all" || !got.query.IncludeDeleted {
		t.Errorf("expected defaulted query with include_deleted, got %+v", got.query)
	}
	if store.states[0] == nil || store.states[0].name != "test" {
		t.Errorf("expected shared state to reach Find, got %+v", store.states[0])
	}
}

func TestServeFind_NotFound(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		GET("/v1/item/42").
		WithPathValue("id", "42").
		Serve(http.HandlerFunc(res.ServeFind))

	testutil.AssertStatus(t, w, http.StatusNotFound)
	testutil.AssertBody(t, w, NotFoundBody)
	testutil.AssertHeader(t, w, "Content-Type", "text/plain; charset=utf-8")
}

func TestServeFind_InvalidID(t *testing.T) {
	store := newItemStore(Item{ID: 1})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		GET("/v1/item/abc").
		WithPathValue("id", "abc").
		Serve(http.HandlerFunc(res.ServeFind))

	testutil.AssertStatus(t, w, http.StatusNotFound)
	testutil.AssertBody(t, w, NotFoundBody)
	if len(store.finds) != 0 {
		t.Errorf("expected Find not to be called, got %d calls", len(store.finds))
	}
}

func TestServeFind_InvalidQuery(t *testing.T) {
	store := newItemStore(Item{ID: 1})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		GET("/v1/item/1?include_deleted=maybe").
		WithPathValue("id", "1").
		Serve(http.HandlerFunc(res.ServeFind))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	if !strings.Contains(w.Body.String(), "include_deleted") {
		t.Errorf("expected body to name the bad field, got %q", w.Body.String())
	}
	if len(store.finds) != 0 {
		t.Errorf("expected Find not to be called, got %d calls", len(store.finds))
	}
}

func TestServeList(t *testing.T) {
	store := newItemStore(Item{ID: 1, Content: "a"}, Item{ID: 2, Content: "b"}, Item{ID: 3, Content: "c"})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		GET("/v1/item?offset=1&limit=1").
		Serve(http.HandlerFunc(res.ServeList))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, ListResult{
		Offset:  1,
		Limit:   1,
		Results: []Item{{ID: 2, Content: "b"}},
	})
}

func TestServeList_DefaultLimit(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().GET("/v1/item").Serve(http.HandlerFunc(res.ServeList))

	testutil.AssertStatus(t, w, http.StatusOK)
	if len(store.lists) != 1 || store.lists[0].Limit != 10 {
		t.Errorf("expected list query with default limit 10, got %+v", store.lists)
	}
}

func TestServeList_ValidationError(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().GET("/v1/item?limit=500").Serve(http.HandlerFunc(res.ServeList))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	testutil.AssertBody(t, w, "invalid query: Limit: must be at most 100")
	if len(store.lists) != 0 {
		t.Error("expected List not to be called")
	}
}

func TestServeList_Error(t *testing.T) {
	store := newItemStore()
	store.listErr = errStore
	res := newItemResource(t, store)

	w := testutil.NewRequest().GET("/v1/item").Serve(http.HandlerFunc(res.ServeList))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	testutil.AssertBody(t, w, errStore.Error())
}

func TestServeCreate(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		POST("/v1/item").
		WithJSON(NewItem{Content: "hello"}).
		Serve(http.HandlerFunc(res.ServeCreate))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, Item{ID: 1, Content: "hello"})
	if len(store.saves) != 1 || store.saves[0].Content != "hello" {
		t.Errorf("expected Save with decoded payload, got %+v", store.saves)
	}
	if _, ok := store.items[1]; !ok {
		t.Error("expected item to be stored")
	}
}

func TestServeCreate_SaveQuery(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		POST("/v1/item").
		WithQuery("dry_run", "true").
		WithJSON(NewItem{Content: "hello"}).
		Serve(http.HandlerFunc(res.ServeCreate))

	testutil.AssertStatus(t, w, http.StatusOK)
	if len(store.items) != 0 {
		t.Errorf("expected dry run not to store, got %d items", len(store.items))
	}
}

func TestServeCreate_BadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"content":`, "invalid body"},
		{"empty", ``, "invalid body: empty body"},
		{"null", `null`, "invalid body: empty body"},
		{"wrong type", `{"content": 5}`, "invalid body"},
		{"validation", `{"content": ""}`, "invalid body: Content: required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newItemStore()
			res := newItemResource(t, store)

			w := testutil.NewRequest().
				POST("/v1/item").
				WithBody(tt.body).
				Serve(http.HandlerFunc(res.ServeCreate))

			testutil.AssertStatus(t, w, http.StatusBadRequest)
			if !strings.HasPrefix(w.Body.String(), tt.want) {
				t.Errorf("expected body starting with %q, got %q", tt.want, w.Body.String())
			}
			if len(store.saves) != 0 {
				t.Error("expected Save not to be called")
			}
		})
	}
}

func TestServeCreate_SaveError(t *testing.T) {
	store := newItemStore()
	store.saveErr = errors.New("duplicate content")
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		POST("/v1/item").
		WithJSON(NewItem{Content: "x"}).
		Serve(http.HandlerFunc(res.ServeCreate))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	testutil.AssertBody(t, w, "duplicate content")
}

func TestServeUpdate_PassesBodyNotFound(t *testing.T) {
	store := newItemStore(Item{ID: 7, Content: "stored"})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		PUT("/v1/item/7?include_deleted=true").
		WithPathValue("id", "7").
		WithJSON(UpdatableItem{ID: 7, Content: "from body"}).
		Serve(http.HandlerFunc(res.ServeUpdate))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, UpdatableItem{ID: 7, Content: "from body"})

	if len(store.updates) != 1 || store.updates[0].Content != "from body" {
		t.Fatalf("expected Update with body payload, got %+v", store.updates)
	}
	if len(store.finds) != 1 {
		t.Fatalf("expected 1 existence check, got %d", len(store.finds))
	}
	if q := store.finds[0].query; q.Fields != "all" || q.IncludeDeleted {
		t.Errorf("expected existence check with default find query, got %+v", q)
	}
}

func TestServeUpdate_NotFound(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		PUT("/v1/item/7").
		WithPathValue("id", "7").
		WithJSON(UpdatableItem{ID: 7, Content: "x"}).
		Serve(http.HandlerFunc(res.ServeUpdate))

	testutil.AssertStatus(t, w, http.StatusNotFound)
	testutil.AssertBody(t, w, NotFoundBody)
	if len(store.updates) != 0 {
		t.Error("expected Update not to be called")
	}
}

func TestServeUpdate_BadBody(t *testing.T) {
	store := newItemStore(Item{ID: 7})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		PUT("/v1/item/7").
		WithPathValue("id", "7").
		WithBody(`{"id": "seven"}`).
		Serve(http.HandlerFunc(res.ServeUpdate))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	if len(store.finds) != 0 || len(store.updates) != 0 {
		t.Errorf("expected no domain calls, got %d finds and %d updates", len(store.finds), len(store.updates))
	}
}

func TestServeUpdate_Error(t *testing.T) {
	store := newItemStore(Item{ID: 7})
	store.updateErr = errStore
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		PUT("/v1/item/7").
		WithPathValue("id", "7").
		WithJSON(UpdatableItem{ID: 7, Content: "x"}).
		Serve(http.HandlerFunc(res.ServeUpdate))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	testutil.AssertBody(t, w, errStore.Error())
}

func TestServeDelete(t *testing.T) {
	store := newItemStore(Item{ID: 3, Content: "doomed"})
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		DELETE("/v1/item/3?hard=true&include_deleted=true").
		WithPathValue("id", "3").
		Serve(http.HandlerFunc(res.ServeDelete))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, Item{ID: 3, Content: "doomed", Deleted: true})

	if len(store.deletes) != 1 {
		t.Fatalf("expected exactly 1 Delete call, got %d", len(store.deletes))
	}
	if store.deletes[0] != (Item{ID: 3, Content: "doomed"}) {
		t.Errorf("expected Delete to receive the found item, got %+v", store.deletes[0])
	}
	if q := store.finds[0].query; q.IncludeDeleted || q.Fields != "all" {
		t.Errorf("expected request query not to reach Find, got %+v", q)
	}
	if _, ok := store.items[3]; ok {
		t.Error("expected hard delete to remove the item")
	}
}

func TestServeDelete_NotFound(t *testing.T) {
	store := newItemStore()
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		DELETE("/v1/item/3").
		WithPathValue("id", "3").
		Serve(http.HandlerFunc(res.ServeDelete))

	testutil.AssertStatus(t, w, http.StatusNotFound)
	testutil.AssertBody(t, w, NotFoundBody)
	if len(store.deletes) != 0 {
		t.Error("expected Delete not to be called")
	}
}

func TestServeDelete_Error(t *testing.T) {
	store := newItemStore(Item{ID: 3})
	store.deleteErr = errStore
	res := newItemResource(t, store)

	w := testutil.NewRequest().
		DELETE("/v1/item/3").
		WithPathValue("id", "3").
		Serve(http.HandlerFunc(res.ServeDelete))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	testutil.AssertBody(t, w, errStore.Error())
}

func TestServe_MissingPathValue(t *testing.T) {
	store := newItemStore(Item{ID: 1})
	res := newItemResource(t, store)

	for _, h := range []http.HandlerFunc{res.ServeFind, res.ServeUpdate, res.ServeDelete} {
		w := testutil.NewRequest().PUT("/v1/item/").WithJSON(UpdatableItem{}).Serve(h)
		testutil.AssertStatus(t, w, http.StatusNotFound)
		testutil.AssertBody(t, w, NotFoundBody)
	}
	if len(store.finds) != 0 {
		t.Errorf("expected no Find calls, got %d", len(store.finds))
	}
}
