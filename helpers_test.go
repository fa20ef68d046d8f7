package restful

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
)

// Test fixtures: an item resource backed by an in-memory store that records
// every domain call.

type Item struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Deleted bool   `json:"deleted"`
}

type NewItem struct {
	Content string `json:"content" validate:"required"`
}

type UpdatableItem struct {
	ID      int64  `json:"id"`
	Content string `json:"content" validate:"max=20"`
}

type FindQuery struct {
	Fields         string `schema:"fields"`
	IncludeDeleted bool   `schema:"include_deleted"`
}

func (q *FindQuery) SetDefaults() {
	q.Fields = "all"
}

type ListQuery struct {
	Offset int `schema:"offset" validate:"gte=0"`
	Limit  int `schema:"limit,default:10" validate:"gte=1,lte=100"`
}

type DeleteQuery struct {
	Hard bool `schema:"hard"`
}

type SaveQuery struct {
	DryRun bool `schema:"dry_run"`
}

type UpdateQuery struct {
	Notify bool `schema:"notify"`
}

type ListResult struct {
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	Results []Item `json:"results"`
}

type appState struct {
	name string
}

type findCall struct {
	id    int64
	query FindQuery
}

type itemStore struct {
	Meta `restful:"id=int64,find=FindQuery,list=ListQuery,delete=DeleteQuery,create=SaveQuery,update=UpdateQuery" route:"scope=/v1,path=item"`

	mu    sync.Mutex
	items map[int64]Item

	listErr   error
	deleteErr error
	saveErr   error
	updateErr error

	finds   []findCall
	lists   []ListQuery
	deletes []Item
	saves   []NewItem
	updates []UpdatableItem
	states  []*appState
}

var errStore = errors.New("store unavailable")

type itemOps = Operations[int64, Item, NewItem, UpdatableItem, ListResult, FindQuery, ListQuery, DeleteQuery, SaveQuery, UpdateQuery, *appState]

func newItemStore(items ...Item) *itemStore {
	s := &itemStore{items: make(map[int64]Item)}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *itemStore) Find(ctx context.Context, id int64, query FindQuery, state *appState) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds = append(s.finds, findCall{id: id, query: query})
	s.states = append(s.states, state)
	it, ok := s.items[id]
	if !ok {
		return Item{}, errors.New("no such item")
	}
	return it, nil
}

func (s *itemStore) List(ctx context.Context, query ListQuery, state *appState) (ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, query)
	if s.listErr != nil {
		return ListResult{}, s.listErr
	}
	res := ListResult{Offset: query.Offset, Limit: query.Limit, Results: []Item{}}
	for id := int64(1); int64(len(res.Results)) < int64(query.Limit) && id <= int64(len(s.items)+query.Offset); id++ {
		if it, ok := s.items[id]; ok && id > int64(query.Offset) {
			res.Results = append(res.Results, it)
		}
	}
	return res, nil
}

func (s *itemStore) Delete(ctx context.Context, item Item, query DeleteQuery, state *appState) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, item)
	if s.deleteErr != nil {
		return Item{}, s.deleteErr
	}
	if query.Hard {
		delete(s.items, item.ID)
	}
	item.Deleted = true
	return item, nil
}

func (s *itemStore) Save(ctx context.Context, item NewItem, query SaveQuery, state *appState) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, item)
	if s.saveErr != nil {
		return Item{}, s.saveErr
	}
	saved := Item{ID: int64(len(s.items) + 1), Content: item.Content}
	if !query.DryRun {
		s.items[saved.ID] = saved
	}
	return saved, nil
}

func (s *itemStore) Update(ctx context.Context, item UpdatableItem, query UpdateQuery, state *appState) (UpdatableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, item)
	if s.updateErr != nil {
		return UpdatableItem{}, s.updateErr
	}
	s.items[item.ID] = Item{ID: item.ID, Content: item.Content}
	return item, nil
}

func itemDescriptor(t *testing.T) Descriptor {
	t.Helper()
	desc, err := ParseDescriptor((*itemStore)(nil), FindQuery{}, ListQuery{}, DeleteQuery{}, SaveQuery{}, UpdateQuery{})
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	return desc
}

func newItemResource(t *testing.T, store *itemStore) *Resource[int64, Item, NewItem, UpdatableItem, ListResult, FindQuery, ListQuery, DeleteQuery, SaveQuery, UpdateQuery, *appState] {
	t.Helper()
	res, err := New(itemDescriptor(t), itemOps(store), &appState{name: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return res
}

// routeHandler returns the handler of op from routes.
func routeHandler(t *testing.T, routes []Route, op Op) http.Handler {
	t.Helper()
	for _, r := range routes {
		if r.Op == op {
			return r.Handler
		}
	}
	t.Fatalf("no route for %s", op)
	return nil
}
