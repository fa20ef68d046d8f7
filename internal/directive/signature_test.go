package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typesFile = `package items

import (
	"context"
	"time"
)

var _ = context.Background
var _ time.Duration

type Item struct{ ID int64 }
type NewItem struct{ Content string }
type FindQuery struct{}
type ListQuery struct{}
type DeleteQuery struct{}
type SaveQuery struct{}
type UpdateQuery struct{}
type State struct{}
`

const validMethods = `package items

import "context"

//restful:resource id=int64 find=FindQuery list=ListQuery delete=DeleteQuery create=SaveQuery update=UpdateQuery scope=/v1 path=item
type store struct{}

func (store) Find(ctx context.Context, id int64, q FindQuery, s *State) (Item, error) { return Item{}, nil }
func (store) List(ctx context.Context, q ListQuery, s *State) ([]Item, error)        { return nil, nil }
func (*store) Delete(ctx context.Context, it Item, q DeleteQuery, s *State) (Item, error) {
	return it, nil
}
func (store) Save(ctx context.Context, it NewItem, q SaveQuery, s *State) (Item, error) {
	return Item{}, nil
}
func (store) Update(ctx context.Context, it Item, q UpdateQuery, s *State) (Item, error) {
	return it, nil
}
`

func TestCheck(t *testing.T) {
	dir := writeModule(t, map[string]string{"types.go": typesFile, "store.go": validMethods})

	result, err := CheckDir(".", dir)
	require.NoError(t, err)
	require.Len(t, result.Resources, 1)

	res := result.Resources[0]
	assert.Equal(t, "store", res.TypeName)
	assert.Equal(t, "Item", res.Entity)
	assert.Equal(t, "*State", res.State)
	assert.Equal(t, "example.com/items", result.PackagePath)
}

func TestCheck_QualifiedAndPointerNames(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"types.go": typesFile,
		"store.go": `package items

import (
	"context"
	"time"
)

//restful:resource id=time.Duration find=*FindQuery list=ListQuery delete=DeleteQuery create=SaveQuery update=UpdateQuery scope=/v1 path=item
type store struct{}

func (store) Find(ctx context.Context, id time.Duration, q *FindQuery, s State) (Item, error) { return Item{}, nil }
func (store) List(ctx context.Context, q ListQuery, s State) (int, error)                       { return 0, nil }
func (store) Delete(ctx context.Context, it Item, q DeleteQuery, s State) (Item, error)         { return it, nil }
func (store) Save(ctx context.Context, it NewItem, q SaveQuery, s State) (Item, error)          { return Item{}, nil }
func (store) Update(ctx context.Context, it NewItem, q UpdateQuery, s State) (NewItem, error)   { return it, nil }
`,
	})

	result, err := CheckDir(".", dir)
	require.NoError(t, err)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "State", result.Resources[0].State)
}

func TestCheck_Errors(t *testing.T) {
	const header = `package items

import "context"

//restful:resource id=int64 find=FindQuery list=ListQuery delete=DeleteQuery create=SaveQuery update=UpdateQuery scope=/v1 path=item
type store struct{}
`
	const (
		find   = "func (store) Find(ctx context.Context, id int64, q FindQuery, s *State) (Item, error) { return Item{}, nil }\n"
		list   = "func (store) List(ctx context.Context, q ListQuery, s *State) ([]Item, error) { return nil, nil }\n"
		del    = "func (store) Delete(ctx context.Context, it Item, q DeleteQuery, s *State) (Item, error) { return it, nil }\n"
		save   = "func (store) Save(ctx context.Context, it NewItem, q SaveQuery, s *State) (Item, error) { return Item{}, nil }\n"
		update = "func (store) Update(ctx context.Context, it Item, q UpdateQuery, s *State) (Item, error) { return it, nil }\n"
	)

	tests := []struct {
		name    string
		methods string
		wantErr string
	}{
		{
			name:    "missing method",
			methods: find + list + del + save,
			wantErr: "store has no Update method",
		},
		{
			name:    "wrong id type",
			methods: "func (store) Find(ctx context.Context, id string, q FindQuery, s *State) (Item, error) { return Item{}, nil }\n" + list + del + save + update,
			wantErr: "store.Find id parameter is string, want int64",
		},
		{
			name:    "wrong query type",
			methods: find + "func (store) List(ctx context.Context, q FindQuery, s *State) ([]Item, error) { return nil, nil }\n" + del + save + update,
			wantErr: "store.List list query parameter is FindQuery, want ListQuery",
		},
		{
			name:    "state mismatch",
			methods: find + list + del + "func (store) Save(ctx context.Context, it NewItem, q SaveQuery, s State) (Item, error) { return Item{}, nil }\n" + update,
			wantErr: "store.Save state parameter is State, want *State",
		},
		{
			name:    "delete receives other type",
			methods: find + list + "func (store) Delete(ctx context.Context, it NewItem, q DeleteQuery, s *State) (Item, error) { return Item{}, nil }\n" + save + update,
			wantErr: "store.Delete resource parameter is NewItem, want Item",
		},
		{
			name:    "save returns other type",
			methods: find + list + del + "func (store) Save(ctx context.Context, it NewItem, q SaveQuery, s *State) (*Item, error) { return nil, nil }\n" + update,
			wantErr: "store.Save returns *Item, want Item",
		},
		{
			name:    "update returns other type",
			methods: find + list + del + save + "func (store) Update(ctx context.Context, it Item, q UpdateQuery, s *State) (NewItem, error) { return NewItem{}, nil }\n",
			wantErr: "store.Update returns NewItem, want Item",
		},
		{
			name:    "no context",
			methods: find + "func (store) List(q ListQuery, s *State, x int) ([]Item, error) { return nil, nil }\n" + del + save + update,
			wantErr: "store.List first parameter must be context.Context",
		},
		{
			name:    "wrong arity",
			methods: find + list + del + save + "func (store) Update(ctx context.Context, it Item) (Item, error) { return it, nil }\n",
			wantErr: "store.Update must have 4 parameters",
		},
		{
			name:    "no error result",
			methods: find + "func (store) List(ctx context.Context, q ListQuery, s *State) []Item { return nil }\n" + del + save + update,
			wantErr: "store.List must return (T, error)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeModule(t, map[string]string{
				"types.go": typesFile,
				"store.go": header + "\n" + tt.methods,
			})

			_, err := CheckDir(".", dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "store.go:5:")
		})
	}
}

func TestCheck_UnresolvedType(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"types.go": typesFile,
		"store.go": `package items

//restful:resource id=int64 find=Missing list=ListQuery delete=DeleteQuery create=SaveQuery update=UpdateQuery scope=/v1 path=item
type store struct{}
`,
	})

	_, err := CheckDir(".", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `find=Missing: unresolved type "Missing"`)
}

func TestCheck_PackageErrors(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"store.go": "package items\n\nvar x int = \"not an int\"\n",
	})

	_, err := CheckDir(".", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package errors")
}
