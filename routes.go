package restful

import "net/http"

// Op names one of the five synthesized operations.
type Op string

const (
	OpFind   Op = "find"
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Route binds an HTTP method and path to the handler of one operation.
type Route struct {
	Method   string
	Path     string // e.g. "/v1/item/{id}"
	Op       Op
	Resource string
	Handler  http.Handler
}

// Pattern returns the net/http.ServeMux pattern of the route, "GET /v1/item/{id}".
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

func (r Route) String() string {
	return r.Pattern()
}

// CollectionPath joins scope and path with a single "/". Neither is
// normalized: "/v1" and "item" give "/v1/item", "/v1/" and "item" give "/v1//item".
func CollectionPath(scope, path string) string {
	return scope + "/" + path
}

// ItemPath is CollectionPath followed by the {id} wildcard.
func ItemPath(scope, path string) string {
	return CollectionPath(scope, path) + "/{" + PathParam + "}"
}

// CollectionPath returns the collection route prefix of the descriptor.
func (d Descriptor) CollectionPath() string {
	return CollectionPath(d.Scope, d.Path)
}

// ItemPath returns the item route of the descriptor.
func (d Descriptor) ItemPath() string {
	return ItemPath(d.Scope, d.Path)
}

// buildRoutes returns the fixed five-route table. handlers may be nil when
// only the shape of the table is needed.
func buildRoutes(resource, scope, path string, handlers map[Op]http.Handler) []Route {
	collection := CollectionPath(scope, path)
	item := ItemPath(scope, path)

	table := []Route{
		{Method: http.MethodGet, Path: item, Op: OpFind},
		{Method: http.MethodGet, Path: collection, Op: OpList},
		{Method: http.MethodPost, Path: collection, Op: OpCreate},
		{Method: http.MethodPut, Path: item, Op: OpUpdate},
		{Method: http.MethodDelete, Path: item, Op: OpDelete},
	}
	for i := range table {
		table[i].Resource = resource
		table[i].Handler = handlers[table[i].Op]
	}
	return table
}
