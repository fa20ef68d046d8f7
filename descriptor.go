package restful

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/broady/restful/internal/attr"
)

// Meta marks a struct as carrying a resource description. Embed it and attach
// the type list in a `restful` tag and the route declaration in a `route` tag:
//
//	type itemStore struct {
//		restful.Meta `restful:"id=int64,find=FindQuery,list=ListQuery,delete=DeleteQuery,create=SaveQuery,update=UpdateQuery" route:"scope=/v1,path=item"`
//		db *sql.DB
//	}
//
// Meta has no fields and does not affect encoding of the enclosing struct.
type Meta struct{}

var metaType = reflect.TypeFor[Meta]()

// Attribute keys of the descriptor language.
const (
	KeyName   = "name"
	KeyID     = "id"
	KeyFind   = "find"
	KeyList   = "list"
	KeyDelete = "delete"
	KeyCreate = "create"
	KeyUpdate = "update"
	KeyScope  = "scope"
	KeyPath   = "path"
)

var (
	typeKeys  = []string{KeyName, KeyID, KeyFind, KeyList, KeyDelete, KeyCreate, KeyUpdate}
	routeKeys = []string{KeyScope, KeyPath}
)

// Spec is the syntactic form of a resource description: every type is still
// a name. Resolve turns it into a Descriptor.
type Spec struct {
	Name        string
	ID          string
	FindQuery   string
	ListQuery   string
	DeleteQuery string
	CreateQuery string
	UpdateQuery string
	Scope       string
	Path        string
}

// ParseSpec parses an attribute list containing all descriptor keys, as used by
// the //restful:resource source directive. name is used unless the text sets one.
func ParseSpec(name, text string) (Spec, error) {
	spec := Spec{Name: name}
	if err := spec.apply(text, append(append([]string{}, typeKeys...), routeKeys...)); err != nil {
		return Spec{}, err
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// SpecOf reads the Meta tags of a resource value or type.
func SpecOf(v any) (Spec, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return Spec{}, &DescriptorError{Reason: fmt.Sprintf("%v is not a struct type", t)}
	}

	field, ok := metaField(t)
	if !ok {
		return Spec{}, &DescriptorError{Resource: t.Name(), Reason: "missing embedded restful.Meta"}
	}

	spec := Spec{Name: t.Name()}
	typesTag, ok := field.Tag.Lookup("restful")
	if !ok {
		return Spec{}, &DescriptorError{Resource: spec.Name, Reason: "missing restful tag on restful.Meta"}
	}
	if err := spec.apply(typesTag, typeKeys); err != nil {
		return Spec{}, err
	}
	routeTag, ok := field.Tag.Lookup("route")
	if !ok {
		return Spec{}, &DescriptorError{Resource: spec.Name, Reason: "missing route tag on restful.Meta"}
	}
	if err := spec.apply(routeTag, routeKeys); err != nil {
		return Spec{}, err
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func metaField(t reflect.Type) (reflect.StructField, bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Type == metaType {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func (s *Spec) apply(text string, allowed []string) error {
	list, err := attr.Parse(text)
	if err != nil {
		return &DescriptorError{Resource: s.Name, Reason: "malformed attributes", Err: err}
	}
	for _, a := range list {
		if !slices.Contains(allowed, a.Key) {
			return &DescriptorError{Resource: s.Name, Field: a.Key, Reason: fmt.Sprintf("unknown key (allowed: %s)", strings.Join(allowed, ", "))}
		}
		*s.slot(a.Key) = a.Value
	}
	return nil
}

func (s *Spec) slot(key string) *string {
	switch key {
	case KeyName:
		return &s.Name
	case KeyID:
		return &s.ID
	case KeyFind:
		return &s.FindQuery
	case KeyList:
		return &s.ListQuery
	case KeyDelete:
		return &s.DeleteQuery
	case KeyCreate:
		return &s.CreateQuery
	case KeyUpdate:
		return &s.UpdateQuery
	case KeyScope:
		return &s.Scope
	case KeyPath:
		return &s.Path
	}
	panic("restful: unknown descriptor key " + key)
}

// Validate reports the first required key that is absent or empty, and a
// scope without a leading slash.
func (s Spec) Validate() error {
	for _, key := range []string{KeyID, KeyFind, KeyList, KeyDelete, KeyCreate, KeyUpdate, KeyScope, KeyPath} {
		if *s.slot(key) == "" {
			return &DescriptorError{Resource: s.Name, Field: key, Reason: "required"}
		}
	}
	return checkScope(s.Name, s.Scope)
}

// checkScope rejects scopes that ServeMux would read as a host name.
func checkScope(resource, scope string) error {
	if !strings.HasPrefix(scope, "/") {
		return &DescriptorError{Resource: resource, Field: KeyScope, Reason: fmt.Sprintf("%q must start with /", scope)}
	}
	return nil
}

// Attrs renders the spec in the attribute language.
func (s Spec) Attrs() string {
	var list attr.List
	for _, key := range append(append([]string{}, typeKeys...), routeKeys...) {
		if v := *s.slot(key); v != "" {
			list = append(list, attr.Attr{Key: key, Value: v})
		}
	}
	return list.String()
}

// Resolve binds every type name of the spec to a concrete type. Names are
// looked up among the predeclared scalar types and the given candidates, which
// may be values or reflect.Type. A candidate matches by its bare name (FindQuery)
// or its package-qualified name (api.FindQuery).
func (s Spec) Resolve(candidates ...any) (Descriptor, error) {
	if err := s.Validate(); err != nil {
		return Descriptor{}, err
	}

	known := make(map[string]reflect.Type, len(builtinTypes)+2*len(candidates))
	for name, t := range builtinTypes {
		known[name] = t
	}
	for _, c := range candidates {
		t, ok := c.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(c)
		}
		if t == nil {
			continue
		}
		known[t.String()] = t
		if t.Name() != "" {
			known[t.Name()] = t
		}
	}

	d := Descriptor{Name: s.Name, Scope: s.Scope, Path: s.Path}
	slots := []struct {
		key string
		dst *reflect.Type
	}{
		{KeyID, &d.ID},
		{KeyFind, &d.FindQuery},
		{KeyList, &d.ListQuery},
		{KeyDelete, &d.DeleteQuery},
		{KeyCreate, &d.CreateQuery},
		{KeyUpdate, &d.UpdateQuery},
	}
	for _, sl := range slots {
		name := *s.slot(sl.key)
		t, ok := known[name]
		if !ok {
			return Descriptor{}, &DescriptorError{Resource: s.Name, Field: sl.key, Reason: fmt.Sprintf("unresolved type %q", name)}
		}
		*sl.dst = t
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Routes returns the route table for the spec without handlers attached.
func (s Spec) Routes() []Route {
	return buildRoutes(s.Name, s.Scope, s.Path, nil)
}

var builtinTypes = map[string]reflect.Type{
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
}

// Descriptor describes one resource family: its identifier type, the query
// type of each operation and where its routes live. A Descriptor is built once
// at startup and never modified afterwards.
type Descriptor struct {
	Name        string
	ID          reflect.Type
	FindQuery   reflect.Type
	ListQuery   reflect.Type
	DeleteQuery reflect.Type
	CreateQuery reflect.Type
	UpdateQuery reflect.Type
	Scope       string
	Path        string
}

// Validate checks that every type slot is set, scope and path are non-empty
// and scope starts with a slash.
func (d Descriptor) Validate() error {
	slots := []struct {
		key string
		t   reflect.Type
	}{
		{KeyID, d.ID},
		{KeyFind, d.FindQuery},
		{KeyList, d.ListQuery},
		{KeyDelete, d.DeleteQuery},
		{KeyCreate, d.CreateQuery},
		{KeyUpdate, d.UpdateQuery},
	}
	for _, sl := range slots {
		if sl.t == nil {
			return &DescriptorError{Resource: d.Name, Field: sl.key, Reason: "type not set"}
		}
	}
	if d.Scope == "" {
		return &DescriptorError{Resource: d.Name, Field: KeyScope, Reason: "required"}
	}
	if d.Path == "" {
		return &DescriptorError{Resource: d.Name, Field: KeyPath, Reason: "required"}
	}
	return checkScope(d.Name, d.Scope)
}

// ParseDescriptor reads the Meta tags of resource and resolves the named types
// against types. See Spec.Resolve for the lookup rules.
func ParseDescriptor(resource any, types ...any) (Descriptor, error) {
	spec, err := SpecOf(resource)
	if err != nil {
		return Descriptor{}, err
	}
	return spec.Resolve(types...)
}

// MustParseDescriptor is like ParseDescriptor but panics on error.
// It simplifies package-level variable initialization.
func MustParseDescriptor(resource any, types ...any) Descriptor {
	d, err := ParseDescriptor(resource, types...)
	if err != nil {
		panic(err)
	}
	return d
}
