package directive

import (
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/broady/restful"
)

// Resource is a resource directive whose annotated type has been checked
// against the operations contract.
type Resource struct {
	Directive

	// Entity is the resource type returned by Find, Save and Delete.
	Entity string
	// State is the shared state type passed to every operation.
	State string
}

// TypedResult contains resource directives with validated type information.
type TypedResult struct {
	Resources   []Resource
	PackagePath string
	Dir         string
}

// Check scans a Go package for resource directives and validates the method
// set of each annotated type.
//
// The annotated type T (or *T) must have the methods
//
//	Find(context.Context, ID, FQ, S) (R, error)
//	List(context.Context, LQ, S) (L, error)
//	Delete(context.Context, R, DQ, S) (R, error)
//	Save(context.Context, N, SQ, S) (R, error)
//	Update(context.Context, U, UQ, S) (U, error)
//
// where ID and the query types are the ones named by the directive, and R and S
// are the same in every method.
func Check(pattern string) (*TypedResult, error) {
	return CheckDir(pattern, "")
}

// CheckDir is like Check but allows specifying a working directory.
func CheckDir(pattern, dir string) (*TypedResult, error) {
	pkg, err := load(pattern, dir, packages.NeedName|packages.NeedFiles|packages.NeedSyntax|
		packages.NeedTypes|packages.NeedTypesInfo)
	if err != nil {
		return nil, err
	}

	parsed, err := parsePackage(pkg)
	if err != nil {
		return nil, err
	}

	result := &TypedResult{
		PackagePath: parsed.PackagePath,
		Dir:         parsed.Dir,
	}
	for _, d := range parsed.Resources {
		res, err := checkResource(pkg.Types, d)
		if err != nil {
			return nil, err
		}
		result.Resources = append(result.Resources, *res)
	}
	return result, nil
}

// checker accumulates the types shared between methods while they are validated.
type checker struct {
	pkg   *types.Package
	d     Directive
	mset  *types.MethodSet
	state types.Type
	ent   types.Type
}

func checkResource(pkg *types.Package, d Directive) (*Resource, error) {
	obj, ok := pkg.Scope().Lookup(d.TypeName).(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%s: type %s not found in package scope", d.Pos, d.TypeName)
	}

	c := &checker{pkg: pkg, d: d, mset: types.NewMethodSet(types.NewPointer(obj.Type()))}

	declared := make(map[string]types.Type)
	for _, key := range []string{restful.KeyID, restful.KeyFind, restful.KeyList, restful.KeyDelete, restful.KeyCreate, restful.KeyUpdate} {
		name := specValue(d.Spec, key)
		t, err := resolve(pkg, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %s=%s: %v", d.Pos, key, name, err)
		}
		declared[key] = t
	}

	// Find establishes the entity and state types the other methods must agree with.
	find, err := c.method("Find", 4)
	if err != nil {
		return nil, err
	}
	if err := c.param(find, "Find", 1, declared[restful.KeyID], "id"); err != nil {
		return nil, err
	}
	if err := c.param(find, "Find", 2, declared[restful.KeyFind], "find query"); err != nil {
		return nil, err
	}
	c.state = find.Params().At(3).Type()
	c.ent = find.Results().At(0).Type()

	list, err := c.method("List", 3)
	if err != nil {
		return nil, err
	}
	if err := c.param(list, "List", 1, declared[restful.KeyList], "list query"); err != nil {
		return nil, err
	}
	if err := c.param(list, "List", 2, c.state, "state"); err != nil {
		return nil, err
	}

	del, err := c.method("Delete", 4)
	if err != nil {
		return nil, err
	}
	if err := c.params(del, "Delete", c.ent, declared[restful.KeyDelete]); err != nil {
		return nil, err
	}
	if err := c.result(del, "Delete", c.ent); err != nil {
		return nil, err
	}

	save, err := c.method("Save", 4)
	if err != nil {
		return nil, err
	}
	if err := c.params(save, "Save", nil, declared[restful.KeyCreate]); err != nil {
		return nil, err
	}
	if err := c.result(save, "Save", c.ent); err != nil {
		return nil, err
	}

	upd, err := c.method("Update", 4)
	if err != nil {
		return nil, err
	}
	if err := c.params(upd, "Update", nil, declared[restful.KeyUpdate]); err != nil {
		return nil, err
	}
	if err := c.result(upd, "Update", upd.Params().At(1).Type()); err != nil {
		return nil, err
	}

	return &Resource{
		Directive: d,
		Entity:    c.typeString(c.ent),
		State:     c.typeString(c.state),
	}, nil
}

// method looks up name on the pointer method set and checks its shape: n
// parameters starting with a context.Context, and a (T, error) result.
func (c *checker) method(name string, n int) (*types.Signature, error) {
	sel := c.mset.Lookup(c.pkg, name)
	if sel == nil {
		return nil, fmt.Errorf("%s: %s has no %s method", c.d.Pos, c.d.TypeName, name)
	}
	sig, ok := sel.Obj().Type().(*types.Signature)
	if !ok {
		return nil, fmt.Errorf("%s: %s.%s has invalid type", c.d.Pos, c.d.TypeName, name)
	}

	if sig.Params().Len() != n {
		return nil, fmt.Errorf("%s: %s.%s must have %d parameters\n  got: func(%s)",
			c.d.Pos, c.d.TypeName, name, n, c.formatParams(sig.Params()))
	}
	if !isContext(sig.Params().At(0).Type()) {
		return nil, fmt.Errorf("%s: %s.%s first parameter must be context.Context\n  got: %s",
			c.d.Pos, c.d.TypeName, name, c.typeString(sig.Params().At(0).Type()))
	}
	if sig.Results().Len() != 2 || !isError(sig.Results().At(1).Type()) {
		return nil, fmt.Errorf("%s: %s.%s must return (T, error)\n  got: (%s)",
			c.d.Pos, c.d.TypeName, name, c.formatParams(sig.Results()))
	}
	return sig, nil
}

// params checks the payload (unless nil), query and state parameters
// of a three-argument method.
func (c *checker) params(sig *types.Signature, name string, payload, query types.Type) error {
	if payload != nil {
		if err := c.param(sig, name, 1, payload, "resource"); err != nil {
			return err
		}
	}
	if err := c.param(sig, name, 2, query, "query"); err != nil {
		return err
	}
	return c.param(sig, name, 3, c.state, "state")
}

func (c *checker) param(sig *types.Signature, name string, i int, want types.Type, what string) error {
	got := sig.Params().At(i).Type()
	if !types.Identical(got, want) {
		return fmt.Errorf("%s: %s.%s %s parameter is %s, want %s",
			c.d.Pos, c.d.TypeName, name, what, c.typeString(got), c.typeString(want))
	}
	return nil
}

func (c *checker) result(sig *types.Signature, name string, want types.Type) error {
	got := sig.Results().At(0).Type()
	if !types.Identical(got, want) {
		return fmt.Errorf("%s: %s.%s returns %s, want %s",
			c.d.Pos, c.d.TypeName, name, c.typeString(got), c.typeString(want))
	}
	return nil
}

func (c *checker) typeString(t types.Type) string {
	return types.TypeString(t, types.RelativeTo(c.pkg))
}

// formatParams formats a types.Tuple as a parameter list string.
func (c *checker) formatParams(params *types.Tuple) string {
	parts := make([]string, 0, params.Len())
	for i := range params.Len() {
		parts = append(parts, c.typeString(params.At(i).Type()))
	}
	return strings.Join(parts, ", ")
}

// resolve looks up a type name as written in a directive: a predeclared or
// package-level name, a pkg.Name reference to an import, optionally behind '*'.
func resolve(pkg *types.Package, name string) (types.Type, error) {
	if rest, ok := strings.CutPrefix(name, "*"); ok {
		t, err := resolve(pkg, rest)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(t), nil
	}

	var obj types.Object
	if qual, ident, ok := strings.Cut(name, "."); ok {
		for _, imp := range pkg.Imports() {
			if imp.Name() == qual {
				obj = imp.Scope().Lookup(ident)
				break
			}
		}
	} else {
		_, obj = pkg.Scope().LookupParent(name, token.NoPos)
	}

	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("unresolved type %q", name)
	}
	return tn.Type(), nil
}

func specValue(s restful.Spec, key string) string {
	switch key {
	case restful.KeyID:
		return s.ID
	case restful.KeyFind:
		return s.FindQuery
	case restful.KeyList:
		return s.ListQuery
	case restful.KeyDelete:
		return s.DeleteQuery
	case restful.KeyCreate:
		return s.CreateQuery
	case restful.KeyUpdate:
		return s.UpdateQuery
	}
	return ""
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}
