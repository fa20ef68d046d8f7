// Package scaffold renders starter Go files for new resources.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"go/token"
	"slices"
	"strings"
	"text/template"
	"unicode"

	"github.com/broady/restful"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// IDTypes lists the identifier types the scaffold can generate storage for.
var IDTypes = []string{"int64", "int", "int32", "uint64", "string"}

// Entity describes the resource to generate.
type Entity struct {
	Name    string // exported Go type name, e.g. "Item"
	Package string // package clause of the generated file; default "main"
	ID      string // identifier type; default "int64"
	Scope   string // route scope; default "/v1"
	Path    string // route path; default lower-cased Name
}

// GeneratedFile is a rendered file ready to be written to disk.
type GeneratedFile struct {
	Name    string // file name, e.g. "item.go"
	Content []byte
}

// WithDefaults fills the empty optional fields of e.
func (e Entity) WithDefaults() Entity {
	if e.Package == "" {
		e.Package = "main"
	}
	if e.ID == "" {
		e.ID = "int64"
	}
	if e.Scope == "" {
		e.Scope = "/v1"
	}
	if e.Path == "" {
		e.Path = lowerFirst(e.Name)
	}
	return e
}

// Validate reports whether the entity can be rendered.
func (e Entity) Validate() error {
	if !token.IsIdentifier(e.Name) || !token.IsExported(e.Name) {
		return fmt.Errorf("entity name %q must be an exported Go identifier", e.Name)
	}
	if !token.IsIdentifier(e.Package) {
		return fmt.Errorf("package name %q is not a Go identifier", e.Package)
	}
	if !slices.Contains(IDTypes, e.ID) {
		return fmt.Errorf("id type %q not supported (want one of %s)", e.ID, strings.Join(IDTypes, ", "))
	}
	if e.Scope == "" || e.Path == "" {
		return fmt.Errorf("scope and path must be non-empty")
	}
	for _, s := range []string{e.Scope, e.Path} {
		if strings.ContainsAny(s, "\", {}") {
			return fmt.Errorf("route segment %q contains reserved characters", s)
		}
	}
	return e.Spec().Validate()
}

// Spec returns the descriptor declared by the generated file.
func (e Entity) Spec() restful.Spec {
	e = e.WithDefaults()
	return restful.Spec{
		Name:        e.Name,
		ID:          e.ID,
		FindQuery:   e.Name + "FindQuery",
		ListQuery:   e.Name + "ListQuery",
		DeleteQuery: e.Name + "DeleteQuery",
		CreateQuery: e.Name + "SaveQuery",
		UpdateQuery: e.Name + "UpdateQuery",
		Scope:       e.Scope,
		Path:        e.Path,
	}
}

// Generate renders the resource file for e.
func Generate(e Entity) (*GeneratedFile, error) {
	e = e.WithDefaults()
	if err := e.Validate(); err != nil {
		return nil, err
	}

	spec := e.Spec()
	attrs := fmt.Sprintf("name=%s,id=%s,find=%s,list=%s,delete=%s,create=%s,update=%s",
		spec.Name, spec.ID, spec.FindQuery, spec.ListQuery, spec.DeleteQuery, spec.CreateQuery, spec.UpdateQuery)
	data := struct {
		Entity
		Attrs string
		Store string
		Lower string
		IntID bool
	}{
		Entity: e,
		Attrs:  attrs,
		Store:  lowerFirst(e.Name) + "Store",
		Lower:  strings.ToLower(e.Name),
		IntID:  e.ID != "string",
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "resource.go.tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", e.Name, err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w\n%s", e.Name, err, buf.Bytes())
	}

	return &GeneratedFile{
		Name:    strings.ToLower(e.Name) + ".go",
		Content: src,
	}, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
