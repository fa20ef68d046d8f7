// Package manifest loads resource descriptors from a YAML file.
//
// A manifest lists resources with the same keys as the restful.Meta tags:
//
//	resources:
//	  - name: Item
//	    id: int64
//	    find: FindQuery
//	    list: ListQuery
//	    delete: DeleteQuery
//	    create: SaveQuery
//	    update: UpdateQuery
//	    scope: /v1
//	    path: item
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/broady/restful"
)

// DefaultFile is the manifest name the CLI looks for when none is given.
const DefaultFile = "restful.yaml"

// Manifest is the decoded form of a manifest file.
type Manifest struct {
	Resources []Resource `yaml:"resources"`
}

// Resource is one manifest entry.
type Resource struct {
	Name   string `yaml:"name"`
	ID     string `yaml:"id"`
	Find   string `yaml:"find"`
	List   string `yaml:"list"`
	Delete string `yaml:"delete"`
	Create string `yaml:"create"`
	Update string `yaml:"update"`
	Scope  string `yaml:"scope"`
	Path   string `yaml:"path"`

	// Line is the line of the entry in the source file, 0 when unknown.
	Line int `yaml:"-"`
}

var resourceKeys = map[string]bool{
	"name": true, "id": true, "find": true, "list": true, "delete": true,
	"create": true, "update": true, "scope": true, "path": true,
}

func (r *Resource) UnmarshalYAML(node *yaml.Node) error {
	// node.Decode does not inherit KnownFields from the outer decoder.
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !resourceKeys[key.Value] {
				return fmt.Errorf("line %d: field %s not found in resource", key.Line, key.Value)
			}
		}
	}

	type plain Resource
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Resource(p)
	r.Line = node.Line
	return nil
}

// Spec converts the entry to a restful.Spec.
func (r Resource) Spec() restful.Spec {
	return restful.Spec{
		Name:        r.Name,
		ID:          r.ID,
		FindQuery:   r.Find,
		ListQuery:   r.List,
		DeleteQuery: r.Delete,
		CreateQuery: r.Create,
		UpdateQuery: r.Update,
		Scope:       r.Scope,
		Path:        r.Path,
	}
}

// FromSpec is the inverse of Resource.Spec.
func FromSpec(s restful.Spec) Resource {
	return Resource{
		Name:   s.Name,
		ID:     s.ID,
		Find:   s.FindQuery,
		List:   s.ListQuery,
		Delete: s.DeleteQuery,
		Create: s.CreateQuery,
		Update: s.UpdateQuery,
		Scope:  s.Scope,
		Path:   s.Path,
	}
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every entry is a complete spec with a unique name.
func (m *Manifest) Validate() error {
	seen := make(map[string]int)
	for i, r := range m.Resources {
		if r.Name == "" {
			return fmt.Errorf("line %d: resource %d has no name", r.Line, i)
		}
		if prev, dup := seen[r.Name]; dup {
			return fmt.Errorf("line %d: resource %s already declared at line %d", r.Line, r.Name, prev)
		}
		seen[r.Name] = r.Line
		if err := r.Spec().Validate(); err != nil {
			return fmt.Errorf("line %d: %w", r.Line, err)
		}
	}
	return nil
}

// Specs returns the entries as restful specs, in file order.
func (m *Manifest) Specs() []restful.Spec {
	specs := make([]restful.Spec, len(m.Resources))
	for i, r := range m.Resources {
		specs[i] = r.Spec()
	}
	return specs
}

// Write encodes m as YAML.
func Write(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
