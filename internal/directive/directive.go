// Package directive parses restful directives from Go source files.
//
// A resource directive is a line comment attached to a type declaration:
//
//	//restful:resource id=int64 find=FindQuery list=ListQuery delete=DeleteQuery create=SaveQuery update=UpdateQuery scope=/v1 path=item
//	type itemStore struct {
//		db *sql.DB
//	}
//
// The attributes use the same language as the restful.Meta tags, with the
// route keys inline. The annotated type is the one implementing the domain
// operations; Check verifies its methods against the declared types.
package directive

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/broady/restful"
)

const prefix = "//restful:"

// Kind represents the type of directive.
type Kind string

const (
	KindResource Kind = "resource"
)

// Directive represents a parsed restful directive.
type Directive struct {
	Kind     Kind
	TypeName string         // name of the annotated type
	Spec     restful.Spec   // parsed attributes; Name defaults to TypeName
	Pos      token.Position // source location of the directive comment
}

// Result contains all directives found in a package.
type Result struct {
	Resources []Directive

	// PackagePath is the import path of the parsed package.
	PackagePath string

	// Dir is the directory containing the package.
	Dir string
}

// Parse scans a Go package for restful directives without type checking it.
//
// The pattern follows go command semantics: "." for the current directory,
// an import path, or a directory path. Exactly one package must match.
//
// Returns an error if:
//   - The package cannot be loaded
//   - A directive is unknown or its attributes are malformed
//   - A directive is not attached to a type declaration
//   - Two resources declare the same name
func Parse(pattern string) (*Result, error) {
	return ParseDir(pattern, "")
}

// ParseDir is like Parse but allows specifying a working directory.
// If dir is empty, the current directory is used.
func ParseDir(pattern, dir string) (*Result, error) {
	pkg, err := load(pattern, dir, packages.NeedName|packages.NeedFiles|packages.NeedSyntax)
	if err != nil {
		return nil, err
	}
	return parsePackage(pkg)
}

// Locate splits a command line package argument into a pattern and a working
// directory. A directory argument is loaded as "." from inside it, so packages
// in other modules can be named by path.
func Locate(arg string) (pattern, dir string) {
	if fi, err := os.Stat(arg); err == nil && fi.IsDir() {
		return ".", arg
	}
	return arg, ""
}

func load(pattern, dir string, mode packages.LoadMode) (*packages.Package, error) {
	cfg := &packages.Config{Mode: mode, Dir: dir}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}
	return pkg, nil
}

func parsePackage(pkg *packages.Package) (*Result, error) {
	result := &Result{PackagePath: pkg.PkgPath}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	seen := make(map[string]token.Position)
	for _, f := range pkg.Syntax {
		directives, err := parseFile(pkg.Fset, f)
		if err != nil {
			return nil, err
		}
		for _, d := range directives {
			if prev, dup := seen[d.Spec.Name]; dup {
				return nil, fmt.Errorf("%s: resource %s already declared at %s", d.Pos, d.Spec.Name, prev)
			}
			seen[d.Spec.Name] = d.Pos
			result.Resources = append(result.Resources, d)
		}
	}
	return result, nil
}

type pending struct {
	kind  Kind
	attrs string
	pos   token.Position
}

// parseFile extracts directives from a single file.
func parseFile(fset *token.FileSet, f *ast.File) ([]Directive, error) {
	// Directives are keyed by their comment group so they can be matched to
	// the declaration the group documents.
	byGroup := make(map[*ast.CommentGroup]pending)

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, prefix) {
				continue
			}

			text := strings.TrimPrefix(c.Text, prefix)
			name, attrs, _ := strings.Cut(text, " ")
			pos := fset.Position(c.Pos())

			switch Kind(name) {
			case KindResource:
				if prev, dup := byGroup[cg]; dup {
					return nil, fmt.Errorf("%s: multiple //restful:resource directives on one declaration (first at %s)", pos, prev.pos)
				}
				byGroup[cg] = pending{kind: KindResource, attrs: strings.TrimSpace(attrs), pos: pos}
			default:
				return nil, fmt.Errorf("%s: unknown directive //restful:%s", pos, name)
			}
		}
	}

	var directives []Directive
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			if doc == nil {
				continue
			}
			p, ok := byGroup[doc]
			if !ok {
				continue
			}
			delete(byGroup, doc)

			s, err := restful.ParseSpec(ts.Name.Name, p.attrs)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.pos, err)
			}
			directives = append(directives, Directive{
				Kind:     p.kind,
				TypeName: ts.Name.Name,
				Spec:     s,
				Pos:      p.pos,
			})
		}
	}

	// Check for unmatched directives
	for _, p := range byGroup {
		return nil, fmt.Errorf("%s: //restful:%s directive must be followed by a type declaration", p.pos, p.kind)
	}

	return directives, nil
}
