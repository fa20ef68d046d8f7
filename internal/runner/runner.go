// Package runner lists the routes of a live restful.App by building and
// running a modified version of the user's package.
//
// It uses Go's -overlay flag to replace the user's main() with a runner
// that calls the export function and prints the mounted routes as JSON.
package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/broady/restful/internal/discover"
)

const runnerFileName = "restful_runner_main_.go"

// Options configures the runner.
type Options struct {
	// Export is the function to call.
	Export discover.Export

	// Resource limits the output to the routes of one resource.
	// Empty means all resources.
	Resource string

	// PkgDir is the directory containing the package.
	PkgDir string
}

// Route is one mounted route as reported by the runner.
type Route struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Op       string `json:"op"`
	Resource string `json:"resource"`
}

// Routes builds the package, calls the export function and decodes the
// routes of the returned app.
func Routes(opts Options) ([]Route, error) {
	output, err := Exec(opts)
	if err != nil {
		return nil, err
	}
	var routes []Route
	if err := json.Unmarshal(output, &routes); err != nil {
		return nil, fmt.Errorf("decode runner output: %w\nraw output: %s", err, output)
	}
	return routes, nil
}

// Exec builds and runs the route lister, returning its stdout.
//
// It creates an overlay that:
// 1. Replaces files containing func main() with versions that have main() removed
// 2. Adds a runner file with our own main()
//
// The overlay approach lets us work with package main and unexported functions.
func Exec(opts Options) (output []byte, err error) {
	tmpDir, err := os.MkdirTemp("", "restful-routes-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	overlay := make(map[string]string)

	files, err := filepath.Glob(filepath.Join(opts.PkgDir, "*.go"))
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}

	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}

		hasMain, modified, err := removeMain(file)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", file, err)
		}

		if hasMain {
			tmpFile := filepath.Join(tmpDir, filepath.Base(file))
			if err := os.WriteFile(tmpFile, modified, 0o644); err != nil {
				return nil, fmt.Errorf("write modified %s: %w", file, err)
			}
			overlay[file] = tmpFile
		}
	}

	runnerSrc, err := Generate(opts)
	if err != nil {
		return nil, fmt.Errorf("generate runner: %w", err)
	}

	runnerFile := filepath.Join(tmpDir, runnerFileName)
	if err := os.WriteFile(runnerFile, runnerSrc, 0o644); err != nil {
		return nil, fmt.Errorf("write runner: %w", err)
	}

	// The runner maps to a "new" file in the package
	overlay[filepath.Join(opts.PkgDir, runnerFileName)] = runnerFile

	overlayData := struct {
		Replace map[string]string `json:"Replace"`
	}{Replace: overlay}

	overlayJSON, err := json.Marshal(overlayData)
	if err != nil {
		return nil, fmt.Errorf("marshal overlay: %w", err)
	}

	overlayFile := filepath.Join(tmpDir, "overlay.json")
	if err := os.WriteFile(overlayFile, overlayJSON, 0o644); err != nil {
		return nil, fmt.Errorf("write overlay: %w", err)
	}

	// Use -mod=mod to allow updating go.mod/go.sum if needed
	binaryPath := filepath.Join(tmpDir, "runner")
	buildCmd := exec.Command("go", "build", "-mod=mod", "-overlay", overlayFile, "-o", binaryPath, ".")
	buildCmd.Dir = opts.PkgDir
	buildCmd.Env = append(os.Environ(), "GOWORK=off")
	if buildOut, err := buildCmd.CombinedOutput(); err != nil {
		return buildOut, fmt.Errorf("build: %w\n%s", err, buildOut)
	}

	// Stderr stays separate so log lines from the app don't corrupt the JSON.
	var stdout, stderr bytes.Buffer
	runCmd := exec.Command(binaryPath)
	runCmd.Dir = opts.PkgDir
	runCmd.Stdout = &stdout
	runCmd.Stderr = &stderr
	if err := runCmd.Run(); err != nil {
		return stderr.Bytes(), fmt.Errorf("run: %w\n%s", err, stderr.Bytes())
	}

	return stdout.Bytes(), nil
}

// removeMain parses a Go file and returns a version with func main() removed.
// Returns (hasMain, modifiedSource, error).
func removeMain(filename string) (bool, []byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return false, nil, err
	}

	hasMain := false
	var newDecls []ast.Decl
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Name.Name == "main" && fn.Recv == nil {
			hasMain = true
			continue
		}
		newDecls = append(newDecls, decl)
	}

	if !hasMain {
		return false, nil, nil
	}

	f.Decls = newDecls

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return false, nil, err
	}

	return true, buf.Bytes(), nil
}

var runnerTemplate = template.Must(template.New("runner").Parse(`package main

import (
	restfulRunnerJSON "encoding/json"
	restfulRunnerOS "os"
)

func main() {
	type route struct {
		Method   string ` + "`json:\"method\"`" + `
		Path     string ` + "`json:\"path\"`" + `
		Op       string ` + "`json:\"op\"`" + `
		Resource string ` + "`json:\"resource\"`" + `
	}
	routes := []route{}
	for _, r := range {{.ExportFunc}}().Routes() {
{{- if .Resource}}
		if r.Resource != {{printf "%q" .Resource}} {
			continue
		}
{{- end}}
		routes = append(routes, route{r.Method, r.Path, string(r.Op), r.Resource})
	}
	if err := restfulRunnerJSON.NewEncoder(restfulRunnerOS.Stdout).Encode(routes); err != nil {
		restfulRunnerOS.Stderr.WriteString("restful routes: " + err.Error() + "\n")
		restfulRunnerOS.Exit(1)
	}
}
`))

// Generate creates the runner main() source.
func Generate(opts Options) ([]byte, error) {
	if opts.Export.Name == "" {
		return nil, fmt.Errorf("no export function")
	}

	data := struct {
		ExportFunc string
		Resource   string
	}{
		ExportFunc: opts.Export.Name,
		Resource:   opts.Resource,
	}

	var buf bytes.Buffer
	if err := runnerTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}

	return format.Source(buf.Bytes())
}
