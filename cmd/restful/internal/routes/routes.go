// Package routes implements the restful routes command.
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/broady/restful"
	"github.com/broady/restful/internal/directive"
	"github.com/broady/restful/internal/discover"
	"github.com/broady/restful/internal/manifest"
	"github.com/broady/restful/internal/runner"
)

type Cmd struct {
	File     string `help:"Resource manifest to read." short:"f" type:"existingfile" xor:"source"`
	Package  string `help:"Package with //restful:resource directives." short:"p" xor:"source"`
	Live     string `help:"Build a package and list the routes of its *restful.App export." xor:"source" placeholder:"PKG"`
	Export   string `help:"Export function name (required if multiple exports exist)." short:"e"`
	Resource string `help:"Only list routes of this resource." short:"r"`
	Format   string `help:"Output format." enum:"text,json,yaml" default:"text"`
}

// Entry is one listed route.
type Entry struct {
	Method   string `json:"method" yaml:"method"`
	Path     string `json:"path" yaml:"path"`
	Op       string `json:"op" yaml:"op"`
	Resource string `json:"resource" yaml:"resource"`
}

func (c *Cmd) Run(out io.Writer) error {
	entries, err := c.collect()
	if err != nil {
		return err
	}

	switch c.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			color.New(methodColor(e.Method)).Sprint(e.Method), e.Path, e.Resource+"."+e.Op)
	}
	return tw.Flush()
}

func (c *Cmd) collect() ([]Entry, error) {
	switch {
	case c.Live != "":
		return c.live()
	case c.Package != "":
		result, err := directive.ParseDir(directive.Locate(c.Package))
		if err != nil {
			return nil, err
		}
		specs := make([]restful.Spec, 0, len(result.Resources))
		for _, d := range result.Resources {
			specs = append(specs, d.Spec)
		}
		return c.fromSpecs(specs), nil
	}

	file := c.File
	if file == "" {
		file = manifest.DefaultFile
	}
	m, err := manifest.Load(file)
	if err != nil {
		return nil, err
	}
	return c.fromSpecs(m.Specs()), nil
}

func (c *Cmd) fromSpecs(specs []restful.Spec) []Entry {
	entries := []Entry{}
	for _, s := range specs {
		if c.Resource != "" && s.Name != c.Resource {
			continue
		}
		for _, r := range s.Routes() {
			entries = append(entries, Entry{Method: r.Method, Path: r.Path, Op: string(r.Op), Resource: r.Resource})
		}
	}
	return entries
}

func (c *Cmd) live() ([]Entry, error) {
	result, err := discover.FindDir(directive.Locate(c.Live))
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if result.PackageName != "main" {
		return nil, errors.New("--live needs a main package")
	}

	export, err := discover.SelectExport(result.Exports, c.Export)
	if err != nil {
		return nil, err
	}

	routes, err := runner.Routes(runner.Options{
		Export:   *export,
		Resource: c.Resource,
		PkgDir:   result.Dir,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(routes))
	for i, r := range routes {
		entries[i] = Entry(r)
	}
	return entries, nil
}

func methodColor(method string) color.Attribute {
	switch method {
	case "GET":
		return color.FgGreen
	case "POST":
		return color.FgYellow
	case "PUT":
		return color.FgBlue
	case "DELETE":
		return color.FgRed
	}
	return color.Reset
}
