// Package create implements the restful new command.
package create

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/broady/restful/internal/manifest"
	"github.com/broady/restful/internal/scaffold"
)

type Cmd struct {
	Entity   string `help:"Exported Go type name of the resource." required:""`
	Out      string `help:"Output directory." short:"o" default:"." type:"path"`
	Package  string `help:"Package clause of the generated file." default:"main"`
	ID       string `help:"Identifier type." default:"int64" enum:"int64,int,int32,uint64,string"`
	Scope    string `help:"Route scope." default:"/v1"`
	Path     string `help:"Route path (default: entity name with a lower-case first letter)."`
	Manifest string `help:"Append the resource to this manifest file." short:"m" type:"path"`
	Force    bool   `help:"Overwrite an existing file."`
}

func (c *Cmd) Run(out io.Writer) error {
	f, err := scaffold.Generate(c.entity())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	target := filepath.Join(c.Out, f.Name)
	if !c.Force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", target)
		}
	}
	if err := os.WriteFile(target, f.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(out, "%s wrote %s\n", color.New(color.FgGreen).Sprint("✓"), target)

	if c.Manifest != "" {
		if err := c.appendManifest(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s added %s to %s\n", color.New(color.FgGreen).Sprint("✓"), c.Entity, c.Manifest)
	}
	return nil
}

func (c *Cmd) appendManifest() error {
	m := &manifest.Manifest{}
	if _, err := os.Stat(c.Manifest); err == nil {
		if m, err = manifest.Load(c.Manifest); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	m.Resources = append(m.Resources, manifest.FromSpec(c.entity().Spec()))
	if err := m.Validate(); err != nil {
		return err
	}

	file, err := os.Create(c.Manifest)
	if err != nil {
		return err
	}
	if err := manifest.Write(file, m); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (c *Cmd) entity() scaffold.Entity {
	return scaffold.Entity{
		Name:    c.Entity,
		Package: c.Package,
		ID:      c.ID,
		Scope:   c.Scope,
		Path:    c.Path,
	}.WithDefaults()
}
