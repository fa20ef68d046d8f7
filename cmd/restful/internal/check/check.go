// Package check implements the restful check command.
package check

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/broady/restful/internal/directive"
	"github.com/broady/restful/internal/manifest"
)

type Cmd struct {
	Package string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	File    string `help:"Also validate a resource manifest." short:"f" type:"existingfile"`
}

func (c *Cmd) Run(out io.Writer) error {
	ok := color.New(color.FgGreen).Sprint("✓")

	result, err := directive.CheckDir(directive.Locate(c.Package))
	if err != nil {
		return fmt.Errorf("check %s: %w", c.Package, err)
	}

	if len(result.Resources) == 0 {
		fmt.Fprintf(out, "%s no //restful:resource directives in %s\n",
			color.New(color.FgYellow).Sprint("!"), result.PackagePath)
	}
	for _, res := range result.Resources {
		fmt.Fprintf(out, "%s %s (%s): entity %s, state %s\n",
			ok, res.Spec.Name, res.TypeName, res.Entity, res.State)
		for _, r := range res.Spec.Routes() {
			fmt.Fprintf(out, "    %s\n", color.New(color.FgCyan).Sprint(r.Pattern()))
		}
	}

	if c.File != "" {
		m, err := manifest.Load(c.File)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s: %d resources\n", ok, c.File, len(m.Resources))
	}

	fmt.Fprintf(out, "%s %d resources, %d routes\n", ok, len(result.Resources), 5*len(result.Resources))
	return nil
}
