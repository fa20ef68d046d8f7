package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/broady/restful/cmd/restful/internal/check"
	"github.com/broady/restful/cmd/restful/internal/create"
	"github.com/broady/restful/cmd/restful/internal/routes"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Check   check.Cmd  `cmd:"" help:"Validate //restful:resource directives against their method sets."`
	Routes  routes.Cmd `cmd:"" help:"Print the route table of a manifest, a package or a running app."`
	New     create.Cmd `cmd:"" help:"Generate a starter resource file."`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("restful"),
		kong.Description("Inspect and scaffold restful resources."),
		kong.UsageOnError(),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
