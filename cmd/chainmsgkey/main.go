// Command chainmsgkey generates and inspects node signing keyfiles,
// shaped like cmd/toskey: an urfave/cli app with one subcommand per
// key-management operation.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/chainmsg/internal/flags"
)

var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a chainmsg node key manager")
	app.Commands = []*cli.Command{
		commandGenerate,
		commandInspect,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
