// Command chainmsgnode runs a single chainmsg node: it starts the Framed
// Peer Socket listener, LAN discovery, the sync loop, and a minimal
// line-oriented command surface reading from stdin. Shaped like cmd/gtos's
// wiring: an urfave/cli app whose only real job is to parse flags, build a
// config, and hand off to the long-lived service object.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/chainmsg/internal/flags"
	"github.com/tos-network/chainmsg/log"
)

var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a chainmsg peer-to-peer node")
	app.Flags = append(app.Flags, nodeFlags...)
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log.SetLevel(parseVerbosity(ctx.String(verbosityFlag.Name)))
	return runNode(ctx)
}
