package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewApp creates an *cli.App pre-wired with version metadata, matching the
// cmd/toskey NewApp helper shape.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("dev-%s-%s", gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2026 The chainmsg Authors"
	return app
}
