// Package flags groups this repository's CLI flags into the categories
// urfave/cli renders in --help output, adapted directly from
// internal/flags/categories.go (same constant-plus-init-wiring shape,
// renamed to this repo's command surface).
package flags

import "github.com/urfave/cli/v2"

const (
	NetworkingCategory = "NETWORKING"
	DiscoveryCategory  = "DISCOVERY"
	MinerCategory      = "MINER"
	LoggingCategory    = "LOGGING AND DEBUGGING"
	MiscCategory       = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
