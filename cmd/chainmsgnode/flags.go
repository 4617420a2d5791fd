package main

import (
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/chainmsg/config"
	"github.com/tos-network/chainmsg/internal/flags"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file (overrides defaults; CLI flags override the file)",
		Category: flags.MiscCategory,
	}
	hostFlag = &cli.StringFlag{
		Name:     "host",
		Usage:    "address this node binds its listener to and advertises to peers",
		Category: flags.NetworkingCategory,
	}
	portFlag = &cli.IntFlag{
		Name:     "port",
		Usage:    "TCP port the peer socket listens on",
		Category: flags.NetworkingCategory,
	}
	maxConnectionsFlag = &cli.IntFlag{
		Name:     "max-connections",
		Usage:    "maximum concurrent peer connections",
		Category: flags.NetworkingCategory,
	}
	broadcastPortFlag = &cli.IntFlag{
		Name:     "broadcast-port",
		Usage:    "UDP port for LAN discovery announce/listen",
		Category: flags.DiscoveryCategory,
	}
	directoryFlag = &cli.StringFlag{
		Name:     "directory",
		Usage:    "rendez-vous directory address (host:port); empty disables it",
		Category: flags.DiscoveryCategory,
	}
	difficultyFlag = &cli.IntFlag{
		Name:     "difficulty",
		Usage:    "local proof-of-work difficulty (leading zero hex nibbles)",
		Category: flags.MinerCategory,
	}
	keyfileFlag = &cli.StringFlag{
		Name:     "keyfile",
		Usage:    "path to this node's encrypted signing keyfile",
		Category: flags.MiscCategory,
	}
	keyfilePasswordFileFlag = &cli.StringFlag{
		Name:     "keyfile-passwordfile",
		Usage:    "file containing the keyfile passphrase, instead of a terminal prompt",
		Category: flags.MiscCategory,
	}
	verbosityFlag = &cli.StringFlag{
		Name:     "verbosity",
		Usage:    "log verbosity: debug, info, warn, or error",
		Value:    "info",
		Category: flags.LoggingCategory,
	}
)

var nodeFlags = []cli.Flag{
	configFlag,
	hostFlag,
	portFlag,
	maxConnectionsFlag,
	broadcastPortFlag,
	directoryFlag,
	difficultyFlag,
	keyfileFlag,
	keyfilePasswordFileFlag,
	verbosityFlag,
}

func parseVerbosity(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyFlagOverrides merges CLI flags over a config loaded from file (or
// config.Default() if no --config was given), CLI flags taking priority.
func applyFlagOverrides(ctx *cli.Context, cfg config.Config) config.Config {
	if ctx.IsSet(hostFlag.Name) {
		cfg.Host = ctx.String(hostFlag.Name)
	}
	if ctx.IsSet(portFlag.Name) {
		cfg.Port = ctx.Int(portFlag.Name)
	}
	if ctx.IsSet(maxConnectionsFlag.Name) {
		cfg.MaxConnections = ctx.Int(maxConnectionsFlag.Name)
	}
	if ctx.IsSet(broadcastPortFlag.Name) {
		cfg.BroadcastPort = ctx.Int(broadcastPortFlag.Name)
	}
	if ctx.IsSet(directoryFlag.Name) {
		cfg.DirectoryAddress = ctx.String(directoryFlag.Name)
	}
	if ctx.IsSet(difficultyFlag.Name) {
		cfg.Difficulty = ctx.Int(difficultyFlag.Name)
	}
	if ctx.IsSet(keyfileFlag.Name) {
		cfg.KeyFile = ctx.String(keyfileFlag.Name)
	}
	return cfg
}
