// Package config loads node configuration from a TOML file (via
// github.com/naoina/toml), with defaults applied so a node can run from
// CLI flags alone.
package config

import (
	"io"
	"os"
	"time"

	"github.com/naoina/toml"
)

// Config holds every tunable a node needs at startup.
type Config struct {
	// Host is the address this node advertises to peers and binds its
	// listener to.
	Host string `toml:"host"`
	// Port is the TCP port the Framed Peer Socket listens on.
	Port int `toml:"port"`
	// MaxConnections bounds concurrent peer sessions.
	MaxConnections int `toml:"max_connections"`

	// BroadcastPort is the UDP port LAN discovery announces/listens on.
	BroadcastPort int `toml:"broadcast_port"`
	// BroadcastInterval is how often this node announces itself over UDP.
	BroadcastInterval Duration `toml:"broadcast_interval"`

	// DirectoryAddress is the rendez-vous directory's host:port.
	DirectoryAddress string `toml:"directory_address"`

	// SyncInterval is how often the sync loop polls peers for their chain.
	SyncInterval Duration `toml:"sync_interval"`
	// SyncTimeout is the per-round-trip timeout of the rendez-vous
	// directory client. RequestChain itself has no timeout: its reply is
	// handled whenever it arrives.
	SyncTimeout Duration `toml:"sync_timeout"`

	// Difficulty is this node's local proof-of-work difficulty policy.
	Difficulty int `toml:"difficulty"`

	// KeyFile is the path to this node's signing keyfile (see
	// cmd/chainmsgkey).
	KeyFile string `toml:"keyfile"`
}

// Default returns a Config with the values a single-node local run needs.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              30900,
		MaxConnections:    32,
		BroadcastPort:     30901,
		BroadcastInterval: Duration{5 * time.Second},
		SyncInterval:      Duration{10 * time.Second},
		SyncTimeout:       Duration{5 * time.Second},
		Difficulty:        2,
		KeyFile:           "keyfile.json",
	}
}

// Load reads and merges a TOML config file over Default().
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	if err := decode(f, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return toml.Unmarshal(data, cfg)
}
