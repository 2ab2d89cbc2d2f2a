// Package config decodes flatlined's TOML configuration file. Parsing the
// file itself is an external-collaborator concern per the specification;
// this package only defines the shape of that contract and the loader used
// to reach it, following the same field set and TOML format as the
// original implementation's config parser.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// DefaultPath is where flatlined looks for its configuration when
// -c/--config is not given.
const DefaultPath = "/etc/flat.conf"

// DefaultSocket is the control-plane socket path used when the config
// doesn't set one explicitly.
const DefaultSocket = "/var/run/flatlined.sock"

// Peer is one statically configured fleet member: a beat destination. Any
// configured peer selects client mode (see ClientMode), so a server-mode
// daemon has none; its listener accepts beats from any source and records
// new rows on demand per internal/stats.
type Peer struct {
	Address string `toml:"address"`
	Port    uint16 `toml:"port"`
	Key     string `toml:"key"`
}

// Config is the decoded form of /etc/flat.conf (or whatever -c points at).
type Config struct {
	Port    uint16 `toml:"port"`
	Logfile string `toml:"logfile"`
	Socket  string `toml:"socket"`
	Key     string `toml:"key"`
	Verbose bool   `toml:"verbose"`
	Server  []Peer `toml:"server"`
	Command string `toml:"command"`
}

// ClientMode reports whether the configuration selects client mode: the
// presence of a non-empty server list means beats are sent out, not
// listened for.
func (c Config) ClientMode() bool {
	return len(c.Server) > 0
}

// SocketPath returns the configured control socket path, falling back to
// DefaultSocket when unset.
func (c Config) SocketPath() string {
	if c.Socket == "" {
		return DefaultSocket
	}
	return c.Socket
}

// Load reads and decodes the TOML configuration file at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "loading config from %s", path)
	}
	return cfg, nil
}
