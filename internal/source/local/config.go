package local

import (
	"strings"

	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/options"
)

// Config holds all information needed to access a file on the local
// filesystem.
type Config struct {
	Path string

	Sync bool `option:"sync" help:"fsync the file and its directory after writing (default: true)"`
}

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{
		Sync: true,
	}
}

func init() {
	options.Register("local", Config{})
}

// ParseConfig parses a local location, like "local:/srv/files/x.sealed".
func ParseConfig(s string) (*Config, error) {
	path, ok := strings.CutPrefix(s, "local:")
	if !ok {
		return nil, errors.New(`invalid format, prefix "local" not found`)
	}

	cfg := NewConfig()
	cfg.Path = path
	return &cfg, nil
}
