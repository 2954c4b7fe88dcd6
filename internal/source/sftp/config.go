package sftp

import (
	"net/url"
	"path"
	"strings"

	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/options"
)

// Config collects all information required to connect to an sftp server.
type Config struct {
	User, Host, Port, Path string

	Command string `option:"command" help:"specify command to create sftp connection"`
	Args    string `option:"args" help:"specify arguments for ssh"`
}

// NewConfig returns a new config with default options applied.
func NewConfig() Config {
	return Config{}
}

func init() {
	options.Register("sftp", Config{})
}

// ParseConfig parses either the sftp://user@host[:port]/file URL form or
// the scp-like sftp:user@host:file form. The file name is path.Cleaned
// and is absolute when it starts with a slash, as in sftp://user@host//absolute
// and sftp:user@host:/absolute.
func ParseConfig(s string) (*Config, error) {
	cfg := NewConfig()

	switch {
	case strings.HasPrefix(s, "sftp://"):
		u, err := url.Parse(s)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if u.User != nil {
			cfg.User = u.User.Username()
		}
		cfg.Host = u.Hostname()
		cfg.Port = u.Port()
		if u.Path == "" {
			return nil, errors.Errorf("invalid location %q, no file name specified", s)
		}
		cfg.Path = u.Path[1:]

	case strings.HasPrefix(s, "sftp:"):
		// the scp-like form leaves "user@host:path" after the prefix
		hostpart, file, found := strings.Cut(s[5:], ":")
		if !found {
			return nil, errors.New("sftp: invalid format, hostname or path not found")
		}
		cfg.Path = file

		// the user name may itself contain an @
		if i := strings.LastIndex(hostpart, "@"); i >= 0 {
			cfg.User, cfg.Host = hostpart[:i], hostpart[i+1:]
		} else {
			cfg.Host = hostpart
		}

	default:
		return nil, errors.New(`invalid format, does not start with "sftp:"`)
	}

	cfg.Path = path.Clean(cfg.Path)
	if strings.HasPrefix(cfg.Path, "~") {
		return nil, errors.Fatal("sftp path starts with the tilde (~) character, that fails for most sftp servers.\nUse a relative path, most servers interpret this as relative to the user's home directory.")
	}

	return &cfg, nil
}
