package source

import (
	"strings"

	"github.com/qinghai5060/sealio/internal/errors"
)

// Location specifies where a file lives: the scheme to reach it and the
// parsed, scheme-specific configuration.
type Location struct {
	Scheme string
	Config interface{}
}

// NoPassword returns the location unchanged, for schemes whose location
// strings carry no credentials.
func NoPassword(s string) string {
	return s
}

func isPath(s string) bool {
	if strings.HasPrefix(s, "../") || strings.HasPrefix(s, `..\`) {
		return true
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`) {
		return true
	}

	// windows drive paths like c:\dir or C:/dir
	if len(s) < 3 || s[1] != ':' {
		return false
	}
	if drive := s[0] | 0x20; drive < 'a' || drive > 'z' {
		return false
	}
	return s[2] == '\\' || s[2] == '/'
}

// Parse extracts location information from the string s. If s starts with
// a registered scheme name followed by a colon, that scheme's ParseConfig
// is used. Otherwise s is interpreted as the name of a local file.
func Parse(registry *Registry, s string) (Location, error) {
	loc := Location{Scheme: extractScheme(s)}

	factory := registry.Lookup(loc.Scheme)
	if factory == nil {
		// refuse to guess when s is not a path but contains a colon
		if !isPath(s) && strings.ContainsRune(s, ':') {
			return Location{}, errors.New("invalid scheme\nIf the file is on the local disk, you need to add a `local:` prefix")
		}

		loc.Scheme = "local"
		factory = registry.Lookup(loc.Scheme)
		if factory == nil {
			return Location{}, errors.New("local scheme not available")
		}
		s = "local:" + s
	}

	cfg, err := factory.ParseConfig(s)
	if err != nil {
		return Location{}, err
	}

	loc.Config = cfg
	return loc, nil
}

// StripPassword returns a displayable version of a location, with any
// sensitive information removed.
func StripPassword(registry *Registry, s string) string {
	factory := registry.Lookup(extractScheme(s))
	if factory != nil {
		return factory.StripPassword(s)
	}
	return s
}

func extractScheme(s string) string {
	scheme, _, _ := strings.Cut(s, ":")
	return scheme
}
