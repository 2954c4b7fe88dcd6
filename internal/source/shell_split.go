package source

import (
	"strings"
	"unicode"

	"github.com/qinghai5060/sealio/internal/errors"
)

// SplitShellArgs returns the program name and arguments from the string
// data, which is split at (unquoted) spaces. Fields can be enclosed in
// single or double quotes, outside of quotes a backslash escapes the next
// character.
func SplitShellArgs(data string) (cmd string, args []string, err error) {
	var (
		fields  []string
		field   strings.Builder
		inField bool
		quote   rune
		escape  bool
	)

	flush := func() {
		if inField {
			fields = append(fields, field.String())
			field.Reset()
			inField = false
		}
	}

	for _, r := range data {
		switch {
		case escape:
			field.WriteRune(r)
			escape = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				field.WriteRune(r)
			}
		case r == '\\':
			escape = true
			inField = true
		case r == '\'' || r == '"':
			quote = r
			inField = true
		case unicode.IsSpace(r):
			flush()
		default:
			field.WriteRune(r)
			inField = true
		}
	}

	if escape {
		return "", nil, errors.New("escape character at end of string")
	}

	switch quote {
	case '\'':
		return "", nil, errors.New("single-quoted string not terminated")
	case '"':
		return "", nil, errors.New("double-quoted string not terminated")
	}

	flush()

	if len(fields) == 0 {
		return "", nil, errors.New("command string is empty")
	}

	return fields[0], fields[1:], nil
}
