// Package options parses and applies the extended -o key=value options,
// like the s3 and sftp connection knobs. Config structs mark settable
// fields with the `option` struct tag and register themselves so the
// options can be listed.
package options

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/qinghai5060/sealio/internal/errors"
)

// Options holds options in the form key=value.
type Options map[string]string

// Help describes one registered option.
type Help struct {
	Namespace string
	Name      string
	Text      string
}

var opts []Help

// Register adds the tagged fields of cfg under the namespace ns so that
// List can print them.
func Register(ns string, cfg interface{}) {
	opts = appendAllOptions(opts, ns, cfg)
}

// List returns all registered options, sorted by namespace and name.
func List() []Help {
	list := make([]Help, len(opts))
	copy(list, opts)
	return list
}

func appendAllOptions(opts []Help, ns string, cfg interface{}) []Help {
	for _, opt := range listOptions(cfg) {
		opt.Namespace = ns
		opts = append(opts, opt)
	}

	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Namespace != opts[j].Namespace {
			return opts[i].Namespace < opts[j].Namespace
		}
		return opts[i].Name < opts[j].Name
	})
	return opts
}

// listOptions returns a Help entry for every tagged field of cfg.
func listOptions(cfg interface{}) (opts []Help) {
	// resolve indirection if cfg is a pointer
	v := reflect.Indirect(reflect.ValueOf(cfg))

	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)

		h := Help{
			Name: f.Tag.Get("option"),
			Text: f.Tag.Get("help"),
		}

		if h.Name == "" {
			continue
		}

		opts = append(opts, h)
	}

	return opts
}

// splitKeyValue splits at the first equals (=) sign.
func splitKeyValue(s string) (key string, value string) {
	key, value, _ = strings.Cut(s, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	return key, value
}

// Parse takes a slice of key=value pairs and returns an Options type.
// The key may include namespaces, separated by dots, as in
// "s3.timeout=10s". Keys are converted to lower-case.
func Parse(in []string) (Options, error) {
	opts := make(Options, len(in))

	for _, opt := range in {
		key, value := splitKeyValue(opt)

		if key == "" {
			return Options{}, errors.Fatalf("empty key is not a valid option")
		}

		if v, ok := opts[key]; ok && v != value {
			return Options{}, errors.Fatalf("key %q present more than once", key)
		}

		opts[key] = value
	}

	return opts, nil
}

// Extract returns the options in namespace ns with the namespace stripped
// from the keys.
func (o Options) Extract(ns string) Options {
	l := len(ns)
	if ns[l-1] != '.' {
		ns += "."
		l++
	}

	opts := make(Options)

	for k, v := range o {
		if !strings.HasPrefix(k, ns) {
			continue
		}

		opts[k[l:]] = v
	}

	return opts
}

// Apply sets the fields of dst carrying matching `option` struct tags.
// The namespace ns only shows up in error messages.
func (o Options) Apply(ns string, dst interface{}) error {
	v := reflect.ValueOf(dst).Elem()

	fields := make(map[string]reflect.StructField)

	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		tag := f.Tag.Get("option")

		if tag == "" {
			continue
		}

		if _, ok := fields[tag]; ok {
			panic("option tag " + tag + " is not unique in " + v.Type().Name())
		}

		fields[tag] = f
	}

	for key, value := range o {
		field, ok := fields[key]
		if !ok {
			if ns != "" {
				key = ns + "." + key
			}
			return errors.Fatalf("option %v is not known", key)
		}

		fv := v.Field(field.Index[0])
		switch field.Type.Name() {
		case "string":
			fv.SetString(value)

		case "int":
			vi, err := strconv.ParseInt(value, 0, 32)
			if err != nil {
				return err
			}
			fv.SetInt(vi)

		case "uint":
			vi, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return err
			}
			fv.SetUint(vi)

		case "bool":
			vi, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			fv.SetBool(vi)

		case "Duration":
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			fv.SetInt(int64(d))

		case "SecretString":
			fv.Set(reflect.ValueOf(NewSecretString(value)))

		default:
			panic("type " + field.Type.Name() + " not handled")
		}
	}

	return nil
}

// SecretString hides the string it wraps from accidental printing. All
// fmt verbs render it redacted, only Unwrap returns the value.
type SecretString struct {
	s *string
}

func NewSecretString(s string) SecretString {
	return SecretString{s: &s}
}

func (s SecretString) GoString() string {
	return `"` + s.String() + `"`
}

func (s SecretString) String() string {
	if s.s == nil || len(*s.s) == 0 {
		return ``
	}
	return `**redacted**`
}

func (s *SecretString) Unwrap() string {
	if s.s == nil {
		return ""
	}
	return *s.s
}
