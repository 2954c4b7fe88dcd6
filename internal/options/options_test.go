package options

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestParseOptions(t *testing.T) {
	for i, test := range []struct {
		input  []string
		output Options
	}{
		{
			input:  []string{"foo=bar", "bar=baz ", "k="},
			output: Options{"foo": "bar", "bar": "baz", "k": ""},
		},
		{
			input:  []string{"Foo=23", "baR", "k=thing with spaces"},
			output: Options{"foo": "23", "bar": "", "k": "thing with spaces"},
		},
		{
			input:  []string{"k=thing with spaces", "k2=more spaces = not evil"},
			output: Options{"k": "thing with spaces", "k2": "more spaces = not evil"},
		},
		{
			input:  []string{"x=1", "foo=bar", "y=2", "foo=bar"},
			output: Options{"x": "1", "y": "2", "foo": "bar"},
		},
	} {
		t.Run(fmt.Sprintf("test-%v", i), func(t *testing.T) {
			opts, err := Parse(test.input)
			if err != nil {
				t.Fatalf("unable to parse options: %v", err)
			}

			if !reflect.DeepEqual(opts, test.output) {
				t.Fatalf("wrong result, want:\n  %#v\ngot:\n  %#v", test.output, opts)
			}
		})
	}
}

func TestParseInvalidOptions(t *testing.T) {
	for _, test := range []struct {
		input []string
		err   string
	}{
		{
			input: []string{"=bar", "bar=baz", "k="},
			err:   "Fatal: empty key is not a valid option",
		},
		{
			input: []string{"x=1", "foo=bar", "y=2", "foo=baz"},
			err:   `Fatal: key "foo" present more than once`,
		},
	} {
		t.Run(test.err, func(t *testing.T) {
			_, err := Parse(test.input)
			if err == nil {
				t.Fatalf("expected error (%v) not found, err is nil", test.err)
			}

			if err.Error() != test.err {
				t.Fatalf("expected error %q, got %q", test.err, err.Error())
			}
		})
	}
}

func TestOptionsExtract(t *testing.T) {
	input := Options{
		"foo.bar:":     "baz",
		"s3.timeout":   "10s",
		"sftp.timeout": "5s",
		"global":       "foobar",
	}

	opts := input.Extract("s3")
	if !reflect.DeepEqual(opts, Options{"timeout": "10s"}) {
		t.Fatalf("wrong result: %#v", opts)
	}
}

// Target is used for the Apply tests.
type Target struct {
	Name    string        `option:"name"`
	ID      int           `option:"id"`
	Timeout time.Duration `option:"timeout"`
	Other   string
}

func TestOptionsApply(t *testing.T) {
	for i, test := range []struct {
		input  Options
		output Target
	}{
		{
			input:  Options{"name": "foobar"},
			output: Target{Name: "foobar"},
		},
		{
			input:  Options{"name": "foobar", "id": "1234"},
			output: Target{Name: "foobar", ID: 1234},
		},
		{
			input:  Options{"timeout": "10m3s"},
			output: Target{Timeout: 10*time.Minute + 3*time.Second},
		},
	} {
		t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
			var dst Target
			err := test.input.Apply("", &dst)
			if err != nil {
				t.Fatal(err)
			}

			if dst != test.output {
				t.Fatalf("wrong result, want:\n  %#v\ngot:\n  %#v", test.output, dst)
			}
		})
	}
}

func TestOptionsApplySecret(t *testing.T) {
	var dst struct {
		Secret SecretString `option:"secret"`
	}

	err := Options{"secret": "geheim"}.Apply("s3", &dst)
	if err != nil {
		t.Fatal(err)
	}

	if dst.Secret.Unwrap() != "geheim" {
		t.Fatalf("wrong value %q in secret field", dst.Secret.Unwrap())
	}
	if s := fmt.Sprintf("%v %#v", dst.Secret, dst.Secret); strings.Contains(s, "geheim") {
		t.Fatalf("secret leaked into output %q", s)
	}
}

func TestOptionsApplyInvalid(t *testing.T) {
	for i, test := range []struct {
		input     Options
		namespace string
		err       string
	}{
		{
			input:     Options{"first_name": "foobar"},
			namespace: "ns",
			err:       "Fatal: option ns.first_name is not known",
		},
		{
			input:     Options{"id": "foobar"},
			namespace: "ns",
			err:       `strconv.ParseInt: parsing "foobar": invalid syntax`,
		},
		{
			input:     Options{"timeout": "2134"},
			namespace: "ns",
			err:       `time: missing unit in duration "?2134"?`,
		},
	} {
		t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
			var dst Target
			err := test.input.Apply(test.namespace, &dst)
			if err == nil {
				t.Fatalf("expected error %v not found", test.err)
			}

			matched, err := regexp.MatchString(test.err, err.Error())
			if err != nil {
				t.Fatal(err)
			}

			if !matched {
				t.Fatalf("expected error to match %q, got %q", test.err, err.Error())
			}
		})
	}
}

func TestListOptions(t *testing.T) {
	var indirect = struct {
		Foo string `option:"foo" help:"bar text help"`
	}{}

	for _, test := range []struct {
		cfg  interface{}
		opts []Help
	}{
		{
			cfg: struct {
				Foo string `option:"foo" help:"bar text help"`
			}{},
			opts: []Help{
				{Name: "foo", Text: "bar text help"},
			},
		},
		{
			cfg: struct {
				Foo string `option:"foo" help:"bar text help"`
				Bar string `option:"bar" help:"bar text help"`
			}{},
			opts: []Help{
				{Name: "foo", Text: "bar text help"},
				{Name: "bar", Text: "bar text help"},
			},
		},
		{
			cfg: struct {
				Bar string `option:"bar" help:"bar text help"`
				Foo string `option:"foo" help:"bar text help"`
			}{},
			opts: []Help{
				{Name: "bar", Text: "bar text help"},
				{Name: "foo", Text: "bar text help"},
			},
		},
		{
			cfg: &indirect,
			opts: []Help{
				{Name: "foo", Text: "bar text help"},
			},
		},
	} {
		t.Run("", func(t *testing.T) {
			opts := listOptions(test.cfg)
			if !reflect.DeepEqual(opts, test.opts) {
				t.Fatalf("wrong opts, want:\n  %v\ngot:\n  %v", test.opts, opts)
			}
		})
	}
}

func TestAppendAllOptions(t *testing.T) {
	cfgs := map[string]interface{}{
		"local": struct {
			Foo string `option:"foo" help:"bar text help"`
		}{},
		"sftp": struct {
			Foo string `option:"foo" help:"bar text help2"`
			Bar string `option:"bar" help:"bar text help"`
		}{},
	}
	want := []Help{
		{Namespace: "local", Name: "foo", Text: "bar text help"},
		{Namespace: "sftp", Name: "bar", Text: "bar text help"},
		{Namespace: "sftp", Name: "foo", Text: "bar text help2"},
	}

	var opts []Help
	for ns, cfg := range cfgs {
		opts = appendAllOptions(opts, ns, cfg)
	}

	if !reflect.DeepEqual(opts, want) {
		t.Fatalf("wrong list, want:\n  %v\ngot:\n  %v", want, opts)
	}
}

func TestSecretString(t *testing.T) {
	secret := NewSecretString("secret-key")

	for _, got := range []string{
		secret.String(),
		fmt.Sprint(secret),
		fmt.Sprintf("%v", secret),
	} {
		if got != "**redacted**" {
			t.Fatalf("wrong redacted form %q", got)
		}
	}
	if got := fmt.Sprintf("%#v", secret); got != `"**redacted**"` {
		t.Fatalf("wrong redacted form %q", got)
	}
	if secret.Unwrap() != "secret-key" {
		t.Fatalf("wrong value %q", secret.Unwrap())
	}
}

func TestSecretStringEmpty(t *testing.T) {
	var zero SecretString

	for _, secret := range []SecretString{NewSecretString(""), zero} {
		if secret.String() != "" {
			t.Fatalf("empty secret rendered as %q", secret.String())
		}
		if got := fmt.Sprintf("%#v", secret); got != `""` {
			t.Fatalf("empty secret rendered as %q", got)
		}
		if secret.Unwrap() != "" {
			t.Fatalf("wrong value %q", secret.Unwrap())
		}
	}
}
