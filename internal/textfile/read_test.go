package textfile

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func dec(s string) []byte {
	data, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return data
}

func TestRead(t *testing.T) {
	var tests = []struct {
		name string
		data []byte
		want []byte
	}{
		{name: "plain", data: []byte("geheim\n")},
		{name: "utf8", data: []byte("Pässwörter")},
		{
			name: "utf8-bom",
			data: []byte("\xef\xbb\xbfgeheim"),
			want: []byte("geheim"),
		},
		{
			name: "utf16-be",
			data: dec("feff00670065006800650069006d"),
			want: []byte("geheim"),
		},
		{
			name: "utf16-le",
			data: dec("fffe670065006800650069006d00"),
			want: []byte("geheim"),
		},
		{
			name: "utf8-bom-only",
			data: []byte("\xef\xbb\xbf"),
			want: []byte(""),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			want := test.want
			if want == nil {
				want = test.data
			}

			filename := filepath.Join(t.TempDir(), "file.txt")
			if err := os.WriteFile(filename, test.data, 0600); err != nil {
				t.Fatal(err)
			}

			data, err := Read(filename)
			if err != nil {
				t.Fatal(err)
			}

			if !bytes.Equal(want, data) {
				t.Errorf("invalid data returned, want:\n  %q\ngot:\n  %q", want, data)
			}
		})
	}
}
