// Package textfile reads files that contain text, like password and
// identity files. Byte order marks are stripped and UTF-16 content is
// converted to UTF-8.
package textfile

import (
	"bytes"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

type bom struct {
	prefix []byte
	enc    encoding.Encoding
}

var boms = []bom{
	{[]byte{0xef, 0xbb, 0xbf}, nil},
	{[]byte{0xfe, 0xff}, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)},
	{[]byte{0xff, 0xfe}, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
}

// Decode converts data to plain UTF-8 without a byte order mark. Data
// without a BOM is assumed to be UTF-8 already and returned as is.
func Decode(data []byte) ([]byte, error) {
	for _, b := range boms {
		if !bytes.HasPrefix(data, b.prefix) {
			continue
		}
		if b.enc == nil {
			return data[len(b.prefix):], nil
		}
		return b.enc.NewDecoder().Bytes(data)
	}
	return data, nil
}

// Read returns the contents of the file, converted to UTF-8, stripped of
// any BOM.
func Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return Decode(data)
}
