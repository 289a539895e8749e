package loader

import (
	"bytes"
	"testing"
)

// FuzzParse checks that arbitrary input never panics either decoder and that
// whatever parses also validates.
//
// Run with: go test -fuzz=FuzzParse -fuzztime=1m ./pkg/loader/
func FuzzParse(f *testing.F) {
	seeds := []string{
		sampleJSON,
		sampleYAML,
		"",
		"{}",
		`{"rows":null,"cols":null}`,
		`{"rows":[{"key":"a","children":[{"key":"b","children":[{"key":"c"}]}]}]}`,
		`{"cells":[{"row":"","col":"","type":""}]}`,
		"rows: [",
		"- - - -",
		`{"corner":["a","b","c"]}`,
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, format := range []Format{FormatJSON, FormatYAML} {
			doc, err := Parse(bytes.NewReader(data), format)
			if err != nil {
				continue
			}
			if err := doc.Validate(); err != nil {
				t.Fatalf("%s parsed but does not validate: %v", format, err)
			}
		}
	})
}
