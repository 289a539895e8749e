package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/pivotmatrix/pkg/loader"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

// AssertValidDocument fails the test when doc does not validate.
func AssertValidDocument(t *testing.T, doc model.Document) {
	t.Helper()
	if err := doc.Validate(); err != nil {
		t.Fatalf("invalid document: %v", err)
	}
}

// AssertKeys verifies the exact key order of nodes.
func AssertKeys(t *testing.T, nodes []model.HeaderNode, want ...string) {
	t.Helper()
	got := Keys(nodes)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

// AssertImagesEqual compares two images pixel by pixel and reports the first
// difference.
func AssertImagesEqual(t *testing.T, want, got image.Image) {
	t.Helper()
	if want.Bounds().Size() != got.Bounds().Size() {
		t.Fatalf("image size = %v, want %v", got.Bounds().Size(), want.Bounds().Size())
	}
	wb, gb := want.Bounds(), got.Bounds()
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			w := color.RGBAModel.Convert(want.At(wb.Min.X+x, wb.Min.Y+y))
			g := color.RGBAModel.Convert(got.At(gb.Min.X+x, gb.Min.Y+y))
			if w != g {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// WriteMatrixFile saves doc as dir/name (format from the extension) and
// returns the path.
func WriteMatrixFile(t *testing.T, dir, name string, doc model.Document) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := loader.Save(path, doc); err != nil {
		t.Fatalf("failed to write matrix file: %v", err)
	}
	return path
}

// Keys returns the keys of nodes in order.
func Keys(nodes []model.HeaderNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

// AllKeys returns every key of a forest in pre-order, ignoring collapse.
func AllKeys(nodes []model.HeaderNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Key)
		out = append(out, AllKeys(n.Children)...)
	}
	return out
}
