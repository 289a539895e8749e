// Package loader reads matrix documents from JSON or YAML files.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

// MatrixFileEnvVar overrides the matrix file discovered in a directory.
const MatrixFileEnvVar = "PMX_MATRIX"

// PreferredNames is the lookup order used by FindMatrixPath.
var PreferredNames = []string{"matrix.yaml", "matrix.yml", "matrix.json"}

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported matrix format")

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor infers the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FindMatrixPath returns the matrix file to load from dir. PMX_MATRIX wins
// when set; otherwise the first of PreferredNames that exists is used.
func FindMatrixPath(dir string) (string, error) {
	if env := os.Getenv(MatrixFileEnvVar); env != "" {
		return env, nil
	}
	for _, name := range PreferredNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no matrix file (%s) in %s", strings.Join(PreferredNames, ", "), dir)
}

// Load reads and validates the document at path.
func Load(path string) (model.Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return model.Document{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to open matrix file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f, format)
	if err != nil {
		return model.Document{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	debug.Log("loader: %s: %d headers, %d cells", path, doc.CountNodes(), len(doc.Cells))
	return doc, nil
}

// Parse decodes a document in the given format and validates it.
func Parse(r io.Reader, format Format) (model.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Document{}, fmt.Errorf("read matrix: %w", err)
	}
	// Editors on Windows like to leave a BOM behind.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var doc model.Document
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return model.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("parse %s: %w", format, err)
	}
	if err := doc.Validate(); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Save writes doc to path in the format implied by its extension.
func Save(path string, doc model.Document) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
