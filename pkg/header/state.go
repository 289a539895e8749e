package header

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

// CollapseState is the persisted collapse state of both axes.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "rows": {"r-1": true},
//	  "cols": {"c-7": true}
//	}
//
// Only collapsed keys need to be stored; a missing key means expanded.
// A corrupted or missing file loads as an empty state.
type CollapseState struct {
	Version int               `json:"version"`
	Rows    model.CollapseMap `json:"rows"`
	Cols    model.CollapseMap `json:"cols"`
}

// CollapseStateVersion is the current schema version of the state file.
const CollapseStateVersion = 1

const collapseStateFileName = "collapse-state.json"

// NewCollapseState returns an empty state.
func NewCollapseState() *CollapseState {
	return &CollapseState{
		Version: CollapseStateVersion,
		Rows:    make(model.CollapseMap),
		Cols:    make(model.CollapseMap),
	}
}

// CollapseStatePath returns the state file path inside dir.
func CollapseStatePath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, collapseStateFileName)
}

// Map returns the collapse map for axis.
func (s *CollapseState) Map(axis model.Axis) model.CollapseMap {
	if axis == model.AxisCol {
		return s.Cols
	}
	return s.Rows
}

// Toggle flips the collapsed flag of key on axis and returns the new value.
// Expanded keys are removed rather than stored as false.
func (s *CollapseState) Toggle(axis model.Axis, key string) bool {
	s.ensure()
	m := s.Map(axis)
	if m[key] {
		delete(m, key)
		return false
	}
	m[key] = true
	return true
}

// Set stores an explicit collapsed flag.
func (s *CollapseState) Set(axis model.Axis, key string, collapsed bool) {
	s.ensure()
	m := s.Map(axis)
	if collapsed {
		m[key] = true
	} else {
		delete(m, key)
	}
}

func (s *CollapseState) ensure() {
	if s.Rows == nil {
		s.Rows = make(model.CollapseMap)
	}
	if s.Cols == nil {
		s.Cols = make(model.CollapseMap)
	}
}

// LoadCollapseState reads the state file at path. A missing file yields an
// empty state without error; a corrupt file is logged and ignored.
func LoadCollapseState(path string) (*CollapseState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCollapseState(), nil
		}
		return NewCollapseState(), fmt.Errorf("reading collapse state: %w", err)
	}

	state := NewCollapseState()
	if err := json.Unmarshal(data, state); err != nil {
		log.Printf("warning: invalid collapse state file %s, using defaults: %v", path, err)
		return NewCollapseState(), nil
	}
	state.ensure()
	return state, nil
}

// SaveCollapseState writes state to path, creating the parent directory.
func SaveCollapseState(path string, state *CollapseState) error {
	if state == nil {
		state = NewCollapseState()
	}
	state.Version = CollapseStateVersion
	state.ensure()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collapse state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write collapse state: %w", err)
	}
	return nil
}
