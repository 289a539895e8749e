// Package hooks runs user commands around a matrix export. Hooks are
// configured in .pmx/hooks.yaml next to the matrix file and run before
// capture starts (pre-export) and after the tiles are written (post-export).
//
//	hooks:
//	  pre-export:
//	    - name: refresh
//	      command: ./fetch-sales.sh
//	      timeout: 2m
//	  post-export:
//	    - command: rsync -a "$PMX_EXPORT_DIR" reports:/srv/matrix
//	      on_error: fail
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs.
type HookPhase string

const (
	// PreExport runs before capture. Failure cancels the export by default.
	PreExport HookPhase = "pre-export"
	// PostExport runs after tiles are written. Failure is only reported by default.
	PostExport HookPhase = "post-export"
)

// OnError selects what a failing hook does to the export.
type OnError string

const (
	OnErrorFail     OnError = "fail"
	OnErrorContinue OnError = "continue"
)

// DefaultTimeout is the default hook execution timeout.
const DefaultTimeout = 30 * time.Second

// ConfigDir and ConfigFile locate the hooks file inside a project directory.
const (
	ConfigDir  = ".pmx"
	ConfigFile = "hooks.yaml"
)

// Duration accepts Go duration strings ("90s") or bare numbers of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if v, err := time.ParseDuration(node.Value); err == nil {
		*d = Duration(v)
		return nil
	}
	secs, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return fmt.Errorf("invalid timeout %q", node.Value)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	OnError OnError           `yaml:"on_error,omitempty"`
}

// Config is the parsed hooks file.
type Config struct {
	Hooks struct {
		PreExport  []Hook `yaml:"pre-export,omitempty"`
		PostExport []Hook `yaml:"post-export,omitempty"`
	} `yaml:"hooks"`
}

// Phase returns the hooks of phase, or nil for an unknown phase.
func (c *Config) Phase(phase HookPhase) []Hook {
	switch phase {
	case PreExport:
		return c.Hooks.PreExport
	case PostExport:
		return c.Hooks.PostExport
	}
	return nil
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return len(c.Hooks.PreExport) == 0 && len(c.Hooks.PostExport) == 0
}

// ExportContext is passed to hooks as PMX_* environment variables.
type ExportContext struct {
	MatrixPath string
	OutputDir  string
	TileCount  int
	Width      int
	Height     int
	Timestamp  time.Time
}

// ToEnv converts the context to KEY=value pairs.
func (c ExportContext) ToEnv() []string {
	return []string{
		"PMX_MATRIX_PATH=" + c.MatrixPath,
		"PMX_EXPORT_DIR=" + c.OutputDir,
		"PMX_TILE_COUNT=" + strconv.Itoa(c.TileCount),
		"PMX_EXPORT_WIDTH=" + strconv.Itoa(c.Width),
		"PMX_EXPORT_HEIGHT=" + strconv.Itoa(c.Height),
		"PMX_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// Load reads projectDir/.pmx/hooks.yaml. A missing file is an empty config.
// Hooks without a command are dropped and reported in warnings.
func Load(projectDir string) (cfg *Config, warnings []string, err error) {
	path := filepath.Join(projectDir, ConfigDir, ConfigFile)
	cfg = &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}
		return nil, nil, fmt.Errorf("reading hooks config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Hooks.PreExport, warnings = normalize(cfg.Hooks.PreExport, PreExport, warnings)
	cfg.Hooks.PostExport, warnings = normalize(cfg.Hooks.PostExport, PostExport, warnings)
	return cfg, warnings, nil
}

// normalize fills defaults: a timeout, a name, and on_error "fail" before
// export or "continue" after it.
func normalize(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	out := hooks[:0]
	for i, h := range hooks {
		if strings.TrimSpace(h.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if h.Timeout <= 0 {
			h.Timeout = Duration(DefaultTimeout)
		}
		if h.OnError == "" {
			h.OnError = OnErrorContinue
			if phase == PreExport {
				h.OnError = OnErrorFail
			}
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, h)
	}
	return out, warnings
}
