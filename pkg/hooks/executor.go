package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
)

// summaryStderrLimit caps the stderr excerpt printed per failed hook.
const summaryStderrLimit = 200

// HookResult is the outcome of one hook run.
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Error    error
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs the hooks of one export.
type Executor struct {
	config  *Config
	context ExportContext
	results []HookResult
}

// NewExecutor returns an executor for config. ctx is exported to every hook.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// Prepare loads the hooks of projectDir. It returns a nil executor when
// disabled is set or nothing is configured.
func Prepare(projectDir string, ctx ExportContext, disabled bool) (*Executor, error) {
	if disabled {
		return nil, nil
	}
	cfg, warnings, err := Load(projectDir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		debug.Log("hooks: %s", w)
	}
	if cfg.Empty() {
		return nil, nil
	}
	return NewExecutor(cfg, ctx), nil
}

// RunPreExport runs pre-export hooks in order and stops at the first failing
// hook whose on_error is not "continue".
func (e *Executor) RunPreExport(ctx context.Context) error {
	for _, hook := range e.config.Hooks.PreExport {
		res := e.run(ctx, hook, PreExport)
		if !res.Success && hook.OnError != OnErrorContinue {
			return fmt.Errorf("pre-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook even after failures and returns
// the first error of a hook with on_error "fail".
func (e *Executor) RunPostExport(ctx context.Context) error {
	var firstErr error
	for _, hook := range e.config.Hooks.PostExport {
		res := e.run(ctx, hook, PostExport)
		if !res.Success && hook.OnError == OnErrorFail && firstErr == nil {
			firstErr = fmt.Errorf("post-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return firstErr
}

// Results returns the results of all hooks run so far.
func (e *Executor) Results() []HookResult {
	return e.results
}

// Summary describes the hooks run so far, one line per failure. It is empty
// when no hook has run.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var b strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "  %s %s: %v\n", r.Phase, r.Hook.Name, r.Error)
		if stderr := strings.TrimSpace(r.Stderr); stderr != "" {
			fmt.Fprintf(&b, "    stderr: %s\n", truncate(stderr, summaryStderrLimit))
		}
	}
	return fmt.Sprintf("hooks: %d succeeded, %d failed\n", ok, failed) + b.String()
}

func (e *Executor) run(ctx context.Context, hook Hook, phase HookPhase) HookResult {
	timeout := time.Duration(hook.Timeout)
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)
	cmd.Env = append(os.Environ(), e.context.ToEnv()...)
	for k, v := range hook.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := HookResult{
		Hook:     hook,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Error = fmt.Errorf("timed out after %s", timeout)
	case ctx.Err() != nil:
		res.Error = ctx.Err()
	case err != nil:
		res.Error = err
	default:
		res.Success = true
	}
	debug.Log("hooks: %s %q finished in %s (ok=%v)", phase, hook.Name, res.Duration, res.Success)
	e.results = append(e.results, res)
	return res
}

// truncate shortens s to at most n bytes, ending in "..." when cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
