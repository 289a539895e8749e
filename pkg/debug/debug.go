// Package debug writes diagnostic lines to stderr when PMX_DEBUG is set.
//
//	PMX_DEBUG=1 pmx export             # everything
//	PMX_DEBUG=export,tile pmx export   # only the capture loop and tiling
//
// Messages are scoped by the word before the first colon of their format
// ("export: frame %d ..."). With a scope list only matching messages are
// written. Disabled logging costs one atomic load per call.
package debug

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const prefix = "[pmx] "

var (
	enabled atomic.Bool

	mu     sync.Mutex
	logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	scopes map[string]bool // nil means all scopes
)

func init() {
	configure(os.Getenv("PMX_DEBUG"))
}

// configure parses a PMX_DEBUG value. "", "0" and "false" disable logging;
// "1", "true" and "all" enable every scope; anything else is a scope list.
func configure(v string) {
	mu.Lock()
	defer mu.Unlock()

	scopes = nil
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "off":
		enabled.Store(false)
		return
	case "1", "true", "all", "on":
	default:
		scopes = make(map[string]bool)
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes[s] = true
			}
		}
	}
	enabled.Store(true)
}

// Enabled reports whether any debug output is written.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns logging on for every scope, or off.
func SetEnabled(e bool) {
	if e {
		configure("all")
		return
	}
	configure("")
}

// SetScopes enables logging for the named scopes only.
func SetScopes(names ...string) {
	configure(strings.Join(names, ","))
}

// SetOutput redirects debug output and enables every scope.
// Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = log.New(w, prefix, 0)
	mu.Unlock()
	if !Enabled() {
		SetEnabled(true)
	}
}

// scopeOf returns the text before the first ':' or '.' of s.
func scopeOf(s string) string {
	if i := strings.IndexAny(s, ":."); i > 0 {
		return s[:i]
	}
	return ""
}

func write(scope, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if scopes != nil && !scopes[scope] {
		return
	}
	logger.Printf(format, args...)
}

// Log writes a printf-style message. The scope is taken from format.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	write(scopeOf(format), format, args...)
}

// LogIf is Log guarded by cond.
func LogIf(cond bool, format string, args ...any) {
	if !cond || !enabled.Load() {
		return
	}
	write(scopeOf(format), format, args...)
}

// LogTiming logs how long an operation took under name's scope.
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	write(scopeOf(name), "%s took %v", name, d)
}

// LogEnterExit logs entry to name and, when the returned func runs, the
// elapsed time:
//
//	defer debug.LogEnterExit("export.Export")()
func LogEnterExit(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	scope := scopeOf(name)
	write(scope, "-> %s", name)
	start := time.Now()
	return func() {
		write(scope, "<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs v with its type under name. name also selects the scope.
func Dump(name string, v any) {
	if !enabled.Load() {
		return
	}
	write(scopeOf(name), "%s: %T = %+v", name, v, v)
}

// Section writes a separator line, regardless of scope.
func Section(name string) {
	if !enabled.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("=== %s ===", name)
}
