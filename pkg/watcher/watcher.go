// Package watcher reports edits to a matrix definition so an export can be
// redone. It uses fsnotify where events are reliable and polls on network
// and FUSE mounts, or when PMX_FORCE_POLL is set.
//
// A change is reported only when the file content differs from the last
// reported version; touching the file or an editor's save-in-place of
// identical bytes does not trigger an export.
package watcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
)

// ForcePollEnvVar selects polling when set to a truthy value.
const ForcePollEnvVar = "PMX_FORCE_POLL"

// DefaultPollInterval is the stat period in polling mode.
const DefaultPollInterval = 2 * time.Second

var (
	ErrFileRemoved = errors.New("watched file was removed")
	ErrPermission  = errors.New("permission denied")
)

// detectFilesystem is replaced in tests.
var detectFilesystem = DetectFilesystemType

// Mode is how changes are detected.
type Mode int

const (
	ModeNotify Mode = iota
	ModePoll
)

func (m Mode) String() string {
	if m == ModePoll {
		return "polling"
	}
	return "fsnotify"
}

// Options configures a Watcher. Zero values select the defaults.
type Options struct {
	Debounce     time.Duration
	PollInterval time.Duration
	// ForcePoll skips fsnotify even on local filesystems.
	ForcePoll bool
	// OnError receives non-fatal problems such as the file disappearing.
	OnError func(error)
}

// Watcher follows one file. Create it with New and drive it with Run.
type Watcher struct {
	path    string
	opts    Options
	fsType  FilesystemType
	changes chan struct{}
	bounce  *Debouncer

	mu     sync.Mutex
	mode   Mode
	digest []byte // nil while the file does not exist
}

// New prepares a watcher for path and picks its mode. The current content
// is the baseline: only later edits are reported.
func New(path string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}

	w := &Watcher{
		path:    abs,
		opts:    opts,
		fsType:  detectFilesystem(abs),
		changes: make(chan struct{}, 1),
		bounce:  NewDebouncer(opts.Debounce),
	}
	if opts.ForcePoll || envBool(ForcePollEnvVar) || isRemoteFilesystem(w.fsType) {
		w.mode = ModePoll
	}

	digest, err := fileDigest(abs)
	switch {
	case errors.Is(err, os.ErrPermission):
		return nil, fmt.Errorf("%s: %w", abs, ErrPermission)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	w.digest = digest
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// FilesystemType returns the classification used to pick the mode.
func (w *Watcher) FilesystemType() FilesystemType { return w.fsType }

// PollInterval returns the stat period used in polling mode.
func (w *Watcher) PollInterval() time.Duration { return w.opts.PollInterval }

// Mode returns the detection mode. Run may switch from ModeNotify to
// ModePoll when fsnotify cannot be set up.
func (w *Watcher) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Changed delivers one value per content change. Bursts collapse into a
// single pending value.
func (w *Watcher) Changed() <-chan struct{} { return w.changes }

// Run watches until ctx is done and then returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.bounce.Cancel()

	if w.Mode() == ModeNotify {
		fsw, err := w.subscribe()
		if err == nil {
			defer fsw.Close()
			debug.Log("watcher: %s via fsnotify (%s)", w.path, w.fsType)
			// Edits between New and the subscription produced no event.
			w.check()
			return w.runNotify(ctx, fsw)
		}
		debug.Log("watcher: fsnotify unavailable (%v), polling %s", err, w.path)
		w.mu.Lock()
		w.mode = ModePoll
		w.mu.Unlock()
	}
	debug.Log("watcher: polling %s every %s (%s)", w.path, w.opts.PollInterval, w.fsType)
	return w.runPoll(ctx)
}

// subscribe watches the parent directory: editors that save through a
// temporary file and rename replace the inode, which a file watch would lose.
func (w *Watcher) subscribe() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

func (w *Watcher) runNotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				w.bounce.Trigger(w.check)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.OnError(err)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) error {
	t := time.NewTicker(w.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.check()
		}
	}
}

// check compares the file with the last reported digest and signals on a
// difference. A file that vanished is reported once through OnError.
func (w *Watcher) check() {
	digest, err := fileDigest(w.path)

	w.mu.Lock()
	had := w.digest != nil
	changed := err == nil && !bytes.Equal(digest, w.digest)
	switch {
	case changed:
		w.digest = digest
	case errors.Is(err, os.ErrNotExist):
		w.digest = nil
	}
	w.mu.Unlock()

	switch {
	case errors.Is(err, os.ErrNotExist):
		if had {
			w.opts.OnError(ErrFileRemoved)
		}
	case errors.Is(err, os.ErrPermission):
		w.opts.OnError(ErrPermission)
	case err != nil:
		w.opts.OnError(err)
	case changed:
		debug.Log("watcher: %s changed", w.path)
		select {
		case w.changes <- struct{}{}:
		default:
		}
	}
}

func fileDigest(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
