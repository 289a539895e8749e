// Package version reports the pmx release and, when the binary was built
// from a checkout, the VCS revision it came from.
package version

import (
	"runtime/debug"
	"sync"
)

// Version is set at release time:
//
//	go build -ldflags "-X github.com/vanderheijden86/pivotmatrix/pkg/version.Version=v0.4.0"
var Version = "v0.3.0"

var revision = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev, dirty string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev == "" {
		return ""
	}
	return rev + dirty
})

// String returns Version followed by the short revision, if known.
func String() string {
	if rev := revision(); rev != "" {
		return Version + " (" + rev + ")"
	}
	return Version
}
