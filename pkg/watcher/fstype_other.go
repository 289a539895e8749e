//go:build !linux

package watcher

// DetectFilesystemType is only implemented on Linux; elsewhere fsnotify is
// tried first and polling remains available through PMX_FORCE_POLL.
func DetectFilesystemType(path string) FilesystemType {
	return FSTypeUnknown
}
