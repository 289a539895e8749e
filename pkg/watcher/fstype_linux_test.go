//go:build linux

package watcher

import "testing"

func TestClassifyMagic(t *testing.T) {
	tests := []struct {
		magic uint32
		want  FilesystemType
	}{
		{0xef53, FSTypeLocal}, // ext4
		{nfsSuperMagic, FSTypeNFS},
		{cifsMagic, FSTypeSMB},
		{smb2Magic, FSTypeSMB},
		{fuseSuperMagic, FSTypeFUSE},
	}
	for _, tc := range tests {
		if got := classifyMagic(tc.magic); got != tc.want {
			t.Errorf("classifyMagic(%#x) = %v, want %v", tc.magic, got, tc.want)
		}
	}
}

func TestDetectFilesystemType_TempDir(t *testing.T) {
	if got := DetectFilesystemType(t.TempDir()); got == FSTypeUnknown {
		t.Errorf("expected a classification for the temp dir, got %v", got)
	}
}
