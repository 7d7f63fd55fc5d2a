package storage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crashBeforeRenameFs simulates a process dying after the temp file is
// written and synced but before it replaces the target.
type crashBeforeRenameFs struct {
	afero.Fs
}

var errCrash = errors.New("simulated crash")

func (crashBeforeRenameFs) Rename(string, string) error {
	return errCrash
}

func TestWriteFileAtomic_CrashBeforeRenameKeepsOriginal(t *testing.T) {
	base := afero.NewMemMapFs()
	original := []byte(`[{"id":"a","path":"/a.txt"}]`)
	require.NoError(t, afero.WriteFile(base, "/store/registry.json", original, 0o644))

	err := WriteFileAtomic(crashBeforeRenameFs{base}, "/store/registry.json", []byte(`[{"id":"b"`))
	require.ErrorIs(t, err, errCrash)

	got, err := afero.ReadFile(base, "/store/registry.json")
	require.NoError(t, err)
	assert.Equal(t, original, got)
	assert.True(t, json.Valid(got))
}

func TestAppendLinesAtomic_CrashBeforeRenameKeepsOriginal(t *testing.T) {
	base := afero.NewMemMapFs()
	original := "{\"id\":\"a:0\"}\n{\"id\":\"a:1\"}\n"
	require.NoError(t, afero.WriteFile(base, "/store/chunks.jsonl", []byte(original), 0o644))

	err := AppendLinesAtomic(crashBeforeRenameFs{base}, "/store/chunks.jsonl", [][]byte{[]byte(`{"id":"b:0"}`)})
	require.ErrorIs(t, err, errCrash)

	got, err := afero.ReadFile(base, "/store/chunks.jsonl")
	require.NoError(t, err)
	assert.Equal(t, original, string(got))
	for _, line := range strings.Split(strings.TrimSpace(string(got)), "\n") {
		assert.True(t, json.Valid([]byte(line)), "line %q", line)
	}
}

func TestAppendLinesAtomic(t *testing.T) {
	tests := []struct {
		name     string
		existing *string
		lines    []string
		want     string
	}{
		{name: "missing file", lines: []string{"a", "b"}, want: "a\nb\n"},
		{name: "empty file", existing: ptr(""), lines: []string{"a"}, want: "a\n"},
		{name: "terminated content", existing: ptr("x\n"), lines: []string{"a"}, want: "x\na\n"},
		{name: "unterminated content", existing: ptr("x"), lines: []string{"a"}, want: "x\na\n"},
		{name: "no lines", existing: ptr("x\n"), want: "x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, fsys.MkdirAll("/s", 0o755))
			if tt.existing != nil {
				require.NoError(t, afero.WriteFile(fsys, "/s/f.jsonl", []byte(*tt.existing), 0o644))
			}
			lines := make([][]byte, len(tt.lines))
			for i, l := range tt.lines {
				lines[i] = []byte(l)
			}
			require.NoError(t, AppendLinesAtomic(fsys, "/s/f.jsonl", lines))

			got, err := afero.ReadFile(fsys, "/s/f.jsonl")
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestHashFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/hello.txt", []byte("hello"), 0o644))

	hash, size, err := HashFile(fsys, "/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", hash)
	assert.Equal(t, int64(5), size)

	_, _, err = HashFile(fsys, "/missing.txt")
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }
