package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, p Provider) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := p.Artifacts(context.Background(), func(art schemas.Artifact, readErr error) error {
		require.NoError(t, readErr)
		out[filepath.ToSlash(art.Path)] = string(art.Content)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSliceProvider(t *testing.T) {
	p := &SliceProvider{Items: []schemas.Artifact{
		{Path: "a.go", Content: []byte("package a")},
		{Path: "b.go", Content: []byte("package b")},
	}}

	got := collect(t, p)
	assert.Equal(t, map[string]string{"a.go": "package a", "b.go": "package b"}, got)

	t.Run("cancelled context stops iteration", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.Artifacts(ctx, func(schemas.Artifact, error) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFSProvider_Walk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "sub/util.go", "package sub")
	writeFile(t, root, ".git/config", "[core]")
	writeFile(t, root, "docs/readme.md", "# docs")

	p := NewFSProvider(root, config.CorpusConfig{}, zaptest.NewLogger(t))
	got := collect(t, p)

	assert.Contains(t, got, "main.go")
	assert.Contains(t, got, "sub/util.go")
	assert.Contains(t, got, "docs/readme.md")
	// Hidden directories are never walked.
	for path := range got {
		assert.NotContains(t, path, ".git")
	}
	assert.Equal(t, "package main", got["main.go"])
}

func TestFSProvider_ExtensionFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "notes.txt", "notes")
	writeFile(t, root, "Upper.GO", "package upper")

	p := NewFSProvider(root, config.CorpusConfig{IncludeExts: []string{".go"}}, zaptest.NewLogger(t))
	got := collect(t, p)

	assert.Contains(t, got, "main.go")
	assert.Contains(t, got, "Upper.GO") // extension match is case-insensitive
	assert.NotContains(t, got, "notes.txt")
}

func TestFSProvider_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "ok")
	writeFile(t, root, "big.go", string(make([]byte, 100)))

	p := NewFSProvider(root, config.CorpusConfig{MaxFileSize: 10}, zaptest.NewLogger(t))
	got := collect(t, p)

	assert.Contains(t, got, "small.go")
	assert.NotContains(t, got, "big.go")
}

func TestFSProvider_Cancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewFSProvider(root, config.CorpusConfig{}, zaptest.NewLogger(t))
	err := p.Artifacts(ctx, func(schemas.Artifact, error) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
