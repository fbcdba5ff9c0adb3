package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/config"
)

// initRepo creates a repository with one commit containing the given files
// and returns its path.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err = wt.Add(rel)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestGitProvider_CommittedTree(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"main.go":     "package main",
		"sub/util.go": "package sub",
	})

	// An uncommitted file must never appear in the corpus.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dirty.go"), []byte("package dirty"), 0o644))

	p := NewGitProvider(dir, "HEAD", config.CorpusConfig{}, zaptest.NewLogger(t))
	got := collect(t, p)

	assert.Equal(t, map[string]string{
		"main.go":     "package main",
		"sub/util.go": "package sub",
	}, got)
}

func TestGitProvider_ExtensionFilter(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"main.go":   "package main",
		"notes.txt": "notes",
	})

	p := NewGitProvider(dir, "HEAD", config.CorpusConfig{IncludeExts: []string{".go"}}, zaptest.NewLogger(t))
	got := collect(t, p)

	assert.Contains(t, got, "main.go")
	assert.NotContains(t, got, "notes.txt")
}

func TestGitProvider_BadInputs(t *testing.T) {
	t.Run("not a repository", func(t *testing.T) {
		p := NewGitProvider(t.TempDir(), "HEAD", config.CorpusConfig{}, zaptest.NewLogger(t))
		err := p.Artifacts(context.Background(), func(schemas.Artifact, error) error { return nil })
		assert.ErrorContains(t, err, "failed to open repository")
	})

	t.Run("unknown revision", func(t *testing.T) {
		dir := initRepo(t, map[string]string{"a.go": "package a"})
		p := NewGitProvider(dir, "no-such-branch", config.CorpusConfig{}, zaptest.NewLogger(t))
		err := p.Artifacts(context.Background(), func(schemas.Artifact, error) error { return nil })
		assert.ErrorContains(t, err, "failed to resolve revision")
	})
}
