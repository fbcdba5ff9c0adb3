package corpus

import (
	"context"
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/config"
)

// GitProvider serves the committed tree of one revision, so a scan sees
// exactly what was committed rather than whatever is sitting in the working
// directory.
type GitProvider struct {
	repoPath string
	revision string
	cfg      config.CorpusConfig
	logger   *zap.Logger
}

// NewGitProvider creates a corpus provider over the repository at repoPath.
// revision accepts anything git rev-parse does ("HEAD", a tag, a hash).
func NewGitProvider(repoPath, revision string, cfg config.CorpusConfig, logger *zap.Logger) *GitProvider {
	if revision == "" {
		revision = "HEAD"
	}
	return &GitProvider{
		repoPath: repoPath,
		revision: revision,
		cfg:      cfg,
		logger:   logger.Named("corpus_git"),
	}
}

// Artifacts implements Provider.
func (p *GitProvider) Artifacts(ctx context.Context, fn func(schemas.Artifact, error) error) error {
	repo, err := gogit.PlainOpen(p.repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", p.repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(p.revision))
	if err != nil {
		return fmt.Errorf("failed to resolve revision %q: %w", p.revision, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return fmt.Errorf("failed to read commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to read tree for %s: %w", hash, err)
	}

	p.logger.Debug("Iterating committed tree",
		zap.String("revision", p.revision),
		zap.String("commit", hash.String()))

	return tree.Files().ForEach(func(f *object.File) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !p.wantFile(f) {
			return nil
		}
		content, readErr := fileContent(f)
		if readErr != nil {
			return fn(schemas.Artifact{Path: f.Name}, readErr)
		}
		return fn(schemas.Artifact{Path: f.Name, Content: content}, nil)
	})
}

func (p *GitProvider) wantFile(f *object.File) bool {
	if p.cfg.MaxFileSize > 0 && f.Size > p.cfg.MaxFileSize {
		return false
	}
	if len(p.cfg.IncludeExts) == 0 {
		return true
	}
	name := strings.ToLower(f.Name)
	for _, want := range p.cfg.IncludeExts {
		if strings.HasSuffix(name, strings.ToLower(want)) {
			return true
		}
	}
	return false
}

func fileContent(f *object.File) ([]byte, error) {
	r, err := f.Blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
