// Package corpus supplies artifacts to the engine. The engine only depends
// on the Provider interface; file discovery, ignore handling, and VCS access
// live here, on the outside of the core pipeline.
package corpus

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/config"
)

// Provider iterates a corpus. fn is called once per artifact; a read failure
// is delivered with a non-nil readErr and empty content so the engine can
// degrade that artifact to a diagnostic instead of aborting the run.
// Returning a non-nil error from fn stops the iteration.
type Provider interface {
	Artifacts(ctx context.Context, fn func(art schemas.Artifact, readErr error) error) error
}

// SliceProvider serves an in-memory corpus. Used by tests and by callers
// that already hold content.
type SliceProvider struct {
	Items []schemas.Artifact
}

// Artifacts implements Provider.
func (p *SliceProvider) Artifacts(ctx context.Context, fn func(schemas.Artifact, error) error) error {
	for _, a := range p.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(a, nil); err != nil {
			return err
		}
	}
	return nil
}

// FSProvider walks a directory tree. Hidden directories (".git" and
// friends) are skipped; files can be filtered by extension and size, and
// reads can be throttled for shared storage.
type FSProvider struct {
	root    string
	cfg     config.CorpusConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewFSProvider creates a filesystem corpus rooted at root.
func NewFSProvider(root string, cfg config.CorpusConfig, logger *zap.Logger) *FSProvider {
	p := &FSProvider{
		root:   root,
		cfg:    cfg,
		logger: logger.Named("corpus"),
	}
	if cfg.ReadRatePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.ReadRatePerSec), 1)
	}
	return p
}

// Artifacts implements Provider.
func (p *FSProvider) Artifacts(ctx context.Context, fn func(schemas.Artifact, error) error) error {
	return filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(p.root, path)
		if relErr != nil {
			rel = path
		}
		if !p.wantExt(path) {
			return nil
		}
		if p.cfg.MaxFileSize > 0 {
			if info, infoErr := d.Info(); infoErr == nil && info.Size() > p.cfg.MaxFileSize {
				p.logger.Debug("Skipping oversized artifact",
					zap.String("path", rel),
					zap.Int64("size", info.Size()))
				return nil
			}
		}

		if p.limiter != nil {
			if waitErr := p.limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return fn(schemas.Artifact{Path: rel}, readErr)
		}
		return fn(schemas.Artifact{Path: rel, Content: content}, nil)
	})
}

func (p *FSProvider) wantExt(path string) bool {
	if len(p.cfg.IncludeExts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range p.cfg.IncludeExts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
