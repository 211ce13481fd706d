package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pop-os/debrepbuild/pkg/compress"
	"github.com/pop-os/debrepbuild/pkg/config"
	"github.com/pop-os/debrepbuild/pkg/debian"
	"github.com/pop-os/debrepbuild/pkg/pool"
	"github.com/pop-os/debrepbuild/pkg/signature"
)

// BuildError is one archive's failure, tagged with where in the pool it
// occurred.
type BuildError struct {
	Arch      debian.Architecture
	Component debian.Component
	Path      string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s/%s: %s: %v", e.Component, e.Arch, e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// BuildErrors is the batch of per-archive failures collected at a stage
// barrier.
type BuildErrors []*BuildError

func (e BuildErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d archives failed:\n%s", len(e), strings.Join(msgs, "\n"))
}

// Pipeline generates the dists tree of a repository from its pool.
type Pipeline struct {
	cfg     *config.Repo
	root    string
	builder *Builder
	formats compress.Formats
	workers int
}

// NewPipeline returns a pipeline over the repository rooted at root, which
// contains the pool/ tree and receives the dists/ tree.
func NewPipeline(cfg *config.Repo, root string) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		root:    root,
		builder: NewBuilder(cfg.Origin, cfg.Bugs, cfg.DefaultComponent),
		formats: compress.All(),
		workers: runtime.NumCPU(),
	}
}

// Build runs the whole pipeline: scan the pool, build entries in parallel,
// merge, write every index, then the Release files and signatures.
//
// Per-archive failures do not cancel sibling work; they are collected and
// returned together once the entry stage completes, so one corrupt package
// cannot hide errors in others. Failures writing output files abort
// immediately: a partial index is worse than none.
func (p *Pipeline) Build(ctx context.Context) error {
	suite := p.cfg.Archive
	poolDir := filepath.Join(p.root, "pool", suite)
	distDir := filepath.Join(p.root, "dists", suite)

	components, err := p.components(poolDir)
	if err != nil {
		return err
	}
	slog.Info("building repository",
		slog.String("suite", suite),
		slog.Any("components", components),
	)

	entries, err := p.buildEntries(ctx, poolDir, components)
	if err != nil {
		return err
	}

	if err := p.writeIndices(ctx, distDir, components, entries); err != nil {
		return err
	}
	if err := p.writeSources(ctx, distDir, poolDir, components); err != nil {
		return err
	}
	if err := WriteRelease(distDir, p.cfg, components, time.Now()); err != nil {
		return err
	}

	if p.cfg.SigningKey == "" {
		slog.Warn("no signing key configured, repository is unsigned")
		return nil
	}
	return signature.SignRelease(distDir, p.cfg.SigningKey)
}

// components lists the component directories present in the suite's pool.
func (p *Pipeline) components(poolDir string) ([]debian.Component, error) {
	dirs, err := os.ReadDir(poolDir)
	if err != nil {
		return nil, fmt.Errorf("reading pool: %w", err)
	}
	var components []debian.Component
	for _, d := range dirs {
		if d.IsDir() {
			components = append(components, debian.Component(d.Name()))
		}
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("pool %s has no components", poolDir)
	}
	sort.Slice(components, func(i, j int) bool { return components[i] < components[j] })
	return components, nil
}

// buildEntries fans out entry construction over every candidate archive
// and reduces the results into the merged Entries map.
func (p *Pipeline) buildEntries(ctx context.Context, poolDir string, components []debian.Component) (Entries, error) {
	type result struct {
		arch      debian.Architecture
		component debian.Component
		pkg       *PackageEntry
		contents  *ContentsEntry
	}
	var (
		mu       sync.Mutex
		results  []result
		failures BuildErrors
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for _, component := range components {
		for _, arch := range p.cfg.Architectures {
			binDir, err := debian.BinaryDir(arch)
			if err != nil {
				return nil, err
			}
			dir := filepath.Join(poolDir, string(component), binDir)
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				continue
			}

			candidates, err := pool.Candidates(dir)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", dir, err)
			}
			for _, cand := range candidates {
				if !strings.HasSuffix(cand.Path, ".deb") && !strings.HasSuffix(cand.Path, ".ddeb") {
					continue
				}
				eg.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					pkg, contents, err := p.builder.Build(cand.Path, p.root, component)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failures = append(failures, &BuildError{
							Arch:      arch,
							Component: component,
							Path:      cand.Path,
							Err:       err,
						})
						return nil
					}
					results = append(results, result{
						arch:      arch,
						component: component,
						pkg:       pkg,
						contents:  contents,
					})
					return nil
				})
			}
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, failures
	}

	entries := Entries{}
	for _, r := range results {
		entries.Add(r.arch, r.component, r.pkg, r.contents)
	}
	return entries, nil
}

// writeIndices writes the Packages, Contents and binary Release files, one
// architecture per parallel task.
func (p *Pipeline) writeIndices(ctx context.Context, distDir string, components []debian.Component, entries Entries) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for arch, archEntries := range entries {
		eg.Go(func() error {
			for _, component := range components {
				pkgs, ok := archEntries.Packages[component]
				if !ok {
					continue
				}
				binDir, err := debian.BinaryDir(arch)
				if err != nil {
					return err
				}
				dir := filepath.Join(distDir, string(component), binDir)
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				if err := WritePackages(dir, pkgs, p.formats); err != nil {
					return err
				}
				if err := WriteBinaryRelease(dir, p.cfg, component, arch); err != nil {
					return err
				}
			}
			return WriteContents(distDir, arch, archEntries.Contents, p.formats)
		})
	}
	return eg.Wait()
}

// writeSources generates the Sources index for each component whose pool
// has a source tree.
func (p *Pipeline) writeSources(ctx context.Context, distDir, poolDir string, components []debian.Component) error {
	for _, component := range components {
		srcPool := filepath.Join(poolDir, string(component), "source")
		if _, err := os.Stat(srcPool); errors.Is(err, os.ErrNotExist) {
			continue
		}
		dir := filepath.Join(distDir, string(component), "source")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := WriteSources(ctx, dir, srcPool, p.formats); err != nil {
			return err
		}
	}
	return nil
}
