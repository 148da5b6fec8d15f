// Package build turns the page descriptors of a site into HTML files under
// the dist directory, copies the extra top-level files next to them, and
// cleans the output directories.
package build

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/jaff/internal/config"
	"github.com/conneroisu/jaff/internal/errors"
	"github.com/conneroisu/jaff/internal/eventbus"
	"github.com/conneroisu/jaff/internal/logging"
	"github.com/conneroisu/jaff/internal/resolver"
)

// OutputExt replaces the descriptor extension in output file names.
const OutputExt = ".html"

// PageResult is the outcome of building one page.
type PageResult struct {
	Source   string
	Output   string
	Bytes    int
	Duration time.Duration
	Err      error
}

// Result summarises a full build.
type Result struct {
	Pages    []PageResult
	Errors   *errors.Collector
	Duration time.Duration
}

// HasErrors reports whether any page failed.
func (r *Result) HasErrors() bool {
	return r.Errors.HasErrors()
}

// Written returns how many pages were written to dist.
func (r *Result) Written() int {
	n := 0
	for _, p := range r.Pages {
		if p.Err == nil {
			n++
		}
	}
	return n
}

// Pipeline renders page descriptors into the dist directory.
type Pipeline struct {
	pagesDir string
	distDir  string
	resolver *resolver.Resolver
	bus      *eventbus.Bus
	metrics  *Metrics
	handler  *errors.ErrorHandler
	logger   logging.Logger

	// builds do not overlap
	mutex sync.Mutex
}

// NewPipeline creates a pipeline for cfg. bus may be nil when nobody
// listens for build events.
func NewPipeline(cfg *config.Config, res *resolver.Resolver, bus *eventbus.Bus, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	logger = logger.WithComponent("build")
	return &Pipeline{
		pagesDir: cfg.Paths.Pages,
		distDir:  cfg.Paths.Dist,
		resolver: res,
		bus:      bus,
		metrics:  NewMetrics(),
		handler:  errors.NewErrorHandler(logger),
		logger:   logger,
	}
}

// Metrics returns the pipeline's render counters.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Bus returns the bus build events are published on.
func (p *Pipeline) Bus() *eventbus.Bus {
	return p.bus
}

// Discover lists every descriptor under the pages directory, sorted. A
// missing pages directory yields no pages.
func (p *Pipeline) Discover() ([]string, error) {
	var pages []string
	err := filepath.WalkDir(p.pagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == resolver.ExtData {
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "discovering pages in "+p.pagesDir, err)
	}
	sort.Strings(pages)
	return pages, nil
}

// OutputPath maps a descriptor to its HTML file under dist, keeping its
// path relative to the pages directory.
func (p *Pipeline) OutputPath(page string) (string, error) {
	rel, err := filepath.Rel(p.pagesDir, page)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError(errors.ErrCodeInternalError,
			"page outside pages directory").WithPath(page)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + OutputExt
	return filepath.Join(p.distDir, rel), nil
}

// Build renders every discovered page. One page failing does not stop the
// others; failures are collected in the result. The returned error is
// reserved for discovery failures and cancellation.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	perf := logging.StartOperation(p.logger, "build")
	start := time.Now()

	pages, err := p.Discover()
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	if len(pages) == 0 {
		logging.Notice(ctx, p.logger, filepath.Join(p.pagesDir, "*"+resolver.ExtData))
	}

	result := &Result{Errors: errors.NewCollector()}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			perf.EndWithError(ctx, err)
			return result, err
		}
		pr := p.buildPage(ctx, page)
		result.Pages = append(result.Pages, pr)
		result.Errors.Add(page, pr.Err)
	}

	result.Duration = time.Since(start)
	p.metrics.RecordBuild(time.Now())
	p.bus.Publish(eventbus.EventBuildFinished, result)
	perf.End(ctx)

	p.logger.Info(ctx, "Build finished",
		"pages", len(result.Pages),
		"written", result.Written(),
		"failed", result.Errors.Len())
	return result, nil
}

// BuildPage renders the single descriptor at path.
func (p *Pipeline) BuildPage(ctx context.Context, path string) PageResult {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.buildPage(ctx, path)
}

func (p *Pipeline) buildPage(ctx context.Context, path string) PageResult {
	start := time.Now()
	pr := PageResult{Source: path}

	pr.Output, pr.Err = p.OutputPath(path)
	if pr.Err == nil {
		var html []byte
		html, pr.Err = p.resolver.Render(ctx, path)
		if pr.Err == nil {
			pr.Err = writeFile(pr.Output, html)
			pr.Bytes = len(html)
		}
	}
	pr.Duration = time.Since(start)
	p.metrics.RecordPage(pr)

	if pr.Err != nil {
		// missing descriptors were already reported by the resolver
		if !errors.IsNotFound(pr.Err) {
			p.handler.Handle(ctx, pr.Err)
		}
		p.bus.Publish(eventbus.EventBuildFailed, pr)
		return pr
	}

	p.logger.Debug(ctx, "Page written", "page", path, "output", pr.Output, "bytes", pr.Bytes)
	p.bus.Publish(eventbus.EventPageBuilt, pr)
	return pr
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "creating "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "writing "+path)
	}
	return nil
}
