// Package resolver builds the rendering context of a page: the page
// descriptor's own data, the site-wide global document under "global",
// and every entry of "imports" replaced by the document or rendered
// Markdown it points to.
//
// Import resolution is one level deep. An imported document's own
// "imports" field is passed through untouched.
package resolver

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/conneroisu/jaff/internal/config"
	"github.com/conneroisu/jaff/internal/datatree"
	"github.com/conneroisu/jaff/internal/errors"
	"github.com/conneroisu/jaff/internal/logging"
	"github.com/conneroisu/jaff/internal/markdown"
	"github.com/conneroisu/jaff/internal/renderer"
)

// Keys the resolver reads from or writes into a page context.
const (
	KeyTemplate = "template"
	KeyImports  = "imports"
	KeyGlobal   = "global"
)

// Extensions recognised for imports and the global document.
const (
	ExtData     = ".yaml"
	ExtMarkdown = ".md"
)

// Context is the fully resolved input of one page render.
type Context struct {
	// Source is the descriptor path the context was built from.
	Source string
	// Template is the descriptor's template field, empty when absent.
	Template string
	// Data is the merged context handed to the template.
	Data *datatree.Value
}

// Resolver resolves page descriptors and renders them.
type Resolver struct {
	srcDir     string
	globalPath string
	md         *markdown.Renderer
	renderer   *renderer.Renderer
	logger     logging.Logger
}

// New builds a resolver, its markdown renderer and its template renderer
// from cfg.
func New(cfg *config.Config, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	md := markdown.New(markdown.WithSanitize(cfg.Markdown.Sanitize))
	return &Resolver{
		srcDir:     cfg.Paths.Src,
		globalPath: cfg.Paths.Global,
		md:         md,
		renderer: renderer.New(cfg.Paths.Templates,
			renderer.WithExtension(cfg.Templates.Extension),
			renderer.WithCache(cfg.Templates.Cache),
			renderer.WithMarkdown(md),
		),
		logger: logger.WithComponent("resolver"),
	}
}

// Renderer returns the template renderer pages are rendered with.
func (r *Resolver) Renderer() *renderer.Renderer {
	return r.renderer
}

// Resolve loads the descriptor at path and merges the global document
// and imports into it. Missing optional files are logged as notices and
// treated as absent; a missing descriptor yields a not-found error.
// Malformed YAML or Markdown is returned as a parse error.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Context, error) {
	raw, found, err := r.readOptional(ctx, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NewNotFoundError(path, fs.ErrNotExist)
	}

	data, err := datatree.Decode(raw)
	if err != nil {
		return nil, errors.NewParseError(errors.ErrCodeParseFailed, path, err)
	}
	if data.Kind() != datatree.KindMapping {
		return nil, errors.NewParseError(errors.ErrCodeParseFailed, path,
			stderrors.New("page descriptor must be a mapping, got "+data.Kind().String()))
	}

	if err := r.mergeGlobal(ctx, data); err != nil {
		return nil, err
	}
	if err := r.resolveImports(ctx, data); err != nil {
		return nil, err
	}

	pc := &Context{Source: path, Data: data}
	if tpl, ok := data.Get(KeyTemplate); ok {
		pc.Template, _ = tpl.AsString()
	}

	r.logger.Debug(ctx, "Page context resolved", "page", path, "template", pc.Template)
	return pc, nil
}

// Render resolves the descriptor at path and executes its template with
// the merged context. Template errors are returned to the caller as is.
func (r *Resolver) Render(ctx context.Context, path string) ([]byte, error) {
	pc, err := r.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	if pc.Template == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingTemplate,
			"page descriptor has no template field").
			WithPath(path).
			WithContext("field", KeyTemplate)
	}
	return r.renderer.Render(pc.Template, pc.Data.Interface())
}

func (r *Resolver) mergeGlobal(ctx context.Context, data *datatree.Value) error {
	raw, found, err := r.readOptional(ctx, r.globalPath)
	if err != nil || !found {
		return err
	}
	if filepath.Ext(r.globalPath) != ExtData {
		return nil
	}

	global, err := datatree.Decode(raw)
	if err != nil {
		return errors.NewParseError(errors.ErrCodeParseFailed, r.globalPath, err)
	}
	return data.Set(KeyGlobal, global)
}

// resolveImports replaces each import reference in place. A sequence is
// resolved by position; a mapping by key, in key order.
func (r *Resolver) resolveImports(ctx context.Context, data *datatree.Value) error {
	imports, ok := data.Get(KeyImports)
	if !ok {
		return nil
	}

	switch imports.Kind() {
	case datatree.KindSequence:
		for i, ref := range imports.Items() {
			resolved, err := r.resolveImport(ctx, ref)
			if err != nil {
				return err
			}
			if err := imports.SetIndex(i, resolved); err != nil {
				return err
			}
		}
	case datatree.KindMapping:
		for _, key := range imports.Keys() {
			ref, _ := imports.Get(key)
			resolved, err := r.resolveImport(ctx, ref)
			if err != nil {
				return err
			}
			if err := imports.Set(key, resolved); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveImport returns the value an import reference resolves to, or the
// reference itself when it cannot be resolved.
func (r *Resolver) resolveImport(ctx context.Context, ref *datatree.Value) (*datatree.Value, error) {
	rel, ok := ref.AsString()
	if !ok {
		return ref, nil
	}

	path := filepath.Join(r.srcDir, filepath.FromSlash(rel))
	found, err := r.exists(ctx, path)
	if err != nil || !found {
		return ref, err
	}

	ext := filepath.Ext(path)
	if ext != ExtData && ext != ExtMarkdown {
		r.logger.Debug(ctx, "Import left unresolved: unsupported extension", "path", path)
		return ref, nil
	}

	raw, err := r.read(path)
	if err != nil {
		return nil, err
	}
	if ext == ExtData {
		doc, err := datatree.Decode(raw)
		if err != nil {
			return nil, errors.NewParseError(errors.ErrCodeParseFailed, path, err)
		}
		return doc, nil
	}
	html, err := r.md.Render(raw)
	if err != nil {
		return nil, errors.NewParseError(errors.ErrCodeMarkdownFailed, path, err)
	}
	return datatree.Markup(html), nil
}

// readOptional reads path when it names an existing regular file.
func (r *Resolver) readOptional(ctx context.Context, path string) ([]byte, bool, error) {
	found, err := r.exists(ctx, path)
	if err != nil || !found {
		return nil, false, err
	}
	raw, err := r.read(path)
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// exists reports whether path is a regular file. A missing file logs a
// notice; a directory or other special file is skipped.
func (r *Resolver) exists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		logging.Notice(ctx, r.logger, path)
		return false, nil
	case err != nil:
		return false, errors.NewIOError(errors.ErrCodeInternalError, "reading "+path, err)
	case !info.Mode().IsRegular():
		r.logger.Debug(ctx, "Skipping path that is not a regular file", "path", path, "mode", info.Mode().String())
		return false, nil
	}
	return true, nil
}

func (r *Resolver) read(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "reading "+path, err)
	}
	return raw, nil
}
