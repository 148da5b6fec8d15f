// Package renderer turns a resolved data context and a template name into
// HTML using html/template. All templates under the templates root form one
// set, so a page template can include partials by their relative path.
package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/jaff/internal/errors"
	"github.com/conneroisu/jaff/internal/markdown"
)

// DefaultExtension is appended to template names given without one.
const DefaultExtension = ".html.tmpl"

// Renderer executes named templates from a templates root.
type Renderer struct {
	root      string
	extension string
	cache     bool
	md        *markdown.Renderer

	mutex  sync.Mutex
	cached *template.Template
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCache keeps the parsed template set across renders. Without it every
// render re-reads the templates root, so edits show up immediately.
func WithCache(enabled bool) Option {
	return func(r *Renderer) { r.cache = enabled }
}

// WithExtension sets the template file extension.
func WithExtension(ext string) Option {
	return func(r *Renderer) {
		if ext != "" {
			r.extension = ext
		}
	}
}

// WithMarkdown sets the renderer behind the markdown template func.
func WithMarkdown(md *markdown.Renderer) Option {
	return func(r *Renderer) { r.md = md }
}

// New creates a renderer over the templates under root.
func New(root string, opts ...Option) *Renderer {
	r := &Renderer{
		root:      root,
		extension: DefaultExtension,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.md == nil {
		r.md = markdown.New()
	}
	return r
}

// Root returns the templates root.
func (r *Renderer) Root() string { return r.root }

// CacheEnabled reports whether parsed templates are reused.
func (r *Renderer) CacheEnabled() bool { return r.cache }

// TemplateName normalises a template identifier: slash separated,
// relative to the root, with the template extension.
func (r *Renderer) TemplateName(name string) string {
	name = filepath.ToSlash(strings.TrimPrefix(name, "/"))
	if !strings.HasSuffix(name, r.extension) {
		name += r.extension
	}
	return name
}

// Render executes the template called name with data.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	set, err := r.templates()
	if err != nil {
		return nil, err
	}

	id := r.TemplateName(name)
	tpl := set.Lookup(id)
	if tpl == nil {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateNotFound,
			fmt.Sprintf("template %q not found in %s", id, r.root), nil)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeRenderFailed,
			fmt.Sprintf("executing template %q", id), err)
	}
	return buf.Bytes(), nil
}

// Invalidate drops the cached template set.
func (r *Renderer) Invalidate() {
	r.mutex.Lock()
	r.cached = nil
	r.mutex.Unlock()
}

func (r *Renderer) templates() (*template.Template, error) {
	if !r.cache {
		return r.load()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.cached != nil {
		return r.cached, nil
	}
	set, err := r.load()
	if err != nil {
		return nil, err
	}
	r.cached = set
	return set, nil
}

func (r *Renderer) load() (*template.Template, error) {
	set := template.New("").Funcs(r.funcs())

	if _, err := os.Stat(r.root); err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateNotFound,
			"templates root unavailable: "+r.root, err)
	}

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, r.extension) {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		if _, err := set.New(filepath.ToSlash(rel)).Parse(string(b)); err != nil {
			return errors.NewRenderError(errors.ErrCodeRenderFailed,
				"parsing template "+filepath.ToSlash(rel), err)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapRender(err, errors.ErrCodeRenderFailed, "loading templates")
	}

	return set, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": func(s string) (template.HTML, error) {
			out, err := r.md.Render([]byte(s))
			return template.HTML(out), err
		},
		// A Caser keeps state between calls, so each call gets its own.
		"title": func(s string) string {
			return cases.Title(language.English).String(s)
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
	}
}
