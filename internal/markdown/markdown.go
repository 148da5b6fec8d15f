// Package markdown renders the Markdown fragments pages import.
package markdown

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSanitize runs the produced HTML through bluemonday's user generated
// content policy.
func WithSanitize(enabled bool) Option {
	return func(r *Renderer) {
		if enabled {
			r.policy = bluemonday.UGCPolicy()
		} else {
			r.policy = nil
		}
	}
}

// New returns a GitHub flavoured Markdown renderer. Raw HTML in the
// source is passed through unless sanitising is enabled.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts src to HTML.
func (r *Renderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", err
	}
	if r.policy != nil {
		return r.policy.Sanitize(buf.String()), nil
	}
	return buf.String(), nil
}
