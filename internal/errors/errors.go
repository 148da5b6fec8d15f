package errors

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

// PageError records a failure that stopped a single page from being built.
type PageError struct {
	Page      string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface
func (pe *PageError) Error() string {
	return fmt.Sprintf("%s: %v", pe.Page, pe.Err)
}

// Unwrap returns the underlying error
func (pe *PageError) Unwrap() error {
	return pe.Err
}

// Collector collects per-page failures during a build. A failure of one
// page never aborts the others, so the collector is the only place a
// build reports what went wrong.
type Collector struct {
	pageErrors []PageError
	mutex      sync.RWMutex
}

// NewCollector creates a new error collector
func NewCollector() *Collector {
	return &Collector{pageErrors: make([]PageError, 0)}
}

// Add records a failure for page. Nil errors are ignored.
func (c *Collector) Add(page string, err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.pageErrors = append(c.pageErrors, PageError{
		Page:      page,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// Errors returns a copy of all collected page errors
func (c *Collector) Errors() []PageError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]PageError, len(c.pageErrors))
	copy(result, c.pageErrors)
	return result
}

// ForPage returns the errors recorded for a specific page
func (c *Collector) ForPage(page string) []PageError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var out []PageError
	for _, pe := range c.pageErrors {
		if pe.Page == page {
			out = append(out, pe)
		}
	}
	return out
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.pageErrors) > 0
}

// Len returns the number of collected errors
func (c *Collector) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.pageErrors)
}

// Clear clears all errors
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.pageErrors = c.pageErrors[:0]
}

// Summary joins every error message on its own line.
func (c *Collector) Summary() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	lines := make([]string, 0, len(c.pageErrors))
	for i := range c.pageErrors {
		lines = append(lines, c.pageErrors[i].Error())
	}
	return strings.Join(lines, "\n")
}

// Overlay generates the HTML fragment the live reload client shows on top
// of the page when the last build failed.
func (c *Collector) Overlay() string {
	if !c.HasErrors() {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div id="jaff-error-overlay" style="position:fixed;top:0;left:0;width:100%;height:100%;` +
		`background:rgba(0,0,0,.85);color:#fff;font-family:Menlo,monospace;font-size:14px;` +
		`z-index:9999;padding:20px;box-sizing:border-box;overflow:auto">`)
	b.WriteString(`<h2 style="color:#ff6b6b;margin-top:0">Build Errors</h2>`)

	c.mutex.RLock()
	for _, pe := range c.pageErrors {
		fmt.Fprintf(&b,
			`<div style="background:#2d3748;padding:12px;margin-bottom:12px;border-left:4px solid #ff6b6b">`+
				`<strong>%s</strong> <span style="color:#a0aec0">%s</span><pre style="white-space:pre-wrap">%s</pre></div>`,
			html.EscapeString(pe.Page),
			pe.Timestamp.Format("15:04:05"),
			html.EscapeString(pe.Err.Error()))
	}
	c.mutex.RUnlock()

	b.WriteString(`</div>`)
	return b.String()
}
