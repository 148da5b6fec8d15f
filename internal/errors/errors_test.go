package errors

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := NewParseError(ErrCodeParseFailed, "app/pages/index.yaml", fmt.Errorf("bad indent"))

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_PARSE_FAILED]")
	assert.Contains(t, msg, "app/pages/index.yaml")
	assert.Contains(t, msg, "parse failed")
	assert.Contains(t, msg, "bad indent")
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewRenderError(ErrCodeRenderFailed, "template failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Is(&Error{Type: ErrorTypeRender, Code: ErrCodeRenderFailed}))
	assert.False(t, err.Is(&Error{Type: ErrorTypeParse, Code: ErrCodeRenderFailed}))
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
		parse    bool
		render   bool
	}{
		{"not found", NewNotFoundError("x.yaml", nil), true, false, false},
		{"wrapped not found", fmt.Errorf("loading: %w", NewNotFoundError("x.yaml", nil)), true, false, false},
		{"os not exist", &fs.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, true, false, false},
		{"parse", NewParseError(ErrCodeParseFailed, "x.yaml", nil), false, true, false},
		{"render", NewRenderError(ErrCodeRenderFailed, "boom", nil), false, false, true},
		{"plain", fmt.Errorf("plain"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.parse, IsParse(tt.err))
			assert.Equal(t, tt.render, IsRender(tt.err))
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(NewNotFoundError("a", nil)))
	assert.False(t, IsRecoverable(NewParseError(ErrCodeParseFailed, "a", nil)))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}

func TestWithContext(t *testing.T) {
	err := NewValidationError(ErrCodeMissingTemplate, "no template").
		WithContext("field", "template").
		WithPath("p.yaml")

	assert.Equal(t, "template", err.Context["field"])
	assert.Equal(t, "p.yaml", err.Path)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasErrors())

	c.Add("a.yaml", nil)
	assert.False(t, c.HasErrors())

	c.Add("a.yaml", fmt.Errorf("first"))
	c.Add("b.yaml", fmt.Errorf("second <script>"))
	require.Equal(t, 2, c.Len())

	assert.Len(t, c.ForPage("a.yaml"), 1)
	assert.Contains(t, c.Summary(), "a.yaml: first")
	assert.Contains(t, c.Summary(), "b.yaml: second")

	overlay := c.Overlay()
	assert.Contains(t, overlay, "jaff-error-overlay")
	assert.Contains(t, overlay, "&lt;script&gt;")
	assert.NotContains(t, overlay, "<script>")

	c.Clear()
	assert.False(t, c.HasErrors())
	assert.Empty(t, c.Overlay())
}

type recordingLogger struct {
	infos, warns, errs []string
}

func (r *recordingLogger) Info(_ context.Context, msg string, _ ...interface{}) {
	r.infos = append(r.infos, msg)
}

func (r *recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}

func (r *recordingLogger) Error(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.errs = append(r.errs, msg)
}

func TestErrorHandler(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)
	ctx := context.Background()

	h.Handle(ctx, nil)
	h.Handle(ctx, NewNotFoundError("app/data/global.yaml", nil))
	h.Handle(ctx, NewRenderError(ErrCodeRenderFailed, "boom", nil))
	h.Handle(ctx, fmt.Errorf("plain"))

	require.Len(t, log.infos, 1)
	assert.Equal(t, "NOTICE: app/data/global.yaml not found.", log.infos[0])
	assert.Len(t, log.warns, 1)
	assert.Len(t, log.errs, 1)
}
