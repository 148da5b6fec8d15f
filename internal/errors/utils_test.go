package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeWriteFailed, "x"))

	plain := fmt.Errorf("disk full")
	err := Wrap(plain, ErrorTypeIO, ErrCodeWriteFailed, "writing dist/index.html")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, plain)
	assert.False(t, err.Recoverable)

	notFound := NewNotFoundError("app/data/x.yaml", fs.ErrNotExist)
	wrapped := Wrap(notFound, ErrorTypeParse, ErrCodeParseFailed, "loading import")
	assert.Equal(t, "app/data/x.yaml", wrapped.Path)
	assert.True(t, wrapped.Recoverable)
	assert.True(t, IsNotFound(wrapped))
}

func TestWrapIO(t *testing.T) {
	err := WrapIO(NewNotFoundError("a", nil), ErrCodeWriteFailed, "writing a")
	assert.False(t, err.Recoverable)
	assert.Equal(t, ErrorTypeIO, err.Type)
	assert.Nil(t, WrapIO(nil, ErrCodeWriteFailed, "x"))
}

func TestWrapRender(t *testing.T) {
	assert.NoError(t, WrapRender(nil, ErrCodeRenderFailed, "x"))

	original := NewRenderError(ErrCodeTemplateNotFound, "no template", nil)
	assert.Same(t, original, WrapRender(original, ErrCodeRenderFailed, "loading templates"))

	wrapped := WrapRender(fmt.Errorf("permission denied"), ErrCodeRenderFailed, "loading templates")
	assert.True(t, IsRender(wrapped))
	assert.Contains(t, wrapped.Error(), "permission denied")
}

func TestErrorChainHelpers(t *testing.T) {
	root := fmt.Errorf("root cause")
	inner := NewParseError(ErrCodeParseFailed, "p.yaml", root)
	outer := Wrap(inner, ErrorTypeRender, ErrCodeRenderFailed, "rendering")

	assert.Equal(t, root, ExtractCause(outer))
	assert.Equal(t, root, ExtractCause(root))
	assert.Nil(t, ExtractCause(nil))

	assert.True(t, HasErrorCode(outer, ErrCodeRenderFailed))
	assert.True(t, HasErrorCode(outer, ErrCodeParseFailed))
	assert.False(t, HasErrorCode(outer, ErrCodeWriteFailed))
	assert.False(t, HasErrorCode(root, ErrCodeParseFailed))

	ctx := GetErrorContext(inner.WithContext("line", 3))
	assert.Equal(t, "p.yaml", ctx["file"])
	assert.Equal(t, "parse", ctx["type"])
	assert.Equal(t, 3, ctx["line"])
	assert.Equal(t, "unknown", GetErrorContext(root)["type"])
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors())
	assert.NoError(t, CombineErrors(nil, nil))

	single := fmt.Errorf("one")
	assert.Equal(t, single, CombineErrors(nil, single))

	combined := CombineErrors(fmt.Errorf("one"), nil, fmt.Errorf("two"))
	require.Error(t, combined)
	assert.True(t, HasErrorCode(combined, ErrCodeMultipleErrors))
	assert.Contains(t, combined.Error(), "2 errors occurred: one; two")
}
