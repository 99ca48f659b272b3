package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestErrorSentinelUnchanged(t *testing.T) {
	sentinel := New("sentinel")
	wrapped := sentinel.Wrap(New("cause"))
	assert.Nil(t, sentinel.Unwrap())
	assert.True(t, Is(wrapped, sentinel))
	assert.Equal(t, "sentinel: cause", wrapped.Error())
}

func TestErrorWrapWithLog(t *testing.T) {
	sentinel := New("oops")
	wrapped := sentinel.WrapWithLog(zap.NewNop(), New("inner"), zap.String("key", "value"))
	assert.True(t, Is(wrapped, sentinel))
	assert.Contains(t, wrapped.Error(), "inner")
}
