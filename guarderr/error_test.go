package guarderr

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Programming", Programming.String())
	assert.Equal(t, "Env", EnvKind.String())
	assert.Equal(t, "Index", IndexKind.String())
	assert.Equal(t, "Other", Other.String())
	assert.Equal(t, "Guard", Guard.String())
	assert.Equal(t, "Timeout", Timeout.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestNewNormalizesDetail(t *testing.T) {
	id := uuid.New()
	e := New(Guard, "walk", "café", id)
	assert.Equal(t, Guard, e.Kind)
	assert.Equal(t, "walk", e.Where)
	assert.Equal(t, id, e.TraceID)
	assert.Contains(t, e.Error(), "café")
}

func TestGuardfFormatsDetail(t *testing.T) {
	id := uuid.New()
	e := Guardf(id, "checkRecCall", "call to %s is not on a smaller argument", "f")
	assert.Equal(t, Guard, e.Kind)
	assert.Equal(t, "call to f is not on a smaller argument", e.Detail)
}

func TestProgrammingfCapturesStack(t *testing.T) {
	id := uuid.New()
	e := Programmingf(id, "buildRecargs", "unreachable arm")
	assert.Equal(t, Programming, e.Kind)
	assert.NotEmpty(t, e.Stack, "a Programming error should capture a stack trace")
}

func TestOtherfAndTimeoutf(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, Other, Otherf(id, "reduce", "unexpected shape").Kind)
	assert.Equal(t, Timeout, Timeoutf(id, "budget", "exhausted").Kind)
}

func TestTryReturnsNilOnSuccess(t *testing.T) {
	id := uuid.New()
	err := Try(id, "checkRecCall", func() {})
	assert.Nil(t, err)
}

func TestTryPreservesTypedErrorKind(t *testing.T) {
	id := uuid.New()
	err := Try(id, "checkRecCall", func() {
		panic(Guardf(id, "checkRecCall", "not decreasing"))
	})
	require.NotNil(t, err)
	assert.Equal(t, Guard, err.Kind, "a typed *Error panic must pass through with its Kind intact")
}

func TestTryWrapsUntypedPanicAsProgramming(t *testing.T) {
	id := uuid.New()
	err := Try(id, "buildRecargs", func() {
		panic(errors.New("boom"))
	})
	require.NotNil(t, err)
	assert.Equal(t, Programming, err.Kind, "an untyped panic must be wrapped as Programming")
	assert.NotEmpty(t, err.Stack)
}
