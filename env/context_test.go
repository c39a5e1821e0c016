package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yforster/metacoq-guard/term"
)

func TestContextPushIsInnermostFirst(t *testing.T) {
	var c Context
	c = c.Push(Assum{Name: term.Name{Value: "x"}, Type: &term.TSort{}})
	c = c.Push(Assum{Name: term.Name{Value: "y"}, Type: &term.TSort{}})

	at0, ok := c.At(0)
	assert.True(t, ok)
	assert.Equal(t, term.Name{Value: "y"}, at0.Name, "the most recently pushed assumption resolves TRel{Index: 0}")

	at1, ok := c.At(1)
	assert.True(t, ok)
	assert.Equal(t, term.Name{Value: "x"}, at1.Name)

	assert.Equal(t, 2, c.Len())
}

func TestContextPushManyPushesOutermostFirst(t *testing.T) {
	var c Context
	c = c.PushMany([]Assum{
		{Name: term.Name{Value: "x"}, Type: &term.TSort{}},
		{Name: term.Name{Value: "y"}, Type: &term.TSort{}},
	})

	at0, ok := c.At(0)
	assert.True(t, ok)
	assert.Equal(t, term.Name{Value: "y"}, at0.Name, "the last entry of the batch ends up innermost")

	at1, ok := c.At(1)
	assert.True(t, ok)
	assert.Equal(t, term.Name{Value: "x"}, at1.Name)
}

func TestContextAtOutOfRange(t *testing.T) {
	var c Context
	c = c.Push(Assum{Name: term.Name{Value: "x"}, Type: &term.TSort{}})

	_, ok := c.At(-1)
	assert.False(t, ok)

	_, ok = c.At(1)
	assert.False(t, ok)
}
