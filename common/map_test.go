package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAddContainsRemove(t *testing.T) {
	m := NewMap[string, int]()
	m.Add("a", 1)
	assert.True(t, m.Contains("a"))
	m.Remove("a")
	assert.False(t, m.Contains("a"))
}

func TestMapMergeOverwrites(t *testing.T) {
	m := NewMap[string, int]()
	m.Add("a", 1)
	other := NewMap[string, int]()
	other.Add("a", 2)
	other.Add("b", 3)
	m.Merge(other)
	assert.Equal(t, 2, m["a"], "Merge should let other's value win on key collision")
	assert.Equal(t, 3, m["b"])
}

func TestMapMergeFuncCombinesOnCollision(t *testing.T) {
	m := NewMap[string, int]()
	m.Add("a", 1)
	other := NewMap[string, int]()
	other.Add("a", 10)
	other.Add("b", 20)
	m.MergeFunc(other, func(x, y int) int { return x + y })
	assert.Equal(t, 11, m["a"])
	assert.Equal(t, 20, m["b"])
}

func TestMapMergeStrictErrorsOnCollision(t *testing.T) {
	m := NewMap[string, int]()
	m.Add("a", 1)
	other := NewMap[string, int]()
	other.Add("a", 2)
	err := m.MergeStrict(other)
	require.Error(t, err, "MergeStrict must reject a duplicate key")
}

func TestMapKeys(t *testing.T) {
	m := NewMap[string, int]()
	m.Add("a", 1)
	m.Add("b", 2)
	keys := m.Keys()
	assert.True(t, keys.Contains("a"))
	assert.True(t, keys.Contains("b"))
}

func TestMergeMapsCombinesAll(t *testing.T) {
	m1 := NewMap[string, int]()
	m1.Add("a", 1)
	m2 := NewMap[string, int]()
	m2.Add("b", 2)
	merged := MergeMaps(m1, m2)
	assert.True(t, merged.Contains("a"))
	assert.True(t, merged.Contains("b"))
}
