package keyhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, Hash("a", "b", "c"), Hash("a", "b", "c"))
	assert.Len(t, Hash("a"), 64)
}

func TestHash_FieldBoundariesSurviveDelimiters(t *testing.T) {
	// Concatenation-equivalent tuples must hash differently.
	assert.NotEqual(t, Hash("ab", "c"), Hash("a", "bc"))
	assert.NotEqual(t, Hash("a:b", "c"), Hash("a", "b:c"))
	assert.NotEqual(t, Hash("abc"), Hash("a", "b", "c"))
}

func TestHash_EmptyFieldsAreSignificant(t *testing.T) {
	assert.NotEqual(t, Hash("a"), Hash("a", ""))
	assert.NotEqual(t, Hash("", "a"), Hash("a", ""))
}

func TestHash_OrderMatters(t *testing.T) {
	assert.NotEqual(t, Hash("a", "b"), Hash("b", "a"))
}
