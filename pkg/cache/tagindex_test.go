package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagIndexTakeReturnsTaggedKeys(t *testing.T) {
	ti := newTagIndex()
	ti.add("k1", []string{"dataset:ds1", "org:acme"})
	ti.add("k2", []string{"dataset:ds1"})
	ti.add("k3", []string{"dataset:ds2"})

	keys := ti.take("dataset:ds1")
	assert.ElementsMatch(t, []string{"k1", "k2"}, keys)

	// Taken keys are gone from every tag they carried.
	assert.Empty(t, ti.take("org:acme"))
	assert.Equal(t, []string{"k3"}, ti.take("dataset:ds2"))
	assert.Equal(t, 0, ti.size())
}

func TestTagIndexAddReplacesPreviousTags(t *testing.T) {
	ti := newTagIndex()
	ti.add("k1", []string{"dataset:ds1"})
	ti.add("k1", []string{"dataset:ds2"})

	assert.Empty(t, ti.take("dataset:ds1"))
	assert.Equal(t, []string{"k1"}, ti.take("dataset:ds2"))
}

func TestTagIndexRemove(t *testing.T) {
	ti := newTagIndex()
	ti.add("k1", []string{"dataset:ds1"})
	ti.remove("k1")

	assert.Empty(t, ti.take("dataset:ds1"))
	assert.Equal(t, 0, ti.size())
}

func TestTagIndexReset(t *testing.T) {
	ti := newTagIndex()
	ti.add("k1", []string{"dataset:ds1"})
	ti.add("k2", []string{"connection:c1"})
	ti.reset()

	assert.Equal(t, 0, ti.size())
	assert.Empty(t, ti.take("dataset:ds1"))
}
