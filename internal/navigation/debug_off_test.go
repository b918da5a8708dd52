//go:build !quickclipdebug

package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaleCursorRecoversToFirst(t *testing.T) {
	g := sampleGroups()
	stale := Cursor{Category: "Gone", Index: 4, Valid: true}

	assert.Equal(t, First(g), Advance(g, stale))
	assert.Equal(t, First(g), Retreat(g, stale))

	item, ok := Resolve(g, stale)
	assert.True(t, ok)
	assert.Equal(t, "p0", item)
}
