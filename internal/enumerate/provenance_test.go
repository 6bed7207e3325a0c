package enumerate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

func TestTrackProvenance(t *testing.T) {
	t.Parallel()
	pool := labelled("a", "b", "c")

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		original := labelled("b")[0].Structure
		out, prov := TrackProvenance(context.Background(), pool, original, magnetism.Antiferromagnetic, sameLabel)
		assert.Equal(t, Provenance{Tracked: true, Index: 1}, prov)
		assert.Len(t, out, 3)
	})

	t.Run("first match wins", func(t *testing.T) {
		t.Parallel()
		dup := labelled("a", "b", "b")
		original := labelled("b")[0].Structure
		_, prov := TrackProvenance(context.Background(), dup, original, magnetism.Ferromagnetic, sameLabel)
		assert.Equal(t, 1, prov.Index)
	})

	t.Run("appended", func(t *testing.T) {
		t.Parallel()
		original := labelled("z")[0].Structure
		out, prov := TrackProvenance(context.Background(), pool, original, magnetism.Ferrimagnetic, sameLabel)
		assert.Equal(t, Provenance{Tracked: true, Index: NotEnumerated}, prov)
		assert.Len(t, out, len(pool)+1)
		assert.Len(t, pool, 3, "input pool is not modified")
		last := out[len(out)-1]
		assert.Equal(t, StrategyInput, last.Strategy)
		assert.Equal(t, NotEnumerated, last.Rank)
		assert.Equal(t, NotEnumerated, Label(out, len(out)-1))
		assert.Equal(t, 2, Label(out, 2))
	})

	t.Run("non-magnetic is not tracked", func(t *testing.T) {
		t.Parallel()
		calls := 0
		m := matchFunc(func(_, _ structure.Structure) bool { calls++; return true })
		out, prov := TrackProvenance(context.Background(), pool, pool[0].Structure, magnetism.NonMagnetic, m)
		assert.False(t, prov.Tracked)
		assert.Len(t, out, 3)
		assert.Zero(t, calls)
	})
}
