package geode_test

import (
	"testing"

	"github.com/edwinsyarief/geode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -run ^TestDestroyRemovesComponents$ . -count 1
func TestDestroyRemovesComponents(t *testing.T) {
	w := newWorld(t)
	destroyed := 0
	o, weak := geode.With(geode.With(geode.NewOwned(w), Position{X: 1}),
		Buffer{Name: "gpu", destroyed: &destroyed}).
		WithDebugLabel("mesh").
		Split()

	assert.Equal(t, weak, o.WeakCopy())
	assert.Len(t, w.Components(weak), 2)

	o.Destroy()
	assert.True(t, o.Destroyed())
	assert.Equal(t, 1, destroyed, "destructors run exactly once on destroy")
	assert.False(t, w.Alive(weak))
	assert.Nil(t, w.Components(weak))

	for range 3 {
		_, err := geode.Get[Position](w, weak)
		assert.ErrorIs(t, err, geode.ErrNoSuchComponent)
		_, err = geode.GetMut[Buffer](w, weak)
		assert.ErrorIs(t, err, geode.ErrNoSuchComponent)
		assert.False(t, geode.Has[Position](w, weak))
		_, ok := w.DebugLabel(weak)
		assert.False(t, ok)
	}
	assert.Zero(t, geode.Len[Position](w))
	assert.Zero(t, geode.Len[Buffer](w))
	assert.ErrorIs(t, geode.Insert(w, weak, Position{}), geode.ErrDeadEntity)
	assert.Equal(t, 1, destroyed)
}

func TestDestroyRunsPointerDestructors(t *testing.T) {
	w := newWorld(t)
	destroyed := 0
	o := geode.With(geode.NewOwned(w), &Buffer{Name: "vbo", destroyed: &destroyed})
	e := w.Spawn()
	require.NoError(t, geode.Insert(w, e, &Buffer{Name: "ibo", destroyed: &destroyed}))

	o.Destroy()
	assert.Equal(t, 1, destroyed)
	w.Clear()
	assert.Equal(t, 2, destroyed, "Clear destroys pointer components too")
}

func TestDoubleDestroyPanics(t *testing.T) {
	w := newWorld(t)
	o := geode.NewOwned(w)
	o.Destroy()
	requirePanicsIs(t, geode.ErrUseAfterDestroy, o.Destroy)
	requirePanicsIs(t, geode.ErrUseAfterDestroy, func() { geode.With(o, Health{}) })
}

func TestDoubleOwnershipPanics(t *testing.T) {
	w := newWorld(t)
	o := w.SpawnOwned()
	requirePanicsIs(t, geode.ErrDoubleOwnership, func() { w.Adopt(o.Entity()) })
	requirePanicsIs(t, geode.ErrDoubleOwnership, func() { w.Despawn(o.Entity()) })
	assert.True(t, w.Alive(o.Entity()), "refused ownership changes leave the entity alive")

	requirePanicsIs(t, geode.ErrUseAfterDestroy, func() { w.Adopt(geode.Spawn()) })
}

func TestAdoptSpawnedEntity(t *testing.T) {
	w := newWorld(t)
	e := w.Spawn()
	require.NoError(t, geode.Insert(w, e, Health{HP: 3}))
	w.SetDebugLabel(e, "adopted")

	o := w.Adopt(e)
	assert.Equal(t, e, o.Entity())
	assert.Same(t, w, o.World())
	o.Destroy()
	assert.False(t, w.Alive(e))
}

func TestDestroyWhileBorrowedPanics(t *testing.T) {
	w := newWorld(t)
	o := geode.With(geode.With(geode.NewOwned(w), Position{}), Health{HP: 10})

	ref, err := geode.Get[Health](w, o.Entity())
	require.NoError(t, err)

	requirePanicsIs(t, geode.ErrDestroyWhileBorrowed, o.Destroy)
	assert.True(t, w.Alive(o.Entity()), "nothing is torn down when destroy is refused")
	assert.True(t, geode.Has[Position](w, o.Entity()))
	assert.Equal(t, 10, ref.Get().HP)

	ref.Release()
	o.Destroy()
	assert.False(t, w.Alive(o.Entity()))
}

func TestDespawnUnowned(t *testing.T) {
	w := newWorld(t)
	e := w.Spawn()
	require.NoError(t, geode.Insert(w, e, Velocity{}))

	assert.True(t, w.Despawn(e))
	assert.False(t, w.Despawn(e))
	assert.False(t, geode.Has[Velocity](w, e))
}

func TestClearSpendsOwningHandles(t *testing.T) {
	w := newWorld(t)
	destroyed := 0
	o := geode.With(geode.NewOwned(w), Buffer{destroyed: &destroyed})
	w.Spawn()

	w.Clear()
	assert.Zero(t, w.Len())
	assert.Equal(t, 1, destroyed)
	assert.True(t, o.Destroyed())
	requirePanicsIs(t, geode.ErrUseAfterDestroy, o.Destroy)
}

func TestDebugLabels(t *testing.T) {
	w := newWorld(t)
	o := geode.NewOwned(w).WithDebugLabel("local player")
	e := o.Entity()

	l, ok := w.DebugLabel(e)
	require.True(t, ok)
	assert.Equal(t, "local player", l)
	assert.Contains(t, w.Describe(e), `"local player"`)

	w.UnsetDebugLabel(e)
	assert.Equal(t, e.String(), w.Describe(e))

	w.SetDebugLabel(geode.Spawn(), "ignored")
	o.Destroy()
}
