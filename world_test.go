package geode_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/edwinsyarief/geode"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -run ^TestHealthScenario$ . -count 1
func TestHealthScenario(t *testing.T) {
	w := newWorld(t)
	e := w.Spawn()
	require.NoError(t, geode.Insert(w, e, Health{HP: 100}))

	m, err := geode.GetMut[Health](w, e)
	require.NoError(t, err)
	m.Get().HP = 80
	m.Release()

	r1, err := geode.Get[Health](w, e)
	require.NoError(t, err)
	defer r1.Release()
	r2, err := geode.Get[Health](w, e)
	require.NoError(t, err)
	defer r2.Release()
	assert.Equal(t, 80, r1.Get().HP)
	assert.Equal(t, 80, r2.Get().HP)

	_, err = geode.GetMut[Health](w, e)
	require.ErrorIs(t, err, geode.ErrBorrowConflict)
	assert.Contains(t, err.Error(), "2 shared borrows outstanding")
}

func TestMissingHealthScenario(t *testing.T) {
	w := newWorld(t)
	e := w.Spawn()
	_, err := geode.Get[Health](w, e)
	require.ErrorIs(t, err, geode.ErrNoSuchComponent)
	assert.NotErrorIs(t, err, geode.ErrBorrowConflict)
}

func TestRegisterForeignEntity(t *testing.T) {
	w := newWorld(t)
	e := geode.Spawn()
	assert.True(t, w.Register(e))
	assert.False(t, w.Register(e))
	assert.False(t, w.Register(geode.NilEntity))
	assert.True(t, w.Alive(e))
	assert.Equal(t, 1, w.Len())
}

func TestComponentsOfEntity(t *testing.T) {
	w := newWorld(t)
	e := w.Spawn()
	require.NoError(t, geode.Insert(w, e, Velocity{}))
	require.NoError(t, geode.Insert(w, e, Position{}))

	ids := w.Components(e)
	require.Len(t, ids, 2)
	var names []string
	for _, id := range ids {
		names = append(names, w.TypeOf(id).String())
	}
	assert.ElementsMatch(t, []string{"geode_test.Position", "geode_test.Velocity"}, names)
}

func TestLifecycleEvents(t *testing.T) {
	w := newWorld(t)
	var added, replaced, removed, dropped, spawned, destroyed int
	geode.Subscribe(w.Events(), func(ev geode.ComponentAdded) {
		if ev.Replaced {
			replaced++
		} else {
			added++
		}
	})
	geode.Subscribe(w.Events(), func(ev geode.ComponentRemoved) {
		if ev.Destroyed {
			dropped++
		} else {
			removed++
		}
	})
	geode.Subscribe(w.Events(), func(geode.EntitySpawned) { spawned++ })
	var lastLabel string
	geode.Subscribe(w.Events(), func(ev geode.EntityDestroyed) {
		destroyed++
		lastLabel = ev.Label
		assert.False(t, w.Alive(ev.Entity), "destroy events fire after the entity is gone")
	})

	o := geode.With(geode.With(geode.NewOwned(w), Position{}), Velocity{}).WithDebugLabel("ship")
	geode.With(o, Position{X: 1})
	_, _, err := geode.Remove[Velocity](w, o.Entity())
	require.NoError(t, err)
	o.Destroy()

	assert.Equal(t, 1, spawned)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, "ship", lastLabel)
}

func TestEventBusWithoutHandlers(t *testing.T) {
	bus := &geode.EventBus{}
	// No panic expected
	geode.Publish(bus, geode.EntitySpawned{})
}

func TestCommandBuffer(t *testing.T) {
	w := newWorld(t)
	destroyed := 0
	victim := w.Spawn()
	require.NoError(t, geode.Insert(w, victim, Health{HP: 1}))
	holder := w.Spawn()
	require.NoError(t, geode.Insert(w, holder, Buffer{destroyed: &destroyed}))
	owned := geode.NewOwned(w)
	tag := w.NewTag("spawned")

	var cb geode.CommandBuffer
	q := geode.Query1[Health](w)
	for q.Next() {
		fresh := cb.Spawn()
		geode.DeferInsert(&cb, fresh, Health{HP: 50})
		cb.Tag(fresh, tag)
		cb.Despawn(q.Entity())
	}
	geode.DeferRemove[Buffer](&cb, holder)
	cb.Destroy(owned)
	assert.Equal(t, 6, cb.Len())
	assert.True(t, w.Alive(victim), "nothing applies before Apply")

	require.NoError(t, cb.Apply(w))
	assert.Zero(t, cb.Len())
	assert.False(t, w.Alive(victim))
	assert.Equal(t, 1, destroyed, "deferred removals destroy the value")
	assert.True(t, owned.Destroyed())

	spawned := w.TaggedEntities(tag)
	require.Len(t, spawned, 1)
	got, err := geode.Value[Health](w, spawned[0])
	require.NoError(t, err)
	assert.Equal(t, 50, got.HP)
}

func TestCommandBufferJoinsErrors(t *testing.T) {
	w := newWorld(t)
	var cb geode.CommandBuffer
	geode.DeferInsert(&cb, geode.Spawn(), Health{})
	e := cb.Spawn()
	geode.DeferInsert(&cb, e, Position{})

	err := cb.Apply(w)
	require.ErrorIs(t, err, geode.ErrDeadEntity)
	assert.True(t, geode.Has[Position](w, e), "a failing command does not stop the rest")
}

func TestCommandBufferReportsDeadEntities(t *testing.T) {
	w := newWorld(t)
	tag := w.NewTag("late")
	gone := w.Spawn()
	require.True(t, w.Despawn(gone))

	var cb geode.CommandBuffer
	cb.Despawn(gone)
	cb.Tag(gone, tag)
	err := cb.Apply(w)
	require.ErrorIs(t, err, geode.ErrDeadEntity)
	assert.Contains(t, err.Error(), "command 0")
	assert.Contains(t, err.Error(), "command 1")
}

func TestWorldCommandsFollowAllocator(t *testing.T) {
	want := geode.NewAllocator(7)
	w := geode.NewWorld(4, geode.WithAllocator(geode.NewAllocator(7)))

	cb := w.Commands()
	first, second := cb.Spawn(), w.Spawn()
	assert.Equal(t, want.Spawn(), first, "buffered spawns draw from the world allocator")
	assert.Equal(t, want.Spawn(), second)

	assert.False(t, w.Alive(first))
	require.NoError(t, cb.Apply(w))
	assert.True(t, w.Alive(first))
}

func TestSharedWorld(t *testing.T) {
	sw := geode.NewSharedWorld(newWorld(t))
	var e geode.Entity
	require.NoError(t, sw.Do(func(w *geode.World) error {
		e = w.Spawn()
		return geode.Insert(w, e, Health{})
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				err := sw.Do(func(w *geode.World) error {
					return geode.Write(w, e, func(h *Health) { h.HP++ })
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, sw.Do(func(w *geode.World) error {
		h, err := geode.Value[Health](w, e)
		assert.Equal(t, 800, h.HP)
		return err
	}))
}

func TestConflictsAreLogged(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	w := geode.NewWorld(4, geode.WithLogger(log))
	e := w.SpawnOwned().WithDebugLabel("door")
	geode.With(e, Health{})

	m, err := geode.GetMut[Health](w, e.Entity())
	require.NoError(t, err)
	_, err = geode.Get[Health](w, e.Entity())
	require.ErrorIs(t, err, geode.ErrBorrowConflict)
	m.Release()

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "borrow refused", last.Message)
	assert.Equal(t, logrus.DebugLevel, last.Level)
	assert.Equal(t, "exclusive", last.Data["state"])
	assert.Equal(t, w.ID().String(), last.Data["world"])
	assert.Contains(t, last.Data["entity"], "door")
}

func leakOwned(w *geode.World) geode.Entity {
	return w.SpawnOwned().WithDebugLabel("forgotten").Entity()
}

func TestLeakDetection(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	w := geode.NewWorld(4, geode.WithLogger(log), geode.WithLeakDetection(true))
	e := leakOwned(w)

	require.Eventually(t, func() bool {
		runtime.GC()
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.WarnLevel && entry.Data["entity"] == e.String() {
				return entry.Data["label"] == "forgotten"
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, w.Alive(e), "leaks are reported, not collected")
}
