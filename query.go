package geode

import (
	"errors"
	"iter"
)

// Query iterates over the entities whose component set is a superset of a
// required set, optionally excluding components and requiring tags.
//
// Iteration works on a snapshot: the first Next after construction or Reset
// records the matching entities, and structural changes made while iterating
// (inserts, removals, destruction, tagging) take effect in the world
// immediately but do not alter the running sequence. An entity yielded from
// the snapshot may therefore have lost a component since; borrows on it then
// report ErrNoSuchComponent. Use a CommandBuffer to apply structural changes
// after the iteration instead.
//
// Example:
//
//	q := geode.Query2[Position, Velocity](w)
//	for q.Next() {
//	    // ... borrow components of q.Entity()
//	}
type Query struct {
	world    *World
	snapshot []Entity
	tagList  []Tag
	include  bitmask256
	exclude  bitmask256
	tags     bitmask256
	pos      int
	cur      Entity
	started  bool
}

// NewQuery creates a query for entities holding every component in ids.
// Creating a query does no work; the snapshot is taken by the first Next.
func NewQuery(w *World, ids ...ComponentID) *Query {
	return &Query{
		world:   w,
		include: makeMask(ids...),
	}
}

// Query1 creates a query for entities with a component of type A.
func Query1[A any](w *World) *Query {
	return NewQuery(w, ComponentIDOf[A](w))
}

// Query2 creates a query for entities with components of types A and B.
func Query2[A, B any](w *World) *Query {
	return NewQuery(w, ComponentIDOf[A](w), ComponentIDOf[B](w))
}

// Query3 creates a query for entities with components of types A, B and C.
func Query3[A, B, C any](w *World) *Query {
	return NewQuery(w, ComponentIDOf[A](w), ComponentIDOf[B](w), ComponentIDOf[C](w))
}

// With adds required components.
func (q *Query) With(ids ...ComponentID) *Query {
	for _, id := range ids {
		q.include.set(uint8(id))
	}
	q.started = false
	return q
}

// Without excludes entities holding any of ids.
func (q *Query) Without(ids ...ComponentID) *Query {
	for _, id := range ids {
		q.exclude.set(uint8(id))
	}
	q.started = false
	return q
}

// Tagged restricts the query to members of every tag given. Tags must come
// from the query's world.
func (q *Query) Tagged(tags ...Tag) *Query {
	for _, t := range tags {
		q.world.tags.check(t)
		if !q.tags.containsBit(t.id) {
			q.tags.set(t.id)
			q.tagList = append(q.tagList, t)
		}
	}
	q.started = false
	return q
}

// Reset takes a fresh snapshot and rewinds the iterator.
func (q *Query) Reset() {
	q.snapshot = q.collect(q.snapshot[:0])
	q.pos = -1
	q.cur = NilEntity
	q.started = true
}

// Next advances to the next matching entity. It returns false once the
// snapshot is exhausted; call Reset to iterate again.
func (q *Query) Next() bool {
	if !q.started {
		q.Reset()
	}
	q.pos++
	if q.pos >= len(q.snapshot) {
		q.pos = len(q.snapshot)
		q.cur = NilEntity
		return false
	}
	q.cur = q.snapshot[q.pos]
	return true
}

// Entity returns the current entity. Only valid after Next returned true.
func (q *Query) Entity() Entity {
	return q.cur
}

// Entities returns a fresh snapshot of every matching entity.
func (q *Query) Entities() []Entity {
	return q.collect(nil)
}

// Count returns the number of matching entities right now.
func (q *Query) Count() int {
	n := 0
	q.visit(func(Entity) { n++ })
	return n
}

// All returns a restartable sequence over the matching entities. Each range
// over it takes its own snapshot and leaves the Next cursor untouched.
func (q *Query) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range q.collect(nil) {
			if !yield(e) {
				return
			}
		}
	}
}

func (q *Query) collect(dst []Entity) []Entity {
	q.visit(func(e Entity) { dst = append(dst, e) })
	return dst
}

// visit calls fn for every entity matching the query at this instant.
func (q *Query) visit(fn func(Entity)) {
	w := q.world
	if q.include.isZero() && len(q.tagList) > 0 {
		// Tag-only query: walk the smallest tag set.
		smallest := w.tags.members[q.tagList[0].id]
		for _, t := range q.tagList[1:] {
			if m := w.tags.members[t.id]; len(m) < len(smallest) {
				smallest = m
			}
		}
		for e := range smallest {
			rec := w.entities[e]
			if rec.tags.contains(q.tags) && !rec.arch.mask.intersects(q.exclude) {
				fn(e)
			}
		}
		return
	}
	for _, a := range w.archetypes.archetypes {
		if len(a.entities) == 0 || !a.mask.contains(q.include) || a.mask.intersects(q.exclude) {
			continue
		}
		for _, e := range a.entities {
			if q.tags.isZero() || w.entities[e].tags.contains(q.tags) {
				fn(e)
			}
		}
	}
}

// Each calls fn with a shared borrow of the T of every entity holding one.
// Entities that lose their T during the walk are skipped; any other borrow
// failure stops the walk and is returned.
func Each[T any](w *World, fn func(Entity, *T)) error {
	q := Query1[T](w)
	for q.Next() {
		e := q.Entity()
		err := Read(w, e, func(v *T) { fn(e, v) })
		if err != nil && !errors.Is(err, ErrNoSuchComponent) {
			return err
		}
	}
	return nil
}

// EachMut is Each with exclusive borrows.
func EachMut[T any](w *World, fn func(Entity, *T)) error {
	q := Query1[T](w)
	for q.Next() {
		e := q.Entity()
		err := Write(w, e, func(v *T) { fn(e, v) })
		if err != nil && !errors.Is(err, ErrNoSuchComponent) {
			return err
		}
	}
	return nil
}
