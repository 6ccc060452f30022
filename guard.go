package geode

// Ref is a shared borrow guard. The pointer returned by Get must be treated
// as read-only and must not be retained after Release.
type Ref[T any] struct {
	c        *cell[T]
	entity   Entity
	released bool
}

// Get returns the borrowed component. It panics once the guard is released.
func (r *Ref[T]) Get() *T {
	if r.released {
		invariant(ErrGuardReleased, "shared borrow of %s", r.entity)
	}
	return &r.c.value
}

// Entity returns the entity owning the borrowed component.
func (r *Ref[T]) Entity() Entity {
	return r.entity
}

// Release ends the borrow. Only the first call has an effect.
func (r *Ref[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.c.releaseShared()
}

// Mut is an exclusive borrow guard.
type Mut[T any] struct {
	c        *cell[T]
	entity   Entity
	released bool
}

// Get returns the borrowed component. It panics once the guard is released.
func (m *Mut[T]) Get() *T {
	if m.released {
		invariant(ErrGuardReleased, "exclusive borrow of %s", m.entity)
	}
	return &m.c.value
}

// Set overwrites the borrowed component.
func (m *Mut[T]) Set(v T) {
	*m.Get() = v
}

// Entity returns the entity owning the borrowed component.
func (m *Mut[T]) Entity() Entity {
	return m.entity
}

// Release ends the borrow. Only the first call has an effect.
func (m *Mut[T]) Release() {
	if m.released {
		return
	}
	m.released = true
	m.c.releaseExclusive()
}
