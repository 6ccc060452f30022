package geode

import (
	"reflect"
)

// cell holds one component value together with its borrow tracker.
type cell[T any] struct {
	value T
	tracker
}

// storage is the component table for one type: entity -> cell.
type storage[T any] struct {
	typ   reflect.Type
	cells map[Entity]*cell[T]
	id    ComponentID
}

func newStorage[T any](id ComponentID, t reflect.Type) *storage[T] {
	return &storage[T]{
		id:    id,
		typ:   t,
		cells: make(map[Entity]*cell[T]),
	}
}

func (s *storage[T]) componentType() reflect.Type {
	return s.typ
}

func (s *storage[T]) has(e Entity) bool {
	_, ok := s.cells[e]
	return ok
}

func (s *storage[T]) borrowState(e Entity) (BorrowState, bool) {
	c, ok := s.cells[e]
	if !ok {
		return BorrowState{}, false
	}
	return c.state(), true
}

func (s *storage[T]) drop(e Entity) bool {
	c, ok := s.cells[e]
	if !ok {
		return false
	}
	delete(s.cells, e)
	destroyValue(&c.value)
	return true
}

func (s *storage[T]) len() int {
	return len(s.cells)
}

// destroyValue runs the value's destructor if it has one. Pointer components
// are asked first so a *Resource stored as T is destroyed through its own
// method set; a nil pointer has nothing to destroy.
func destroyValue[T any](v *T) {
	if d, ok := any(*v).(Destroyer); ok {
		if rv := reflect.ValueOf(d); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return
		}
		d.Destroy()
		return
	}
	if d, ok := any(v).(Destroyer); ok {
		d.Destroy()
	}
}

// Insert attaches value to e. If e already has a T, the old value is replaced
// and destroyed. Replacing a borrowed component fails with ErrBorrowConflict;
// inserting into an entity that is not alive in w fails with ErrDeadEntity.
func Insert[T any](w *World, e Entity, value T) error {
	rec, ok := w.entities[e]
	if !ok {
		return deadEntity(e, reflect.TypeFor[T]())
	}
	s := storageOf[T](w)
	if c, ok := s.cells[e]; ok {
		if !c.free() {
			return w.conflict(&BorrowError{Entity: e, Type: s.typ, Exclusive: true, State: c.state()})
		}
		old := c.value
		c.value = value
		destroyValue(&old)
		Publish(&w.events, ComponentAdded{Entity: e, ID: s.id, Type: s.typ, Replaced: true})
		return nil
	}
	s.cells[e] = &cell[T]{value: value}
	w.attach(rec, e, s.id)
	Publish(&w.events, ComponentAdded{Entity: e, ID: s.id, Type: s.typ})
	return nil
}

// Remove detaches the T of e and hands it back without destroying it.
// Removing an absent component is not an error: it reports false. Removing a
// borrowed component fails with ErrBorrowConflict.
func Remove[T any](w *World, e Entity) (T, bool, error) {
	var zero T
	s, ok := lookupStorage[T](w)
	if !ok {
		return zero, false, nil
	}
	c, ok := s.cells[e]
	if !ok {
		return zero, false, nil
	}
	if !c.free() {
		return zero, false, w.conflict(&BorrowError{Entity: e, Type: s.typ, Exclusive: true, State: c.state()})
	}
	delete(s.cells, e)
	if rec, ok := w.entities[e]; ok {
		w.detach(rec, e, s.id)
	}
	Publish(&w.events, ComponentRemoved{Entity: e, ID: s.id, Type: s.typ})
	return c.value, true, nil
}

// Has reports whether e has a component of type T.
func Has[T any](w *World, e Entity) bool {
	s, ok := lookupStorage[T](w)
	return ok && s.has(e)
}

// Len returns the number of entities holding a T.
func Len[T any](w *World) int {
	s, ok := lookupStorage[T](w)
	if !ok {
		return 0
	}
	return s.len()
}

// BorrowStateOf reports the tracker state of e's T. The second result is
// false when e has no T.
func BorrowStateOf[T any](w *World, e Entity) (BorrowState, bool) {
	s, ok := lookupStorage[T](w)
	if !ok {
		return BorrowState{}, false
	}
	return s.borrowState(e)
}

// lookupCell finds the cell of e's T or reports ErrNoSuchComponent.
func lookupCell[T any](w *World, e Entity) (*cell[T], reflect.Type, error) {
	s, ok := lookupStorage[T](w)
	if !ok {
		t := reflect.TypeFor[T]()
		return nil, t, noSuchComponent(e, t)
	}
	c, ok := s.cells[e]
	if !ok {
		return nil, s.typ, noSuchComponent(e, s.typ)
	}
	return c, s.typ, nil
}

// Get acquires a shared borrow of e's T. It fails with ErrNoSuchComponent if e
// has no T and with ErrBorrowConflict while the T is exclusively borrowed.
// Release the guard when done, typically with defer.
func Get[T any](w *World, e Entity) (*Ref[T], error) {
	c, t, err := lookupCell[T](w, e)
	if err != nil {
		return nil, err
	}
	if !c.acquireShared() {
		return nil, w.conflict(&BorrowError{Entity: e, Type: t, State: c.state()})
	}
	return &Ref[T]{c: c, entity: e}, nil
}

// GetMut acquires an exclusive borrow of e's T. It fails with
// ErrNoSuchComponent if e has no T and with ErrBorrowConflict while any other
// borrow of the T is live.
func GetMut[T any](w *World, e Entity) (*Mut[T], error) {
	c, t, err := lookupCell[T](w, e)
	if err != nil {
		return nil, err
	}
	if !c.acquireExclusive() {
		return nil, w.conflict(&BorrowError{Entity: e, Type: t, Exclusive: true, State: c.state()})
	}
	return &Mut[T]{c: c, entity: e}, nil
}

// Read calls fn with a shared borrow of e's T, releasing it on every exit
// path including panics.
func Read[T any](w *World, e Entity, fn func(*T)) error {
	ref, err := Get[T](w, e)
	if err != nil {
		return err
	}
	defer ref.Release()
	fn(ref.Get())
	return nil
}

// Write calls fn with an exclusive borrow of e's T, releasing it on every
// exit path including panics.
func Write[T any](w *World, e Entity, fn func(*T)) error {
	m, err := GetMut[T](w, e)
	if err != nil {
		return err
	}
	defer m.Release()
	fn(m.Get())
	return nil
}

// Value returns a copy of e's T taken under a shared borrow.
func Value[T any](w *World, e Entity) (T, error) {
	var out T
	err := Read(w, e, func(v *T) { out = *v })
	return out, err
}
