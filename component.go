package geode

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// MaxComponentTypes defines the maximum number of unique component types that
// can be registered in a World. This value is fixed at 256.
const MaxComponentTypes = 256

// ComponentID is a world-local identifier for a component type.
type ComponentID uint8

// Destroyer is implemented by components that release resources when the
// world drops them: on replacement by Insert, on entity destruction and on
// World.Clear. Remove hands the value back instead of destroying it.
//
// Either the component type or a pointer to it may implement Destroyer, so
// both Insert(w, e, Buffer{}) and Insert(w, e, &Buffer{}) are destroyed.
type Destroyer interface {
	Destroy()
}

// erasedStorage is the type-erased view of a storage[T] the world uses to
// drop components without knowing their type.
type erasedStorage interface {
	componentType() reflect.Type
	has(e Entity) bool
	borrowState(e Entity) (BorrowState, bool)
	// drop removes the component and runs its destructor. The caller has
	// verified the slot is not borrowed.
	drop(e Entity) bool
	len() int
}

// componentRegistry maps component types to IDs and IDs to their storages.
type componentRegistry struct {
	compTypeMap    map[reflect.Type]ComponentID
	compIDToType   [MaxComponentTypes]reflect.Type
	storages       [MaxComponentTypes]erasedStorage
	nextCompTypeID uint16
}

func newComponentRegistry() componentRegistry {
	return componentRegistry{
		compTypeMap: make(map[reflect.Type]ComponentID, 16),
	}
}

// id registers or fetches the ComponentID for t.
func (r *componentRegistry) id(t reflect.Type) ComponentID {
	if id, ok := r.compTypeMap[t]; ok {
		return id
	}
	if r.nextCompTypeID >= MaxComponentTypes {
		invariant(ErrTooManyComponents, "cannot register %s: limit of %d reached", t, MaxComponentTypes)
	}
	id := ComponentID(r.nextCompTypeID)
	r.compTypeMap[t] = id
	r.compIDToType[id] = t
	r.nextCompTypeID++
	return id
}

// lookup fetches the ComponentID for t without registering it.
func (r *componentRegistry) lookup(t reflect.Type) (ComponentID, bool) {
	id, ok := r.compTypeMap[t]
	return id, ok
}

// ComponentIDOf returns the ComponentID of T in w, registering T on first use.
func ComponentIDOf[T any](w *World) ComponentID {
	return w.components.id(reflect.TypeFor[T]())
}

// TypeOf returns the component type registered under id, or nil.
func (w *World) TypeOf(id ComponentID) reflect.Type {
	return w.components.compIDToType[id]
}

// storageOf returns the storage for T, creating it on first use.
func storageOf[T any](w *World) *storage[T] {
	t := reflect.TypeFor[T]()
	id := w.components.id(t)
	es := w.components.storages[id]
	if es == nil {
		s := newStorage[T](id, t)
		w.components.storages[id] = s
		return s
	}
	s, ok := es.(*storage[T])
	if !ok {
		panic(eris.Errorf("geode: storage for %s holds %s", t, es.componentType()))
	}
	return s
}

// lookupStorage returns the storage for T if T was ever registered in w.
func lookupStorage[T any](w *World) (*storage[T], bool) {
	id, ok := w.components.lookup(reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	s, ok := w.components.storages[id].(*storage[T])
	return s, ok
}
