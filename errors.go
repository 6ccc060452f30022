package geode

import (
	"fmt"
	"reflect"

	"github.com/rotisserie/eris"
)

// Recoverable errors. Operations return them wrapped in *BorrowError or
// *ComponentError; match with errors.Is.
var (
	// ErrBorrowConflict reports that a borrow would alias a live borrow of the
	// same component.
	ErrBorrowConflict = eris.New("borrow conflict")
	// ErrNoSuchComponent reports that the entity has no component of the
	// requested type.
	ErrNoSuchComponent = eris.New("no such component")
	// ErrDeadEntity reports a structural change on an entity that is not alive
	// in the world.
	ErrDeadEntity = eris.New("entity is not alive")
)

// Invariant violations. These are never returned; the world panics with them.
var (
	ErrDoubleOwnership      = eris.New("entity already has an owning handle")
	ErrUseAfterDestroy      = eris.New("owning handle used after destroy")
	ErrDestroyWhileBorrowed = eris.New("entity destroyed while a component is borrowed")
	ErrGuardReleased        = eris.New("borrow guard used after release")
	ErrTooManyComponents    = eris.New("too many component types")
	ErrForeignTag           = eris.New("tag does not belong to this world")
)

// BorrowError describes a rejected borrow request.
type BorrowError struct {
	Entity    Entity
	Type      reflect.Type
	Exclusive bool        // whether the rejected request was exclusive
	State     BorrowState // tracker state that blocked the request
}

func (e *BorrowError) Error() string {
	mode := "shared"
	if e.Exclusive {
		mode = "exclusively"
	}
	return fmt.Sprintf("cannot borrow %s of %s %s: %s", typeName(e.Type), e.Entity, mode, e.State.blockers())
}

func (e *BorrowError) Unwrap() error {
	return ErrBorrowConflict
}

// ComponentError describes a lookup or structural change that found no
// component, or no live entity.
type ComponentError struct {
	Entity Entity
	Type   reflect.Type
	Err    error // ErrNoSuchComponent or ErrDeadEntity
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s of %s: %v", typeName(e.Type), e.Entity, eris.ToString(e.Err, false))
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

func noSuchComponent(e Entity, t reflect.Type) error {
	return &ComponentError{Entity: e, Type: t, Err: ErrNoSuchComponent}
}

func deadEntity(e Entity, t reflect.Type) error {
	return &ComponentError{Entity: e, Type: t, Err: ErrDeadEntity}
}

// notAlive reports an entity-level operation on an entity that is not alive.
func notAlive(op string, e Entity) error {
	return eris.Wrapf(ErrDeadEntity, "%s %s", op, e)
}

// invariant panics with err wrapped in context. Invariant violations are not
// recoverable: continuing could hand out aliased mutable access.
func invariant(err error, format string, args ...any) {
	panic(eris.Wrapf(err, format, args...))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
