package geode

import (
	"errors"

	"github.com/rotisserie/eris"
)

// CommandBuffer records structural changes and applies them later, in
// recording order. Systems iterating a Query use it to defer spawning,
// attaching, detaching and destruction until the iteration is over.
//
// The zero value mints spawned entities from the process-wide allocator; use
// World.Commands for a buffer that follows the world's allocator.
type CommandBuffer struct {
	alloc *Allocator
	cmds  []func(*World) error
}

// Commands returns an empty buffer minting entities from w's allocator, so
// buffered spawns replay like World.Spawn under WithAllocator.
func (w *World) Commands() *CommandBuffer {
	return &CommandBuffer{alloc: w.alloc}
}

// Len returns the number of recorded commands.
func (b *CommandBuffer) Len() int {
	return len(b.cmds)
}

// Spawn reserves a fresh entity now and registers it when the buffer is
// applied. The returned entity can be targeted by later commands.
func (b *CommandBuffer) Spawn() Entity {
	var e Entity
	if b.alloc != nil {
		e = b.alloc.Spawn()
	} else {
		e = Spawn()
	}
	b.cmds = append(b.cmds, func(w *World) error {
		if !w.Register(e) {
			return eris.Errorf("register %s: already alive", e)
		}
		return nil
	})
	return e
}

// Despawn records World.Despawn(e). Applying it to a dead entity fails with
// ErrDeadEntity.
func (b *CommandBuffer) Despawn(e Entity) {
	b.cmds = append(b.cmds, func(w *World) error {
		if !w.Despawn(e) {
			return notAlive("despawn", e)
		}
		return nil
	})
}

// Destroy records o.Destroy().
func (b *CommandBuffer) Destroy(o *OwnedEntity) {
	b.cmds = append(b.cmds, func(*World) error {
		o.Destroy()
		return nil
	})
}

// Tag records w.AddTag(e, tag). Applying it to a dead entity fails with
// ErrDeadEntity.
func (b *CommandBuffer) Tag(e Entity, tag Tag) {
	b.cmds = append(b.cmds, func(w *World) error {
		if !w.AddTag(e, tag) {
			return notAlive("tag", e)
		}
		return nil
	})
}

// DeferInsert records Insert(w, e, value).
func DeferInsert[T any](b *CommandBuffer, e Entity, value T) {
	b.cmds = append(b.cmds, func(w *World) error {
		return Insert(w, e, value)
	})
}

// DeferRemove records Remove[T](w, e), destroying the removed value.
func DeferRemove[T any](b *CommandBuffer, e Entity) {
	b.cmds = append(b.cmds, func(w *World) error {
		v, ok, err := Remove[T](w, e)
		if ok {
			destroyValue(&v)
		}
		return err
	})
}

// Apply runs every recorded command against w and empties the buffer. A
// failing command does not stop the others; all failures are joined.
func (b *CommandBuffer) Apply(w *World) error {
	cmds := b.cmds
	b.cmds = nil
	var errs []error
	for i, cmd := range cmds {
		if err := cmd(w); err != nil {
			errs = append(errs, eris.Wrapf(err, "command %d", i))
		}
	}
	return errors.Join(errs...)
}
