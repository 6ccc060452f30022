package geode

import (
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ownerProbe is shared between an owning handle and its entity record. It is
// a separate allocation so the leak cleanup can observe it without keeping the
// handle reachable.
type ownerProbe struct {
	log       *logrus.Entry
	label     atomic.Pointer[string]
	entity    Entity
	destroyed atomic.Bool
}

func reportLeak(p *ownerProbe) {
	if p.destroyed.Load() {
		return
	}
	label := ""
	if l := p.label.Load(); l != nil {
		label = *l
	}
	p.log.WithFields(logrus.Fields{"entity": p.entity.String(), "label": label}).
		Warn("owning handle collected without Destroy; components leaked")
}

// OwnedEntity is the unique owning handle of an entity. Destroying it removes
// every component of the entity. Weak handles (plain Entity values) obtained
// from it may outlive it: lookups through them then report absence.
type OwnedEntity struct {
	world  *World
	probe  *ownerProbe
	entity Entity
}

// NewOwned spawns an entity in w and returns its owning handle.
func NewOwned(w *World) *OwnedEntity {
	return w.Adopt(w.Spawn())
}

// SpawnOwned spawns an entity and returns its owning handle.
func (w *World) SpawnOwned() *OwnedEntity {
	return NewOwned(w)
}

// Adopt takes ownership of a live entity. A second owning handle for the same
// entity panics with ErrDoubleOwnership; adopting a dead entity panics with
// ErrUseAfterDestroy.
func (w *World) Adopt(e Entity) *OwnedEntity {
	rec, ok := w.entities[e]
	if !ok {
		invariant(ErrUseAfterDestroy, "adopt of dead %s", e)
	}
	if rec.owner != nil {
		invariant(ErrDoubleOwnership, "adopt of %s", w.Describe(e))
	}
	o := &OwnedEntity{
		world:  w,
		entity: e,
		probe:  &ownerProbe{entity: e, log: w.log},
	}
	if l, ok := w.labels[e]; ok {
		o.probe.label.Store(&l)
	}
	rec.owner = o.probe
	if w.leakDetection {
		runtime.AddCleanup(o, reportLeak, o.probe)
	}
	return o
}

// Entity returns a weak handle to the owned entity.
func (o *OwnedEntity) Entity() Entity {
	return o.entity
}

// WeakCopy is an alias of Entity.
func (o *OwnedEntity) WeakCopy() Entity {
	return o.entity
}

// Split returns the handle together with a weak copy, for chained builders.
func (o *OwnedEntity) Split() (*OwnedEntity, Entity) {
	return o, o.entity
}

// World returns the world the entity lives in.
func (o *OwnedEntity) World() *World {
	return o.world
}

// Destroyed reports whether the entity has been destroyed.
func (o *OwnedEntity) Destroyed() bool {
	return o.probe.destroyed.Load()
}

// Destroy removes and destroys every component of the entity and forgets it.
// Destroying twice panics with ErrUseAfterDestroy; destroying while any of its
// components is borrowed panics with ErrDestroyWhileBorrowed.
func (o *OwnedEntity) Destroy() {
	rec := o.live("destroy")
	o.world.destroy(o.entity, rec)
}

// live returns the entity record or panics if the handle is spent.
func (o *OwnedEntity) live(op string) *entityRecord {
	if o.probe.destroyed.Load() {
		invariant(ErrUseAfterDestroy, "%s of %s", op, o.entity)
	}
	rec, ok := o.world.entities[o.entity]
	if !ok || rec.owner != o.probe {
		invariant(ErrUseAfterDestroy, "%s of %s", op, o.entity)
	}
	return rec
}

// With inserts value into the owned entity and returns the handle for
// chaining. A failed insert is a programming error and panics.
func With[T any](o *OwnedEntity, value T) *OwnedEntity {
	o.live("insert")
	if err := Insert(o.world, o.entity, value); err != nil {
		panic(err)
	}
	return o
}

// WithDebugLabel sets the entity's debug label and returns the handle.
func (o *OwnedEntity) WithDebugLabel(label string) *OwnedEntity {
	o.live("label")
	o.world.SetDebugLabel(o.entity, label)
	o.probe.label.Store(&label)
	return o
}

// WithTag adds the entity to tag and returns the handle.
func (o *OwnedEntity) WithTag(tag Tag) *OwnedEntity {
	o.live("tag")
	o.world.AddTag(o.entity, tag)
	return o
}
