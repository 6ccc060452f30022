package geode

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// entityRecord holds where a live entity sits in the archetype index.
type entityRecord struct {
	arch  *archetype
	owner *ownerProbe // nil while no owning handle exists
	index int         // position inside arch.entities
	tags  bitmask256
}

// World is the session object threaded through every store operation. It owns
// the component tables, the archetype index, tags and debug labels.
//
// A World must only be used from one goroutine at a time; see SharedWorld.
type World struct {
	log             *logrus.Entry
	alloc           *Allocator
	entities        map[Entity]*entityRecord
	labels          map[Entity]string
	archetypes      archetypeRegistry
	tags            tagRegistry
	events          EventBus
	components      componentRegistry
	mutationVersion uint64 // incremented on structural mutations
	id              uuid.UUID
	leakDetection   bool
}

// Option configures a World.
type Option func(*World)

// WithLogger routes world diagnostics to logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(w *World) {
		w.log = logger.WithFields(logrus.Fields{"component": "geode", "world": w.id.String()})
	}
}

// WithAllocator makes the world mint entities from a instead of the
// process-wide allocator.
func WithAllocator(a *Allocator) Option {
	return func(w *World) {
		w.alloc = a
	}
}

// WithLeakDetection reports owning handles that are garbage collected without
// being destroyed.
func WithLeakDetection(enabled bool) Option {
	return func(w *World) {
		w.leakDetection = enabled
	}
}

// NewWorld creates a World with room for initialCapacity entities before its
// entity index grows.
func NewWorld(initialCapacity int, opts ...Option) *World {
	w := &World{
		id:         uuid.New(),
		alloc:      globalAllocator,
		entities:   make(map[Entity]*entityRecord, initialCapacity),
		labels:     make(map[Entity]string),
		archetypes: newArchetypeRegistry(),
		tags:       newTagRegistry(),
		components: newComponentRegistry(),
	}
	w.log = logrus.StandardLogger().WithFields(logrus.Fields{"component": "geode", "world": w.id.String()})
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID identifies the world in logs.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Events returns the bus on which the world publishes lifecycle events.
func (w *World) Events() *EventBus {
	return &w.events
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return len(w.entities)
}

// Alive reports whether e is registered in w.
func (w *World) Alive(e Entity) bool {
	_, ok := w.entities[e]
	return ok
}

// Spawn mints a new entity and registers it with no components.
func (w *World) Spawn() Entity {
	e := w.alloc.Spawn()
	w.register(e)
	return e
}

// Register makes an entity minted elsewhere (see Spawn and CommandBuffer)
// alive in w. It reports false if e is nil or already alive.
func (w *World) Register(e Entity) bool {
	if e.IsNil() || w.Alive(e) {
		return false
	}
	w.register(e)
	return true
}

func (w *World) register(e Entity) {
	a := w.archetypes.empty()
	w.entities[e] = &entityRecord{arch: a, index: a.push(e)}
	w.mutationVersion++
	w.debug(e, "entity spawned")
	Publish(&w.events, EntitySpawned{Entity: e})
}

// Components returns the IDs of the components attached to e in ascending
// order, or nil if e is not alive.
func (w *World) Components(e Entity) []ComponentID {
	rec, ok := w.entities[e]
	if !ok {
		return nil
	}
	return append([]ComponentID(nil), rec.arch.compOrder...)
}

// Despawn destroys an entity that has no owning handle. Entities with an
// owning handle are destroyed through it; despawning one panics with
// ErrDoubleOwnership. Despawning a dead entity reports false.
func (w *World) Despawn(e Entity) bool {
	rec, ok := w.entities[e]
	if !ok {
		return false
	}
	if rec.owner != nil {
		invariant(ErrDoubleOwnership, "despawn of %s bypasses its owning handle", e)
	}
	w.destroy(e, rec)
	return true
}

// Clear destroys every entity. Owning handles of cleared entities are spent:
// calling Destroy on them afterwards panics with ErrUseAfterDestroy.
func (w *World) Clear() {
	all := make([]Entity, 0, len(w.entities))
	for e := range w.entities {
		all = append(all, e)
	}
	for _, e := range all {
		if rec, ok := w.entities[e]; ok {
			w.checkUnborrowed(e, rec)
		}
	}
	for _, e := range all {
		if rec, ok := w.entities[e]; ok {
			w.destroy(e, rec)
		}
	}
}

// destroy drops every component of e, clears its tags and label and forgets it.
func (w *World) destroy(e Entity, rec *entityRecord) {
	w.checkUnborrowed(e, rec)
	label := w.labels[e]
	dropped := rec.arch.compOrder
	for _, id := range dropped {
		w.components.storages[id].drop(e)
	}
	w.tags.forget(e, rec.tags)
	delete(w.labels, e)
	if moved, ok := rec.arch.swapRemove(rec.index); ok {
		w.entities[moved].index = rec.index
	}
	if rec.owner != nil {
		rec.owner.destroyed.Store(true)
	}
	delete(w.entities, e)
	w.mutationVersion++
	if w.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		w.log.WithFields(logrus.Fields{"entity": e.String(), "label": label}).Debug("entity destroyed")
	}
	// Handlers run once e is fully forgotten so they observe a consistent world.
	for _, id := range dropped {
		Publish(&w.events, ComponentRemoved{Entity: e, ID: id, Type: w.components.compIDToType[id], Destroyed: true})
	}
	Publish(&w.events, EntityDestroyed{Entity: e, Label: label})
}

// checkUnborrowed panics if any component of e is borrowed. Destruction with a
// live guard would leave the guard pointing at a dropped value.
func (w *World) checkUnborrowed(e Entity, rec *entityRecord) {
	for _, id := range rec.arch.compOrder {
		s := w.components.storages[id]
		if st, ok := s.borrowState(e); ok && st.Kind != Free {
			invariant(ErrDestroyWhileBorrowed, "%s of %s is %s", typeName(s.componentType()), w.Describe(e), st)
		}
	}
}

// attach moves e into the archetype extending its current one by id.
func (w *World) attach(rec *entityRecord, e Entity, id ComponentID) {
	w.move(rec, e, w.archetypes.extend(rec.arch, id))
}

// detach moves e into the archetype lacking id.
func (w *World) detach(rec *entityRecord, e Entity, id ComponentID) {
	w.move(rec, e, w.archetypes.deExtend(rec.arch, id))
}

func (w *World) move(rec *entityRecord, e Entity, to *archetype) {
	if moved, ok := rec.arch.swapRemove(rec.index); ok {
		w.entities[moved].index = rec.index
	}
	rec.arch = to
	rec.index = to.push(e)
	w.mutationVersion++
}

// conflict logs a refused borrow and returns it.
func (w *World) conflict(err *BorrowError) error {
	if w.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		w.log.WithFields(logrus.Fields{
			"entity": w.Describe(err.Entity),
			"type":   typeName(err.Type),
			"state":  err.State.String(),
		}).Debug("borrow refused")
	}
	return err
}

func (w *World) debug(e Entity, msg string) {
	if w.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		w.log.WithField("entity", e.String()).Debug(msg)
	}
}
