package geode

// archetype holds the entities whose component set is exactly mask.
type archetype struct {
	extensions   map[ComponentID]*archetype // cached add transitions
	deExtensions map[ComponentID]*archetype // cached remove transitions
	compOrder    []ComponentID              // component IDs in ascending order
	entities     []Entity
	mask         bitmask256
	index        int // position in archetypeRegistry.archetypes
}

// archetypeRegistry indexes archetypes by mask.
type archetypeRegistry struct {
	maskToArchetype  map[bitmask256]*archetype
	archetypes       []*archetype
	archetypeVersion uint64 // incremented when a new archetype is created
}

func newArchetypeRegistry() archetypeRegistry {
	r := archetypeRegistry{
		maskToArchetype: make(map[bitmask256]*archetype),
		archetypes:      make([]*archetype, 0, 16),
	}
	// Pre-create the empty archetype
	r.getOrCreate(bitmask256{})
	return r
}

func (r *archetypeRegistry) empty() *archetype {
	return r.archetypes[0]
}

// getOrCreate returns the archetype for mask, building it if missing.
func (r *archetypeRegistry) getOrCreate(mask bitmask256) *archetype {
	if a, ok := r.maskToArchetype[mask]; ok {
		return a
	}
	a := &archetype{
		index:        len(r.archetypes),
		mask:         mask,
		compOrder:    mask.appendIDs(make([]ComponentID, 0, mask.count())),
		extensions:   make(map[ComponentID]*archetype),
		deExtensions: make(map[ComponentID]*archetype),
	}
	r.archetypes = append(r.archetypes, a)
	r.maskToArchetype[mask] = a
	r.archetypeVersion++
	return a
}

// extend returns the archetype reached from a by adding id.
func (r *archetypeRegistry) extend(a *archetype, id ComponentID) *archetype {
	if next, ok := a.extensions[id]; ok {
		return next
	}
	mask := a.mask
	mask.set(uint8(id))
	next := r.getOrCreate(mask)
	a.extensions[id] = next
	next.deExtensions[id] = a
	return next
}

// deExtend returns the archetype reached from a by removing id.
func (r *archetypeRegistry) deExtend(a *archetype, id ComponentID) *archetype {
	if prev, ok := a.deExtensions[id]; ok {
		return prev
	}
	mask := a.mask
	mask.unset(uint8(id))
	prev := r.getOrCreate(mask)
	a.deExtensions[id] = prev
	prev.extensions[id] = a
	return prev
}

// push appends e and returns its slot.
func (a *archetype) push(e Entity) int {
	a.entities = append(a.entities, e)
	return len(a.entities) - 1
}

// swapRemove removes the entity at slot and returns the entity moved into
// that slot, if any.
func (a *archetype) swapRemove(slot int) (Entity, bool) {
	last := len(a.entities) - 1
	var moved Entity
	swapped := slot < last
	if swapped {
		moved = a.entities[last]
		a.entities[slot] = moved
	}
	a.entities[last] = NilEntity
	a.entities = a.entities[:last]
	return moved, swapped
}
