package geode

import (
	"fmt"
)

// MaxTags defines the maximum number of tags a World can create.
const MaxTags = 256

// Tag is an externally assigned group membership ("all actors") that queries
// can filter on independently of component types.
//
// A Tag is only valid in the world that created it. The zero Tag belongs to no
// world.
type Tag struct {
	owner *tagRegistry
	name  string
	id    uint8
}

// Name returns the name the tag was created with.
func (t Tag) Name() string {
	return t.name
}

func (t Tag) String() string {
	return fmt.Sprintf("Tag(%s)", t.name)
}

type tagRegistry struct {
	byName  map[string]Tag
	members [MaxTags]map[Entity]struct{}
	next    uint16
}

func newTagRegistry() tagRegistry {
	return tagRegistry{byName: make(map[string]Tag)}
}

// forget drops e from every tag set in mask.
func (r *tagRegistry) forget(e Entity, mask bitmask256) {
	if mask.isZero() {
		return
	}
	for i := range r.next {
		if mask.containsBit(uint8(i)) {
			delete(r.members[i], e)
		}
	}
}

// check panics with ErrForeignTag unless tag was created by this registry.
func (r *tagRegistry) check(tag Tag) {
	if tag.owner != r {
		invariant(ErrForeignTag, "%s", tag)
	}
}

// NewTag returns the tag called name, creating it on first use. It panics
// once MaxTags distinct tags exist.
func (w *World) NewTag(name string) Tag {
	if t, ok := w.tags.byName[name]; ok {
		return t
	}
	if w.tags.next >= MaxTags {
		panic(fmt.Sprintf("geode: cannot create tag %q: maximum number of tags (%d) reached", name, MaxTags))
	}
	t := Tag{owner: &w.tags, name: name, id: uint8(w.tags.next)}
	w.tags.byName[name] = t
	w.tags.members[t.id] = make(map[Entity]struct{})
	w.tags.next++
	return t
}

// AddTag adds e to tag. It reports false if e is not alive. Using a tag of
// another world, or the zero Tag, panics with ErrForeignTag.
func (w *World) AddTag(e Entity, tag Tag) bool {
	w.tags.check(tag)
	rec, ok := w.entities[e]
	if !ok {
		return false
	}
	if !rec.tags.containsBit(tag.id) {
		rec.tags.set(tag.id)
		w.tags.members[tag.id][e] = struct{}{}
		w.mutationVersion++
	}
	return true
}

// RemoveTag removes e from tag.
func (w *World) RemoveTag(e Entity, tag Tag) {
	w.tags.check(tag)
	rec, ok := w.entities[e]
	if !ok || !rec.tags.containsBit(tag.id) {
		return
	}
	rec.tags.unset(tag.id)
	delete(w.tags.members[tag.id], e)
	w.mutationVersion++
}

// HasTag reports whether e is a member of tag.
func (w *World) HasTag(e Entity, tag Tag) bool {
	w.tags.check(tag)
	rec, ok := w.entities[e]
	return ok && rec.tags.containsBit(tag.id)
}

// TaggedEntities returns the members of tag in no particular order.
func (w *World) TaggedEntities(tag Tag) []Entity {
	w.tags.check(tag)
	members := w.tags.members[tag.id]
	out := make([]Entity, 0, len(members))
	for e := range members {
		out = append(out, e)
	}
	return out
}
