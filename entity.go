// Package geode provides a handle-based entity/component store whose component
// borrows are checked at runtime.
//
// Features:
// - Process-wide unique 64-bit entity identifiers minted by a xorshift generator.
// - Per-type component tables behind a type-erased registry of up to 256 types.
// - Shared/exclusive borrow guards validated by a per-slot state machine.
// - Owning handles that destroy every component of their entity exactly once.
// - Bitmask-indexed archetypes for queries over component sets and tags.
//
// A World is single-goroutine: the borrow tracker enforces aliasing
// discipline within one control flow, not mutual exclusion. Use SharedWorld to
// hand a world between goroutines.
package geode

import (
	"cmp"
	"fmt"
	"sync/atomic"
	"time"
)

// Entity is an opaque, process-wide unique identifier. It is never zero and
// carries no ownership: copying it yields a weak handle.
type Entity uint64

// NilEntity is the zero value; no allocator ever returns it.
const NilEntity Entity = 0

// IsNil reports whether e is the zero entity.
func (e Entity) IsNil() bool {
	return e == NilEntity
}

// Compare orders entities by their raw identifier.
func (e Entity) Compare(other Entity) int {
	return cmp.Compare(uint64(e), uint64(other))
}

// String formats the entity as Entity(0x...).
func (e Entity) String() string {
	return fmt.Sprintf("Entity(%#016x)", uint64(e))
}

// Allocator mints entity identifiers from a xorshift64 state. xorshift64 is a
// full-period permutation of the non-zero 64-bit integers, so an allocator
// never repeats an identifier before 2^64-1 draws. It is safe for concurrent use.
type Allocator struct {
	state atomic.Uint64
}

// NewAllocator returns an allocator seeded with seed. A zero seed is replaced
// by a fixed non-zero constant since xorshift never leaves the zero state.
func NewAllocator(seed uint64) *Allocator {
	a := &Allocator{}
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	a.state.Store(seed)
	return a
}

// Spawn returns a fresh entity identifier.
func (a *Allocator) Spawn() Entity {
	for {
		old := a.state.Load()
		next := xorshift64(old)
		if a.state.CompareAndSwap(old, next) {
			return Entity(next)
		}
	}
}

var globalAllocator = NewAllocator(splitmix64(uint64(time.Now().UnixNano())))

// Spawn mints an identifier from the process-wide allocator. The entity is not
// registered with any World; see World.Spawn and World.Register.
func Spawn() Entity {
	return globalAllocator.Spawn()
}

func xorshift64(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}

// splitmix64 scrambles the wall-clock seed so worlds started close together do
// not walk neighbouring parts of the sequence.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	if x == 0 {
		x = 1
	}
	return x
}
