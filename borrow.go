package geode

import "fmt"

// BorrowKind names the state of a borrow tracker.
type BorrowKind uint8

const (
	Free BorrowKind = iota
	Shared
	Exclusive
)

func (k BorrowKind) String() string {
	switch k {
	case Free:
		return "free"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	}
	return fmt.Sprintf("BorrowKind(%d)", uint8(k))
}

// BorrowState is a snapshot of a tracker: Free, Shared(Count) or Exclusive.
type BorrowState struct {
	Kind  BorrowKind
	Count int // outstanding shared guards; 1 for Exclusive, 0 for Free
}

func (s BorrowState) String() string {
	if s.Kind == Shared {
		return fmt.Sprintf("shared(%d)", s.Count)
	}
	return s.Kind.String()
}

// blockers describes why a request against s was refused.
func (s BorrowState) blockers() string {
	switch s.Kind {
	case Shared:
		if s.Count == 1 {
			return "1 shared borrow outstanding"
		}
		return fmt.Sprintf("%d shared borrows outstanding", s.Count)
	case Exclusive:
		return "an exclusive borrow is outstanding"
	}
	return "unborrowed"
}

// tracker is the per (entity, type) borrow state machine. The counter is 0 when
// free, n > 0 with n shared borrows and -1 while exclusively borrowed.
//
// Transitions:
//
//	Free      -> Shared(1)   acquireShared
//	Shared(n) -> Shared(n+1) acquireShared
//	Free      -> Exclusive   acquireExclusive
//	Shared(n) -> Shared(n-1) releaseShared (Free when n reaches 0)
//	Exclusive -> Free        releaseExclusive
//
// Every other request is refused without changing state.
type tracker struct {
	rc int
}

const exclusiveRC = -1

func (t *tracker) state() BorrowState {
	switch {
	case t.rc > 0:
		return BorrowState{Kind: Shared, Count: t.rc}
	case t.rc == exclusiveRC:
		return BorrowState{Kind: Exclusive, Count: 1}
	}
	return BorrowState{Kind: Free}
}

func (t *tracker) free() bool {
	return t.rc == 0
}

func (t *tracker) acquireShared() bool {
	if t.rc < 0 {
		return false
	}
	t.rc++
	return true
}

func (t *tracker) acquireExclusive() bool {
	if t.rc != 0 {
		return false
	}
	t.rc = exclusiveRC
	return true
}

func (t *tracker) releaseShared() {
	if t.rc <= 0 {
		panic(fmt.Sprintf("geode: shared release on %s tracker", t.state()))
	}
	t.rc--
}

func (t *tracker) releaseExclusive() {
	if t.rc != exclusiveRC {
		panic(fmt.Sprintf("geode: exclusive release on %s tracker", t.state()))
	}
	t.rc = 0
}
