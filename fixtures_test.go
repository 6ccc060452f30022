package geode_test

import (
	"errors"
	"io"
	"testing"

	"github.com/edwinsyarief/geode"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// --- Test Components ---
type Position struct{ X, Y float32 }
type Velocity struct{ VX, VY float32 }
type Health struct{ HP int }

// Buffer counts its destructions.
type Buffer struct {
	destroyed *int
	Name      string
}

func (b *Buffer) Destroy() {
	*b.destroyed++
}

func newWorld(t *testing.T) *geode.World {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	return geode.NewWorld(16, geode.WithLogger(log), geode.WithAllocator(geode.NewAllocator(uint64(len(t.Name())+1))))
}

// requirePanicsIs asserts fn panics with an error matching target.
func requirePanicsIs(t *testing.T, target error, fn func()) {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	require.NotNil(t, recovered, "expected a panic")
	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	require.True(t, errors.Is(err, target), "panic %v does not match %v", err, target)
}
