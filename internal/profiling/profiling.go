// Package profiling starts pkg/profile according to a config.Profile.
package profiling

import (
	"github.com/edwinsyarief/geode/internal/config"
	"github.com/pkg/profile"
)

// Stopper ends a profiling session.
type Stopper interface {
	Stop()
}

type noop struct{}

func (noop) Stop() {}

// Start begins profiling into dir in the configured mode. Stop the returned
// value to flush the profile.
func Start(p config.Profile, dir string) Stopper {
	var mode func(*profile.Profile)
	switch p.Mode {
	case config.ModeCPU:
		mode = profile.CPUProfile
	case config.ModeMem:
		mode = profile.MemProfile
	case config.ModeAllocs:
		mode = profile.MemProfileAllocs
	default:
		return noop{}
	}
	return profile.Start(mode, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet)
}
