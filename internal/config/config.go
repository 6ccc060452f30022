// Package config loads the settings of the profiling binaries from a .env file
// and the process environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Environment variables read by Load.
const (
	EnvRounds   = "GEODE_ROUNDS"
	EnvIters    = "GEODE_ITERS"
	EnvEntities = "GEODE_ENTITIES"
	EnvProfile  = "GEODE_PROFILE"
	EnvLogLevel = "GEODE_LOG_LEVEL"
)

// Profile mode names accepted in GEODE_PROFILE.
const (
	ModeCPU    = "cpu"
	ModeMem    = "mem"
	ModeAllocs = "allocs"
	ModeOff    = "off"
)

// Profile configures a profiling run.
type Profile struct {
	Mode     string
	Rounds   int
	Iters    int
	Entities int
	LogLevel logrus.Level
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Profile {
	return Profile{
		Mode:     ModeAllocs,
		Rounds:   50,
		Iters:    10000,
		Entities: 1000,
		LogLevel: logrus.InfoLevel,
	}
}

// Load reads the given .env files (".env" when none are given) into the
// environment and builds a Profile from it. Missing files are not an error.
func Load(files ...string) (Profile, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Profile{}, eris.Wrapf(err, "load %s", f)
		}
	}
	return FromEnv()
}

// FromEnv builds a Profile from the process environment.
func FromEnv() (Profile, error) {
	p := Defaults()
	var err error
	if p.Rounds, err = intVar(EnvRounds, p.Rounds); err != nil {
		return Profile{}, err
	}
	if p.Iters, err = intVar(EnvIters, p.Iters); err != nil {
		return Profile{}, err
	}
	if p.Entities, err = intVar(EnvEntities, p.Entities); err != nil {
		return Profile{}, err
	}
	if v, ok := os.LookupEnv(EnvProfile); ok {
		switch v {
		case ModeCPU, ModeMem, ModeAllocs, ModeOff:
			p.Mode = v
		default:
			return Profile{}, eris.Errorf("%s: unknown mode %q", EnvProfile, v)
		}
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return Profile{}, eris.Wrapf(err, "%s", EnvLogLevel)
		}
		p.LogLevel = lvl
	}
	return p, nil
}

func intVar(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(err, "%s", name)
	}
	if n <= 0 {
		return 0, eris.Errorf("%s must be positive, got %d", name, n)
	}
	return n, nil
}
