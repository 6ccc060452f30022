// Profiling:
// go build ./profile/query
// GEODE_PROFILE=cpu ./query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

package main

import (
	"os"

	"github.com/edwinsyarief/geode"
	"github.com/edwinsyarief/geode/internal/config"
	"github.com/edwinsyarief/geode/internal/profiling"
	"github.com/sirupsen/logrus"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

var log = logrus.New()

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"rounds":   cfg.Rounds,
		"iters":    cfg.Iters,
		"entities": cfg.Entities,
		"mode":     cfg.Mode,
	}).Info("profiling borrow-checked queries")

	p := profiling.Start(cfg, ".")
	run(cfg.Rounds, cfg.Iters, cfg.Entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := geode.NewWorld(numEntities, geode.WithLogger(log))
		actors := w.NewTag("actors")
		for i := range numEntities {
			e := w.Spawn()
			must(geode.Insert(w, e, comp1{}))
			must(geode.Insert(w, e, comp2{V: 1, W: 2}))
			if i%2 == 0 {
				must(geode.Insert(w, e, comp3{}))
				w.AddTag(e, actors)
			}
		}
		query := geode.Query2[comp1, comp2](w).Tagged(actors)

		for range iters {
			query.Reset()
			for query.Next() {
				e := query.Entity()
				c1, err := geode.GetMut[comp1](w, e)
				must(err)
				c2, err := geode.Get[comp2](w, e)
				must(err)
				c1.Get().V += c2.Get().V
				c1.Get().W += c2.Get().W
				c2.Release()
				c1.Release()
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.WithError(err).Fatal("profiling run failed")
	}
}
