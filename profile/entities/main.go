// Profiling:
// go build ./profile/entities
// GEODE_PROFILE=allocs ./entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

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
	}).Info("profiling owned entity churn")

	p := profiling.Start(cfg, ".")
	run(cfg.Rounds, cfg.Iters, cfg.Entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	owned := make([]*geode.OwnedEntity, 0, numEntities)
	for range rounds {
		w := geode.NewWorld(numEntities, geode.WithLogger(log))
		query := geode.Query2[comp1, comp2](w)

		for range iters {
			for range numEntities {
				o := geode.NewOwned(w)
				geode.With(o, comp1{})
				geode.With(o, comp2{V: 1, W: 1})
				owned = append(owned, o)
			}
			query.Reset()
			for query.Next() {
				e := query.Entity()
				c2, err := geode.Value[comp2](w, e)
				if err != nil {
					log.WithError(err).Fatal("read comp2")
				}
				err = geode.Write(w, e, func(c1 *comp1) {
					c1.V += c2.V
					c1.W += c2.W
				})
				if err != nil {
					log.WithError(err).Fatal("write comp1")
				}
			}
			for _, o := range owned {
				o.Destroy()
			}
			owned = owned[:0]
		}
	}
}
