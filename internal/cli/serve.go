package cli

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/equityscribe/equityscribe/internal/config"
	"github.com/equityscribe/equityscribe/internal/logger"
	"github.com/equityscribe/equityscribe/internal/models"
	"github.com/equityscribe/equityscribe/internal/server"
)

// buildFunc constructs a researcher from a config snapshot.
type buildFunc func(ctx context.Context, cfg *config.Config) (server.Researcher, error)

// reloadingResearcher serves requests from the most recently built
// pipeline. The config manager's watch callback swaps in a rebuilt
// pipeline whenever the config file changes; in-flight requests keep the
// pipeline they started with.
type reloadingResearcher struct {
	current atomic.Value // server.Researcher
}

func (r *reloadingResearcher) store(researcher server.Researcher) {
	r.current.Store(&researcher)
}

func (r *reloadingResearcher) Run(ctx context.Context, query string, style models.InvestmentStyle) (models.ResearchState, error) {
	v := r.current.Load()
	if v == nil {
		return models.ResearchState{}, fmt.Errorf("no pipeline available")
	}
	return (*v.(*server.Researcher)).Run(ctx, query, style)
}

// newReloadingResearcher builds the initial pipeline from the manager's
// config and watches for changes. A rebuild failure keeps the previous
// pipeline serving.
func newReloadingResearcher(ctx context.Context, mgr *config.Manager, build buildFunc) (*reloadingResearcher, error) {
	log := logger.Named("serve")

	initial := mgr.Get()
	researcher, err := build(ctx, &initial)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	r := &reloadingResearcher{}
	r.store(researcher)

	err = mgr.Watch(ctx, func(updated config.Config) {
		rebuilt, err := build(ctx, &updated)
		if err != nil {
			log.Warnw("config change rejected, keeping current pipeline",
				"path", mgr.Path(), "error", err)
			return
		}
		r.store(rebuilt)
		log.Infow("pipeline rebuilt after config change", "path", mgr.Path())
	})
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}

	return r, nil
}
