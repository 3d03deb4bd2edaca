package cli

import (
	"context"
	"fmt"
	"testing"

	"github.com/equityscribe/equityscribe/internal/config"
	"github.com/equityscribe/equityscribe/internal/models"
	"github.com/equityscribe/equityscribe/internal/server"
)

type labeledResearcher struct {
	label string
}

func (l *labeledResearcher) Run(ctx context.Context, query string, style models.InvestmentStyle) (models.ResearchState, error) {
	return models.ResearchState{FinalReport: l.label}, nil
}

func TestReloadingResearcherSwapsOnConfigChange(t *testing.T) {
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := 0
	r, err := newReloadingResearcher(ctx, mgr, func(ctx context.Context, cfg *config.Config) (server.Researcher, error) {
		builds++
		return &labeledResearcher{label: fmt.Sprintf("%s#%d", cfg.Model, builds)}, nil
	})
	if err != nil {
		t.Fatalf("newReloadingResearcher: %v", err)
	}

	state, err := r.Run(ctx, "q", models.StyleBalanced)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := state.FinalReport

	cfg := mgr.Get()
	cfg.Model = "gpt-4o"
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	state, err = r.Run(ctx, "q", models.StyleBalanced)
	if err != nil {
		t.Fatalf("Run after update: %v", err)
	}
	if state.FinalReport == first {
		t.Fatalf("pipeline not rebuilt after config change: still %q", first)
	}
	if state.FinalReport != "gpt-4o#2" {
		t.Fatalf("rebuilt pipeline must see the updated config, got %q", state.FinalReport)
	}
}

func TestReloadingResearcherKeepsPipelineOnRebuildFailure(t *testing.T) {
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := 0
	r, err := newReloadingResearcher(ctx, mgr, func(ctx context.Context, cfg *config.Config) (server.Researcher, error) {
		builds++
		if builds > 1 {
			return nil, fmt.Errorf("backend unreachable")
		}
		return &labeledResearcher{label: "original"}, nil
	})
	if err != nil {
		t.Fatalf("newReloadingResearcher: %v", err)
	}

	cfg := mgr.Get()
	cfg.Model = "gpt-4o"
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	state, err := r.Run(ctx, "q", models.StyleBalanced)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.FinalReport != "original" {
		t.Fatalf("failed rebuild must keep the previous pipeline, got %q", state.FinalReport)
	}
}
