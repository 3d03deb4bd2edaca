// Package pipeline wires the research workflow: router fans out to the
// five specialists, the three technical branches join at the strategist,
// data/news/strategy join at the risk manager, and the editor closes the
// run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equityscribe/equityscribe/internal/agents"
	"github.com/equityscribe/equityscribe/internal/config"
	"github.com/equityscribe/equityscribe/internal/graph"
	"github.com/equityscribe/equityscribe/internal/logger"
	"github.com/equityscribe/equityscribe/internal/models"
	"github.com/equityscribe/equityscribe/internal/tools"
)

// Pipeline executes research runs over a compiled workflow graph.
type Pipeline struct {
	runner *graph.Runner
	log    *zap.SugaredLogger
}

// New builds the production pipeline: real chat model, real data tools.
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	cm, err := agents.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	provider := tools.NewProvider(cfg)
	suite := agents.NewSuite(cm, agents.Toolset{
		StockAnalysis: provider.NewStockAnalysisTool(),
		TechnicalData: provider.NewTechnicalDataTool(),
		SearchNews:    provider.NewSearchNewsTool(),
		WebSearch:     provider.NewWebSearchTool(),
	}, cfg.MaxToolSteps)

	return FromSuite(suite)
}

// FromSuite wires the workflow graph from an agent suite. Tests pass a
// suite built over a fake model and stub tools.
func FromSuite(suite *agents.Suite) (*Pipeline, error) {
	g := graph.New()

	nodes := []*graph.Node{
		suite.Router(),
		suite.DataAnalyst(),
		suite.NewsAnalyst(),
		suite.TrendAnalyst(),
		suite.PatternAnalyst(),
		suite.IndicatorAnalyst(),
		suite.TechnicalStrategist(),
		suite.RiskManager(),
		suite.Editor(),
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	edges := [][2]string{
		{agents.StageRouter, agents.StageDataAnalyst},
		{agents.StageRouter, agents.StageNewsAnalyst},
		{agents.StageRouter, agents.StageTrendAnalyst},
		{agents.StageRouter, agents.StagePatternAnalyst},
		{agents.StageRouter, agents.StageIndicatorAnalyst},

		{agents.StageTrendAnalyst, agents.StageTechnicalStrategist},
		{agents.StagePatternAnalyst, agents.StageTechnicalStrategist},
		{agents.StageIndicatorAnalyst, agents.StageTechnicalStrategist},

		{agents.StageDataAnalyst, agents.StageRiskManager},
		{agents.StageNewsAnalyst, agents.StageRiskManager},
		{agents.StageTechnicalStrategist, agents.StageRiskManager},

		{agents.StageRiskManager, agents.StageEditor},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntry(agents.StageRouter); err != nil {
		return nil, err
	}

	runner, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile workflow graph: %w", err)
	}

	log := logger.Named("pipeline")
	runner.WithLogger(log)
	return &Pipeline{runner: runner, log: log}, nil
}

// Run executes one research request end to end and returns the fully
// populated state. Any stage failure aborts the run with a single error;
// no partially filled state is returned.
func (p *Pipeline) Run(ctx context.Context, query string, style models.InvestmentStyle) (models.ResearchState, error) {
	if style == "" {
		style = models.StyleBalanced
	}

	initial := models.ResearchState{
		RunID: uuid.NewString(),
		Query: query,
		Style: style,
	}

	p.log.Infow("research run starting",
		"run_id", initial.RunID, "style", style)
	start := time.Now()

	final, err := p.runner.Invoke(ctx, initial)
	if err != nil {
		p.log.Errorw("research run failed",
			"run_id", initial.RunID, "error", err)
		return models.ResearchState{}, err
	}

	p.log.Infow("research run complete",
		"run_id", initial.RunID, "elapsed", time.Since(start))
	return final, nil
}
