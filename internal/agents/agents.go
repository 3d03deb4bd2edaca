// Package agents implements the research workflow stages: the routing
// lead, the five specialist analysts, the technical strategist, the risk
// manager and the chief editor. Each stage is exposed as a graph node
// that reads a state snapshot and returns the fields it owns.
package agents

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"go.uber.org/zap"

	"github.com/equityscribe/equityscribe/internal/logger"
	"github.com/equityscribe/equityscribe/internal/models"
)

// Stage names, also used as graph node names.
const (
	StageRouter              = "router"
	StageDataAnalyst         = "data_analyst"
	StageNewsAnalyst         = "news_analyst"
	StageTrendAnalyst        = "trend_analyst"
	StagePatternAnalyst      = "pattern_analyst"
	StageIndicatorAnalyst    = "indicator_analyst"
	StageTechnicalStrategist = "technical_strategist"
	StageRiskManager         = "risk_manager"
	StageEditor              = "editor"
)

// Toolset holds the tools the specialists may call. Tests swap in stubs.
type Toolset struct {
	StockAnalysis tool.BaseTool
	TechnicalData tool.BaseTool
	SearchNews    tool.BaseTool
	WebSearch     tool.BaseTool
}

// Suite builds all workflow stages over one chat model and toolset.
type Suite struct {
	cm       model.ToolCallingChatModel
	tools    Toolset
	maxSteps int
	log      *zap.SugaredLogger
}

func NewSuite(cm model.ToolCallingChatModel, ts Toolset, maxSteps int) *Suite {
	if maxSteps <= 0 {
		maxSteps = 8
	}
	return &Suite{
		cm:       cm,
		tools:    ts,
		maxSteps: maxSteps,
		log:      logger.Named("agents"),
	}
}

// specialistUserMessage is the shared task framing every specialist
// receives: tickers, the raw query and the lead's instructions.
func specialistUserMessage(task string, state models.ResearchState, instructions string) string {
	return fmt.Sprintf(`%s: %s

User's specific question: %s

Specific instructions from lead:
%s`,
		task, formatTickers(state.Tickers), state.Query, models.OrDefault(instructions))
}

func formatTickers(tickers []string) string {
	if len(tickers) == 0 {
		return "(none identified)"
	}
	return strings.Join(tickers, ", ")
}
