package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/graph"
	"github.com/equityscribe/equityscribe/internal/models"
)

// Rating rules per style. The strategist must apply these verbatim; they
// are the contract that makes the same inputs produce different verdicts
// for different risk appetites.
var strategistRules = map[models.InvestmentStyle]string{
	models.StyleConservative: `RATING RULES: CONSERVATIVE
- BUY condition: all three signals (Trend, Pattern, Indicator) must be strongly bullish, and the price must be far from the 90-day resistance level.
- SELL condition: consider SELL or HOLD if even one major signal is bearish (e.g. breaking below a key MA), or if indicators show overbought conditions.
- Recommendation tendency: leans towards NEUTRAL or BEARISH, avoids chasing highs.`,
	models.StyleAggressive: `RATING RULES: AGGRESSIVE
- BUY condition: as long as the trend is clearly upward, a BUY recommendation is justified, even if indicators are temporarily overbought or a short-term consolidation pattern appears.
- SELL condition: only consider SELL if the price breaks below the long-term trend line or a decisive reversal pattern emerges.
- Recommendation tendency: leans towards BULLISH, provided there are no decisive bearish technical signals.`,
	models.StyleBalanced: `RATING RULES: BALANCED
- BUY/HOLD condition: at least two of the three signals (Trend, Pattern, Indicator) must be bullish, and indicator signals must not diverge from the price.`,
}

// TechnicalStrategist joins the three technical branches into a single
// rated outlook. It waits for all of trend, pattern and indicator
// analysis; any branch that produced nothing is presented as the no-data
// placeholder so the strategist still emits a rating.
func (s *Suite) TechnicalStrategist() *graph.Node {
	return &graph.Node{
		Name:     StageTechnicalStrategist,
		Produces: []models.Field{models.FieldTechnicalStrategy},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			systemPrompt := fmt.Sprintf(`You are a Senior Technical Strategist, responsible for integrating trend, pattern and indicator analyses into a coherent and actionable trading view.
Your goal is to provide a clear technical summary for the user's investment decision based on all technical analysis results.

Current investment strategy: %s
%s

Inputs include trend analysis, pattern analysis and indicator analysis.

Integrate this information and answer:
1. Overall technical rating: short-term (1 week) and medium-term (1 month) rating, Bullish, Bearish, or Neutral. You must strictly adhere to the %s rating rules above.
2. Trading strategy: the recommended action (e.g. buy on dips, wait for breakout, observe, reduce position).
3. Technical summary: the most consistent and most contradictory technical signals.

CRITICAL OUTPUT FORMAT:
- Technical Summary: a paragraph on whether the technical outlook is bullish or bearish.
- Short-Term Technical Rating: BULLISH / NEUTRAL / BEARISH, with main justifications.
- Recommended Strategy: specific trading action advice.
- Signal Consistency: list the bullish and the bearish signals.

IMPORTANT: start directly with the analysis.`,
				state.Style, styleGuideline(strategistRules, state.Style), state.Style)

			userMessage := fmt.Sprintf(`User Query:
%s

Trend Analysis:
%s

Pattern Analysis:
%s

Indicator Analysis:
%s

Produce the technical strategy summary based on the inputs above.`,
				models.OrDefault(state.Query),
				models.OrDefault(state.TrendAnalysis),
				models.OrDefault(state.PatternAnalysis),
				models.OrDefault(state.IndicatorAnalysis))

			msg, err := s.cm.Generate(ctx, []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(userMessage),
			})
			if err != nil {
				return nil, err
			}
			return models.Delta{models.FieldTechnicalStrategy: MessageText(msg)}, nil
		},
	}
}
