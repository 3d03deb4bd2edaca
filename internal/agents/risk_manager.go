package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/graph"
	"github.com/equityscribe/equityscribe/internal/models"
)

var riskManagerModes = map[models.InvestmentStyle]string{
	models.StyleConservative: `CURRENT MODE: CONSERVATIVE
- Primary goal: capital preservation.
- Mindset: be extremely skeptical. Assume the worst-case scenario is likely.
- Criteria: heavily penalize high valuations (high P/E), unproven technology, or high debt.
- Advice: if there is any significant doubt, recommend avoiding the stock. Better safe than sorry.`,
	models.StyleAggressive: `CURRENT MODE: AGGRESSIVE
- Primary goal: high growth potential.
- Mindset: tolerate volatility. Focus only on thesis breakers, risks that permanently destroy value.
- Criteria: do not worry about standard high valuations if growth supports them. Focus on competitive threats or regulatory bans.
- Advice: highlight risks that would kill the growth story, ignore short-term market noise.`,
	models.StyleBalanced: `CURRENT MODE: BALANCED
- Primary goal: risk-adjusted returns.
- Mindset: rational devil's advocate. Weigh upside against downside.
- Criteria: look for structural risks the market is ignoring.`,
}

// RiskManager joins the data, news and technical-strategy branches and
// plays devil's advocate: bear case, risk categories and a 1-10 score.
// Missing upstream analyses arrive as the no-data placeholder rather
// than blocking the assessment.
func (s *Suite) RiskManager() *graph.Node {
	return &graph.Node{
		Name:     StageRiskManager,
		Produces: []models.Field{models.FieldRiskAssessment},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			systemPrompt := fmt.Sprintf(`You are a Chief Risk Officer. Your goal is to identify downside risks, but you must strictly adhere to the user's chosen investment style: %s.

%s

Your task: based on the risk profile above, analyze the input data and act as a devil's advocate within that context, specifically regarding the user's question.

Input:
- User Query: the specific question or hypothesis the user has.
- Data Analysis (valuation, financials)
- News Analysis (catalysts, sentiment)
- Technical Strategy: the combined view of chart trends, patterns, and indicators.

Output:
1. Stress Test User's Hypothesis: explore what happens if the user's assumption fails or worsens.
2. Bear Case Scenario: describe a specific scenario where the stock could drop 20%% or more. Highlight technical breakdowns (e.g. breaking a major moving average or support) as a primary risk.
3. Risk Categorization: macro, sector, company.
4. Risk Score: assign a score (1-10) with justification.

Be conservative. If the stock is priced for perfection, flag that as a major risk.

IMPORTANT: start directly with the analysis. Do not use introductory phrases.`,
				state.Style, styleGuideline(riskManagerModes, state.Style))

			userMessage := fmt.Sprintf(`User Query:
%s

Data Analysis:
%s

News Analysis:
%s

Technical Strategy:
%s

Please provide your risk assessment.`,
				models.OrDefault(state.Query),
				models.OrDefault(state.DataAnalysis),
				models.OrDefault(state.NewsAnalysis),
				models.OrDefault(state.TechnicalStrategy))

			msg, err := s.cm.Generate(ctx, []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(userMessage),
			})
			if err != nil {
				return nil, err
			}
			return models.Delta{models.FieldRiskAssessment: MessageText(msg)}, nil
		},
	}
}
