package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/graph"
	"github.com/equityscribe/equityscribe/internal/models"
)

var editorGuidelines = map[models.InvestmentStyle]string{
	models.StyleConservative: `STYLE MODE: CONSERVATIVE
- Tone: cautious, protective, and skeptical.
- Verdict logic: if there is significant downside risk or high valuation, lean towards HOLD or SELL. Prioritize capital preservation over growth.
- Key phrase: "While growth is visible, the valuation leaves no margin of safety..."`,
	models.StyleAggressive: `STYLE MODE: AGGRESSIVE
- Tone: bold, visionary, and forward-looking.
- Verdict logic: if the growth thesis is intact, tolerate volatility and high valuations. Lean towards BUY on dips.
- Key phrase: "Despite short-term volatility, the long-term growth story remains compelling..."`,
	models.StyleBalanced: `STYLE MODE: BALANCED
- Tone: objective, nuanced, and measured.
- Verdict logic: weigh risk against reward evenly. Look for growth at a reasonable price (GARP).`,
}

// Editor is the terminal stage: a direct model call (no tools) that
// compiles every upstream report into the final sell-side memo.
func (s *Suite) Editor() *graph.Node {
	return &graph.Node{
		Name:     StageEditor,
		Produces: []models.Field{models.FieldFinalReport},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			systemPrompt := fmt.Sprintf(`You are the Chief Editor of a prestigious investment research firm.
Your goal is to compile a comprehensive sell-side investment report, specifically addressing the user's question.

Current investment strategy: %s
%s

Inputs:
- User Query: the specific question the user asked.
- Data Analysis (valuation, financials)
- News Analysis (catalysts, sentiment)
- Technical Strategy (trend, patterns, momentum)
- Risk Assessment (bear case, risk score)

Output: a professional Markdown report.

Style rules:
1. Narrative flow: write in full, professional paragraphs. Avoid excessive bullet points.
2. Verifiable evidence: every claim must be backed by specific data points, dates, or source names.
3. Argumentative: do not just summarize, argue a thesis.
4. Consistency: the final verdict must align with the %s strategy.

Structure:
1. Executive Summary: direct answer, rating (Buy/Hold/Sell with target if possible), and core reasoning.
2. Investment Thesis: the bull case narrative.
3. Valuation & Financials: analysis of P/E, margins, and peer comparison.
4. Technical Outlook: trend and momentum analysis based on MA/RSI.
5. Risk Factors (Bear Case): narrative of downside scenarios.
6. Conclusion: final recommendation.

Tone: authoritative, professional, and decisive.`,
				state.Style, styleGuideline(editorGuidelines, state.Style), state.Style)

			userMessage := fmt.Sprintf(`User Query:
%s

Data Analysis:
%s

News Analysis:
%s

Technical Strategy:
%s

Risk Assessment:
%s

Please generate the final investment memo for a %s client.`,
				models.OrDefault(state.Query),
				models.OrDefault(state.DataAnalysis),
				models.OrDefault(state.NewsAnalysis),
				models.OrDefault(state.TechnicalStrategy),
				models.OrDefault(state.RiskAssessment),
				state.Style)

			// The editor synthesizes text it already has, so a direct
			// call is cheaper than a tool loop.
			msg, err := s.cm.Generate(ctx, []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(userMessage),
			})
			if err != nil {
				return nil, err
			}
			return models.Delta{models.FieldFinalReport: MessageText(msg)}, nil
		},
	}
}
