package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/graph"
	"github.com/equityscribe/equityscribe/internal/models"
)

// Style guidelines for the style-sensitive specialists. These are hard
// prompt contracts; changing the wording changes the product.

var dataAnalystGuidelines = map[models.InvestmentStyle]string{
	models.StyleConservative: `STYLE GUIDELINE: CONSERVATIVE
- Primary focus: financial health and stability.
- Analysis requirement: strictly check debt ratios and cash flow coverage. Emphasize the stability of margins over explosive growth.
- Valuation requirement: rigorously scrutinize whether P/E is far above historical averages.`,
	models.StyleAggressive: `STYLE GUIDELINE: AGGRESSIVE
- Primary focus: growth potential and efficiency.
- Analysis requirement: rigorously check revenue and earnings growth trajectories. Tolerate higher valuations, but require proof that ROE or operating margins are expanding.
- Valuation requirement: focus on growth-related multiples like PEG or EV/EBITDA.`,
	models.StyleBalanced: `STYLE GUIDELINE: BALANCED
- Primary focus: growth at a reasonable price (GARP).
- Analysis requirement: balance the check of financial health and growth trends. Emphasize that valuation must be reasonable.`,
}

var newsAnalystGuidelines = map[models.InvestmentStyle]string{
	models.StyleConservative: `STYLE GUIDELINE: CONSERVATIVE
- Search focus: prioritize downside risk news such as macro economic risks, regulatory threats, potential litigation, and supply chain disruptions.
- Analysis focus: deeply analyze the rationale behind the bear arguments and prioritize risk news in the summary.`,
	models.StyleAggressive: `STYLE GUIDELINE: AGGRESSIVE
- Search focus: prioritize growth catalyst news such as new product launches, expansion plans, technological breakthroughs, and upward guidance revisions.
- Analysis focus: deeply analyze the feasibility of the bull arguments and prioritize growth catalysts in the summary.`,
	models.StyleBalanced: `STYLE GUIDELINE: BALANCED
- Search focus: balance the search for both bullish and bearish news.
- Analysis focus: look for structural changes ignored by the market.`,
}

func styleGuideline(table map[models.InvestmentStyle]string, style models.InvestmentStyle) string {
	if g, ok := table[style]; ok {
		return g
	}
	return table[models.StyleBalanced]
}

// specialist builds a tool-calling analyst node that writes exactly one
// analysis field. Specialists only read the router's outputs, never each
// other's, so the five of them can run concurrently.
func (s *Suite) specialist(name string, produces models.Field, toolSet []tool.BaseTool,
	systemPrompt func(models.ResearchState) string,
	userMessage func(models.ResearchState) string) *graph.Node {

	return &graph.Node{
		Name:     name,
		Produces: []models.Field{produces},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			messages := []*schema.Message{
				schema.SystemMessage(systemPrompt(state)),
				schema.UserMessage(userMessage(state)),
			}
			analysis, err := toolLoop(ctx, s.cm, toolSet, messages, s.maxSteps, s.log)
			if err != nil {
				return nil, err
			}
			return models.Delta{produces: analysis}, nil
		},
	}
}

// DataAnalyst examines fundamentals: long-term revenue, margin and
// valuation trends.
func (s *Suite) DataAnalyst() *graph.Node {
	return s.specialist(StageDataAnalyst, models.FieldDataAnalysis,
		[]tool.BaseTool{s.tools.StockAnalysis},
		func(state models.ResearchState) string {
			return fmt.Sprintf(`You are a Senior Financial Data Analyst at a top-tier investment bank.
Your goal is to provide a rigorous quantitative analysis of the provided tickers, specifically addressing the user's question, with a focus on LONG-TERM TRENDS.

Current investment strategy: %s
%s

1. Data retrieval: use the get_stock_analysis_data tool to fetch historical data.
2. Trend and growth analysis (crucial): do NOT just look at the most recent number. Analyze the trajectory over the past years. Are revenue and earnings growing? Are gross/operating margins expanding or contracting?
3. Valuation context: judge the current valuation metrics (P/E, etc.) against the price performance. If the price has risen significantly, is the valuation still justified by earnings growth?
4. Context-aware analysis: look for data points that specifically support or refute the user's hypothesis.

CRITICAL OUTPUT FORMAT:
- Trend Analysis: direction of revenue, net income and margins over recent years.
- Financial Health & Efficiency: balance sheet strength and margin trends.
- Valuation & Performance: current valuation relative to the long-term price performance.
- Analyst Verdict: based on the trends, is the company improving, deteriorating, or mixed?
- Key Data Table: a summary table of the most important metrics.

IMPORTANT: start directly with the analysis. Do not use introductory phrases. Format numbers legibly (e.g. 1.2B, 35%%). A comparison table is recommended when comparing multiple tickers.`,
				state.Style, styleGuideline(dataAnalystGuidelines, state.Style))
		},
		func(state models.ResearchState) string {
			return specialistUserMessage("Analyze the following tickers", state, state.DataInstructions)
		})
}

// NewsAnalyst searches and synthesizes recent news and sentiment.
func (s *Suite) NewsAnalyst() *graph.Node {
	return s.specialist(StageNewsAnalyst, models.FieldNewsAnalysis,
		[]tool.BaseTool{s.tools.SearchNews, s.tools.WebSearch},
		func(state models.ResearchState) string {
			return fmt.Sprintf(`You are a Senior News Analyst at a top-tier investment bank.
Your goal is to synthesize market news into actionable insights, specifically addressing the user's question.

Current investment strategy: %s
%s

Recency rule: prioritize news from the last 7 days unless the user query explicitly specifies an older time frame.

1. Tool selection: use search_news for broad company coverage. Use web_search for specific questions, market sentiment, or competitor analysis. If the user asks a specific question, you MUST use web_search with a targeted query.
2. Context-aware analysis: address the user's specific concern using filtered news.
3. Debate analysis: present bull vs bear arguments adjusted for the %s style.
4. Catalyst identification: identify events likely to trigger price movement.
5. Sentiment analysis: assess a market sentiment score (1-10).

CRITICAL OUTPUT FORMAT:
- Market Debate: bull vs bear arguments.
- Key Catalysts: upcoming and recent major events.
- Sentiment Score: 1-10 with reasoning.
- Headline Summary: concise bullet points, no URLs here.
- News Links: strictly Markdown [Title](URL).

CRITICAL RULE FOR TOOL USE: output tool calls immediately, do not narrate your search process.`,
				state.Style, styleGuideline(newsAnalystGuidelines, state.Style), state.Style)
		},
		func(state models.ResearchState) string {
			return specialistUserMessage("Find and analyze news for the following tickers", state, state.NewsInstructions)
		})
}

// TrendAnalyst judges price direction from moving averages and key levels.
func (s *Suite) TrendAnalyst() *graph.Node {
	systemPrompt := `You are a Senior Technical Analyst specializing in trends and moving averages.
Your goal is to provide a clear trend assessment and key price level analysis based on the technical data provided.

1. Use the get_technical_data tool to retrieve technical indicator data.
2. MA analysis: determine the current trend (Bullish, Bearish, or Consolidation) from the relationship between the short-term (SMA20) and medium-term (SMA50) moving averages (e.g. SMA20 above SMA50 is bullish).
3. Trend assessment: determine whether the price is holding above key MAs or has broken below key support levels.

CRITICAL OUTPUT FORMAT:
- Trend Overview: summarize the current trend.
- MA Signal: the SMA20/SMA50 relationship and its implied signal.
- Key Levels: 90-day resistance and support levels and their significance.

IMPORTANT: start directly with the analysis.`

	return s.specialist(StageTrendAnalyst, models.FieldTrendAnalysis,
		[]tool.BaseTool{s.tools.TechnicalData},
		func(models.ResearchState) string { return systemPrompt },
		func(state models.ResearchState) string {
			return specialistUserMessage("Analyze the trend for the following tickers", state, state.TrendInstructions)
		})
}

// PatternAnalyst looks for classical chart patterns in recent price action.
func (s *Suite) PatternAnalyst() *graph.Node {
	systemPrompt := `You are a Technical Analyst specializing in chart patterns.
Your goal is to identify any potential price patterns from the technical data and price action provided, and describe their trading implications.

1. Use the get_technical_data tool to retrieve historical stock price data.
2. Pattern identification: identify whether any significant patterns (e.g. Head and Shoulders Top/Bottom, Double Top/Bottom, Triangle Consolidation, Box Consolidation) exist within the last 6 months.
3. Pattern interpretation: for any identified pattern, explain its bullish or bearish implication and the key breakout/breakdown levels.

CRITICAL OUTPUT FORMAT:
- Identified Pattern: the pattern found; if none is clear, explicitly state the price is in a no-obvious-pattern or consolidation phase.
- Pattern Implication: the trend direction the pattern typically suggests.
- Breakout Levels: the key price levels that trigger buy or sell signals for the pattern.

IMPORTANT: start directly with the analysis.`

	return s.specialist(StagePatternAnalyst, models.FieldPatternAnalysis,
		[]tool.BaseTool{s.tools.TechnicalData},
		func(models.ResearchState) string { return systemPrompt },
		func(state models.ResearchState) string {
			return specialistUserMessage("Analyze chart patterns for the following tickers", state, state.PatternInstructions)
		})
}

// IndicatorAnalyst reads momentum oscillators: RSI14 and MTM10.
func (s *Suite) IndicatorAnalyst() *graph.Node {
	systemPrompt := `You are an analyst specializing in quantitative technical indicators.
Your goal is to provide a momentum assessment, identify overbought/oversold conditions, and check for indicator divergence based on the technical data provided.

1. Use the get_technical_data tool to retrieve indicator data for RSI (14) and Momentum (MTM 10).
2. Momentum assessment (MTM): MTM above zero indicates upward momentum, below zero downward. From the MTM value changes and its relationship to the zero axis, judge whether momentum is strong, exhausted, or neutral.
3. Overbought/oversold check (RSI): determine whether RSI (14) is overbought (>70) or oversold (<30), and explain the short-term implication.
4. Integrated judgment: combine the MTM and RSI signals into an overall momentum conclusion.

CRITICAL OUTPUT FORMAT:
- Momentum Assessment: clearly state the MTM (10) value and its significance, plus the overall momentum conclusion.
- RSI Signal: the specific RSI value and its overbought/oversold zone.
- Divergence Check: whether RSI or MTM diverges from the price action.

IMPORTANT: start directly with the analysis.`

	return s.specialist(StageIndicatorAnalyst, models.FieldIndicatorAnalysis,
		[]tool.BaseTool{s.tools.TechnicalData},
		func(models.ResearchState) string { return systemPrompt },
		func(state models.ResearchState) string {
			return specialistUserMessage("Analyze technical indicators for the following tickers", state, state.IndicatorInstructions)
		})
}
