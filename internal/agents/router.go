package agents

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/graph"
	"github.com/equityscribe/equityscribe/internal/models"
)

const routingToolName = "submit_routing_instructions"

// routingToolInfo describes the extraction tool the router must call. It
// is never executed; the tool call arguments are parsed directly.
func routingToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: routingToolName,
		Desc: "Submit the extracted tickers and specific instructions for the Data Analyst, News Analyst, Trend Analyst, Pattern Analyst, and Indicator Analyst.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"tickers": {
				Type:     schema.Array,
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Desc:     "List of stock tickers found in the query",
				Required: true,
			},
			"data_analyst_instructions": {
				Type:     schema.String,
				Desc:     "Specific instructions for the Data Analyst (financials, valuation)",
				Required: true,
			},
			"news_analyst_instructions": {
				Type:     schema.String,
				Desc:     "Specific instructions for the News Analyst (news, sentiment, events)",
				Required: true,
			},
			"trend_analyst_instructions": {
				Type:     schema.String,
				Desc:     "Specific instructions for the Trend Analyst (moving averages, trend lines, direction)",
				Required: true,
			},
			"pattern_analyst_instructions": {
				Type:     schema.String,
				Desc:     "Specific instructions for the Pattern Analyst (candlestick and chart patterns)",
				Required: true,
			},
			"indicator_analyst_instructions": {
				Type:     schema.String,
				Desc:     "Specific instructions for the Indicator Analyst (RSI, momentum, volatility)",
				Required: true,
			},
		}),
	}
}

type routingArgs struct {
	Tickers               []string `json:"tickers"`
	DataInstructions      string   `json:"data_analyst_instructions"`
	NewsInstructions      string   `json:"news_analyst_instructions"`
	TrendInstructions     string   `json:"trend_analyst_instructions"`
	PatternInstructions   string   `json:"pattern_analyst_instructions"`
	IndicatorInstructions string   `json:"indicator_analyst_instructions"`
}

const routerSystemPrompt = `You are a Senior Financial Research Lead.
Your job is to coordinate the research flow by analyzing the user's query and assigning tasks.

1. Analyze the user query: understand the core question, hypothesis, or concern.
2. Extract stock tickers: identify all mentioned or implied stock tickers.
3. Assign to Data Analyst: which financial metrics and valuation multiples matter for this question.
4. Assign to News Analyst: which keywords, topics, sentiments or events to search for.
5. Assign to Trend Analyst: moving averages, price direction and timeframes to examine.
6. Assign to Pattern Analyst: candlestick or chart patterns to look for.
7. Assign to Indicator Analyst: momentum and volatility indicators to evaluate.

Goal: do NOT just pass the general query through. Translate the user's intent into precise, actionable instructions per analyst.

You MUST call the submit_routing_instructions tool to output your decision.`

// Router builds the entry stage. It extracts tickers and per-analyst
// instructions from the raw query via a forced tool call. If the model
// fails to call the tool, every instruction falls back to the raw query
// verbatim with an empty ticker list, so the run always proceeds.
func (s *Suite) Router() *graph.Node {
	produces := []models.Field{
		models.FieldTickers,
		models.FieldDataInstructions,
		models.FieldNewsInstructions,
		models.FieldTrendInstructions,
		models.FieldPatternInstructions,
		models.FieldIndicatorInstructions,
	}

	return &graph.Node{
		Name:     StageRouter,
		Produces: produces,
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			bound, err := s.cm.WithTools([]*schema.ToolInfo{routingToolInfo()})
			if err != nil {
				return nil, err
			}

			messages := []*schema.Message{
				schema.SystemMessage(routerSystemPrompt),
				schema.UserMessage(state.Query),
			}

			msg, err := bound.Generate(ctx, messages)
			if err != nil {
				return nil, err
			}

			if args, ok := parseRoutingCall(msg); ok {
				tickers := args.Tickers
				if tickers == nil {
					tickers = []string{}
				}
				return models.Delta{
					models.FieldTickers:               tickers,
					models.FieldDataInstructions:      args.DataInstructions,
					models.FieldNewsInstructions:      args.NewsInstructions,
					models.FieldTrendInstructions:     args.TrendInstructions,
					models.FieldPatternInstructions:   args.PatternInstructions,
					models.FieldIndicatorInstructions: args.IndicatorInstructions,
				}, nil
			}

			s.log.Warnw("router did not call routing tool, using raw query fallback",
				"run_id", state.RunID)
			return models.Delta{
				models.FieldTickers:               []string{},
				models.FieldDataInstructions:      state.Query,
				models.FieldNewsInstructions:      state.Query,
				models.FieldTrendInstructions:     state.Query,
				models.FieldPatternInstructions:   state.Query,
				models.FieldIndicatorInstructions: state.Query,
			}, nil
		},
	}
}

func parseRoutingCall(msg *schema.Message) (routingArgs, bool) {
	var args routingArgs
	if msg == nil || len(msg.ToolCalls) == 0 {
		return args, false
	}
	call := msg.ToolCalls[0]
	if call.Function.Name != routingToolName {
		return args, false
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return args, false
	}
	return args, true
}
