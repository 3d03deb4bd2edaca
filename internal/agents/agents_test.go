package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/config"
	"github.com/equityscribe/equityscribe/internal/models"
)

// fakeModel replays a scripted sequence of responses and records every
// conversation it was asked to continue.
type fakeModel struct {
	mu     sync.Mutex
	script []*schema.Message
	idx    int
	calls  [][]*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, input)
	if f.idx >= len(f.script) {
		return nil, fmt.Errorf("fake model script exhausted after %d calls", f.idx)
	}
	msg := f.script[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported")
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

func (f *fakeModel) lastCall() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func textMessage(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func toolCallMessage(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID: "call-1",
			Function: schema.FunctionCall{
				Name:      name,
				Arguments: args,
			},
		}},
	}
}

func stubToolset(technicalResult string, technicalErr error) Toolset {
	return Toolset{
		StockAnalysis: t_utils.NewTool(
			&schema.ToolInfo{Name: "get_stock_analysis_data", Desc: "stub",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"ticker": {Type: schema.String, Required: true},
				})},
			func(ctx context.Context, in models.StockAnalysisInput) (*models.StockAnalysisOutput, error) {
				return &models.StockAnalysisOutput{Result: "fundamentals for " + in.Ticker}, nil
			}),
		TechnicalData: t_utils.NewTool(
			&schema.ToolInfo{Name: "get_technical_data", Desc: "stub",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"ticker": {Type: schema.String, Required: true},
				})},
			func(ctx context.Context, in models.TechnicalDataInput) (*models.TechnicalDataOutput, error) {
				if technicalErr != nil {
					return nil, technicalErr
				}
				return &models.TechnicalDataOutput{Result: technicalResult}, nil
			}),
		SearchNews: t_utils.NewTool(
			&schema.ToolInfo{Name: "search_news", Desc: "stub",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"ticker": {Type: schema.String, Required: true},
				})},
			func(ctx context.Context, in models.SearchNewsInput) (*models.SearchNewsOutput, error) {
				return &models.SearchNewsOutput{Result: "news for " + in.Ticker}, nil
			}),
		WebSearch: t_utils.NewTool(
			&schema.ToolInfo{Name: "web_search", Desc: "stub",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Required: true},
				})},
			func(ctx context.Context, in models.WebSearchInput) (*models.WebSearchOutput, error) {
				return &models.WebSearchOutput{Result: "results for " + in.Query}, nil
			}),
	}
}

func TestRouterParsesToolCall(t *testing.T) {
	args := `{
		"tickers": ["AAPL", "MSFT"],
		"data_analyst_instructions": "check margins",
		"news_analyst_instructions": "search supply chain",
		"trend_analyst_instructions": "compare SMA20 vs SMA50",
		"pattern_analyst_instructions": "look for double bottom",
		"indicator_analyst_instructions": "evaluate RSI14"
	}`
	fm := &fakeModel{script: []*schema.Message{toolCallMessage(routingToolName, args)}}
	suite := NewSuite(fm, stubToolset("", nil), 4)

	delta, err := suite.Router().Run(context.Background(),
		models.ResearchState{Query: "Analyze AAPL and MSFT"})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	tickers, ok := delta[models.FieldTickers].([]string)
	if !ok || len(tickers) != 2 || tickers[0] != "AAPL" {
		t.Fatalf("unexpected tickers: %v", delta[models.FieldTickers])
	}
	if delta[models.FieldTrendInstructions] != "compare SMA20 vs SMA50" {
		t.Fatalf("unexpected trend instructions: %v", delta[models.FieldTrendInstructions])
	}
}

func TestRouterFallbackOnMissingToolCall(t *testing.T) {
	query := "what about semiconductor demand?"
	fm := &fakeModel{script: []*schema.Message{textMessage("I think...")}}
	suite := NewSuite(fm, stubToolset("", nil), 4)

	delta, err := suite.Router().Run(context.Background(), models.ResearchState{Query: query})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	tickers, ok := delta[models.FieldTickers].([]string)
	if !ok || len(tickers) != 0 {
		t.Fatalf("fallback must produce an empty ticker list, got %v", delta[models.FieldTickers])
	}
	for _, f := range []models.Field{
		models.FieldDataInstructions,
		models.FieldNewsInstructions,
		models.FieldTrendInstructions,
		models.FieldPatternInstructions,
		models.FieldIndicatorInstructions,
	} {
		if delta[f] != query {
			t.Fatalf("fallback must pass the raw query to %s, got %v", f, delta[f])
		}
	}
}

func TestRouterFallbackOnMalformedArguments(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{toolCallMessage(routingToolName, "{not json")}}
	suite := NewSuite(fm, stubToolset("", nil), 4)

	delta, err := suite.Router().Run(context.Background(), models.ResearchState{Query: "q"})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	if delta[models.FieldDataInstructions] != "q" {
		t.Fatalf("malformed arguments must trigger the raw-query fallback")
	}
}

func TestSpecialistToolLoop(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		toolCallMessage("get_technical_data", `{"ticker": "AAPL"}`),
		textMessage("trend is bullish"),
	}}
	suite := NewSuite(fm, stubToolset("SMA20 above SMA50", nil), 4)

	delta, err := suite.TrendAnalyst().Run(context.Background(), models.ResearchState{
		Query:             "Analyze AAPL",
		Tickers:           []string{"AAPL"},
		TrendInstructions: "check the MAs",
	})
	if err != nil {
		t.Fatalf("trend analyst: %v", err)
	}
	if delta[models.FieldTrendAnalysis] != "trend is bullish" {
		t.Fatalf("unexpected analysis: %v", delta[models.FieldTrendAnalysis])
	}

	// The second model call must have seen the tool result.
	last := fm.lastCall()
	found := false
	for _, msg := range last {
		if msg.Role == schema.Tool && strings.Contains(msg.Content, "SMA20 above SMA50") {
			found = true
		}
	}
	if !found {
		t.Fatalf("tool result never fed back to the model: %+v", last)
	}
}

func TestToolFailureSurfacesAsText(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		toolCallMessage("get_technical_data", `{"ticker": "AAPL"}`),
		textMessage("analysis degraded, data source down"),
	}}
	suite := NewSuite(fm, stubToolset("", fmt.Errorf("rate limited")), 4)

	delta, err := suite.IndicatorAnalyst().Run(context.Background(), models.ResearchState{
		Query: "Analyze AAPL", Tickers: []string{"AAPL"},
	})
	if err != nil {
		t.Fatalf("tool failure must not abort the stage: %v", err)
	}
	if delta[models.FieldIndicatorAnalysis] != "analysis degraded, data source down" {
		t.Fatalf("unexpected analysis: %v", delta[models.FieldIndicatorAnalysis])
	}

	last := fm.lastCall()
	found := false
	for _, msg := range last {
		if msg.Role == schema.Tool && strings.Contains(msg.Content, "Error executing get_technical_data") {
			found = true
		}
	}
	if !found {
		t.Fatalf("tool error text never reached the model: %+v", last)
	}
}

func TestToolLoopStepCap(t *testing.T) {
	// The model keeps calling tools; after two steps the loop must force
	// a final answer instead of iterating forever.
	fm := &fakeModel{script: []*schema.Message{
		toolCallMessage("get_technical_data", `{"ticker": "AAPL"}`),
		toolCallMessage("get_technical_data", `{"ticker": "AAPL"}`),
		textMessage("forced final answer"),
	}}
	suite := NewSuite(fm, stubToolset("bars", nil), 2)

	delta, err := suite.TrendAnalyst().Run(context.Background(), models.ResearchState{
		Query: "Analyze AAPL", Tickers: []string{"AAPL"},
	})
	if err != nil {
		t.Fatalf("trend analyst: %v", err)
	}
	if delta[models.FieldTrendAnalysis] != "forced final answer" {
		t.Fatalf("expected forced final answer, got %v", delta[models.FieldTrendAnalysis])
	}
}

func TestStrategistSubstitutesPlaceholders(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{textMessage("Rating: NEUTRAL")}}
	suite := NewSuite(fm, stubToolset("", nil), 4)

	delta, err := suite.TechnicalStrategist().Run(context.Background(), models.ResearchState{
		Query: "Analyze AAPL",
		Style: models.StyleBalanced,
	})
	if err != nil {
		t.Fatalf("strategist: %v", err)
	}
	if delta[models.FieldTechnicalStrategy] != "Rating: NEUTRAL" {
		t.Fatalf("strategist must emit a rating even with no inputs: %v", delta)
	}

	last := fm.lastCall()
	user := last[len(last)-1].Content
	if strings.Count(user, models.NoData) != 3 {
		t.Fatalf("expected 3 no-data placeholders in strategist prompt:\n%s", user)
	}
}

func TestRiskManagerSubstitutesPlaceholders(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{textMessage("Risk Score: 5")}}
	suite := NewSuite(fm, stubToolset("", nil), 4)

	delta, err := suite.RiskManager().Run(context.Background(), models.ResearchState{
		Query: "Analyze AAPL",
		Style: models.StyleConservative,
	})
	if err != nil {
		t.Fatalf("risk manager: %v", err)
	}
	if delta[models.FieldRiskAssessment] != "Risk Score: 5" {
		t.Fatalf("unexpected assessment: %v", delta)
	}

	last := fm.lastCall()
	user := last[len(last)-1].Content
	if strings.Count(user, models.NoData) != 3 {
		t.Fatalf("expected 3 no-data placeholders in risk prompt:\n%s", user)
	}
	system := last[0].Content
	if !strings.Contains(system, "CONSERVATIVE") {
		t.Fatalf("risk manager prompt must carry the selected style:\n%s", system)
	}
}

func TestEditorCompilesAllSections(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{textMessage("# Final Memo\nBuy.")}}
	suite := NewSuite(fm, stubToolset("", nil), 4)

	delta, err := suite.Editor().Run(context.Background(), models.ResearchState{
		Query:             "Analyze AAPL",
		Style:             models.StyleAggressive,
		DataAnalysis:      "strong margins",
		NewsAnalysis:      "positive coverage",
		TechnicalStrategy: "bullish setup",
		RiskAssessment:    "score 4",
	})
	if err != nil {
		t.Fatalf("editor: %v", err)
	}
	if delta[models.FieldFinalReport] != "# Final Memo\nBuy." {
		t.Fatalf("unexpected report: %v", delta)
	}

	last := fm.lastCall()
	user := last[len(last)-1].Content
	for _, want := range []string{"strong margins", "positive coverage", "bullish setup", "score 4"} {
		if !strings.Contains(user, want) {
			t.Fatalf("editor prompt missing upstream section %q:\n%s", want, user)
		}
	}
}

func TestFieldOwnershipIsDisjoint(t *testing.T) {
	suite := NewSuite(&fakeModel{}, stubToolset("", nil), 4)

	owners := make(map[models.Field]string)
	for _, n := range []struct {
		name     string
		produces []models.Field
	}{
		{StageRouter, suite.Router().Produces},
		{StageDataAnalyst, suite.DataAnalyst().Produces},
		{StageNewsAnalyst, suite.NewsAnalyst().Produces},
		{StageTrendAnalyst, suite.TrendAnalyst().Produces},
		{StagePatternAnalyst, suite.PatternAnalyst().Produces},
		{StageIndicatorAnalyst, suite.IndicatorAnalyst().Produces},
		{StageTechnicalStrategist, suite.TechnicalStrategist().Produces},
		{StageRiskManager, suite.RiskManager().Produces},
		{StageEditor, suite.Editor().Produces},
	} {
		for _, f := range n.produces {
			if prev, dup := owners[f]; dup {
				t.Fatalf("field %s claimed by both %s and %s", f, prev, n.name)
			}
			owners[f] = n.name
		}
	}

	if len(owners) != 14 {
		t.Fatalf("expected all 14 state fields owned, got %d", len(owners))
	}
}

func TestStyleGuidelineDefaultsToBalanced(t *testing.T) {
	got := styleGuideline(strategistRules, models.InvestmentStyle("Whatever"))
	if got != strategistRules[models.StyleBalanced] {
		t.Fatalf("unknown style must fall back to the balanced rules")
	}
}

func TestNewChatModelValidatesProvider(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{LLMProvider: "deepseek", Model: "deepseek-chat", MaxTokens: 1024}
	if _, err := NewChatModel(ctx, cfg); err == nil {
		t.Fatal("missing deepseek key must fail")
	}

	cfg = &config.Config{LLMProvider: "openai", Model: "gpt-4o-mini", MaxTokens: 1024}
	if _, err := NewChatModel(ctx, cfg); err == nil {
		t.Fatal("missing openai key must fail")
	}

	cfg = &config.Config{LLMProvider: "ollama", Model: "llama3", MaxTokens: 1024}
	if _, err := NewChatModel(ctx, cfg); err == nil {
		t.Fatal("unknown provider must fail")
	}
}

func TestMessageText(t *testing.T) {
	if got := MessageText(nil); got != "" {
		t.Fatalf("nil message: %q", got)
	}
	if got := MessageText(&schema.Message{Content: "plain"}); got != "plain" {
		t.Fatalf("plain content: %q", got)
	}
	multi := &schema.Message{MultiContent: []schema.ChatMessagePart{
		{Type: schema.ChatMessagePartTypeText, Text: "part one"},
		{Type: schema.ChatMessagePartTypeImageURL},
		{Type: schema.ChatMessagePartTypeText, Text: "part two"},
	}}
	if got := MessageText(multi); got != "part one\npart two" {
		t.Fatalf("multi content: %q", got)
	}
}
