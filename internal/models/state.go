package models

import (
	"fmt"
	"strings"
)

// InvestmentStyle parameterizes every downstream stage. It is fixed at
// request entry and never mutated by the pipeline.
type InvestmentStyle string

const (
	StyleConservative InvestmentStyle = "Conservative"
	StyleBalanced     InvestmentStyle = "Balanced"
	StyleAggressive   InvestmentStyle = "Aggressive"
)

// ParseStyle maps free-form user input to a known style. Anything
// unrecognized (including empty input) resolves to Balanced, the single
// fallback rule shared by every style-sensitive stage.
func ParseStyle(s string) InvestmentStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative":
		return StyleConservative
	case "aggressive":
		return StyleAggressive
	default:
		return StyleBalanced
	}
}

// Field names one slot of the shared research state. Stages declare which
// fields they require and produce, and the graph runner enforces that each
// field is written exactly once per run.
type Field string

const (
	FieldTickers Field = "tickers"

	FieldDataInstructions      Field = "data_analyst_instructions"
	FieldNewsInstructions      Field = "news_analyst_instructions"
	FieldTrendInstructions     Field = "trend_analyst_instructions"
	FieldPatternInstructions   Field = "pattern_analyst_instructions"
	FieldIndicatorInstructions Field = "indicator_analyst_instructions"

	FieldDataAnalysis      Field = "data_analysis"
	FieldNewsAnalysis      Field = "news_analysis"
	FieldTrendAnalysis     Field = "trend_analysis"
	FieldPatternAnalysis   Field = "pattern_analysis"
	FieldIndicatorAnalysis Field = "indicator_analysis"

	FieldTechnicalStrategy Field = "technical_strategy"
	FieldRiskAssessment    Field = "risk_assessment"
	FieldFinalReport       Field = "final_report"
)

// NoData is substituted wherever a consumer reads an upstream field whose
// producer returned nothing. Consumers degrade instead of failing.
const NoData = "no data provided"

// ResearchState is the shared record threaded through one research run.
// Query and Style are set at entry; everything else is filled in by
// exactly one stage as the graph executes.
type ResearchState struct {
	RunID string          `json:"run_id"`
	Query string          `json:"query"`
	Style InvestmentStyle `json:"investment_style"`

	Tickers []string `json:"tickers"`

	DataInstructions      string `json:"data_analyst_instructions"`
	NewsInstructions      string `json:"news_analyst_instructions"`
	TrendInstructions     string `json:"trend_analyst_instructions"`
	PatternInstructions   string `json:"pattern_analyst_instructions"`
	IndicatorInstructions string `json:"indicator_analyst_instructions"`

	DataAnalysis      string `json:"data_analysis"`
	NewsAnalysis      string `json:"news_analysis"`
	TrendAnalysis     string `json:"trend_analysis"`
	PatternAnalysis   string `json:"pattern_analysis"`
	IndicatorAnalysis string `json:"indicator_analysis"`

	TechnicalStrategy string `json:"technical_strategy"`
	RiskAssessment    string `json:"risk_assessment"`
	FinalReport       string `json:"final_report"`
}

// OrDefault returns s, or the NoData placeholder when s is empty.
func OrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoData
	}
	return s
}

// Delta is the set of fields one stage produced. Stages never mutate the
// state directly; the runner merges deltas as stages complete, which keeps
// concurrent fan-out branches free of shared writes.
type Delta map[Field]any

// Apply writes the delta's fields into the state. Unknown fields and
// wrongly typed values are rejected so a misbehaving stage fails loudly
// instead of silently corrupting the run.
func (s *ResearchState) Apply(d Delta) error {
	for f, v := range d {
		if f == FieldTickers {
			tickers, ok := v.([]string)
			if !ok {
				return fmt.Errorf("field %s: expected []string, got %T", f, v)
			}
			s.Tickers = tickers
			continue
		}

		text, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %s: expected string, got %T", f, v)
		}

		switch f {
		case FieldDataInstructions:
			s.DataInstructions = text
		case FieldNewsInstructions:
			s.NewsInstructions = text
		case FieldTrendInstructions:
			s.TrendInstructions = text
		case FieldPatternInstructions:
			s.PatternInstructions = text
		case FieldIndicatorInstructions:
			s.IndicatorInstructions = text
		case FieldDataAnalysis:
			s.DataAnalysis = text
		case FieldNewsAnalysis:
			s.NewsAnalysis = text
		case FieldTrendAnalysis:
			s.TrendAnalysis = text
		case FieldPatternAnalysis:
			s.PatternAnalysis = text
		case FieldIndicatorAnalysis:
			s.IndicatorAnalysis = text
		case FieldTechnicalStrategy:
			s.TechnicalStrategy = text
		case FieldRiskAssessment:
			s.RiskAssessment = text
		case FieldFinalReport:
			s.FinalReport = text
		default:
			return fmt.Errorf("unknown state field %q", f)
		}
	}
	return nil
}
