package models

// Tool input/output shapes. Outputs carry a single Result string so tool
// failures can be reported as text inside the research flow.

type StockAnalysisInput struct {
	Ticker string `json:"ticker"`
}

type StockAnalysisOutput struct {
	Result string `json:"result"`
}

type TechnicalDataInput struct {
	Ticker string `json:"ticker"`
}

type TechnicalDataOutput struct {
	Result string `json:"result"`
}

type SearchNewsInput struct {
	Ticker string `json:"ticker"`
}

type SearchNewsOutput struct {
	Result string `json:"result"`
}

type WebSearchInput struct {
	Query string `json:"query"`
}

type WebSearchOutput struct {
	Result string `json:"result"`
}
