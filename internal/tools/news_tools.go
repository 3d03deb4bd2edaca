package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/dataflows"
	"github.com/equityscribe/equityscribe/internal/models"
)

// NewSearchNewsTool builds the company news tool: Finnhub news from the
// last seven days for a ticker.
func (p *Provider) NewSearchNewsTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "search_news",
			Desc: "Search recent company news for a stock ticker from the last 7 days",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "The stock ticker symbol, e.g. AAPL",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.SearchNewsInput) (*models.SearchNewsOutput, error) {
			ticker := dataflows.NormalizeSymbol(input.Ticker)
			if err := dataflows.ValidateSymbol(ticker); err != nil {
				return &models.SearchNewsOutput{
					Result: fmt.Sprintf("Error: invalid ticker %q: %v", input.Ticker, err),
				}, nil
			}

			to := time.Now()
			from := to.AddDate(0, 0, -7)
			articles, err := p.finnhub.GetCompanyNews(ticker, from, to)
			if err != nil {
				return &models.SearchNewsOutput{
					Result: fmt.Sprintf("Error retrieving news for %s: %v", ticker, err),
				}, nil
			}
			if len(articles) == 0 {
				return &models.SearchNewsOutput{
					Result: fmt.Sprintf("No news found for %s in the last 7 days.", ticker),
				}, nil
			}

			return &models.SearchNewsOutput{Result: formatArticles(ticker, articles)}, nil
		},
	)
}

// NewWebSearchTool builds the general web search tool backed by Google
// News RSS, for queries that go beyond a single ticker.
func (p *Provider) NewWebSearchTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "web_search",
			Desc: "Search the web for news and information on any topic, such as macro events, sectors or competitors",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The search query",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.WebSearchInput) (*models.WebSearchOutput, error) {
			query := strings.TrimSpace(input.Query)
			if query == "" {
				return &models.WebSearchOutput{Result: "Error: empty search query"}, nil
			}

			articles, err := p.news.Search(query, 10)
			if err != nil {
				return &models.WebSearchOutput{
					Result: fmt.Sprintf("Error searching for %q: %v", query, err),
				}, nil
			}
			if len(articles) == 0 {
				return &models.WebSearchOutput{
					Result: fmt.Sprintf("No results found for %q.", query),
				}, nil
			}

			return &models.WebSearchOutput{Result: formatArticles(query, articles)}, nil
		},
	)
}

func formatArticles(subject string, articles []*models.NewsArticle) string {
	var out strings.Builder
	fmt.Fprintf(&out, "## News results for %s (%d articles)\n\n", subject, len(articles))
	for _, a := range articles {
		fmt.Fprintf(&out, "- [%s] %s\n", a.PublishedAt.Format("2006-01-02"), a.Title)
		if a.Source != "" {
			fmt.Fprintf(&out, "  Source: %s\n", a.Source)
		}
		if a.Summary != "" {
			fmt.Fprintf(&out, "  %s\n", a.Summary)
		}
		if a.URL != "" {
			fmt.Fprintf(&out, "  %s\n", a.URL)
		}
	}
	return out.String()
}
