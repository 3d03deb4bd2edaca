package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/equityscribe/equityscribe/internal/models"
)

// promptQuery asks for the free-text research question.
func promptQuery() (string, error) {
	var query string
	prompt := &survey.Input{
		Message: "Enter your research query (e.g., 'Analyze AAPL and MSFT'):",
		Help:    "Any question about one or more stocks; tickers are extracted automatically",
	}

	err := survey.AskOne(prompt, &query, survey.WithValidator(func(val interface{}) error {
		if strings.TrimSpace(val.(string)) == "" {
			return fmt.Errorf("query cannot be empty")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(query), nil
}

// promptStyle asks for the investment style, defaulting to Balanced.
func promptStyle() (string, error) {
	var style string
	prompt := &survey.Select{
		Message: "Select your investment style:",
		Options: []string{
			string(models.StyleConservative),
			string(models.StyleBalanced),
			string(models.StyleAggressive),
		},
		Default: string(models.StyleBalanced),
	}

	if err := survey.AskOne(prompt, &style); err != nil {
		return "", err
	}
	return style, nil
}
