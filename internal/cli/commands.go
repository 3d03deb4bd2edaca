// Package cli wires the cobra command tree for the research assistant.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/equityscribe/equityscribe/internal/config"
	"github.com/equityscribe/equityscribe/internal/display"
	"github.com/equityscribe/equityscribe/internal/logger"
	"github.com/equityscribe/equityscribe/internal/models"
	"github.com/equityscribe/equityscribe/internal/pipeline"
	"github.com/equityscribe/equityscribe/internal/server"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "equityscribe",
		Short: "equityscribe - multi-agent investment research",
		Long: `equityscribe coordinates a team of LLM research agents: a routing lead,
five specialist analysts, a technical strategist, a risk manager and a
chief editor, producing a sell-side style investment memo for any query.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			if err := logger.Init(cfg.Debug); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: interactive research.
			return runResearch(cmd.Context(), cfg, "", "", false)
		},
	}

	rootCmd.AddCommand(newResearchCmd(cfg))
	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

func newResearchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research [QUERY]",
		Short: "Run a research query",
		Long: `Run one research query through the full agent workflow.
Example: equityscribe research "Analyze AAPL and MSFT" --style=Conservative`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			style, _ := cmd.Flags().GetString("style")
			verbose, _ := cmd.Flags().GetBool("verbose")
			return runResearch(cmd.Context(), cfg, query, style, verbose)
		},
	}

	cmd.Flags().String("style", "", "Investment style: Conservative, Balanced or Aggressive")
	cmd.Flags().Bool("verbose", false, "Also print intermediate analyses")

	return cmd
}

func runResearch(ctx context.Context, cfg *config.Config, query, style string, verbose bool) error {
	if err := validateProviderKey(cfg); err != nil {
		return err
	}

	var err error
	if strings.TrimSpace(query) == "" {
		query, err = promptQuery()
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(style) == "" {
		style, err = promptStyle()
		if err != nil {
			return err
		}
	}

	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Processing query: %q (%s)\n\n", query, models.ParseStyle(style))

	state, err := p.Run(ctx, query, models.ParseStyle(style))
	if err != nil {
		fmt.Println(display.RenderError(err))
		return err
	}

	if verbose {
		fmt.Println(display.RenderSections(state))
	}
	fmt.Println(display.RenderReport(state))
	return nil
}

// validateProviderKey fails fast with a setup hint before any agent runs.
func validateProviderKey(cfg *config.Config) error {
	if cfg.APIKey() != "" {
		return nil
	}
	switch cfg.LLMProvider {
	case "deepseek":
		return fmt.Errorf("DEEPSEEK_API_KEY not found; add it to your environment or .env file")
	default:
		return fmt.Errorf("OPENAI_API_KEY not found; add it to your environment or .env file")
	}
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the research API over HTTP",
		Long: `Serve the research API over HTTP. The effective configuration is kept
in a watched config file; edits to it rebuild the pipeline without
restarting the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateProviderKey(cfg); err != nil {
				return err
			}

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.ServerAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			configPath, _ := cmd.Flags().GetString("config")
			mgr, err := config.NewManager(
				config.WithConfigPath(configPath),
				config.WithInitialConfig(cfg),
			)
			if err != nil {
				return fmt.Errorf("config manager: %w", err)
			}

			researcher, err := newReloadingResearcher(ctx, mgr, func(ctx context.Context, cfg *config.Config) (server.Researcher, error) {
				return pipeline.New(ctx, cfg)
			})
			if err != nil {
				return err
			}

			return server.New(researcher).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().String("config", "", "Config file to watch (default: user config dir)")
	return cmd
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(redacted(cfg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and provider keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := validateProviderKey(cfg); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})

	return configCmd
}

// redacted masks secrets so `config show` is safe to paste.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	out.OpenAIAPIKey = mask(out.OpenAIAPIKey)
	out.DeepSeekAPIKey = mask(out.DeepSeekAPIKey)
	out.FinnhubAPIKey = mask(out.FinnhubAPIKey)
	out.LongportAppKey = mask(out.LongportAppKey)
	out.LongportAppSecret = mask(out.LongportAppSecret)
	out.LongportAccessToken = mask(out.LongportAccessToken)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("equityscribe %s\n", Version)
		},
	}
}
