// Package main provides the catalogmix CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/catalogmix/internal/aggregator"
	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/config"
	"github.com/gauthierbraillon/catalogmix/internal/display"
	"github.com/gauthierbraillon/catalogmix/internal/server"
	"github.com/gauthierbraillon/catalogmix/pkg/browser"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags version, then the module version
// recorded by go install.
func resolveVersion(v string, bi *debug.BuildInfo) string {
	if v != "dev" {
		return v
	}
	if bi == nil || bi.Main.Version == "" || bi.Main.Version == "(devel)" {
		return "dev"
	}
	return bi.Main.Version
}

func currentVersion() string {
	bi, _ := debug.ReadBuildInfo()
	return resolveVersion(version, bi)
}

// newRootCmd creates the root command for catalogmix CLI.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "catalogmix",
		Short:        "Aggregate and rank the storefront's trending catalog",
		Long:         "Catalogmix merges editorial picks with the live ranking feeds (most-viewed, best-rated, promotions, recent) into one deduplicated catalog you can filter and sort.",
		Version:      currentVersion(),
		SilenceUsage: true,
	}

	rootCmd.SetVersionTemplate("catalogmix version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default ./catalogmix.yaml)")

	rootCmd.AddCommand(newTrendingCmd(&configPath))
	rootCmd.AddCommand(newCategoriesCmd(&configPath))
	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newConfigCmd(&configPath))

	return rootCmd
}

// newTrendingCmd creates the trending subcommand.
func newTrendingCmd(configPath *string) *cobra.Command {
	var (
		category    string
		sortKey     string
		direction   string
		limit       int
		minPrice    int64
		maxPrice    int64
		noEditorial bool
	)

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Display the ranked trending catalog",
		Long:  "Fetch every live bucket, merge it with the editorial picks and display the result filtered and ranked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || minPrice < 0 || maxPrice < 0 {
				return fmt.Errorf("--limit, --min-price and --max-price cannot be negative")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if noEditorial {
				cfg.Catalog.IncludeEditorial = false
			}

			a := newApp(cfg)
			defer a.close()

			formatter := display.NewTerminalFormatter()
			if err := refreshOnce(cmd, a, formatter); err != nil {
				return err
			}

			page := a.view.Query(catalog.Query{
				Category:  catalog.CategoryFromToken(category),
				MinPrice:  minPrice,
				MaxPrice:  maxPrice,
				Key:       catalog.ParseSortKey(sortKey),
				Direction: catalog.ParseDirection(direction),
				Limit:     limit,
			})

			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCatalog(page.Items))
			if page.BuiltAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nCatalog built %s (%d shown)\n", formatter.FormatTimestamp(*page.BuiltAt), len(page.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only show this category (exact name, or \"all\")")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", string(catalog.DefaultSortKey), "Sort key: trending-first, units-sold, rating, effective-price")
	cmd.Flags().StringVarP(&direction, "direction", "d", string(catalog.Descending), "Sort direction: asc or desc")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of products to display (0 for all)")
	cmd.Flags().Int64Var(&minPrice, "min-price", 0, "Minimum effective price in FCFA")
	cmd.Flags().Int64Var(&maxPrice, "max-price", 0, "Maximum effective price in FCFA")
	cmd.Flags().BoolVar(&noEditorial, "no-editorial", false, "Leave out the bundled editorial picks")

	return cmd
}

// newCategoriesCmd creates the categories subcommand.
func newCategoriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories present in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			a := newApp(cfg)
			defer a.close()

			formatter := display.NewTerminalFormatter()
			if err := refreshOnce(cmd, a, formatter); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCategories(a.view.Categories()))
			return nil
		},
	}
}

// refreshOnce builds the catalog and prints soft failures to stderr. Only a
// total aggregation failure is returned as an error.
func refreshOnce(cmd *cobra.Command, a *app, formatter *display.TerminalFormatter) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.cfg.Catalog.RequestTimeout)
	defer cancel()

	_, err := a.view.Refresh(ctx)
	fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatWarnings(a.view.Query(catalog.Query{}).Warnings))
	if errors.Is(err, aggregator.ErrTotalAggregationFailure) {
		return fmt.Errorf("no catalog available: %w", err)
	}
	return err
}

// newServeCmd creates the serve subcommand.
func newServeCmd(configPath *string) *cobra.Command {
	var (
		addr string
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trending catalog over HTTP",
		Long:  "Refresh the catalog periodically and serve it on /api/v1/trending, with /healthz and /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a := newApp(cfg)
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.enableSnapshots(ctx); err != nil {
				a.logger.Warn("catalog snapshots disabled", zap.Error(err))
			}

			go a.view.Run(ctx, cfg.Server.RefreshInterval)

			if open {
				openCatalog(a.logger, cfg.Server.Addr)
			}

			srv := server.New(a.view, server.WithLogger(a.logger), server.WithMetrics(a.metrics))
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the trending endpoint in the default browser")

	return cmd
}

// openCatalog is best effort: a headless host still serves the catalog.
func openCatalog(logger *zap.Logger, addr string) {
	target, err := browser.LocalURL(addr, "/api/v1/trending")
	if err == nil {
		err = browser.Open(target)
	}
	if err != nil {
		logger.Warn("could not open browser", zap.String("addr", addr), zap.Error(err))
		return
	}
	logger.Info("opened catalog in browser", zap.String("url", target))
}

// newConfigCmd creates the config subcommand.
func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Print the configuration after merging defaults, the config file, .env and CATALOGMIX_ environment variables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.Password != "" {
				cfg.Redis.Password = "********"
			}

			out, err := yaml.Marshal(effectiveConfig(cfg))
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// effectiveConfig mirrors the configuration keys for display.
func effectiveConfig(cfg *config.Config) map[string]any {
	buckets := make([]string, len(cfg.Catalog.Buckets))
	for i, b := range cfg.Catalog.Buckets {
		buckets[i] = string(b)
	}
	return map[string]any{
		"app": map[string]any{"env": cfg.App.Env},
		"log": map[string]any{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
			"output": cfg.Log.Output,
		},
		"catalog": map[string]any{
			"api_base_url":           cfg.Catalog.APIBaseURL,
			"media_base_url":         cfg.Catalog.MediaBaseURL,
			"placeholder_image":      cfg.Catalog.PlaceholderImage,
			"include_editorial":      cfg.Catalog.IncludeEditorial,
			"live_feed_limit":        cfg.Catalog.LiveFeedLimit,
			"buckets":                buckets,
			"request_timeout":        cfg.Catalog.RequestTimeout.String(),
			"max_concurrent_fetches": cfg.Catalog.MaxConcurrentFetches,
			"fixtures_path":          cfg.Catalog.FixturesPath,
			"units_sold_seed":        cfg.Catalog.UnitsSoldSeed,
		},
		"server": map[string]any{
			"addr":             cfg.Server.Addr,
			"refresh_interval": cfg.Server.RefreshInterval.String(),
		},
		"redis": map[string]any{
			"enabled":  cfg.Redis.Enabled,
			"addr":     cfg.Redis.Addr,
			"password": cfg.Redis.Password,
			"db":       cfg.Redis.DB,
			"key":      cfg.Redis.Key,
			"ttl":      cfg.Redis.TTL.String(),
		},
	}
}
