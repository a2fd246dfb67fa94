package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"statcheck/internal/cache"
	"statcheck/internal/catalog"
	"statcheck/internal/classify"
	"statcheck/internal/format"
	"statcheck/internal/resolver"
	"statcheck/internal/scb"
	"statcheck/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resolvePayloadOnly bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [question]",
	Short: "Resolve a statistical question to grounded observations",
	Long: `Resolves a natural-language question through the full pipeline:
  1. Match candidate tables in the local catalog (token overlap)
  2. Disambiguate when several candidates tie
  3. Build a validated per-dimension selection from the table metadata
  4. Fetch, decode, and format the observations

Example:
  statcheck resolve "How many deaths were there in Sweden in 2015?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolvePayloadOnly, "payload", false,
		"print the aggregated answer payload instead of raw result rows")
}

func runResolve(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.NewStore(cfg.Catalog.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	r, cleanup, err := buildResolver(store)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := r.Resolve(ctx, question)
	if err != nil {
		logger.Error("Resolution failed", zap.String("question", question), zap.Error(err))
		fmt.Println("No resolvable data for this question.")
		return nil
	}
	if len(results) == 0 {
		fmt.Println("No resolvable data for this question.")
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if resolvePayloadOnly {
		return enc.Encode(format.BuildPayload(results, question))
	}
	return enc.Encode(results)
}

// buildResolver wires the pipeline from config. The returned cleanup closes
// the cache store.
func buildResolver(store *catalog.Store) (*resolver.Resolver, func(), error) {
	var fetchCache types.Cache
	cleanup := func() {}

	if cfg.Cache.DatabasePath != "" {
		sqliteCache, err := cache.NewSQLiteCache(cfg.Cache.DatabasePath)
		if err != nil {
			logger.Warn("Cache unavailable, continuing without it", zap.Error(err))
			fetchCache = cache.NewMemoryCache()
		} else {
			fetchCache = sqliteCache
			cleanup = func() { sqliteCache.Close() }
		}
	} else {
		fetchCache = cache.NewMemoryCache()
	}

	client := scb.NewClient(scb.Config{
		BaseURL:      cfg.API.BaseURL,
		Language:     cfg.API.Language,
		OutputFormat: cfg.API.OutputFormat,
		Timeout:      cfg.GetAPITimeout(),
		Cache:        fetchCache,
		CacheTTL:     cfg.GetCacheTTL(),
	})

	classifier, err := buildClassifier()
	if err != nil {
		logger.Warn("Classifier unavailable, disambiguation falls back to ranking", zap.Error(err))
		classifier = nil
	}

	return resolver.New(store, classifier, client), cleanup, nil
}

// buildClassifier picks the collaborator implementation from config. A nil
// classifier is valid; the resolver then relies on ranking alone.
func buildClassifier() (types.Classifier, error) {
	if cfg.LLM.APIKey == "" {
		return nil, nil
	}

	switch cfg.LLM.Provider {
	case "gemini-rest":
		return classify.NewRESTClassifier(classify.RESTConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.GetLLMTimeout(),
		})
	default:
		return classify.NewGenAIClassifier(cfg.LLM.APIKey, cfg.LLM.Model)
	}
}
