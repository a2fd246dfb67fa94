package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"statcheck/internal/catalog"
	"statcheck/internal/scb"
	"statcheck/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var seedConcurrency int

var seedCmd = &cobra.Command{
	Use:   "seed [topic...]",
	Short: "Seed the local table catalog from the remote search endpoint",
	Long: `Queries the remote statistics API's table search endpoint for each topic
and upserts the results into the local catalog. Topic terms double as
keywords for the local matcher.

Example:
  statcheck seed deaths births marriages divorces inflation population`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedConcurrency, "concurrency", 4, "concurrent topic fetches")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.NewStore(cfg.Catalog.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	client := scb.NewClient(scb.Config{
		BaseURL:      cfg.API.BaseURL,
		Language:     cfg.API.Language,
		OutputFormat: cfg.API.OutputFormat,
		Timeout:      cfg.GetAPITimeout(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	type topicResult struct {
		topic  string
		tables []types.Table
	}
	resultCh := make(chan topicResult, len(args))

	for _, topic := range args {
		topic := topic
		g.Go(func() error {
			tables, err := client.SearchTables(gctx, topic)
			if err != nil {
				return fmt.Errorf("search %q: %w", topic, err)
			}
			resultCh <- topicResult{topic: topic, tables: tables}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	close(resultCh)

	total := 0
	for res := range resultCh {
		for _, t := range res.tables {
			// Topic terms become matcher keywords, merged across topics.
			t.Keywords = mergeKeywords(t.Keywords, res.topic)
			if err := store.Upsert(t); err != nil {
				logger.Warn("Failed to upsert table",
					zap.String("table", t.ID), zap.Error(err))
				continue
			}
			total++
		}
		logger.Info("Seeded topic",
			zap.String("topic", res.topic), zap.Int("tables", len(res.tables)))
	}

	count, err := store.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d entries; catalog now holds %d tables.\n", total, count)
	return nil
}

// mergeKeywords appends a keyword to an existing JSON-encoded keyword list,
// tolerating the delimited-string form.
func mergeKeywords(existing, keyword string) string {
	var list []string
	if existing != "" {
		if err := json.Unmarshal([]byte(existing), &list); err != nil {
			list = strings.Split(existing, ",")
			for i := range list {
				list[i] = strings.TrimSpace(list[i])
			}
		}
	}
	for _, k := range list {
		if strings.EqualFold(k, keyword) {
			encoded, _ := json.Marshal(list)
			return string(encoded)
		}
	}
	list = append(list, keyword)
	encoded, _ := json.Marshal(list)
	return string(encoded)
}
