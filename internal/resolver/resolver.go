// Package resolver runs the resolution pipeline: question → candidate
// tables → disambiguation → metadata → query build → fetch → decode →
// format. Each resolution is a single sequential pipeline; concurrent
// resolutions share nothing but the external cache.
package resolver

import (
	"context"
	"errors"

	"statcheck/internal/catalog"
	"statcheck/internal/format"
	"statcheck/internal/logging"
	"statcheck/internal/metadata"
	"statcheck/internal/query"
	"statcheck/internal/scb"
	"statcheck/internal/types"

	"github.com/google/uuid"
)

// Resolver resolves natural-language statistical questions to grounded
// result rows.
type Resolver struct {
	catalog    types.CatalogStore
	classifier types.Classifier // optional; nil disables collaborator calls
	client     *scb.Client
}

// New creates a resolver. classifier may be nil.
func New(store types.CatalogStore, classifier types.Classifier, client *scb.Client) *Resolver {
	return &Resolver{catalog: store, classifier: classifier, client: client}
}

// Resolve answers a question, or returns nil when no data could be resolved.
// A nil, nil return is the normal "no match" outcome; errors carry upstream
// or metadata failures for logging. The resolver never substitutes a
// different year or table for the one asked about.
func (r *Resolver) Resolve(ctx context.Context, question string) ([]types.Result, error) {
	reqID := uuid.NewString()[:8]
	log := logging.WithRequestID(logging.CategoryResolver, reqID)
	log.Info("Resolving question: %q", question)

	tables, err := r.catalog.All()
	if err != nil {
		return nil, err
	}

	candidates := catalog.Match(question, tables)
	if len(candidates) == 0 {
		log.Info("No matching tables in local index")
		return nil, nil
	}
	log.Debug("Matched %d candidate table(s)", len(candidates))

	table, ok := r.selectTable(ctx, question, candidates)
	if !ok {
		log.Info("Disambiguation rejected all candidates")
		return nil, nil
	}
	log.Info("Selected table %s (%s)", table.ID, table.Title)

	variables, err := r.client.Metadata(ctx, *table)
	if err != nil {
		if errors.Is(err, metadata.ErrUnsupportedShape) {
			log.Error("Unsupported metadata shape for table %s", table.ID)
		} else {
			log.Error("Metadata fetch failed for table %s: %v", table.ID, err)
		}
		return nil, err
	}

	q, err := query.Build(question, variables)
	if err != nil {
		if errors.Is(err, query.ErrUnsatisfiableTime) {
			log.Info("Requested years not covered by table %s", table.ID)
		} else {
			log.Error("Query build failed for table %s: %v", table.ID, err)
		}
		return nil, err
	}

	ds, observations, err := r.client.FetchData(ctx, *table, q)
	if err != nil {
		log.Error("Data fetch failed for table %s: %v", table.ID, err)
		return nil, err
	}
	if len(observations) == 0 {
		log.Info("Table %s returned no observations for query", table.ID)
		return nil, nil
	}

	results := format.Format(ds, observations, table.Title, table.ID, q, variables)
	log.Info("Resolved %d result row(s) from table %s", len(results), table.ID)
	return results, nil
}
