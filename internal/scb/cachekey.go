package scb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"statcheck/internal/types"
)

// CacheKey derives a deterministic content-addressed key for a selection
// query, scoped by table id. The selection is canonicalized first (sorted
// dimensions, sorted item codes) so semantically identical queries always
// map to the same entry regardless of construction order.
func CacheKey(tableID string, q *types.Query) string {
	canonical := make([]types.Selection, len(q.Selection))
	for i, sel := range q.Selection {
		items := append([]string(nil), sel.Items...)
		sort.Strings(items)
		canonical[i] = types.Selection{Dimension: sel.Dimension, Items: items}
	}
	sort.Slice(canonical, func(i, j int) bool {
		return canonical[i].Dimension < canonical[j].Dimension
	})

	payload, _ := json.Marshal(canonical)
	digest := sha256.Sum256(payload)
	return fmt.Sprintf("source:scb:v2:custom:%s:%s", tableID, hex.EncodeToString(digest[:]))
}
