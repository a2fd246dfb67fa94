package resolver

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"statcheck/internal/logging"
	"statcheck/internal/query"
	"statcheck/internal/types"
)

var tableIDPattern = regexp.MustCompile(`\b[A-Z]{2,}[0-9]+\b`)

// rankCandidates orders candidates before disambiguation: tables whose
// period span covers the question's requested year(s) rank first, ties
// broken by most recent upstream update. Stable so equally ranked
// candidates keep catalog order.
func rankCandidates(question string, candidates []types.Table) []types.Table {
	years := query.ExtractYears(question)

	ranked := append([]types.Table(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := coversYears(ranked[i], years), coversYears(ranked[j], years)
		if ci != cj {
			return ci
		}
		return ranked[i].Updated.After(ranked[j].Updated)
	})
	return ranked
}

// coversYears reports whether every requested year falls inside the table's
// period span. Tables without period metadata never count as covering.
func coversYears(t types.Table, years []string) bool {
	if len(years) == 0 {
		return false
	}
	first, okFirst := periodYear(t.FirstPeriod)
	last, okLast := periodYear(t.LastPeriod)
	if !okFirst || !okLast {
		return false
	}
	for _, ys := range years {
		y, err := strconv.Atoi(ys)
		if err != nil || y < first || y > last {
			return false
		}
	}
	return true
}

func periodYear(period string) (int, bool) {
	if len(period) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(period[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// selectTable picks the single best table among candidates. One candidate
// returns directly; otherwise the classification collaborator is consulted
// and its free text scanned for a candidate id. A "NONE" marker rejects all
// candidates; any parse failure falls back to the first (ranked) candidate
// so a formatting hiccup never aborts an answer that matched strongly.
func (r *Resolver) selectTable(ctx context.Context, question string, candidates []types.Table) (*types.Table, bool) {
	if len(candidates) == 1 {
		return &candidates[0], true
	}

	ranked := rankCandidates(question, candidates)

	if r.classifier == nil {
		logging.ResolverWarn("No classifier configured, using top-ranked candidate %s", ranked[0].ID)
		return &ranked[0], true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User Question: %q\n", question)
	sb.WriteString("Candidates:\n")
	for _, t := range ranked {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", t.ID, t.Title, t.Description)
	}
	sb.WriteString("\nTask: Select the most relevant table ID.\n")
	sb.WriteString("Output: ID only (e.g. TAB4392). If none fit, output NONE.\n")

	text, err := r.classifier.Classify(ctx, sb.String())
	if err != nil {
		logging.ResolverWarn("Classifier failed, falling back to top-ranked candidate %s: %v",
			ranked[0].ID, err)
		return &ranked[0], true
	}

	for _, match := range tableIDPattern.FindAllString(text, -1) {
		for i := range ranked {
			if ranked[i].ID == match {
				return &ranked[i], true
			}
		}
	}

	if strings.Contains(strings.ToUpper(text), "NONE") {
		logging.Resolver("Classifier rejected all candidates for question %q", question)
		return nil, false
	}

	logging.ResolverWarn("Classifier output %q named no candidate, using top-ranked %s",
		excerptText(text), ranked[0].ID)
	return &ranked[0], true
}

func excerptText(s string) string {
	const max = 120
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
