package app

import (
	"fmt"
	"sort"

	"github.com/piabot/piastats/internal/domain"
)

// defaultMarker is shown in report lines when a guild somehow has no marker
// stored anymore.
const defaultMarker = "🔸"

// SentCount and ReceivedCount select the ranking metric for a board.
func SentCount(mc domain.MemberCount) int64     { return mc.Sent }
func ReceivedCount(mc domain.MemberCount) int64 { return mc.Received }

// Rank filters out members with a zero metric, sorts the rest descending,
// and caps the result at limit (limit <= 0 means no cap). The sort is
// stable: equal counts keep their input order.
func Rank(counts []domain.MemberCount, metric func(domain.MemberCount) int64, limit int) []domain.MemberCount {
	ranked := make([]domain.MemberCount, 0, len(counts))
	for _, mc := range counts {
		if metric(mc) > 0 {
			ranked = append(ranked, mc)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return metric(ranked[i]) > metric(ranked[j])
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// FormatLines renders ranked counts as report lines. Members without a
// stored display name fall back to their raw ID.
func FormatLines(ranked []domain.MemberCount, metric func(domain.MemberCount) int64, names map[string]string, marker string) []string {
	if marker == "" {
		marker = defaultMarker
	}
	lines := make([]string, 0, len(ranked))
	for i, mc := range ranked {
		name := names[mc.MemberID]
		if name == "" {
			name = mc.MemberID
		}
		lines = append(lines, fmt.Sprintf("%d位: %s さん（%s × %d）", i+1, name, marker, metric(mc)))
	}
	return lines
}
