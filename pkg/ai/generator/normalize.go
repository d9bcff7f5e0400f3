package generator

import (
	"fmt"
	"math"
	"sort"

	"startup-hunter-be/pkg/store"
)

// CompositeScore maps (2*momentum + 3*pain - competition - complexity),
// with sub-scores on 0..10, onto 0..100.
func CompositeScore(momentum, pain, competition, complexity int) int {
	raw := float64(2*momentum + 3*pain - competition - complexity)
	const lo, hi = -20.0, 50.0
	return clamp(int(math.Round((raw-lo)*100/(hi-lo))), 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func subScore(m map[string]interface{}, key string) int {
	v, _ := num(m, key)
	return clamp(int(math.Round(v)), 0, 10)
}

func toTrends(items []map[string]interface{}) []store.Trend {
	trends := make([]store.Trend, 0, len(items))
	for _, m := range items {
		title := str(m, "title")
		if title == "" {
			continue
		}
		t := store.Trend{
			ID:          str(m, "id"),
			Title:       title,
			Momentum:    subScore(m, "momentum"),
			Pain:        subScore(m, "pain"),
			Competition: subScore(m, "competition"),
			Complexity:  subScore(m, "complexity"),
			PainPoints:  strList(m, "painPoints"),
		}
		if score, ok := num(m, "score"); ok {
			t.Score = clamp(int(math.Round(score)), 0, 100)
		} else {
			t.Score = CompositeScore(t.Momentum, t.Pain, t.Competition, t.Complexity)
		}
		for _, ev := range objList(m, "evidence") {
			t.Evidence = append(t.Evidence, store.Evidence{
				Source:  str(ev, "source"),
				URL:     str(ev, "url"),
				Snippet: str(ev, "snippet"),
			})
		}
		trends = append(trends, t)
	}

	ids := uniqueIDs("trend", len(trends), func(i int) string { return trends[i].ID })
	for i := range trends {
		trends[i].ID = ids[i]
	}
	SortTrends(trends)
	return trends
}

// SortTrends orders by score descending, keeping input order on ties.
func SortTrends(trends []store.Trend) {
	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].Score > trends[j].Score
	})
}

func toIdeas(items []map[string]interface{}) []store.Idea {
	ideas := make([]store.Idea, 0, len(items))
	for _, m := range items {
		title := str(m, "title")
		if title == "" {
			continue
		}
		ideas = append(ideas, store.Idea{
			ID:          str(m, "id"),
			Title:       title,
			Tagline:     str(m, "tagline"),
			Reasoning:   str(m, "reasoning"),
			Market:      str(m, "market"),
			Wedge:       str(m, "wedge"),
			MVPTime:     str(m, "mvpTime"),
			Recommended: boolean(m, "recommended"),
		})
	}

	ids := uniqueIDs("idea", len(ideas), func(i int) string { return ideas[i].ID })
	for i := range ideas {
		ideas[i].ID = ids[i]
	}
	markRecommended(ideas)
	return ideas
}

// markRecommended leaves exactly one recommended idea: the first flagged
// one, or the first idea when none is flagged.
func markRecommended(ideas []store.Idea) {
	found := false
	for i := range ideas {
		if ideas[i].Recommended && !found {
			found = true
			continue
		}
		ideas[i].Recommended = false
	}
	if !found && len(ideas) > 0 {
		ideas[0].Recommended = true
	}
}

func toSections(items []map[string]interface{}) []store.ProposalSection {
	sections := make([]store.ProposalSection, 0, len(items))
	for _, m := range items {
		title := str(m, "title")
		if title == "" {
			continue
		}
		sections = append(sections, store.ProposalSection{Title: title, Content: str(m, "content")})
	}
	return sections
}

// uniqueIDs keeps ids that are present and unused, and assigns
// "<prefix>-N" to the rest.
func uniqueIDs(prefix string, n int, idAt func(int) string) []string {
	used := make(map[string]bool, n)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		id := idAt(i)
		if id != "" && !used[id] {
			out[i] = id
			used[id] = true
		}
	}
	next := 1
	for i := 0; i < n; i++ {
		if out[i] != "" {
			continue
		}
		for used[fmt.Sprintf("%s-%d", prefix, next)] {
			next++
		}
		out[i] = fmt.Sprintf("%s-%d", prefix, next)
		used[out[i]] = true
	}
	return out
}
