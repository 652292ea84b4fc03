package contextbuilder

import "strings"

// jaccardSimilarity computes the word-overlap similarity between two
// strings, the same heuristic the teacher's duplicate-work validator
// uses for comparing task titles: lowercase, strip punctuation, drop a
// short stopword list and words of length <= 2, then intersection over
// union of the resulting word sets.
func jaccardSimilarity(a, b string) float64 {
	return jaccardSets(tokenize(a), tokenize(b))
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
}

func tokenize(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})

	set := make(map[string]bool)
	for _, w := range words {
		if len(w) > 2 && !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

func jaccardSets(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range set1 {
		if set2[w] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// dedupe clusters entries whose pairwise content similarity meets or
// exceeds threshold, keeping the highest-scored member of each cluster.
// threshold == 1.0 disables dedup entirely. Order of the surviving
// entries follows their first occurrence in entries.
func dedupe(entries []scored, threshold float64) ([]scored, int) {
	if threshold >= 1.0 {
		return entries, 0
	}

	assigned := make([]bool, len(entries))
	var clusters [][]int
	for i := range entries {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		assigned[i] = true
		for j := i + 1; j < len(entries); j++ {
			if assigned[j] {
				continue
			}
			if jaccardSimilarity(entries[i].entry.Content, entries[j].entry.Content) >= threshold {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}

	removed := 0
	out := make([]scored, 0, len(clusters))
	for _, cluster := range clusters {
		best := cluster[0]
		for _, idx := range cluster[1:] {
			if entries[idx].entry.Score > entries[best].entry.Score {
				best = idx
			}
			removed++
		}
		out = append(out, entries[best])
	}
	return out, removed
}
