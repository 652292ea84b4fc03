package vectorindex

import (
	"math"
	"sort"

	"github.com/memkit/memoryd/internal/types"
)

// SearchOptions bounds a single search call.
type SearchOptions struct {
	K         int
	Filter    *types.VectorFilter
	Threshold *float64
}

// Search returns the k nearest documents to query by cosine similarity,
// descending by score, optionally restricted to metadata matching Filter
// and pruned below Threshold.
func (idx *Index) Search(query []float32, opts SearchOptions) ([]types.SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}
	return idx.searchLocked(query, opts)
}

// SearchBatch runs Search once per query, sharing the read lock across
// the whole batch so a concurrent write cannot interleave between
// per-query passes.
func (idx *Index) SearchBatch(queries [][]float32, opts SearchOptions) ([][]types.SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}

	out := make([][]types.SearchResult, len(queries))
	for i, q := range queries {
		res, err := idx.searchLocked(q, opts)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// searchLocked is Search's body without lock acquisition, for reuse by
// SearchBatch which already holds the read lock.
func (idx *Index) searchLocked(query []float32, opts SearchOptions) ([]types.SearchResult, error) {
	if idx.state == stateEmpty {
		return nil, nil
	}
	if err := validateVector(query, idx.dim); err != nil {
		return nil, err
	}

	k := opts.K
	if k <= 0 {
		k = 10
	}

	results := make([]types.SearchResult, 0, len(idx.docs))
	for _, id := range idx.order {
		doc, ok := idx.docs[id]
		if !ok {
			continue
		}
		if opts.Filter != nil && !opts.Filter.Matches(doc) {
			continue
		}
		score := cosineSimilarity(query, doc.Vector)
		if opts.Threshold != nil && score < *opts.Threshold {
			continue
		}
		results = append(results, types.SearchResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
