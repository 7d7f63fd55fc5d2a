package rag

import "strconv"

// bucketOf groups neighbouring chunks of one document: chunks 2n and 2n+1
// of the same path share a bucket.
func bucketOf(r Result) string {
	return r.Path + ":" + strconv.Itoa(r.ChunkIndex/2)
}

// SelectDiverse picks at most k results from candidates sorted by
// descending score, dropping those below minScore.
//
// When no more than k candidates remain, each bucket contributes its best
// candidate. Otherwise the best candidate is taken first and the rest are
// taken in score order while their bucket is unused, followed by a fill
// pass over the remaining unused buckets.
func SelectDiverse(candidates []Result, k int, minScore float64) []Result {
	if k <= 0 {
		return []Result{}
	}
	pool := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= minScore {
			pool = append(pool, c)
		}
	}

	if len(pool) <= k {
		return uniqueBuckets(pool, k)
	}

	selected := []Result{pool[0]}
	used := map[string]struct{}{bucketOf(pool[0]): {}}
	for i := 1; i < len(pool) && len(selected) < k; i++ {
		b := bucketOf(pool[i])
		if _, ok := used[b]; ok {
			continue
		}
		selected = append(selected, pool[i])
		used[b] = struct{}{}
	}
	for i := 0; i < len(pool) && len(selected) < k; i++ {
		b := bucketOf(pool[i])
		if _, ok := used[b]; ok {
			continue
		}
		selected = append(selected, pool[i])
		used[b] = struct{}{}
	}
	return selected
}

func uniqueBuckets(pool []Result, k int) []Result {
	out := make([]Result, 0, len(pool))
	seen := make(map[string]struct{}, len(pool))
	for _, c := range pool {
		b := bucketOf(c)
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, c)
		if len(out) >= k {
			break
		}
	}
	return out
}
