package trie

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
)

// ErrSegmentationFailure is returned when a non-empty string cannot be fully
// covered by stored tokens. It wraps apperrors.ErrNotDecomposable.
var ErrSegmentationFailure = fmt.Errorf("string cannot be segmented into known tokens: %w", apperrors.ErrNotDecomposable)

// Segment partitions blob into stored tokens with nothing left over. At each
// offset shorter tokens are tried first, backtracking on dead ends; offsets
// already known to be dead ends are skipped, which bounds the work to
// O(len(blob)^2) node visits. An empty blob yields an empty slice.
func (t *Trie) Segment(blob string) ([]string, error) {
	runes := []rune(blob)
	if len(runes) == 0 {
		return []string{}, nil
	}
	dead := make([]bool, len(runes))
	path := make([]string, 0, 4)

	var solve func(pos int) bool
	solve = func(pos int) bool {
		if pos == len(runes) {
			return true
		}
		if dead[pos] {
			return false
		}
		n := t.root
		for end := pos; end < len(runes); end++ {
			n = n.children[runes[end]]
			if n == nil {
				break
			}
			if !n.terminal {
				continue
			}
			path = append(path, string(runes[pos:end+1]))
			if solve(end + 1) {
				return true
			}
			path = path[:len(path)-1]
		}
		dead[pos] = true
		return false
	}

	if !solve(0) {
		return nil, ErrSegmentationFailure
	}
	return path, nil
}

// SegmentAll returns up to limit full segmentations of blob, in the order
// Segment would discover them (so the first equals Segment's answer). A
// limit <= 0 returns every segmentation, which can be exponential in
// len(blob).
func (t *Trie) SegmentAll(blob string, limit int) ([][]string, error) {
	runes := []rune(blob)
	if len(runes) == 0 {
		return [][]string{{}}, nil
	}
	memo := make(map[int][][]string, len(runes))

	var solve func(pos int) [][]string
	solve = func(pos int) [][]string {
		if pos == len(runes) {
			return [][]string{{}}
		}
		if cached, ok := memo[pos]; ok {
			return cached
		}
		results := make([][]string, 0)
		n := t.root
	walk:
		for end := pos; end < len(runes); end++ {
			n = n.children[runes[end]]
			if n == nil {
				break
			}
			if !n.terminal {
				continue
			}
			word := string(runes[pos : end+1])
			for _, rest := range solve(end + 1) {
				seg := make([]string, 0, len(rest)+1)
				seg = append(seg, word)
				seg = append(seg, rest...)
				results = append(results, seg)
				if limit > 0 && len(results) >= limit {
					break walk
				}
			}
		}
		memo[pos] = results
		return results
	}

	all := solve(0)
	if len(all) == 0 {
		return nil, ErrSegmentationFailure
	}
	return all, nil
}
