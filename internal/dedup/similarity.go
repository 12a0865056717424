package dedup

import "strings"

// Ratio computes a similarity score in [0, 1] between two strings
// using matching-block comparison: twice the number of matched
// characters over the combined length. Inputs are lowercased and
// trimmed first; either side empty scores zero.
func Ratio(s1, s2 string) float64 {
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))
	if s1 == "" || s2 == "" {
		return 0
	}

	a := []rune(s1)
	b := []rune(s2)
	matched := totalMatches(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// totalMatches sums the sizes of all matching blocks, found by
// repeatedly locating the longest common run and recursing on what
// remains either side of it.
func totalMatches(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	stack := []span{{0, len(a), 0, len(b)}}
	total := 0

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, size := longestMatch(a, s.alo, s.ahi, s.blo, s.bhi, b2j)
		if size == 0 {
			continue
		}
		total += size
		stack = append(stack,
			span{s.alo, i, s.blo, j},
			span{i + size, s.ahi, j + size, s.bhi})
	}
	return total
}

func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestsize int) {
	// j2len[j] is the length of the match ending at a[i-1], b[j]
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
