package guide

// NameMatcher scores the similarity of two normalized channel names in
// [0, 1]. Implementations must be deterministic.
type NameMatcher interface {
	Ratio(a, b string) float64
}

// SequenceMatcher scores names with the Ratcliff/Obershelp algorithm:
// recursively find the longest common block, then match the pieces to its
// left and right. Ratio is 2*M/T where M is the total matched length and
// T the combined length. Same scoring as Python's difflib ratio().
type SequenceMatcher struct{}

func (SequenceMatcher) Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}
	matched := matchedLen(ra, rb, 0, len(ra), 0, len(rb), b2j)
	return 2 * float64(matched) / float64(total)
}

// matchedLen sums matching-block sizes over a[alo:ahi] vs b[blo:bhi].
func matchedLen(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) int {
	i, j, size := longestMatch(a, alo, ahi, blo, bhi, b2j)
	if size == 0 {
		return 0
	}
	total := size
	total += matchedLen(a, b, alo, i, blo, j, b2j)
	total += matchedLen(a, b, i+size, ahi, j+size, bhi, b2j)
	return total
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] within the
// given windows. Ties resolve to the earliest i, then earliest j, which
// keeps scoring deterministic.
func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
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
