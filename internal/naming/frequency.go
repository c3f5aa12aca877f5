package naming

// MatchCounts returns, per subpart position, the number of ordered pairs (i, j)
// in sample, i == j included, whose tokens at that position are equal. A
// value seen f times contributes f*f pairs.
func MatchCounts(sample [][]string) []int {
	if len(sample) == 0 {
		return nil
	}
	length := len(sample[0])
	counts := make([]int, length)
	for p := 0; p < length; p++ {
		freq := make(map[string]int, len(sample))
		for _, seq := range sample {
			freq[seq[p]]++
		}
		for _, f := range freq {
			counts[p] += f * f
		}
	}
	return counts
}
