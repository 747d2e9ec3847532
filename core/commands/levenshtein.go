package commands

// Levenshtein returns the minimum number of single-rune insertions,
// deletions and substitutions turning a into b.
func Levenshtein(a, b string) int {
	source, target := []rune(a), []rune(b)

	previous := make([]int, len(target)+1)
	for j := range previous {
		previous[j] = j
	}
	current := make([]int, len(target)+1)

	for i, sourceRune := range source {
		current[0] = i + 1
		for j, targetRune := range target {
			if sourceRune == targetRune {
				current[j+1] = previous[j]
				continue
			}
			current[j+1] = min(previous[j], previous[j+1], current[j]) + 1
		}
		previous, current = current, previous
	}

	return previous[len(target)]
}
