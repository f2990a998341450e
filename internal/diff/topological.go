package diff

// topologicallySortResults orders results so that every table comes after the
// tables its foreign keys reference. Results without dependencies keep their
// declaration order.
func topologicallySortResults(results []*Result) []*Result {
	if len(results) <= 1 {
		return results
	}

	// Build maps for efficient lookup
	byKey := make(map[string]int, len(results))
	for idx, r := range results {
		byKey[r.key] = idx
	}

	// Build dependency graph
	inDegree := make([]int, len(results))
	adjList := make([][]int, len(results))

	// Build edges: if A references B, add edge B -> A
	for a, r := range results {
		seen := map[int]bool{}
		for _, depKey := range r.dependencyKeys {
			b, exists := byKey[depKey]
			// Only add edge if the referenced object is part of this run and is different
			if !exists || a == b || seen[b] {
				continue
			}
			seen[b] = true
			adjList[b] = append(adjList[b], a)
			inDegree[a]++
		}
	}

	// Kahn's algorithm; the ready set is kept in declaration order
	var ready []int
	for idx, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, idx)
		}
	}

	processed := make([]bool, len(results))
	sorted := make([]*Result, 0, len(results))

	for len(sorted) < len(results) {
		if len(ready) == 0 {
			// Cycle detected: release the first unprocessed result in declaration
			// order. Foreign keys are rendered in a later phase than every
			// CREATE TABLE, so the order of cycle members does not matter.
			next := nextInOrder(processed)
			if next < 0 {
				break
			}
			ready = append(ready, next)
			inDegree[next] = 0
		}

		current := ready[0]
		ready = ready[1:]
		if processed[current] {
			continue
		}
		processed[current] = true
		sorted = append(sorted, results[current])

		for _, neighbor := range adjList[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] <= 0 && !processed[neighbor] {
				ready = insertInOrder(ready, neighbor)
			}
		}
	}

	return sorted
}

func insertInOrder(ready []int, idx int) []int {
	pos := len(ready)
	for i, v := range ready {
		if v == idx {
			return ready
		}
		if v > idx {
			pos = i
			break
		}
	}
	ready = append(ready, 0)
	copy(ready[pos+1:], ready[pos:])
	ready[pos] = idx
	return ready
}

func nextInOrder(processed []bool) int {
	for idx, done := range processed {
		if !done {
			return idx
		}
	}
	return -1
}

// reverseSlice returns a new slice with elements in reverse order
func reverseSlice[T any](slice []T) []T {
	reversed := make([]T, len(slice))
	for i, v := range slice {
		reversed[len(slice)-1-i] = v
	}
	return reversed
}
