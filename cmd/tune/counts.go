package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseCounts parses a comma-separated list of positive particle counts.
func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", field, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("particle count must be positive, got %d", n)
		}
		counts = append(counts, n)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("no particle counts in %q", s)
	}
	return counts, nil
}
