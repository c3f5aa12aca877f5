package naming

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Scheme is an accepted naming scheme: the subpart positions that form the
// flight strip label, each with its last match count, and the separator.
type Scheme struct {
	Kept      map[int]int
	Separator string
}

// Positions returns the kept positions in ascending order.
func (s Scheme) Positions() []int {
	positions := make([]int, 0, len(s.Kept))
	for p := range s.Kept {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}

// Label derives the flight strip label of name by dropping non-kept subparts
// and rejoining the rest with the separator.
func (s Scheme) Label(name string) (string, error) {
	positions := s.Positions()
	if len(positions) == 0 {
		return "", fmt.Errorf("%w: scheme keeps no positions", ErrNamingConvention)
	}
	tokens := splitName(norm.NFC.String(name))
	if last := positions[len(positions)-1]; last >= len(tokens) {
		return "", &ConventionError{
			Kind:   KindInconsistentLength,
			Name:   name,
			Detail: fmt.Sprintf("%d subparts, scheme needs position %d", len(tokens), last),
		}
	}
	return joinPositions(tokens, positions, s.Separator), nil
}

// String renders the scheme as "positions [0 1] separator \"_\"".
func (s Scheme) String() string {
	return fmt.Sprintf("positions %v separator %q", s.Positions(), s.Separator)
}

func joinPositions(tokens []string, positions []int, separator string) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = tokens[p]
	}
	return strings.Join(parts, separator)
}
