package naming

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var separatorPattern = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Tokens is the tokenized form of one block's filenames.
type Tokens struct {
	Separator string
	Sequences [][]string
}

// Length returns the number of subparts per name.
func (t *Tokens) Length() int {
	if t == nil || len(t.Sequences) == 0 {
		return 0
	}
	return len(t.Sequences[0])
}

// Tokenize splits every name on runs of non-alphanumeric characters and checks
// that the block uses exactly one separator and a uniform subpart count.
// Leading or trailing separators yield empty subparts.
func Tokenize(names []string) (*Tokens, error) {
	if len(names) == 0 {
		return nil, &ConventionError{Kind: KindEmptyBlock, Detail: "no image points"}
	}

	separators := map[string]struct{}{}
	sequences := make([][]string, len(names))
	for i, raw := range names {
		name := norm.NFC.String(raw)
		for _, run := range separatorPattern.FindAllString(name, -1) {
			separators[run] = struct{}{}
		}
		sequences[i] = splitName(name)
	}

	switch len(separators) {
	case 0:
		return nil, &ConventionError{Kind: KindNoSeparator, Detail: "no non-alphanumeric separator found"}
	case 1:
	default:
		return nil, &ConventionError{
			Kind:   KindSeparator,
			Detail: "different separators found: " + quoteSorted(separators),
		}
	}

	length := len(sequences[0])
	for i, seq := range sequences {
		if len(seq) == 1 {
			return nil, &ConventionError{Kind: KindNoSeparator, Name: names[i], Detail: "name has a single subpart"}
		}
		if len(seq) != length {
			return nil, &ConventionError{
				Kind:   KindInconsistentLength,
				Name:   names[i],
				Detail: fmt.Sprintf("%d subparts, expected %d", len(seq), length),
			}
		}
	}

	var separator string
	for sep := range separators {
		separator = sep
	}
	return &Tokens{Separator: separator, Sequences: sequences}, nil
}

func splitName(name string) []string {
	return separatorPattern.Split(name, -1)
}

func quoteSorted(set map[string]struct{}) string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, strconv.Quote(v))
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}
