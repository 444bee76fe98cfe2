// Package airports maps metro codes to their member airports so a city-level
// search can fan out into one job per airport pair.
package airports

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed metros.yml
var metrosFS embed.FS

// Index resolves metro codes to airport codes.
type Index struct {
	metros map[string][]string
}

// NewIndex loads the embedded metro table.
func NewIndex() (*Index, error) {
	data, err := metrosFS.ReadFile("metros.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded metro table: %w", err)
	}

	metros := make(map[string][]string)
	if err := yaml.Unmarshal(data, &metros); err != nil {
		return nil, fmt.Errorf("failed to parse metro table: %w", err)
	}

	for code, members := range metros {
		if len(members) == 0 {
			return nil, fmt.Errorf("metro %s has no member airports", code)
		}
		sort.Strings(members)
	}
	return &Index{metros: metros}, nil
}

// Expand returns the airports behind a metro code, or the code itself when
// it is a plain airport code.
func (i *Index) Expand(code string) []string {
	if members, ok := i.metros[code]; ok {
		out := make([]string, len(members))
		copy(out, members)
		return out
	}
	return []string{code}
}

// IsMetro reports whether the code is a known metro code.
func (i *Index) IsMetro(code string) bool {
	_, ok := i.metros[code]
	return ok
}
