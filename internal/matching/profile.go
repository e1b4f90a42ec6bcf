package matching

import (
	"fmt"
	"sort"
	"strings"
)

// Profile maps a normalized keyword (lower-case, trimmed) to a positive
// weight. Keys are unique, order is irrelevant.
type Profile map[string]float64

// NewProfile normalizes raw keyword/weight pairs and rejects non-positive
// weights and empty keywords at load time.
func NewProfile(raw map[string]float64) (Profile, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("keyword profile is empty")
	}

	profile := make(Profile, len(raw))
	for keyword, weight := range raw {
		normalized := strings.ToLower(strings.TrimSpace(keyword))
		if normalized == "" {
			return nil, fmt.Errorf("keyword %q normalizes to empty", keyword)
		}
		if weight <= 0 {
			return nil, fmt.Errorf("keyword %q has non-positive weight %v", keyword, weight)
		}
		profile[normalized] = weight
	}

	return profile, nil
}

// Keywords returns the profile keys in a stable order.
func (p Profile) Keywords() []string {
	keys := make([]string, 0, len(p))
	for keyword := range p {
		keys = append(keys, keyword)
	}
	sort.Strings(keys)
	return keys
}
