package shardstats

import (
	"fmt"
)

// GroupsConfig bounds which request groups reach a shard's metrics registry.
//
// Every distinct group name allocates a per-group holder that lives until the
// next idle clear, so free-form request tags should be rewritten or filtered here.
type GroupsConfig struct {
	Rewrite []Rewrite `yaml:"rewrite"`
	Include []string  `yaml:"include"`
	Exclude []string  `yaml:"exclude"`

	// Max caps the number of groups taken from a single request, 0 means unlimited.
	Max int `yaml:"max"`
}

// A GroupResolver turns the groups supplied with a search request into the
// groups its phases are recorded against.
type GroupResolver func([]string) []string

// NewGroupResolver compiles the group policy into a GroupResolver.
//
// Names are rewritten first, then filtered. Empty names, duplicates and the
// reserved AllGroups name are dropped. The resolver is safe for concurrent use.
func NewGroupResolver(c GroupsConfig) (GroupResolver, error) {
	if c.Max < 0 {
		return nil, fmt.Errorf("negative group limit %d: %w", c.Max, ErrFatal)
	}

	rewrite, err := NewRewriter(c.Rewrite)
	if err != nil {
		return nil, fmt.Errorf("create group rewriter: %w", err)
	}

	allowed, err := NewFilterer(c.Include, c.Exclude)
	if err != nil {
		return nil, fmt.Errorf("create group filterer: %w", err)
	}

	resolver := func(groups []string) []string {
		if len(groups) == 0 {
			return nil
		}

		resolved := make([]string, 0, len(groups))
		for _, g := range groups {
			g = rewrite(g)
			if g == "" || g == AllGroups || !allowed(g) || contains(resolved, g) {
				continue
			}

			resolved = append(resolved, g)
			if c.Max > 0 && len(resolved) == c.Max {
				break
			}
		}

		return resolved
	}

	return resolver, nil
}

// requests carry a handful of groups at most, a linear scan beats a map here.
func contains(groups []string, g string) bool {
	for _, existing := range groups {
		if existing == g {
			return true
		}
	}

	return false
}
