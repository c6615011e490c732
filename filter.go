package shardstats

import (
	"fmt"
	"regexp"
)

// Filterer is a function that returns true if a group should be tracked.
type Filterer func(string) bool

// NewFilterer compiles include and exclude patterns into a Filterer function.
// A group passes if it matches any include and no exclude. When includes is
// empty, all groups pass (subject to excludes).
func NewFilterer(includes, excludes []string) (Filterer, error) {
	reIncludes := make([]*regexp.Regexp, 0, len(includes))
	reExcludes := make([]*regexp.Regexp, 0, len(excludes))

	// compile patterns
	for _, pattern := range includes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling include: %v: %w", pattern, err)
		}
		reIncludes = append(reIncludes, re)
	}

	for _, pattern := range excludes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling exclude: %v: %w", pattern, err)
		}
		reExcludes = append(reExcludes, re)
	}

	if len(reIncludes) == 0 && len(reExcludes) == 0 {
		return func(string) bool { return true }, nil
	}

	filter := func(group string) bool {
		for _, re := range reExcludes {
			if re.MatchString(group) {
				return false
			}
		}

		// no includes (but excludes did not match)
		if len(reIncludes) == 0 {
			return true
		}

		for _, re := range reIncludes {
			if re.MatchString(group) {
				return true
			}
		}

		return false
	}

	return filter, nil
}
