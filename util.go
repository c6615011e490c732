package shardstats

import (
	"fmt"
	"path"
	"strings"
)

// JoinURL joins a base URL with additional path segments, handling leading/trailing slashes correctly.
func JoinURL(base string, paths ...string) string {
	// credits: https://stackoverflow.com/a/57220413
	p := path.Join(paths...)
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(p, "/"))
}

// SplitGroups parses a comma separated group list as used in query strings.
// Empty elements are dropped; nil is returned when no groups remain.
func SplitGroups(values ...string) []string {
	var groups []string
	for _, v := range values {
		for _, g := range strings.Split(v, ",") {
			g = strings.TrimSpace(g)
			if g != "" {
				groups = append(groups, g)
			}
		}
	}

	return groups
}
