package route

import (
	"sort"
	"strings"
)

// parseTagFilter splits a comma separated tag list into lower-cased names.
func parseTagFilter(csv string) []string {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// filterByTags keeps routes carrying at least one of the wanted tags.
// An empty filter keeps everything.
func filterByTags(routes []RouteSummary, wanted []string) []RouteSummary {
	if len(wanted) == 0 {
		return routes
	}
	set := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		set[w] = struct{}{}
	}

	kept := routes[:0:0]
	for _, r := range routes {
		for _, tag := range r.Tags {
			if _, ok := set[strings.ToLower(tag)]; ok {
				kept = append(kept, r)
				break
			}
		}
	}
	return kept
}

func sortRoutes(routes []RouteSummary, order SortOrder) {
	switch order {
	case SortPopular:
		sort.Slice(routes, func(i, j int) bool {
			return routes[i].VoteCount > routes[j].VoteCount
		})
	case SortEfficient:
		sort.Slice(routes, func(i, j int) bool {
			return routes[i].DistanceMeters < routes[j].DistanceMeters
		})
	default:
		sort.Slice(routes, func(i, j int) bool {
			return routes[i].CreatedAt.After(routes[j].CreatedAt)
		})
	}
}
