package swrcache

import (
	"slices"
	"sort"
)

// tagIndex maps tag -> set of keys. It is only touched under cache.mu, together
// with the entry map, so it never names a key the map does not hold.
type tagIndex map[string]map[string]struct{}

func (ix tagIndex) add(key string, tags []string) {
	for _, t := range tags {
		set, ok := ix[t]
		if !ok {
			set = make(map[string]struct{})
			ix[t] = set
		}
		set[key] = struct{}{}
	}
}

func (ix tagIndex) remove(key string, tags []string) {
	for _, t := range tags {
		set, ok := ix[t]
		if !ok {
			continue
		}
		delete(set, key)
		if len(set) == 0 {
			delete(ix, t)
		}
	}
}

// keys returns the union of keys registered under any of tags.
func (ix tagIndex) keys(tags []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tags {
		for k := range ix[t] {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// normalizeTags returns a sorted, de-duplicated copy without empty tags.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
