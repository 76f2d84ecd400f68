package executor

import (
	"sort"
	"strings"
)

// overlayEnv returns base with the given defaults applied for keys the base
// environment does not already set. Caller-supplied values always win; the
// overlay only fills gaps. Defaults are appended in sorted key order so the
// result is deterministic.
func overlayEnv(base []string, defaults map[string]string) []string {
	if len(defaults) == 0 {
		return base
	}

	out := make([]string, len(base), len(base)+len(defaults))
	copy(out, base)

	present := make(map[string]bool, len(base))
	for _, entry := range base {
		if i := strings.IndexByte(entry, '='); i >= 0 {
			present[entry[:i]] = true
		}
	}

	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !present[key] {
			out = append(out, key+"="+defaults[key])
		}
	}
	return out
}
