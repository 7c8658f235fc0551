package tracker

import (
	"cmp"
	"slices"
	"strings"
)

// RoleRule files tracker rows under a digest category. A role matches when it
// contains one of Any and, if With is set, one of With as well. Matching is
// case-insensitive.
type RoleRule struct {
	Category string   `yaml:"category"`
	Any      []string `yaml:"any"`
	With     []string `yaml:"with,omitempty"`
}

// RoleRules are tried in order; the first match wins.
type RoleRules []RoleRule

var javaRoles = []string{"java", "backend", "software engineer", "full software", "lead software"}

func DefaultRoleRules() RoleRules {
	return RoleRules{
		// The sheet says "not available" when the posting gave no title;
		// those rows are all engineering applications.
		{Category: "Senior Java", Any: []string{"not available"}},
		{Category: "Backend Java", Any: []string{"backend"}},
		{Category: "Backend Java", Any: []string{"specialist"}, With: javaRoles},
		{Category: "Senior Java", Any: javaRoles},
		{Category: "Assistant Project Manager", Any: []string{"assistant project manager"}},
		{Category: "Product Owner", Any: []string{"product", "project", "program"}},
		{Category: "Senior Java", Any: []string{"manager"}},
	}
}

// Categorize returns the category of a tracker role, or false when no rule
// matches or the role is empty.
func (r RoleRules) Categorize(role string) (string, bool) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "", false
	}
	for _, rule := range r {
		if containsAny(role, rule.Any) && (len(rule.With) == 0 || containsAny(role, rule.With)) {
			return rule.Category, true
		}
	}
	return "", false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// RoleGroup is the tracked applications of one category.
type RoleGroup struct {
	Category string
	Entries  []Entry
}

// ByCategory groups the entries by role category, categories in the given
// order first and any other category after them by name. Within a group
// entries are ordered by status section, then company. Rows whose role
// matches no rule are left out.
func (t *Tracker) ByCategory(rules RoleRules, order []string) []RoleGroup {
	groups := map[string][]Entry{}
	for _, e := range t.entries {
		if c, ok := rules.Categorize(e.Role); ok {
			groups[c] = append(groups[c], e)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		if !slices.Contains(order, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = append(slices.DeleteFunc(slices.Clone(order), func(n string) bool {
		_, ok := groups[n]
		return !ok
	}), names...)

	out := make([]RoleGroup, 0, len(names))
	for _, name := range names {
		entries := groups[name]
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return cmp.Or(
				cmp.Compare(a.State().Section(), b.State().Section()),
				cmp.Compare(a.Company, b.Company),
			)
		})
		out = append(out, RoleGroup{Category: name, Entries: entries})
	}
	return out
}
