package hotjobs

import "strings"

// Tier is one rung of the location preference ladder. A location belongs to
// the first tier with a Match entry appearing in it as a whole word, so "uk"
// matches "London, UK" but not "Milwaukee".
type Tier struct {
	Name  string   `yaml:"name"`
	Match []string `yaml:"match"`
}

// Tiers ranks locations; earlier tiers sort first and anything unmatched
// ranks after every tier.
type Tiers []Tier

func DefaultTiers() Tiers {
	return Tiers{
		{Name: "Paris", Match: []string{"paris"}},
		{Name: "France", Match: []string{"france", "île-de-france", "ile-de-france"}},
		{Name: "EMEA", Match: []string{
			"europe", "emea", "germany", "netherlands", "belgium", "spain",
			"italy", "switzerland", "uk", "united kingdom", "ireland",
			"sweden", "denmark", "portugal", "austria", "poland",
		}},
	}
}

func (t Tiers) Rank(location string) int {
	loc := strings.ToLower(location)
	for i, tier := range t {
		for _, m := range tier.Match {
			m = strings.ToLower(strings.TrimSpace(m))
			if m != "" && containsWord(loc, m) {
				return i
			}
		}
	}
	return len(t)
}

// Label is the badge shown next to a location in the digest.
func (t Tiers) Label(location string) string {
	if i := t.Rank(location); i < len(t) {
		return t[i].Name
	}
	return "Other"
}
