package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// BlockEntry removes listings from every category. An empty Title blocks
// all titles of the company.
type BlockEntry struct {
	Company string `json:"company"`
	Title   string `json:"title"`
}

func (b BlockEntry) Matches(k Key) bool {
	if b.Company != k.Company {
		return false
	}
	return b.Title == "" || b.Title == k.Title
}

// UnmarshalJSON also accepts the older "company||title" and bare "company"
// string entries.
func (b *BlockEntry) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		company, title, _ := strings.Cut(legacy, "||")
		*b = BlockEntry{Company: Normalize(company), Title: Normalize(title)}
		return nil
	}
	type entry BlockEntry
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("blocklist entry: %w", err)
	}
	*b = BlockEntry{Company: Normalize(e.Company), Title: Normalize(e.Title)}
	return nil
}

// State is everything that survives between runs: the per-category
// shortlists and the blocklist. Mutating methods record whether anything
// actually changed so callers only write the store when needed.
type State struct {
	LastUpdated string               `json:"last_updated"`
	Shortlists  map[string][]Listing `json:"current_jobs"`
	Blocklist   []BlockEntry         `json:"blocklist"`

	changed bool
}

func NewState() *State {
	return &State{
		Shortlists: map[string][]Listing{},
		Blocklist:  []BlockEntry{},
	}
}

// Shortlist returns a copy of the category's shortlist.
func (s *State) Shortlist(category string) []Listing {
	return slices.Clone(s.Shortlists[category])
}

// SetShortlist replaces the category's shortlist. Empty shortlists are
// dropped from the state.
func (s *State) SetShortlist(category string, listings []Listing) {
	current := s.Shortlists[category]
	if slices.EqualFunc(current, listings, Listing.Equal) {
		return
	}
	if len(listings) == 0 {
		delete(s.Shortlists, category)
	} else {
		if s.Shortlists == nil {
			s.Shortlists = map[string][]Listing{}
		}
		s.Shortlists[category] = slices.Clone(listings)
	}
	s.changed = true
}

// Block adds a normalized entry to the blocklist. It reports false when an
// identical entry already exists.
func (s *State) Block(company, title string) bool {
	entry := BlockEntry{Company: Normalize(company), Title: Normalize(title)}
	if slices.Contains(s.Blocklist, entry) {
		return false
	}
	s.Blocklist = append(s.Blocklist, entry)
	s.changed = true
	return true
}

func (s *State) IsBlocked(k Key) bool {
	for _, b := range s.Blocklist {
		if b.Matches(k) {
			return true
		}
	}
	return false
}

// Changed reports whether the state was mutated since it was loaded.
func (s *State) Changed() bool { return s.changed }

// MarkSaved clears the change flag after a successful write.
func (s *State) MarkSaved() { s.changed = false }
