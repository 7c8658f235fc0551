package models

import (
	"strings"
	"time"
)

// Listing is a job posting fetched from an external board for one category.
type Listing struct {
	Company     string    `json:"company"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	Source      string    `json:"source,omitempty"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

// Query is one (search term, location) pair sent to a job board.
type Query struct {
	Term     string `json:"term" yaml:"term"`
	Location string `json:"location" yaml:"location"`
}

// Key identifies a listing independently of its URL or location.
type Key struct {
	Company string
	Title   string
}

// Normalize lowercases s, trims it and collapses inner whitespace. Every
// company/title comparison in the module goes through it.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// KeyOf builds the identity key of a company/title pair.
func KeyOf(company, title string) Key {
	return Key{Company: Normalize(company), Title: Normalize(title)}
}

func (l Listing) Key() Key {
	return KeyOf(l.Company, l.Title)
}

// Equal reports whether two listings are field-for-field identical.
func (l Listing) Equal(o Listing) bool {
	return l.Company == o.Company &&
		l.Title == o.Title &&
		l.Location == o.Location &&
		l.URL == o.URL &&
		l.Category == o.Category &&
		l.Source == o.Source &&
		l.FirstSeenAt.Equal(o.FirstSeenAt)
}

// CompanySet holds normalized company names already present in the tracker.
type CompanySet map[string]struct{}

func NewCompanySet(names ...string) CompanySet {
	set := make(CompanySet, len(names))
	for _, n := range names {
		set.Add(n)
	}
	return set
}

func (s CompanySet) Add(name string) {
	if n := Normalize(name); n != "" {
		s[n] = struct{}{}
	}
}

func (s CompanySet) Has(name string) bool {
	_, ok := s[Normalize(name)]
	return ok
}
