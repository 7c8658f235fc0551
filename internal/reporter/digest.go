// Package reporter turns shortlists into the daily digest: an HTML email and
// a plain-text listing for the terminal.
package reporter

import (
	"fmt"
	"io"
	"time"

	"job-digest/internal/hotjobs"
	"job-digest/internal/models"
	"job-digest/internal/tracker"
)

type Row struct {
	models.Listing
	Tier string
	// New marks listings that entered the shortlist on the digest date.
	New bool
}

type Section struct {
	Name     string
	Listings []Row
	Error    string
	// NotContacted counts the section's distinct companies that are not in
	// the tracker.
	NotContacted int
}

type Digest struct {
	Date       time.Time
	Categories []Section
	Summary    *tracker.Summary
	// NotContacted counts distinct shortlisted companies, across every
	// category, that are not in the tracker.
	NotContacted int
	Counts       []Count
	// Pipeline holds the tracked applications grouped by role category.
	Pipeline []tracker.RoleGroup
}

type Count struct {
	Label string
	N     int
}

var summaryOrder = []tracker.Status{tracker.Applied, tracker.NoJobs, tracker.Review, tracker.Progress, tracker.Rejected}

func (d Digest) Total() int {
	n := 0
	for _, s := range d.Categories {
		n += len(s.Listings)
	}
	return n
}

// NewDigest lays out a run result in configured category order. tr may be
// nil when the tracker could not be read; every shortlisted company then
// counts as not contacted.
func NewDigest(date time.Time, res hotjobs.Result, tiers hotjobs.Tiers, tr *tracker.Tracker, roles tracker.RoleRules) Digest {
	d := Digest{Date: date}
	tracked := models.NewCompanySet()
	if tr != nil {
		tracked = tr.Companies()
	}

	all := models.NewCompanySet()
	for _, name := range res.Categories {
		s := Section{Name: name}
		if err := res.Failed[name]; err != nil {
			s.Error = err.Error()
		}
		section := models.NewCompanySet()
		for _, l := range res.Shortlists[name] {
			if !tracked.Has(l.Company) {
				section.Add(l.Company)
				all.Add(l.Company)
			}
			s.Listings = append(s.Listings, Row{
				Listing: l,
				Tier:    tiers.Label(l.Location),
				New:     sameDay(l.FirstSeenAt, date),
			})
		}
		s.NotContacted = len(section)
		d.Categories = append(d.Categories, s)
	}
	d.NotContacted = len(all)

	if tr != nil {
		sum := tr.Summary()
		d.Summary = &sum
		for _, st := range summaryOrder {
			d.Counts = append(d.Counts, Count{Label: st.Label(), N: sum.Count(st)})
		}
		d.Pipeline = tr.ByCategory(roles, res.Categories)
	}
	return d
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	return a.In(b.Location()).Format(time.DateOnly) == b.Format(time.DateOnly)
}

// WriteText prints the shortlists as tab-separated lines, one listing per
// line, under a header per category.
func WriteText(w io.Writer, d Digest) error {
	for _, s := range d.Categories {
		if _, err := fmt.Fprintf(w, "## %s (%d, NC %d)\n", s.Name, len(s.Listings), s.NotContacted); err != nil {
			return fmt.Errorf("writing category: %w", err)
		}
		if s.Error != "" {
			if _, err := fmt.Fprintf(w, "!! not refreshed: %s\n", s.Error); err != nil {
				return fmt.Errorf("writing category: %w", err)
			}
		}
		for _, r := range s.Listings {
			_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Tier, r.Company, r.Title, r.Location, r.URL)
			if err != nil {
				return fmt.Errorf("writing job: %w", err)
			}
		}
	}
	return nil
}
