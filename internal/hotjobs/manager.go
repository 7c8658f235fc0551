// Package hotjobs keeps a sticky, size-capped shortlist of external job
// listings per role category.
//
// A listing that makes it onto a shortlist stays there verbatim until its
// company shows up in the tracker or it is removed by hand. Only then is the
// slot refilled, and only then is a job board queried.
package hotjobs

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"job-digest/internal/models"
)

// DefaultCapacity is the shortlist size when neither the category nor the
// config sets one.
const DefaultCapacity = 5

// Fetcher queries job boards for one category. The returned sequence is
// finite and not restartable; each call queries the sources again. An error
// ends the sequence.
type Fetcher interface {
	Fetch(ctx context.Context, category string, sources []string, queries []models.Query) iter.Seq2[models.Listing, error]
}

// Category is a configured role bucket. A nil LocationExclude falls back to
// the manager-wide list; an empty one excludes nothing.
type Category struct {
	Name            string
	Queries         []models.Query
	TitleFilter     []string
	LocationExclude []string
	Sources         []string
	Capacity        int
}

// Config holds the manager settings. A nil LocationExclude means
// DefaultLocationExclude.
type Config struct {
	Categories      []Category
	Capacity        int
	Tiers           Tiers
	LocationExclude []string
}

type Manager struct {
	categories []Category
	index      map[string]int
	capacity   int
	tiers      Tiers
	fetcher    Fetcher
	now        func() time.Time
	log        zerolog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(cfg Config, fetcher Fetcher, opts ...Option) (*Manager, error) {
	if fetcher == nil {
		return nil, errors.New("hotjobs: nil fetcher")
	}
	if len(cfg.Categories) == 0 {
		return nil, errors.New("hotjobs: no categories configured")
	}
	m := &Manager{
		index:    make(map[string]int, len(cfg.Categories)),
		capacity: cfg.Capacity,
		tiers:    cfg.Tiers,
		fetcher:  fetcher,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	if m.capacity <= 0 {
		m.capacity = DefaultCapacity
	}
	exclude := cfg.LocationExclude
	if exclude == nil {
		exclude = DefaultLocationExclude
	}
	for _, c := range cfg.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, errors.New("hotjobs: category with empty name")
		}
		if _, dup := m.index[c.Name]; dup {
			return nil, fmt.Errorf("hotjobs: duplicate category %q", c.Name)
		}
		if c.Capacity < 0 {
			return nil, fmt.Errorf("hotjobs: category %q: negative capacity", c.Name)
		}
		if c.LocationExclude == nil {
			c.LocationExclude = exclude
		}
		c.TitleFilter = slices.DeleteFunc(slices.Clone(c.TitleFilter), func(kw string) bool {
			return strings.TrimSpace(kw) == ""
		})
		m.index[c.Name] = len(m.categories)
		m.categories = append(m.categories, c)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CategoryNames lists the configured categories in configured order.
func (m *Manager) CategoryNames() []string {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = c.Name
	}
	return names
}

func (m *Manager) Tiers() Tiers { return m.tiers }

func (m *Manager) category(name string) (Category, error) {
	i, ok := m.index[name]
	if !ok {
		return Category{}, &ConfigurationError{Category: name, Available: m.CategoryNames()}
	}
	return m.categories[i], nil
}

func (m *Manager) capacityOf(c Category) int {
	if c.Capacity > 0 {
		return c.Capacity
	}
	return m.capacity
}

// RefreshCategory reconciles the category's shortlist against the tracked
// companies and backfills open slots from the fetcher. A full shortlist is
// returned as-is without fetching unless force is set, in which case the
// shortlist is cleared first. The blocklist always survives.
//
// On a fetch failure the shortlist in st is left exactly as it was and a
// *FetchError is returned.
func (m *Manager) RefreshCategory(ctx context.Context, st *models.State, name string, tracked models.CompanySet, force bool) ([]models.Listing, error) {
	cat, err := m.category(name)
	if err != nil {
		return nil, err
	}
	log := m.log.With().Str("category", name).Logger()
	capacity := m.capacityOf(cat)

	var existing []models.Listing
	if force {
		log.Info().Msg("Clearing shortlist before refetch")
	} else {
		existing = st.Shortlist(name)
	}

	kept := make([]models.Listing, 0, capacity)
	for _, l := range existing {
		switch {
		case tracked.Has(l.Company):
			log.Info().Str("company", l.Company).Str("title", l.Title).Msg("Dropped listing, company is now tracked")
		case st.IsBlocked(l.Key()):
			log.Info().Str("company", l.Company).Str("title", l.Title).Msg("Dropped blocklisted listing")
		case len(kept) == capacity:
			log.Warn().Str("company", l.Company).Str("title", l.Title).Msg("Dropped listing over capacity")
		default:
			kept = append(kept, l)
		}
	}

	open := capacity - len(kept)
	if open == 0 && !force {
		log.Debug().Int("kept", len(kept)).Msg("All slots filled, no fetch needed")
		st.SetShortlist(name, kept)
		return kept, nil
	}

	log.Info().Int("kept", len(kept)).Int("open", open).Msg("Fetching candidates")
	candidates, err := m.candidates(ctx, st, cat, kept, tracked)
	if err != nil {
		return nil, &FetchError{Category: name, Err: err}
	}

	now := m.now()
	for _, c := range candidates[:min(open, len(candidates))] {
		c.Category = name
		c.FirstSeenAt = now
		kept = append(kept, c)
	}
	log.Info().Int("candidates", len(candidates)).Int("shortlist", len(kept)).Msg("Shortlist refreshed")

	st.SetShortlist(name, kept)
	return slices.Clone(kept), nil
}

// candidates drains the fetcher and returns the acceptable listings ordered
// by location tier, ties kept in fetch order.
func (m *Manager) candidates(ctx context.Context, st *models.State, cat Category, kept []models.Listing, tracked models.CompanySet) ([]models.Listing, error) {
	seenKeys := make(map[models.Key]struct{}, len(kept))
	seenURLs := make(map[string]struct{}, len(kept))
	for _, l := range kept {
		seenKeys[l.Key()] = struct{}{}
		if l.URL != "" {
			seenURLs[l.URL] = struct{}{}
		}
	}

	type ranked struct {
		listing models.Listing
		rank    int
	}
	var out []ranked
	for l, err := range m.fetcher.Fetch(ctx, cat.Name, cat.Sources, cat.Queries) {
		if err != nil {
			return nil, err
		}
		k := l.Key()
		if k.Company == "" || k.Title == "" {
			continue
		}
		if _, dup := seenKeys[k]; dup {
			continue
		}
		if _, dup := seenURLs[l.URL]; dup && l.URL != "" {
			continue
		}
		if st.IsBlocked(k) || tracked.Has(l.Company) {
			continue
		}
		if !matchesTitleFilter(l.Title, cat.TitleFilter) {
			continue
		}
		if excludedLocation(l.Location, cat.LocationExclude) {
			m.log.Debug().Str("company", l.Company).Str("location", l.Location).Msg("Skipped listing, location excluded")
			continue
		}
		seenKeys[k] = struct{}{}
		if l.URL != "" {
			seenURLs[l.URL] = struct{}{}
		}
		out = append(out, ranked{listing: l, rank: m.tiers.Rank(l.Location)})
	}

	slices.SortStableFunc(out, func(a, b ranked) int { return cmp.Compare(a.rank, b.rank) })

	listings := make([]models.Listing, len(out))
	for i, r := range out {
		listings[i] = r.listing
	}
	return listings, nil
}

// RemoveListing drops the (company, title) entry from the category and
// blocklists the pair for every category. It reports whether an entry was
// on the shortlist. Removing an absent or already blocked pair succeeds.
// The freed slot is filled on the next refresh.
func (m *Manager) RemoveListing(st *models.State, category, company, title string) (bool, error) {
	if _, err := m.category(category); err != nil {
		return false, err
	}
	key := models.KeyOf(company, title)
	if key.Company == "" || key.Title == "" {
		return false, ErrIncompleteListing
	}

	list := st.Shortlist(category)
	before := len(list)
	list = slices.DeleteFunc(list, func(l models.Listing) bool { return l.Key() == key })
	st.SetShortlist(category, list)

	if st.Block(company, title) {
		m.log.Info().Str("company", key.Company).Str("title", key.Title).Msg("Blocklisted listing")
	}
	return len(list) < before, nil
}

// RefreshAll refreshes every configured category without forcing. A fetch
// failure only affects its own category; all failures are joined into the
// returned error while the map still holds every category's shortlist.
func (m *Manager) RefreshAll(ctx context.Context, st *models.State, tracked models.CompanySet) (map[string][]models.Listing, error) {
	return m.refreshAll(ctx, st, tracked, false)
}

// ForceRefreshAll clears and refetches every category, with the same failure
// isolation as RefreshAll: a category whose fetch fails keeps its shortlist.
func (m *Manager) ForceRefreshAll(ctx context.Context, st *models.State, tracked models.CompanySet) (map[string][]models.Listing, error) {
	return m.refreshAll(ctx, st, tracked, true)
}

func (m *Manager) refreshAll(ctx context.Context, st *models.State, tracked models.CompanySet, force bool) (map[string][]models.Listing, error) {
	result := make(map[string][]models.Listing, len(m.categories))
	var errs []error
	for _, c := range m.categories {
		list, err := m.RefreshCategory(ctx, st, c.Name, tracked, force)
		if err != nil {
			m.log.Error().Err(err).Str("category", c.Name).Msg("Refresh failed, keeping previous shortlist")
			errs = append(errs, err)
			list = st.Shortlist(c.Name)
		}
		result[c.Name] = list
	}
	return result, errors.Join(errs...)
}

// RefreshOne clears and refetches a single category. The name must match a
// configured category exactly.
func (m *Manager) RefreshOne(ctx context.Context, st *models.State, category string, tracked models.CompanySet) ([]models.Listing, error) {
	return m.RefreshCategory(ctx, st, category, tracked, true)
}

// Shortlists returns the stored shortlist of every configured category
// without touching the fetcher.
func (m *Manager) Shortlists(st *models.State) map[string][]models.Listing {
	result := make(map[string][]models.Listing, len(m.categories))
	for _, c := range m.categories {
		result[c.Name] = st.Shortlist(c.Name)
	}
	return result
}
