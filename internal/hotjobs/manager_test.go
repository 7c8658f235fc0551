package hotjobs

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	"job-digest/internal/models"
)

var fixedNow = time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

// Mock fetcher for testing
type fakeFetcher struct {
	results map[string][]models.Listing
	errs    map[string]error
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: map[string][]models.Listing{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, category string, sources []string, queries []models.Query) iter.Seq2[models.Listing, error] {
	f.calls[category]++
	return func(yield func(models.Listing, error) bool) {
		for _, l := range f.results[category] {
			if !yield(l, nil) {
				return
			}
		}
		if err := f.errs[category]; err != nil {
			yield(models.Listing{}, err)
		}
	}
}

func job(company, title, location string) models.Listing {
	return models.Listing{
		Company:  company,
		Title:    title,
		Location: location,
		URL:      fmt.Sprintf("https://jobs.example.com/%s/%s", company, title),
		Source:   "Test",
	}
}

func newTestManager(t *testing.T, f Fetcher, categories ...Category) *Manager {
	t.Helper()
	if len(categories) == 0 {
		categories = []Category{{Name: "Senior Java", Queries: []models.Query{{Term: "senior java developer", Location: "Paris, France"}}}}
	}
	m, err := NewManager(Config{Categories: categories, Capacity: 5, Tiers: DefaultTiers()}, f, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func companies(list []models.Listing) []string {
	out := make([]string, len(list))
	for i, l := range list {
		out[i] = l.Company
	}
	return out
}

func assertCompanies(t *testing.T, got []models.Listing, want ...string) {
	t.Helper()
	names := companies(got)
	if len(names) != len(want) {
		t.Fatalf("Expected companies %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected companies %v, got %v", want, names)
		}
	}
}

func fullShortlist(st *models.State) {
	st.SetShortlist("Senior Java", []models.Listing{
		job("Alpha", "Java Developer", "Paris"),
		job("Beta", "Java Developer", "Paris"),
		job("Gamma", "Java Developer", "Lyon, France"),
		job("Delta", "Java Developer", "Berlin, Germany"),
		job("Epsilon", "Java Developer", "Remote"),
	})
	st.MarkSaved()
}

func TestRefreshCategoryFillsByTierThenFetchOrder(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		job("A", "Senior Java Developer", "Lyon, France"),
		job("B", "Senior Java Developer", "Berlin, Germany"),
		job("C", "Senior Java Developer", "Paris, Île-de-France"),
		job("D", "Senior Java Developer", "Remote"),
		job("E", "Senior Java Developer", "Paris"),
		job("F", "Senior Java Developer", "Toulouse, France"),
		job("G", "Senior Java Developer", "Madrid, Spain"),
	}
	m := newTestManager(t, f)
	st := models.NewState()

	got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	assertCompanies(t, got, "C", "E", "A", "F", "B")
	for _, l := range got {
		if !l.FirstSeenAt.Equal(fixedNow) {
			t.Errorf("Expected first seen %v, got %v", fixedNow, l.FirstSeenAt)
		}
		if l.Category != "Senior Java" {
			t.Errorf("Expected category 'Senior Java', got '%s'", l.Category)
		}
	}
	if !st.Changed() {
		t.Error("Expected state to be marked changed")
	}
	assertCompanies(t, st.Shortlist("Senior Java"), "C", "E", "A", "F", "B")
}

func TestRefreshCategoryFullShortlistSkipsFetch(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{job("Zeta", "Java Developer", "Paris")}
	m := newTestManager(t, f)
	st := models.NewState()
	fullShortlist(st)
	before := st.Shortlist("Senior Java")

	for i := 0; i < 3; i++ {
		got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet(), false)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		for j := range before {
			if !got[j].Equal(before[j]) {
				t.Fatalf("Expected shortlist to stay identical, slot %d changed from %+v to %+v", j, before[j], got[j])
			}
		}
	}

	if f.calls["Senior Java"] != 0 {
		t.Errorf("Expected 0 fetches, got %d", f.calls["Senior Java"])
	}
	if st.Changed() {
		t.Error("Expected state to stay unchanged")
	}
}

func TestRefreshCategoryStableAcrossRuns(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		job("A", "Java Developer", "Paris"),
		job("B", "Java Developer", "Paris"),
	}
	m := newTestManager(t, f)
	st := models.NewState()
	ctx := context.Background()

	first, err := m.RefreshCategory(ctx, st, "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := m.RefreshCategory(ctx, st, "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("Expected 2 listings both times, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("Expected slot %d to be unchanged, got %+v then %+v", i, first[i], second[i])
		}
	}
}

func TestRefreshCategoryBackfillsVacatedSlotAtEnd(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{job("Zeta", "Java Developer", "Paris")}
	m := newTestManager(t, f)
	st := models.NewState()
	fullShortlist(st)

	got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet("  BETA "), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Zeta ranks in the Paris tier but goes to the end: kept entries never move.
	assertCompanies(t, got, "Alpha", "Gamma", "Delta", "Epsilon", "Zeta")
	if f.calls["Senior Java"] != 1 {
		t.Errorf("Expected 1 fetch, got %d", f.calls["Senior Java"])
	}
}

func TestRefreshCategoryEmptyBackfill(t *testing.T) {
	f := newFakeFetcher()
	m := newTestManager(t, f)
	st := models.NewState()
	fullShortlist(st)

	got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet("Gamma"), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Alpha", "Beta", "Delta", "Epsilon")
}

func TestRefreshCategoryNeverDuplicatesIdentity(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		{Company: "ALPHA ", Title: "java  developer", Location: "Paris", URL: "https://other.example.com/1"},
		job("Omega", "Java Developer", "Paris"),
		{Company: "omega", Title: "JAVA DEVELOPER", Location: "Paris", URL: "https://other.example.com/2"},
	}
	m := newTestManager(t, f)
	st := models.NewState()
	st.SetShortlist("Senior Java", []models.Listing{job("Alpha", "Java Developer", "Paris")})

	got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Alpha", "Omega")
}

func TestRefreshCategoryDropsDuplicateURL(t *testing.T) {
	f := newFakeFetcher()
	dup := job("Alpha", "Java Developer", "Paris")
	dup.Company = "Alpha Recruiting"
	f.results["Senior Java"] = []models.Listing{dup}
	m := newTestManager(t, f)
	st := models.NewState()
	st.SetShortlist("Senior Java", []models.Listing{job("Alpha", "Java Developer", "Paris")})

	got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Alpha")
}

func TestRefreshCategorySkipsTrackedCompanies(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		job("Acme", "Java Developer", "Paris"),
		job("Initech", "Java Developer", "Paris"),
	}
	m := newTestManager(t, f)

	got, err := m.RefreshCategory(context.Background(), models.NewState(), "Senior Java", models.NewCompanySet("acme"), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Initech")
}

func TestRemovedListingNeverReturns(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		job("Acme", "Backend Engineer", "Paris"),
		job("Acme", "Frontend Engineer", "Paris"),
	}
	m := newTestManager(t, f)
	st := models.NewState()
	ctx := context.Background()

	if _, err := m.RefreshCategory(ctx, st, "Senior Java", models.NewCompanySet(), false); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	removed, err := m.RemoveListing(st, "Senior Java", "ACME", "Backend Engineer")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !removed {
		t.Error("Expected listing to be removed")
	}
	if got := st.Shortlist("Senior Java"); len(got) != 1 || got[0].Title != "Frontend Engineer" {
		t.Fatalf("Expected only the frontend listing to remain, got %+v", got)
	}

	for _, force := range []bool{false, true} {
		got, err := m.RefreshCategory(ctx, st, "Senior Java", models.NewCompanySet(), force)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		for _, l := range got {
			if l.Key() == models.KeyOf("acme", "backend engineer") {
				t.Errorf("Blocklisted listing came back (force=%v)", force)
			}
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 listing (force=%v), got %d", force, len(got))
		}
	}
}

func TestBlanketBlockExcludesEveryTitle(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		job("Acme", "Backend Engineer", "Paris"),
		job("acme", "Java Lead", "Paris"),
		job("Initech", "Java Lead", "Paris"),
	}
	m := newTestManager(t, f)
	st := models.NewState()
	st.Block("acme", "")

	got, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Initech")
}

func TestRefreshCategoryTitleFilter(t *testing.T) {
	f := newFakeFetcher()
	f.results["Product Owner"] = []models.Listing{
		job("A", "Senior Product Owner", "Paris"),
		job("B", "Java Developer", "Paris"),
		job("C", "Chief PRODUCT Officer", "Paris"),
	}
	m := newTestManager(t, f, Category{Name: "Product Owner", TitleFilter: []string{"product", ""}})

	got, err := m.RefreshCategory(context.Background(), models.NewState(), "Product Owner", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "A", "C")
}

func TestRefreshCategoryLocationExclude(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{
		job("Globex", "Senior Java Developer", "USA Only"),
		job("Hooli", "Java Developer", "Remote (US-based)"),
		job("Initech", "Java Developer", "Remote, Europe"),
		job("Umbrella", "Java Developer", "Remote, EST/PST overlap"),
		job("Stark", "Java Developer", "Campus only"),
	}
	m := newTestManager(t, f)

	got, err := m.RefreshCategory(context.Background(), models.NewState(), "Senior Java", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Initech", "Stark")

	f = newFakeFetcher()
	f.results["Anywhere"] = []models.Listing{job("Globex", "Senior Java Developer", "USA Only")}
	m = newTestManager(t, f, Category{Name: "Anywhere", LocationExclude: []string{}})
	got, err = m.RefreshCategory(context.Background(), models.NewState(), "Anywhere", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Globex")
}

func TestForceRefreshAllClearsEveryCategory(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{job("Zeta", "Java Developer", "Paris")}
	f.errs["Product Owner"] = errors.New("status 429")
	m := newTestManager(t, f,
		Category{Name: "Senior Java"},
		Category{Name: "Product Owner"},
	)
	st := models.NewState()
	fullShortlist(st)
	st.SetShortlist("Product Owner", []models.Listing{job("Acme", "Product Owner", "Paris")})

	got, err := m.ForceRefreshAll(context.Background(), st, models.NewCompanySet())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Category != "Product Owner" {
		t.Fatalf("Expected FetchError for 'Product Owner', got %v", err)
	}
	assertCompanies(t, got["Senior Java"], "Zeta")
	assertCompanies(t, got["Product Owner"], "Acme")
}

func TestRefreshCategoryCapacityInvariant(t *testing.T) {
	f := newFakeFetcher()
	for i := 0; i < 20; i++ {
		f.results["Small"] = append(f.results["Small"], job(fmt.Sprintf("Co%d", i%4), "Engineer", "Paris"))
	}
	m := newTestManager(t, f, Category{Name: "Small", Capacity: 3})

	got, err := m.RefreshCategory(context.Background(), models.NewState(), "Small", models.NewCompanySet(), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 listings, got %d", len(got))
	}
	seen := map[models.Key]bool{}
	for _, l := range got {
		if seen[l.Key()] {
			t.Errorf("Duplicate identity %v", l.Key())
		}
		seen[l.Key()] = true
	}
}

func TestRefreshCategoryUnknownCategory(t *testing.T) {
	f := newFakeFetcher()
	m := newTestManager(t, f)

	for _, name := range []string{"Backend", "senior java", "Senior Java "} {
		_, err := m.RefreshCategory(context.Background(), models.NewState(), name, models.NewCompanySet(), false)
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("Expected ConfigurationError for %q, got %v", name, err)
		}
		_, err = m.RefreshOne(context.Background(), models.NewState(), name, models.NewCompanySet())
		if !errors.As(err, &ce) {
			t.Errorf("Expected ConfigurationError from RefreshOne for %q, got %v", name, err)
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("Expected no fetches, got %v", f.calls)
	}
}

func TestRefreshCategoryFetchErrorLeavesShortlist(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{job("Zeta", "Java Developer", "Paris")}
	f.errs["Senior Java"] = errors.New("connection reset")
	m := newTestManager(t, f)
	st := models.NewState()
	fullShortlist(st)

	for _, force := range []bool{false, true} {
		_, err := m.RefreshCategory(context.Background(), st, "Senior Java", models.NewCompanySet("Alpha"), force)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("Expected FetchError (force=%v), got %v", force, err)
		}
		if fe.Category != "Senior Java" {
			t.Errorf("Expected category 'Senior Java', got '%s'", fe.Category)
		}
		assertCompanies(t, st.Shortlist("Senior Java"), "Alpha", "Beta", "Gamma", "Delta", "Epsilon")
		if st.Changed() {
			t.Errorf("Expected state to stay unchanged (force=%v)", force)
		}
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	f := newFakeFetcher()
	f.errs["Backend Java"] = errors.New("status 429")
	f.results["Product Owner"] = []models.Listing{job("Initech", "Product Owner", "Paris")}
	m := newTestManager(t, f,
		Category{Name: "Backend Java"},
		Category{Name: "Product Owner"},
	)
	st := models.NewState()
	st.SetShortlist("Backend Java", []models.Listing{job("Acme", "Backend Java", "Paris")})

	got, err := m.RefreshAll(context.Background(), st, models.NewCompanySet())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Category != "Backend Java" {
		t.Fatalf("Expected FetchError for 'Backend Java', got %v", err)
	}
	assertCompanies(t, got["Backend Java"], "Acme")
	assertCompanies(t, got["Product Owner"], "Initech")
	if f.calls["Product Owner"] != 1 {
		t.Errorf("Expected Product Owner to be fetched once, got %d", f.calls["Product Owner"])
	}
}

func TestRefreshOneForcesRefetch(t *testing.T) {
	f := newFakeFetcher()
	f.results["Senior Java"] = []models.Listing{job("Zeta", "Java Developer", "Paris")}
	m := newTestManager(t, f)
	st := models.NewState()
	fullShortlist(st)
	st.Block("beta", "")

	got, err := m.RefreshOne(context.Background(), st, "Senior Java", models.NewCompanySet())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertCompanies(t, got, "Zeta")
	if !st.IsBlocked(models.KeyOf("Beta", "anything")) {
		t.Error("Expected blocklist to survive a forced refresh")
	}
}

func TestRemoveListingIsIdempotent(t *testing.T) {
	m := newTestManager(t, newFakeFetcher())
	st := models.NewState()

	for i := 0; i < 2; i++ {
		removed, err := m.RemoveListing(st, "Senior Java", "Acme", "Backend Engineer")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if removed {
			t.Error("Expected nothing to be removed from an empty shortlist")
		}
	}
	if len(st.Blocklist) != 1 {
		t.Errorf("Expected 1 blocklist entry, got %d", len(st.Blocklist))
	}
}

func TestRemoveListingRequiresCompanyAndTitle(t *testing.T) {
	m := newTestManager(t, newFakeFetcher())

	if _, err := m.RemoveListing(models.NewState(), "Senior Java", "Acme", "  "); !errors.Is(err, ErrIncompleteListing) {
		t.Errorf("Expected ErrIncompleteListing, got %v", err)
	}
	var ce *ConfigurationError
	if _, err := m.RemoveListing(models.NewState(), "Nope", "Acme", "Dev"); !errors.As(err, &ce) {
		t.Errorf("Expected ConfigurationError, got %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	f := newFakeFetcher()
	cases := map[string]Config{
		"empty":     {},
		"duplicate": {Categories: []Category{{Name: "A"}, {Name: "A"}}},
		"blank":     {Categories: []Category{{Name: " "}}},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg, f); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestTiers(t *testing.T) {
	tiers := DefaultTiers()
	cases := []struct {
		location string
		rank     int
		label    string
	}{
		{"Paris, Île-de-France, France", 0, "Paris"},
		{"Lyon, France", 1, "France"},
		{"Ile-de-France", 1, "France"},
		{"Amsterdam, Netherlands", 2, "EMEA"},
		{"London, UK", 2, "EMEA"},
		{"Milwaukee, WI", 3, "Other"},
		{"Kyiv, Ukraine", 3, "Other"},
		{"Remote", 3, "Other"},
		{"", 3, "Other"},
	}
	for _, c := range cases {
		if got := tiers.Rank(c.location); got != c.rank {
			t.Errorf("Rank(%q) = %d, want %d", c.location, got, c.rank)
		}
		if got := tiers.Label(c.location); got != c.label {
			t.Errorf("Label(%q) = %q, want %q", c.location, got, c.label)
		}
	}
}
