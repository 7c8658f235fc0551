package hotjobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"job-digest/internal/models"
)

// Store persists the whole State at once.
type Store interface {
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, st *models.State) error
}

// Tracker reports the companies the user already tracks.
type Tracker interface {
	TrackedCompanies(ctx context.Context) (models.CompanySet, error)
}

// Result is what one invocation leaves behind.
type Result struct {
	RunID      string
	Categories []string
	Shortlists map[string][]models.Listing
	// Failed holds the fetch error of every category that kept its previous
	// shortlist this run.
	Failed map[string]error
	Saved  bool
}

func (r Result) Total() int {
	n := 0
	for _, l := range r.Shortlists {
		n += len(l)
	}
	return n
}

// RemoveResult lists the categories a removed listing was dropped from.
type RemoveResult struct {
	RunID   string
	Removed []string
	Saved   bool
}

// Service runs one Manager operation per call: it loads the state, reads
// the tracker, applies the operation and writes the state back only when it
// changed. Calls are serialised.
type Service struct {
	mu      sync.Mutex
	manager *Manager
	store   Store
	tracker Tracker
}

func NewService(m *Manager, store Store, tracker Tracker) *Service {
	return &Service{manager: m, store: store, tracker: tracker}
}

func (s *Service) Manager() *Manager { return s.manager }

func (s *Service) RefreshAll(ctx context.Context) (Result, error) {
	return s.refreshAll(ctx, false)
}

// ForceRefreshAll clears and refetches every category in a single run: one
// state load, one tracker read and at most one save.
func (s *Service) ForceRefreshAll(ctx context.Context) (Result, error) {
	return s.refreshAll(ctx, true)
}

func (s *Service) refreshAll(ctx context.Context, force bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, log := s.begin()
	st := s.load(ctx, log)
	tracked := s.tracked(ctx, log)

	refresh := s.manager.RefreshAll
	if force {
		refresh = s.manager.ForceRefreshAll
	}
	lists, err := refresh(ctx, st, tracked)
	res.Shortlists = lists
	collectFailures(res.Failed, err)

	saved, err := s.commit(ctx, st, log)
	res.Saved = saved
	return res, err
}

// RefreshOne force-refreshes one category. A fetch failure is reported in
// Result.Failed, not as an error.
func (s *Service) RefreshOne(ctx context.Context, category string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, log := s.begin()
	if _, err := s.manager.category(category); err != nil {
		return res, err
	}
	st := s.load(ctx, log)
	tracked := s.tracked(ctx, log)

	if _, err := s.manager.RefreshOne(ctx, st, category, tracked); err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			return res, err
		}
		log.Error().Err(err).Msg("Refresh failed, keeping previous shortlist")
		res.Failed[category] = err
	}
	res.Shortlists = s.manager.Shortlists(st)

	saved, err := s.commit(ctx, st, log)
	res.Saved = saved
	return res, err
}

// Remove drops and blocklists a listing. An empty category applies the
// removal to every configured category.
func (s *Service) Remove(ctx context.Context, category, company, title string) (RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, log := s.begin()
	out := RemoveResult{RunID: res.RunID}

	categories := []string{category}
	if category == "" {
		categories = s.manager.CategoryNames()
	}
	for _, c := range categories {
		if _, err := s.manager.category(c); err != nil {
			return out, err
		}
	}
	if models.Normalize(company) == "" || models.Normalize(title) == "" {
		return out, ErrIncompleteListing
	}

	st := s.load(ctx, log)
	for _, c := range categories {
		removed, err := s.manager.RemoveListing(st, c, company, title)
		if err != nil {
			return out, err
		}
		if removed {
			log.Info().Str("category", c).Str("company", company).Str("title", title).Msg("Removed listing")
			out.Removed = append(out.Removed, c)
		}
	}

	saved, err := s.commit(ctx, st, log)
	out.Saved = saved
	return out, err
}

// List returns the stored shortlists. It never fetches and never writes.
func (s *Service) List(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, log := s.begin()
	st := s.load(ctx, log)
	res.Shortlists = s.manager.Shortlists(st)
	return res, nil
}

func (s *Service) begin() (Result, zerolog.Logger) {
	id := uuid.NewString()
	res := Result{
		RunID:      id,
		Categories: s.manager.CategoryNames(),
		Failed:     map[string]error{},
	}
	return res, s.manager.log.With().Str("run_id", id).Logger()
}

// load never fails: an unreadable store is replaced by an empty one.
func (s *Service) load(ctx context.Context, log zerolog.Logger) *models.State {
	st, err := s.store.Load(ctx)
	if err != nil {
		log.Warn().Err(&PersistenceError{Op: "load", Err: err}).Msg("State unreadable, starting from an empty store")
		return models.NewState()
	}
	return st
}

func (s *Service) tracked(ctx context.Context, log zerolog.Logger) models.CompanySet {
	if s.tracker == nil {
		return models.NewCompanySet()
	}
	set, err := s.tracker.TrackedCompanies(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read tracker, assuming no tracked companies")
		return models.NewCompanySet()
	}
	log.Info().Int("companies", len(set)).Msg("Tracker loaded")
	return set
}

func (s *Service) commit(ctx context.Context, st *models.State, log zerolog.Logger) (bool, error) {
	if !st.Changed() {
		log.Debug().Msg("State unchanged, skipping save")
		return false, nil
	}
	st.LastUpdated = s.manager.now().Format(time.DateOnly)
	if err := s.store.Save(ctx, st); err != nil {
		return false, &PersistenceError{Op: "save", Err: err}
	}
	st.MarkSaved()
	log.Info().Msg("State saved")
	return true, nil
}

func collectFailures(into map[string]error, err error) {
	if err == nil {
		return
	}
	joined, ok := err.(interface{ Unwrap() []error })
	errs := []error{err}
	if ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var fe *FetchError
		if errors.As(e, &fe) {
			into[fe.Category] = fe
		}
	}
}
