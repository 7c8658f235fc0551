// Package crawler queries public job boards one request at a time and
// streams the listings they return.
package crawler

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"

	"job-digest/internal/logger"
	"job-digest/internal/models"
)

// DefaultSource is used by categories that do not name any source.
const DefaultSource = "linkedin"

var knownSources = []string{"arbeitnow", DefaultSource, "remoteok", "remotive"}

// KnownSource reports whether NewJobCrawler registers a source by that name.
func KnownSource(name string) bool { return slices.Contains(knownSources, name) }

type Source interface {
	Name() string
	Search(ctx context.Context, q models.Query) ([]models.Listing, error)
}

type JobCrawler struct {
	sources map[string]Source
}

// NewJobCrawler registers every supported board behind one shared
// rate-limited client.
func NewJobCrawler(client *RateLimitedClient) *JobCrawler {
	return New(
		NewLinkedInCrawler(client),
		NewRemotiveCrawler(client),
		NewArbeitnowCrawler(client),
		NewRemoteOKCrawler(client),
	)
}

func New(sources ...Source) *JobCrawler {
	jc := &JobCrawler{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		jc.sources[s.Name()] = s
	}
	return jc
}

// SourceNames lists the registered sources, sorted.
func (jc *JobCrawler) SourceNames() []string {
	names := make([]string, 0, len(jc.sources))
	for n := range jc.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fetch runs every query against every named source, sequentially, and
// yields listings in the order the boards return them. The first failure is
// yielded as an error and ends the sequence. An empty result is not an error.
func (jc *JobCrawler) Fetch(ctx context.Context, category string, sources []string, queries []models.Query) iter.Seq2[models.Listing, error] {
	if len(sources) == 0 {
		sources = []string{DefaultSource}
	}
	sources = slices.Clone(sources)
	queries = slices.Clone(queries)

	return func(yield func(models.Listing, error) bool) {
		log := logger.Get().With().Str("category", category).Logger()
		for _, q := range queries {
			for _, name := range sources {
				src, ok := jc.sources[name]
				if !ok {
					yield(models.Listing{}, fmt.Errorf("unknown source %q", name))
					return
				}
				jobs, err := src.Search(ctx, q)
				if err != nil {
					yield(models.Listing{}, fmt.Errorf("%s %q in %q: %w", name, q.Term, q.Location, err))
					return
				}
				log.Info().Str("source", name).Str("term", q.Term).Str("location", q.Location).Int("results", len(jobs)).Msg("Query complete")
				for _, job := range jobs {
					job.Category = category
					if !yield(job, nil) {
						return
					}
				}
			}
		}
	}
}
