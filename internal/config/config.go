// Package config loads the YAML configuration file and overlays the
// environment on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"job-digest/internal/crawler"
	"job-digest/internal/hotjobs"
	"job-digest/internal/models"
	"job-digest/internal/reporter"
	"job-digest/internal/store"
	"job-digest/internal/tracker"
)

const (
	DefaultStatePath = "daily_hot_jobs.json"
	DefaultSchedule  = "0 11 * * *"
	DefaultAddr      = ":8080"
)

type Category struct {
	Name        string         `yaml:"name"`
	Queries     []models.Query `yaml:"queries"`
	TitleFilter []string       `yaml:"title_filter,omitempty"`
	// LocationExclude overrides the top-level list for this category.
	LocationExclude []string `yaml:"location_exclude,omitempty"`
	Sources         []string `yaml:"sources,omitempty"`
	Capacity        int      `yaml:"capacity,omitempty"`
}

type Schedule struct {
	Cron         string   `yaml:"cron"`
	Timezone     string   `yaml:"timezone,omitempty"`
	SkipWeekdays []string `yaml:"skip_weekdays"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	LogLevel          string               `yaml:"log_level"`
	LogPretty         bool                 `yaml:"log_pretty"`
	Capacity          int                  `yaml:"capacity"`
	RequestsPerSecond float64              `yaml:"requests_per_second"`
	TrackerFile       string               `yaml:"tracker_file"`
	State             store.Config         `yaml:"state"`
	Categories        []Category           `yaml:"categories"`
	Tiers             hotjobs.Tiers        `yaml:"tiers"`
	LocationExclude   []string             `yaml:"location_exclude"`
	Roles             tracker.RoleRules    `yaml:"roles"`
	Email             reporter.EmailConfig `yaml:"email"`
	Schedule          Schedule             `yaml:"schedule"`
	Server            Server               `yaml:"server"`
}

// Default mirrors the stock setup: four Paris-area categories searched on
// LinkedIn, five slots each, digest at 11:00 except on Fridays.
func Default() *Config {
	return &Config{
		LogLevel:          "info",
		LogPretty:         true,
		Capacity:          hotjobs.DefaultCapacity,
		RequestsPerSecond: crawler.DefaultRequestsPerSecond,
		State:             store.Config{Driver: "file", Path: DefaultStatePath},
		Categories: []Category{
			{Name: "Senior Java", Queries: []models.Query{
				{Term: "senior java developer", Location: "Paris, France"},
				{Term: "senior java developer", Location: "France"},
				{Term: "senior software engineer java", Location: "Paris, France"},
			}},
			{Name: "Backend Java", Queries: []models.Query{
				{Term: "backend java developer", Location: "Paris, France"},
				{Term: "lead backend engineer", Location: "France"},
			}},
			{Name: "Product Owner", Queries: []models.Query{
				{Term: "product owner", Location: "Paris, France"},
				{Term: "product owner", Location: "France"},
			}},
			{Name: "Assistant Project Manager", Queries: []models.Query{
				{Term: "assistant project manager", Location: "Paris, France"},
				{Term: "assistant project manager", Location: "France"},
				{Term: "assistant project manager java", Location: "Paris, France"},
				{Term: "assistant project manager java", Location: "France"},
			}},
		},
		Tiers:           hotjobs.DefaultTiers(),
		LocationExclude: slices.Clone(hotjobs.DefaultLocationExclude),
		Roles:           tracker.DefaultRoleRules(),
		Email:           reporter.EmailConfig{SMTPHost: "smtp.gmail.com", SMTPPort: 587},
		Schedule:        Schedule{Cron: DefaultSchedule, SkipWeekdays: []string{"friday"}},
		Server:          Server{Addr: DefaultAddr},
	}
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		// Lists replace the defaults instead of merging into them; a list
		// missing from the file keeps its default.
		def := Default()
		cfg.Categories, cfg.Tiers, cfg.Schedule.SkipWeekdays = nil, nil, nil
		cfg.LocationExclude, cfg.Roles = nil, nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if cfg.Categories == nil {
			cfg.Categories = def.Categories
		}
		if cfg.Tiers == nil {
			cfg.Tiers = def.Tiers
		}
		if cfg.Schedule.SkipWeekdays == nil {
			cfg.Schedule.SkipWeekdays = def.Schedule.SkipWeekdays
		}
		if cfg.LocationExclude == nil {
			cfg.LocationExclude = def.LocationExclude
		}
		if cfg.Roles == nil {
			cfg.Roles = def.Roles
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SMTP_HOST":     &c.Email.SMTPHost,
		"SMTP_USERNAME": &c.Email.SMTPUsername,
		"SMTP_PASSWORD": &c.Email.SMTPPassword,
		"FROM_EMAIL":    &c.Email.FromEmail,
		"TO_EMAIL":      &c.Email.ToEmail,
		"HOTJOBS_STATE": &c.State.Path,
		"TRACKER_FILE":  &c.TrackerFile,
		"REDIS_URL":     &c.State.RedisURL,
		"LOG_LEVEL":     &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.Email.SMTPPort = port
	}
	return nil
}

// Validate fails on anything that would only surface halfway through a run.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("no categories configured"))
	}
	if c.Capacity < 0 {
		errs = append(errs, errors.New("capacity must not be negative"))
	}
	seen := map[string]bool{}
	for i, cat := range c.Categories {
		name := strings.TrimSpace(cat.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("categories[%d]: empty name", i))
		case seen[cat.Name]:
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate name %q", i, cat.Name))
		}
		seen[cat.Name] = true
		if len(cat.Queries) == 0 {
			errs = append(errs, fmt.Errorf("category %q: no queries", cat.Name))
		}
		for j, q := range cat.Queries {
			if strings.TrimSpace(q.Term) == "" {
				errs = append(errs, fmt.Errorf("category %q: queries[%d]: empty term", cat.Name, j))
			}
		}
		for _, s := range cat.Sources {
			if !crawler.KnownSource(s) {
				errs = append(errs, fmt.Errorf("category %q: unknown source %q", cat.Name, s))
			}
		}
		if cat.Capacity < 0 {
			errs = append(errs, fmt.Errorf("category %q: capacity must not be negative", cat.Name))
		}
	}
	for i, r := range c.Roles {
		if strings.TrimSpace(r.Category) == "" {
			errs = append(errs, fmt.Errorf("roles[%d]: empty category", i))
		}
		if len(r.Any) == 0 {
			errs = append(errs, fmt.Errorf("roles[%d]: no keywords", i))
		}
	}
	switch c.State.Driver {
	case "", "file", "sqlite":
		if c.State.Path == "" {
			errs = append(errs, errors.New("state.path is required"))
		}
	case "redis":
		if c.State.RedisURL == "" {
			errs = append(errs, errors.New("state.redis_url is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("state.driver: unknown driver %q", c.State.Driver))
	}
	if _, err := c.SkipDays(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HotJobs converts the category list for the manager.
func (c *Config) HotJobs() hotjobs.Config {
	out := hotjobs.Config{Capacity: c.Capacity, Tiers: c.Tiers, LocationExclude: c.LocationExclude}
	for _, cat := range c.Categories {
		out.Categories = append(out.Categories, hotjobs.Category{
			Name:            cat.Name,
			Queries:         cat.Queries,
			TitleFilter:     cat.TitleFilter,
			LocationExclude: cat.LocationExclude,
			Sources:         cat.Sources,
			Capacity:        cat.Capacity,
		})
	}
	return out
}

// SkipDays parses Schedule.SkipWeekdays; full or three-letter English names,
// any case.
func (c *Config) SkipDays() ([]time.Weekday, error) {
	var days []time.Weekday
	for _, name := range c.Schedule.SkipWeekdays {
		d, ok := parseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("schedule.skip_weekdays: unknown weekday %q", name)
		}
		days = append(days, d)
	}
	return days, nil
}

// Location is the time zone the schedule runs in; local time when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, true
		}
	}
	return 0, false
}
