package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"job-digest/internal/models"
)

var baseArbeitnowURL = "https://www.arbeitnow.com/api/job-board-api"

// ArbeitnowCrawler reads the newest page of the Arbeitnow board and keeps
// its remote jobs. The API has no search parameter, so results are matched
// against the query term here: every word of the term must appear in the
// title or the tags.
type ArbeitnowCrawler struct {
	client *RateLimitedClient
}

func NewArbeitnowCrawler(client *RateLimitedClient) *ArbeitnowCrawler {
	return &ArbeitnowCrawler{client: client}
}

func (c *ArbeitnowCrawler) Name() string { return "arbeitnow" }

func (c *ArbeitnowCrawler) Search(ctx context.Context, q models.Query) ([]models.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseArbeitnowURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating arbeitnow request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making arbeitnow request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arbeitnow unexpected status code: %d", resp.StatusCode)
	}

	var response struct {
		Data []struct {
			Title    string   `json:"title"`
			Company  string   `json:"company_name"`
			Location string   `json:"location"`
			URL      string   `json:"url"`
			Remote   bool     `json:"remote"`
			Tags     []string `json:"tags"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding arbeitnow response: %w", err)
	}

	words := strings.Fields(strings.ToLower(q.Term))
	var jobs []models.Listing
	for _, j := range response.Data {
		if !j.Remote || !matchesTerm(j.Title, j.Tags, words) {
			continue
		}
		location := strings.TrimSpace(j.Location)
		if location == "" {
			location = "Remote"
		}
		jobs = append(jobs, models.Listing{
			Title:    j.Title,
			Company:  j.Company,
			Location: location,
			URL:      j.URL,
			Source:   "Arbeitnow",
		})
	}
	return jobs, nil
}

// matchesTerm reports whether every word of the lowercased term appears in
// the title or one of the tags.
func matchesTerm(title string, tags []string, words []string) bool {
	text := strings.ToLower(title + " " + strings.Join(tags, " "))
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
