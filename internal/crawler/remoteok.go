package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"job-digest/internal/models"
)

var baseRemoteOKURL = "https://remoteok.com/api"

// RemoteOKCrawler reads the RemoteOK feed. Like Arbeitnow it cannot search,
// so the query term is matched against each job's position and tags. The
// query's location is ignored; every result is remote.
type RemoteOKCrawler struct {
	client *RateLimitedClient
}

func NewRemoteOKCrawler(client *RateLimitedClient) *RemoteOKCrawler {
	return &RemoteOKCrawler{client: client}
}

func (c *RemoteOKCrawler) Name() string { return "remoteok" }

func (c *RemoteOKCrawler) Search(ctx context.Context, q models.Query) ([]models.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseRemoteOKURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating remoteok request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making remoteok request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remoteok unexpected status code: %d", resp.StatusCode)
	}

	// The first element of the array is a legal notice, not a job.
	var response []struct {
		Position string   `json:"position"`
		Company  string   `json:"company"`
		Location string   `json:"location"`
		URL      string   `json:"url"`
		Tags     []string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding remoteok response: %w", err)
	}
	if len(response) > 0 {
		response = response[1:]
	}

	words := strings.Fields(strings.ToLower(q.Term))
	var jobs []models.Listing
	for _, j := range response {
		if !matchesTerm(j.Position, j.Tags, words) {
			continue
		}
		location := strings.TrimSpace(j.Location)
		if location == "" {
			location = "Remote"
		}
		jobs = append(jobs, models.Listing{
			Title:    j.Position,
			Company:  j.Company,
			Location: location,
			URL:      j.URL,
			Source:   "RemoteOK",
		})
	}
	return jobs, nil
}
