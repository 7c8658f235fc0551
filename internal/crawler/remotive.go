package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"job-digest/internal/models"
)

var baseRemotiveURL = "https://remotive.com/api/remote-jobs"

// RemotiveCrawler queries Remotive's public remote-jobs API. The query's
// location is ignored; every result is remote.
type RemotiveCrawler struct {
	client *RateLimitedClient
	limit  int
}

func NewRemotiveCrawler(client *RateLimitedClient) *RemotiveCrawler {
	return &RemotiveCrawler{client: client, limit: 50}
}

func (c *RemotiveCrawler) Name() string { return "remotive" }

func (c *RemotiveCrawler) Search(ctx context.Context, q models.Query) ([]models.Listing, error) {
	urlParams := url.Values{}
	urlParams.Add("search", q.Term)
	urlParams.Add("limit", fmt.Sprint(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseRemotiveURL+"?"+urlParams.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating remotive request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making remotive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remotive unexpected status code: %d", resp.StatusCode)
	}

	var response struct {
		Jobs []struct {
			Title    string `json:"title"`
			Company  string `json:"company_name"`
			URL      string `json:"url"`
			Location string `json:"candidate_required_location"`
		} `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding remotive response: %w", err)
	}

	jobs := make([]models.Listing, 0, len(response.Jobs))
	for _, j := range response.Jobs {
		location := j.Location
		if location == "" {
			location = "Remote"
		}
		jobs = append(jobs, models.Listing{
			Title:    j.Title,
			Company:  j.Company,
			Location: location,
			URL:      j.URL,
			Source:   "Remotive",
		})
	}
	return jobs, nil
}
