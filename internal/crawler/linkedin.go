package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"job-digest/internal/models"
)

var baseLinkedInURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"

// LinkedInCrawler reads the first page of LinkedIn's public guest search.
type LinkedInCrawler struct {
	client *RateLimitedClient
}

func NewLinkedInCrawler(client *RateLimitedClient) *LinkedInCrawler {
	return &LinkedInCrawler{client: client}
}

func (c *LinkedInCrawler) Name() string { return "linkedin" }

func (c *LinkedInCrawler) Search(ctx context.Context, q models.Query) ([]models.Listing, error) {
	urlParams := url.Values{}
	urlParams.Add("keywords", q.Term)
	urlParams.Add("location", q.Location)
	urlParams.Add("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseLinkedInURL+"?"+urlParams.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return parseLinkedInCards(doc), nil
}

// parseLinkedInCards collects every search card that carries both a title
// and a company. Cards are not nested, so the walk stops at the first one.
func parseLinkedInCards(doc *html.Node) []models.Listing {
	var jobs []models.Listing
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && (hasClass(n, "base-search-card") || hasClass(n, "job-search-card")) {
			job := models.Listing{Source: "LinkedIn"}
			readLinkedInCard(n, &job)
			if job.Title != "" && job.Company != "" {
				jobs = append(jobs, job)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return jobs
}

func readLinkedInCard(n *html.Node, job *models.Listing) {
	if n.Type == html.ElementNode {
		switch {
		case hasClass(n, "base-search-card__title") && job.Title == "":
			job.Title = getTextContent(n)
		case hasClass(n, "base-search-card__subtitle") && job.Company == "":
			job.Company = getTextContent(n)
		case hasClass(n, "job-search-card__location") && job.Location == "":
			job.Location = getTextContent(n)
		case n.Data == "a" && job.URL == "":
			if href := getAttr(n, "href"); strings.Contains(href, "/jobs/view/") {
				job.URL, _, _ = strings.Cut(href, "?")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		readLinkedInCard(c, job)
	}
}
