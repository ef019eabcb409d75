package nofluff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/fetch"
)

const defaultBaseURL = "https://nofluffjobs.com/api/search/posting"

type Config struct {
	Region  string // e.g. "pl"
	MaxJobs int
	BaseURL string
}

type Fetcher struct {
	cfg     Config
	hc      *http.Client
	limiter *fetch.HostLimiter
}

func New(cfg Config, limiter *fetch.HostLimiter) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Region == "" {
		cfg.Region = "pl"
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 200
	}
	return &Fetcher{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (f *Fetcher) Name() string { return "nofluff" }

type searchRequest struct {
	Criteria string `json:"criteriaSearch"`
	Page     int    `json:"page"`
}

type posting struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Name   string `json:"name"` // company
	URL    string `json:"url"`  // posting slug
	Salary struct {
		From     float64 `json:"from"`
		To       float64 `json:"to"`
		Currency string  `json:"currency"`
	} `json:"salary"`
	Location struct {
		Places []struct {
			City string `json:"city"`
		} `json:"places"`
	} `json:"location"`
	Tiles struct {
		Values []struct {
			Value string `json:"value"`
		} `json:"values"`
	} `json:"tiles"`
}

type searchResponse struct {
	Postings   []posting `json:"postings"`
	TotalPages int       `json:"totalPages"`
}

func (f *Fetcher) Fetch(ctx context.Context) (fetch.Result, error) {
	var jobs []domain.Job

	for page := 1; len(jobs) < f.cfg.MaxJobs; page++ {
		sr, err := f.search(ctx, page)
		if err != nil {
			if len(jobs) > 0 {
				break
			}
			return fetch.Result{}, err
		}

		for _, p := range sr.Postings {
			if len(jobs) >= f.cfg.MaxJobs {
				break
			}
			if p.URL == "" || p.Title == "" {
				continue
			}
			jobs = append(jobs, domain.Job{
				Title:    p.Title,
				Company:  p.Name,
				Location: firstCity(p),
				Salary:   salaryText(p),
				Skills:   skills(p),
				URL:      "https://nofluffjobs.com/" + f.cfg.Region + "/job/" + p.URL,
			})
		}

		if len(sr.Postings) == 0 || (sr.TotalPages != 0 && page >= sr.TotalPages) {
			break
		}
	}

	return fetch.Result{Source: f.Name(), Jobs: jobs}, nil
}

func (f *Fetcher) search(ctx context.Context, page int) (searchResponse, error) {
	u := fmt.Sprintf("%s?pageTo=%d&region=%s", f.cfg.BaseURL, page, f.cfg.Region)

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, u); err != nil {
			return searchResponse{}, err
		}
	}

	body, _ := json.Marshal(searchRequest{Page: page})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	req.Header.Set("User-Agent", "jobfunnel/1.0 (+local)")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := f.hc.Do(req)
	if err != nil {
		return searchResponse{}, fmt.Errorf("nofluff search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return searchResponse{}, fmt.Errorf("nofluff search status %d", res.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return searchResponse{}, fmt.Errorf("nofluff decode search: %w", err)
	}
	return sr, nil
}

func firstCity(p posting) string {
	if len(p.Location.Places) > 0 {
		return p.Location.Places[0].City
	}
	return ""
}

func salaryText(p posting) string {
	if p.Salary.To <= 0 {
		return ""
	}
	cur := p.Salary.Currency
	if cur == "" {
		cur = "PLN"
	}
	return fmt.Sprintf("%.0f - %.0f %s", p.Salary.From, p.Salary.To, cur)
}

func skills(p posting) []string {
	var out []string
	for _, v := range p.Tiles.Values {
		if v.Value != "" {
			out = append(out, v.Value)
		}
	}
	return out
}
