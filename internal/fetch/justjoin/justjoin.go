package justjoin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/fetch"
)

const defaultBaseURL = "https://api.justjoin.it/v2/user-panel/offers"

type Config struct {
	City    string // optional city filter, e.g. "Warszawa"
	MaxJobs int
	BaseURL string // overridable for tests
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
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 200
	}
	return &Fetcher{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (f *Fetcher) Name() string { return "justjoin" }

// offer mirrors the fields we keep from the offers API.
type offer struct {
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	CompanyName     string   `json:"companyName"`
	City            string   `json:"city"`
	RequiredSkills  []string `json:"requiredSkills"`
	EmploymentTypes []struct {
		From     *int   `json:"from"`
		To       *int   `json:"to"`
		Currency string `json:"currency"`
	} `json:"employmentTypes"`
}

type offersPage struct {
	Data []offer `json:"data"`
	Meta struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"meta"`
}

func (f *Fetcher) Fetch(ctx context.Context) (fetch.Result, error) {
	var jobs []domain.Job

	for page := 1; len(jobs) < f.cfg.MaxJobs; page++ {
		pg, err := f.fetchPage(ctx, page)
		if err != nil {
			// partial haul is still a haul
			if len(jobs) > 0 {
				break
			}
			return fetch.Result{}, err
		}

		for _, o := range pg.Data {
			if len(jobs) >= f.cfg.MaxJobs {
				break
			}
			if o.Slug == "" || o.Title == "" {
				continue
			}
			jobs = append(jobs, domain.Job{
				Title:    o.Title,
				Company:  o.CompanyName,
				Location: o.City,
				Salary:   salaryText(o),
				Skills:   o.RequiredSkills,
				URL:      "https://justjoin.it/offers/" + o.Slug,
			})
		}

		if pg.Meta.TotalPages != 0 && page >= pg.Meta.TotalPages {
			break
		}
		if len(pg.Data) == 0 {
			break
		}
	}

	return fetch.Result{Source: f.Name(), Jobs: jobs}, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, page int) (offersPage, error) {
	u := fmt.Sprintf("%s?page=%d&sortBy=published&orderBy=DESC", f.cfg.BaseURL, page)
	if f.cfg.City != "" {
		u += "&city=" + f.cfg.City
	}

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, u); err != nil {
			return offersPage{}, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("User-Agent", "jobfunnel/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := f.hc.Do(req)
	if err != nil {
		return offersPage{}, fmt.Errorf("justjoin get offers: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return offersPage{}, fmt.Errorf("justjoin offers status %d", res.StatusCode)
	}

	var pg offersPage
	if err := json.NewDecoder(res.Body).Decode(&pg); err != nil {
		return offersPage{}, fmt.Errorf("justjoin decode offers: %w", err)
	}
	return pg, nil
}

func salaryText(o offer) string {
	for _, et := range o.EmploymentTypes {
		if et.From == nil || et.To == nil {
			continue
		}
		cur := strings.ToUpper(et.Currency)
		if cur == "" {
			cur = "PLN"
		}
		return fmt.Sprintf("%d - %d %s", *et.From, *et.To, cur)
	}
	return ""
}
