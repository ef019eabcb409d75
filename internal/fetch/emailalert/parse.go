package emailalert

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobfunnel-engine/internal/domain"
)

var reSalary = regexp.MustCompile(`\d[\d\s,.]*\s*[-–]\s*\d[\d\s,.]*\s*(?:PLN|EUR|USD|zł|\$|€)(?:\s*/\s*(?:mo|month|year|yr|h))?`)

// parseAlertHTML extracts job cards from an alert digest email.
// Anchors whose href contains one of the configured link markers are treated
// as job links. Multiple anchors pointing at the same posting are merged, so
// a logo anchor seen before the title anchor does not shadow the job.
func parseAlertHTML(htmlBody string, linkMarkers []string) ([]domain.Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	byURL := map[string]*domain.Job{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !matchesMarker(href, linkMarkers) {
			return
		}

		jobURL := unwrapRedirect(href)
		if jobURL == "" {
			return
		}

		j, ok := byURL[jobURL]
		if !ok {
			j = &domain.Job{URL: jobURL}
			byURL[jobURL] = j
			order = append(order, jobURL)
		}

		if t := cleanText(a.Text()); plausibleTitle(t) && len(t) > len(j.Title) {
			j.Title = t
		}

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Closest("tr")
		}
		if card.Length() == 0 {
			card = a.Parent()
		}

		// Company · Location usually rides in a <p> inside the card.
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := cleanText(p.Text())
			if t == "" {
				return
			}
			if j.Company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				j.Company = strings.TrimSpace(parts[0])
				j.Location = strings.TrimSpace(parts[1])
				return
			}
			if plausibleTitle(t) && !strings.Contains(t, " · ") && len(t) > len(j.Title) {
				j.Title = t
			}
		})

		if j.Salary == "" {
			if m := reSalary.FindString(cleanText(card.Text())); m != "" {
				j.Salary = strings.TrimSpace(m)
			}
		}
	})

	out := make([]domain.Job, 0, len(order))
	for _, u := range order {
		j := byURL[u]
		if j.Title == "" {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func matchesMarker(href string, markers []string) bool {
	lh := strings.ToLower(href)
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.Contains(lh, m) {
			return true
		}
	}
	return false
}

// unwrapRedirect resolves tracking wrappers that stash the real link in a
// url= or q= query param.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	for _, key := range []string{"url", "q"} {
		if raw := u.Query().Get(key); raw != "" {
			if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	if u.Host != "" {
		return u.String()
	}
	return ""
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

func plausibleTitle(s string) bool {
	if len(s) < 4 || len(s) > 140 {
		return false
	}
	l := strings.ToLower(s)
	for _, bad := range []string{"unsubscribe", "view job", "see all", "apply", "http://", "https://"} {
		if strings.Contains(l, bad) {
			return false
		}
	}
	letters := 0
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			letters++
		}
	}
	return letters >= 4
}
