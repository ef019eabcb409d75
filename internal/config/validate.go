package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong
// or suspicious about it. Errors block saving; warnings don't.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Sources.EmailAlerts.SenderAllow = trimList(out.Sources.EmailAlerts.SenderAllow)
	out.Sources.EmailAlerts.LinkMarkers = trimList(out.Sources.EmailAlerts.LinkMarkers)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Fetching.IntervalMinutes <= 0 {
		res.addErr("fetching.interval_minutes must be > 0")
	} else if out.Fetching.IntervalMinutes < 10 {
		res.addWarn("fetching.interval_minutes is very low (%d) and may get sources rate-limited.", out.Fetching.IntervalMinutes)
	}
	if out.Fetching.TimeoutSeconds <= 0 {
		res.addErr("fetching.timeout_seconds must be > 0")
	}
	if out.Fetching.HostReqPerSec <= 0 {
		res.addErr("fetching.host_req_per_sec must be > 0")
	}
	if out.Fetching.HostBurst <= 0 {
		res.addErr("fetching.host_burst must be > 0")
	}

	// Threshold may be negative; a deployment can deliberately admit
	// penalized jobs. Only the cap has a floor.
	if out.Matching.MaxResults <= 0 {
		res.addErr("matching.max_results must be > 0")
	} else if out.Matching.MaxResults > 5000 {
		res.addWarn("matching.max_results is %d; delivery never pages that deep.", out.Matching.MaxResults)
	}

	if out.Limits.DailyRefreshes <= 0 {
		res.addErr("limits.daily_refreshes must be > 0")
	}
	if out.Limits.DailyVacancies <= 0 {
		res.addErr("limits.daily_vacancies must be > 0")
	}

	if out.Retention.ArchiveAfterDays <= 0 {
		res.addErr("retention.archive_after_days must be > 0")
	}
	if out.Retention.DeleteAfterDays <= 0 {
		res.addErr("retention.delete_after_days must be > 0")
	}
	if out.Retention.DeleteAfterDays < out.Retention.ArchiveAfterDays {
		res.addWarn("retention.delete_after_days (%d) is shorter than archive_after_days (%d); jobs get deleted as soon as they archive.",
			out.Retention.DeleteAfterDays, out.Retention.ArchiveAfterDays)
	}

	if out.Telegram.Enabled && strings.TrimSpace(out.Telegram.KeyringAccount) == "" {
		res.addErr("telegram.keyring_account is required when telegram.enabled=true")
	}

	ea := out.Sources.EmailAlerts
	if ea.Enabled {
		if strings.TrimSpace(ea.IMAPHost) == "" {
			res.addErr("sources.email_alerts.imap_host is required when enabled")
		}
		if ea.IMAPPort == 0 {
			res.addErr("sources.email_alerts.imap_port is required when enabled")
		}
		if strings.TrimSpace(ea.Username) == "" {
			res.addErr("sources.email_alerts.username is required when enabled")
		}
		if strings.TrimSpace(ea.Mailbox) == "" {
			res.addErr("sources.email_alerts.mailbox is required when enabled")
		}
		if len(ea.LinkMarkers) == 0 {
			res.addWarn("sources.email_alerts.link_markers is empty; alert ingestion will find nothing.")
		}
	}

	if !out.Sources.JustJoin.Enabled && !out.Sources.NoFluff.Enabled && !ea.Enabled {
		res.addWarn("no sources enabled; the job pool will never grow.")
	}

	return out, res
}
