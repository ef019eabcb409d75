package emailalert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/fetch"
)

const maxEmailsPerRun = 200

// Fetcher ingests job-alert digest emails over IMAP. Processed messages are
// flagged \Seen only through Result.Finalize, after the haul has been saved.
type Fetcher struct {
	cfg config.Config

	// Password resolves the IMAP password at fetch time so a keychain
	// entry updated mid-run is picked up without a restart.
	Password func() (string, error)
}

func New(cfg config.Config, password func() (string, error)) *Fetcher {
	return &Fetcher{cfg: cfg, Password: password}
}

func (f *Fetcher) Name() string { return "emailalert" }

func (f *Fetcher) Fetch(ctx context.Context) (fetch.Result, error) {
	ec := f.cfg.Sources.EmailAlerts
	if ec.IMAPHost == "" || ec.Username == "" {
		return fetch.Result{}, errors.New("email alerts enabled but missing imap_host/username")
	}

	password, err := f.Password()
	if err != nil {
		return fetch.Result{}, fmt.Errorf("imap password: %w", err)
	}

	addr := ec.IMAPHost
	if !strings.Contains(addr, ":") {
		port := ec.IMAPPort
		if port == 0 {
			port = 993
		}
		addr = fmt.Sprintf("%s:%d", addr, port)
	}

	c, err := dial(addr, ec.Username, password)
	if err != nil {
		return fetch.Result{}, err
	}

	msgs, err := fetchUnseen(ctx, c, ec.Mailbox, maxEmailsPerRun)
	if err != nil {
		logoutAndClose(c)
		return fetch.Result{}, err
	}

	var jobs []domain.Job
	processed := make([]imap.UID, 0, len(msgs))

	for _, m := range msgs {
		if !senderAllowed(m.From, ec.SenderAllow) {
			continue
		}
		processed = append(processed, m.UID)

		html := htmlBody(m.Raw)
		if html == "" {
			continue
		}
		parsed, perr := parseAlertHTML(html, ec.LinkMarkers)
		if perr != nil {
			continue
		}
		for _, j := range parsed {
			j.LastSeen = m.Date
			jobs = append(jobs, j)
		}
	}

	return fetch.Result{
		Source: f.Name(),
		Jobs:   jobs,
		Finalize: func(ctx context.Context) error {
			defer logoutAndClose(c)
			return markSeen(c, processed)
		},
		// If the save fails, the messages must stay unseen so the next
		// cycle replays them; Discard just releases the session.
		Discard: func() { logoutAndClose(c) },
	}, nil
}

// senderAllowed matches the From address against the allowlist. An empty
// allowlist accepts everything.
func senderAllowed(from string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	lf := strings.ToLower(from)
	for _, a := range allow {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && strings.Contains(lf, a) {
			return true
		}
	}
	return false
}
