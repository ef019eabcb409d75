package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/fetch"
	"jobfunnel-engine/internal/fetch/emailalert"
	"jobfunnel-engine/internal/fetch/justjoin"
	"jobfunnel-engine/internal/fetch/nofluff"
	"jobfunnel-engine/internal/secrets"
)

// buildFetchers assembles the enabled sources from config. Rebuilt every
// cycle so toggling a source needs no restart.
func buildFetchers(cfg config.Config) []fetch.Fetcher {
	limiter := fetch.NewHostLimiter(cfg.Fetching.HostReqPerSec, cfg.Fetching.HostBurst)

	var out []fetch.Fetcher
	if cfg.Sources.JustJoin.Enabled {
		out = append(out, justjoin.New(justjoin.Config{
			City:    cfg.Sources.JustJoin.City,
			MaxJobs: cfg.Sources.JustJoin.MaxJobs,
		}, limiter))
	}
	if cfg.Sources.NoFluff.Enabled {
		out = append(out, nofluff.New(nofluff.Config{
			Region:  cfg.Sources.NoFluff.Region,
			MaxJobs: cfg.Sources.NoFluff.MaxJobs,
		}, limiter))
	}
	if cfg.Sources.EmailAlerts.Enabled {
		out = append(out, emailalert.New(cfg, func() (string, error) {
			return secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
		}))
	}
	return out
}

// shutdownHandler stops the engine over HTTP. Local-only; the desktop
// shell uses it to close the backend with its window.
func shutdownHandler(srv *http.Server, cancel context.CancelFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		// Respond immediately, then shut down asynchronously
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))

		go func() {
			cancel()
			ctx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = srv.Shutdown(ctx)
		}()
	}
}
