package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/fetch"
	"jobfunnel-engine/internal/httpapi"
	"jobfunnel-engine/internal/notify/telegram"
	"jobfunnel-engine/internal/scheduler"
	"jobfunnel-engine/internal/secrets"
	"jobfunnel-engine/internal/store"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	dataDir := os.Getenv("JOBFUNNEL_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// Single instance per data dir. A second engine would fight over the
	// SQLite file and double-deliver vacancies.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running in %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		normalized, vr := config.NormalizeAndValidate(cfg)
		for _, w := range vr.Warnings {
			log.Printf("[config] warning: %s", w)
		}
		if !vr.OK() {
			for _, e := range vr.Errors {
				log.Printf("[config] error: %s", e)
			}
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)
	curCfg := func() config.Config { return cfgVal.Load().(config.Config) }

	db, err := store.Open(filepath.Join(dataDir, "jobfunnel.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	fetchStatus := &atomic.Value{}
	fetchStatus.Store(fetch.Status{})

	runFetch := func(onNewJobs func(added int)) (int, int, error) {
		c := curCfg()
		timeout := time.Duration(c.Fetching.TimeoutSeconds) * time.Second
		return fetch.RunOnce(db.Pool, buildFetchers(c), timeout, onNewJobs)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db.Pool, hub, curCfg, func() {
		runScheduledFetch(fetchStatus, hub, runFetch)
	})
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer sched.Stop()

	if cfg.Telegram.Enabled {
		token, err := secrets.GetTelegramToken(cfg.Telegram.KeyringAccount)
		if err != nil {
			log.Fatalf("telegram enabled but %v", err)
		}
		bot, err := telegram.New(token, db.Pool, &cfgVal, hub)
		if err != nil {
			log.Fatalf("telegram init: %v", err)
		}
		go bot.Run(ctx)
	}

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		CfgVal:      &cfgVal,
		FetchStatus: fetchStatus,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		RunFetch:    runFetch,
	})

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (data=%s)", addr, dataDir)

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID, httpapi.Recover, httpapi.AccessLog, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(srv, cancel))

	go func() {
		<-ctx.Done()
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}

func runScheduledFetch(status *atomic.Value, hub *events.Hub, runFetch func(func(int)) (int, int, error)) {
	st := status.Load().(fetch.Status)
	if st.Running {
		return
	}
	status.Store(fetch.Status{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	added, refreshed, err := runFetch(func(added int) {
		hub.Publish(events.Make("", events.TypeJobsFetched, map[string]any{"added": added}))
	})

	now := time.Now().Format(time.RFC3339)
	next := status.Load().(fetch.Status)
	next.Running = false
	next.LastRunAt = now
	next.LastAdded = added
	next.LastRefreshed = refreshed
	if err != nil {
		next.LastError = err.Error()
	} else {
		next.LastError = ""
		next.LastOkAt = now
	}
	status.Store(next)
}
