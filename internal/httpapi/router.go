package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{DB: d.DB}.Health,
	}))

	// Jobs
	jh := JobsHandler{DB: d.DB}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.GetByPath, // expects /jobs/{id}
	}))

	// Users: keywords and match previews
	uh := UsersHandler{DB: d.DB, CfgVal: d.CfgVal, Hub: d.Hub}
	mux.HandleFunc("/users/", uh.ServeByPath)

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetIMAPPassword,
	}))
	mux.HandleFunc("/api/secrets/telegram", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetTelegramToken,
	}))

	// Fetch
	fh := FetchHandler{
		FetchStatus: d.FetchStatus,
		Hub:         d.Hub,
		RunFetch:    d.RunFetch,
	}
	mux.HandleFunc("/fetch/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: fh.Status,
	}))
	mux.HandleFunc("/fetch/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: fh.Run,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
