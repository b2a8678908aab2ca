package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Health
	hh := HealthHandler{Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Workflow
	wh := WorkflowHandler{Machine: d.Machine}
	mux.HandleFunc("/workflow", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: wh.Get,
	}))
	mux.HandleFunc("/workflow/start", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: wh.Start,
	}))
	mux.HandleFunc("/workflow/toggle", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: wh.Toggle,
	}))
	mux.HandleFunc("/workflow/confirm", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: wh.Confirm,
	}))
	mux.HandleFunc("/workflow/restart", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: wh.Restart,
	}))

	// Credits
	crh := CreditsHandler{Ledger: d.Ledger}
	mux.HandleFunc("/credits", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: crh.Get,
	}))

	// Notifications
	nh := NotificationsHandler{Center: d.Notify}
	mux.HandleFunc("/notifications", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: nh.List,
	}))
	mux.HandleFunc("/notifications/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: nh.Refresh,
	}))
	mux.HandleFunc("/notifications/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: nh.ActByPath, // /notifications/{id}/read | /notifications/{id}/accept
	}))

	// Chat
	chh := ChatHandler{Chat: d.Chat}
	mux.HandleFunc("/chat", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: chh.Get,
	}))
	mux.HandleFunc("/chat/load", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: chh.Load,
	}))
	mux.HandleFunc("/chat/send", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: chh.Send,
	}))
	mux.HandleFunc("/chat/reset", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: chh.Reset,
	}))

	// Applications (local history + remote listing)
	ah := ApplicationsHandler{DB: d.DB, CfgVal: d.CfgVal, Remote: d.Remote}
	mux.HandleFunc("/applications", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.List,
	}))
	mux.HandleFunc("/applications/remote", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.ListRemote,
	}))

	// Job page preview
	ph := PreviewHandler{Fetcher: d.Preview}
	mux.HandleFunc("/preview", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Get,
	}))

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

	// Secrets
	sh := SecretsHandler{SetToken: d.SetToken}
	mux.HandleFunc("/api/secrets/token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetAPIToken,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// DB maintenance
	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	return mux
}
