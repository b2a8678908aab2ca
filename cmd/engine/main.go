package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/chat"
	"jobxpress-engine/internal/config"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/domain"
	"jobxpress-engine/internal/events"
	"jobxpress-engine/internal/httpapi"
	"jobxpress-engine/internal/netutil"
	"jobxpress-engine/internal/notify"
	"jobxpress-engine/internal/preview"
	"jobxpress-engine/internal/scheduler"
	"jobxpress-engine/internal/secrets"
	"jobxpress-engine/internal/store"
	"jobxpress-engine/internal/workflow"
)

func main() {
	// .env is optional; a dev shell uses it to point at a staging backend.
	_ = godotenv.Load()

	// Engine data dir: use env if provided (the desktop shell passes one),
	// else local folder.
	dataDir := os.Getenv("JOBXPRESS_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir. A second instance would fight over the
	// sqlite file and confuse the UI.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance already owns %s", dataDir)
	}
	defer lock.Unlock()

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
		config.ApplyEnv(&cfg)
		normalized, vr := config.NormalizeAndValidate(cfg)
		if !vr.OK() {
			return cfg, fmt.Errorf("config invalid: %v", vr.Errors)
		}
		for _, warn := range vr.Warnings {
			log.Printf("[config] level=warn msg=%q", warn)
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "jobxpress.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	backendHost := hostOf(cfg.Remote.BaseURL)
	tokenSource := func() (string, error) {
		return secrets.GetAPIToken(secrets.TokenAccount(backendHost))
	}

	limiter := netutil.NewHostLimiter(cfg.Remote.RequestsPerSecond, cfg.Remote.Burst)
	client := api.New(cfg.Remote.BaseURL, tokenSource, limiter)

	ledger := credits.NewLedger(client)
	ledger.OnChange = func(bal domain.CreditBalance) {
		hub.Publish(events.MakeEvent("", events.TypeCreditsChanged, 1, bal))
	}

	machine := workflow.NewMachine(client, ledger, workflow.Config{
		PollInterval:    time.Duration(cfg.Polling.ResultsSeconds) * time.Second,
		MaxPollAttempts: cfg.Polling.MaxAttempts,
	})
	machine.OnPhase = func(snap workflow.Snapshot) {
		hub.Publish(events.MakeEvent("", events.TypeWorkflowPhase, 1, snap))
		if snap.ApplicationID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := store.UpsertApplication(ctx, db.Pool, store.ApplicationRow{
			ID:            snap.ApplicationID,
			JobTitle:      snap.JobTitle,
			Location:      snap.Location,
			Phase:         string(snap.Phase),
			Error:         snap.Error,
			SelectedCount: len(snap.SelectedIDs),
		})
		if err != nil {
			log.Printf("[store] level=error msg=\"history upsert failed\" err=%v", err)
		}
	}

	chatMgr := chat.NewManager(client)
	chatMgr.OnExhausted = func(applicationID string) {
		hub.Publish(events.MakeEvent("", events.TypeChatExhausted, 1,
			map[string]string{"application_id": applicationID}))
	}

	center := notify.NewCenter(client, ledger)
	center.OnNew = func(n domain.Notification) {
		hub.Publish(events.MakeEvent("", events.TypeNotificationNew, 1, n))
	}

	previewer := preview.NewFetcher(limiter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background refresh: balance and notifications on the same cadence.
	// Both hit the backend, so run them together under one errgroup and
	// let a failure of one never starve the other.
	go scheduler.Every(ctx, time.Duration(cfg.Polling.RefreshSeconds)*time.Second, "refresh", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := ledger.Fetch(gctx)
			return err
		})
		g.Go(func() error {
			return center.Refresh(gctx)
		})
		return g.Wait()
	})

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		Machine:     machine,
		Ledger:      ledger,
		Chat:        chatMgr,
		Notify:      center,
		Preview:     previewer,
		Remote:      client,
		SetToken: func(token string) error {
			return secrets.SetAPIToken(secrets.TokenAccount(backendHost), token)
		},
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.Recover,
			httpapi.AccessLog,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// /shutdown is guarded by a per-run token handed to the desktop shell
	// on stdout.
	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	log.Printf("[engine] listening on http://%s (data_dir=%s)", addr, dataDir)
	announce(addr, shutdownToken)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("[engine] stopped")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// announce prints a single machine-readable line so the shell process that
// spawned the engine can find it.
func announce(addr, shutdownToken string) {
	b, _ := json.Marshal(map[string]string{
		"addr":           addr,
		"shutdown_token": shutdownToken,
	})
	fmt.Println(string(b))
}
