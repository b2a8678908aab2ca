package httpapi

import (
	"database/sql"
	"sync/atomic"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/chat"
	"jobxpress-engine/internal/config"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/events"
	"jobxpress-engine/internal/notify"
	"jobxpress-engine/internal/preview"
	"jobxpress-engine/internal/workflow"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic store
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Domain services
	Machine *workflow.Machine
	Ledger  *credits.Ledger
	Chat    *chat.Manager
	Notify  *notify.Center
	Preview *preview.Fetcher
	Remote  *api.Client

	// Secret persistence (inject for testability)
	SetToken func(token string) error
}
