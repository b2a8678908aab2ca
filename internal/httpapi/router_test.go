package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/chat"
	"jobxpress-engine/internal/config"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/events"
	"jobxpress-engine/internal/netutil"
	"jobxpress-engine/internal/notify"
	"jobxpress-engine/internal/workflow"
)

// testServer wires a full engine API around a dead backend. Everything that
// would hit the network is gated locally in these tests.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	client := api.New("http://127.0.0.1:1",
		func() (string, error) { return "tok", nil },
		netutil.NewHostLimiter(1000, 1000))
	ledger := credits.NewLedger(client) // never fetched: every precheck refuses

	var cfgVal atomic.Value
	cfg, _ := config.NormalizeAndValidate(func() config.Config {
		var c config.Config
		c.App.Port = 8787
		c.Remote.BaseURL = "http://127.0.0.1:1"
		c.Remote.RequestsPerSecond = 2
		c.Remote.Burst = 4
		c.Polling.ResultsSeconds = 2
		c.Polling.MaxAttempts = 30
		c.Polling.RefreshSeconds = 60
		return c
	}())
	cfgVal.Store(cfg)

	mux := NewMux(Deps{
		Hub:     events.NewHub(),
		CfgVal:  &cfgVal,
		Machine: workflow.NewMachine(client, ledger, workflow.Config{}),
		Ledger:  ledger,
		Chat:    chat.NewManager(client),
		Notify:  notify.NewCenter(client, ledger),
		Remote:  client,
	})

	srv := httptest.NewServer(Chain(mux, RequestID, Recover, AccessLog))
	t.Cleanup(srv.Close)
	return srv
}

func decodeAPIError(t *testing.T, res *http.Response) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.NewDecoder(res.Body).Decode(&e))
	return e
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, 200, res.StatusCode)
}

func TestWorkflowSnapshotStartsCollecting(t *testing.T) {
	srv := testServer(t)
	res, err := http.Get(srv.URL + "/workflow")
	require.NoError(t, err)
	defer res.Body.Close()

	var snap workflow.Snapshot
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	assert.Equal(t, "COLLECTING", string(snap.Phase))
}

func TestStartWithoutCreditsIs402(t *testing.T) {
	srv := testServer(t)
	body := `{"job_title":"Backend Engineer","location":"Lyon","contract_type":"CDI","experience_level":"senior","filters":{"max_days_old":14}}`
	res, err := http.Post(srv.URL+"/workflow/start", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, res.StatusCode)
	e := decodeAPIError(t, res)
	assert.Equal(t, "insufficient_credits", e.Error.Code)
	assert.NotEmpty(t, e.Error.RequestID)
}

func TestStartWithBadCriteriaIs400(t *testing.T) {
	srv := testServer(t)
	res, err := http.Post(srv.URL+"/workflow/start", "application/json", strings.NewReader(`{"job_title":""}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_criteria", decodeAPIError(t, res).Error.Code)
}

func TestToggleOutsideSelectionPhaseIs409(t *testing.T) {
	srv := testServer(t)
	res, err := http.Post(srv.URL+"/workflow/toggle", "application/json", strings.NewReader(`{"job_id":"j1"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "invalid_phase", decodeAPIError(t, res).Error.Code)
}

func TestChatSendWithoutSessionIs404(t *testing.T) {
	srv := testServer(t)
	res, err := http.Post(srv.URL+"/chat/send", "application/json", strings.NewReader(`{"text":"hello"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "chat_unavailable", decodeAPIError(t, res).Error.Code)
}

func TestNotificationAcceptUnknownIs404(t *testing.T) {
	srv := testServer(t)
	res, err := http.Post(srv.URL+"/notifications/ghost/accept", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "unknown_notification", decodeAPIError(t, res).Error.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t)
	res, err := http.Post(srv.URL+"/workflow", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestRequestIDEchoed(t *testing.T) {
	srv := testServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/workflow", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "fixed-id", res.Header.Get("X-Request-ID"))
}
