// Package api is the typed client for the remote JobXpress backend. It is
// the only place that speaks HTTP to the backend; everything above it works
// with domain types and error kinds.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobxpress-engine/internal/domain"
	"jobxpress-engine/internal/netutil"
)

// TokenSource returns the bearer token for the current user. An error means
// no usable credential exists and is surfaced as an auth failure.
type TokenSource func() (string, error)

type Client struct {
	base    string
	hc      *http.Client
	limiter *netutil.HostLimiter
	token   TokenSource
}

func New(baseURL string, token TokenSource, limiter *netutil.HostLimiter) *Client {
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
		token:   token,
	}
}

type detailPayload struct {
	Detail string `json:"detail"`
}

// do performs one request against the backend: rate-limit, auth, send,
// classify. out may be nil for calls whose body is ignored.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	full := c.base + path
	if err := c.limiter.WaitURL(ctx, full); err != nil {
		return transientErr(err)
	}

	tok, err := c.token()
	if err != nil || strings.TrimSpace(tok) == "" {
		return authErr("no API credential available")
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		// context cancellation is the caller's own doing, not a remote fault
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transientErr(err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return transientErr(err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var dp detailPayload
		_ = json.Unmarshal(raw, &dp)
		return errFromStatus(res.StatusCode, dp.Detail)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return transientErr(fmt.Errorf("decode %s %s: %w", method, path, err))
		}
	}
	return nil
}

type startSearchRequest struct {
	JobTitle        string               `json:"job_title"`
	Location        string               `json:"location"`
	ContractType    string               `json:"contract_type"`
	WorkType        string               `json:"work_type,omitempty"`
	ExperienceLevel string               `json:"experience_level"`
	Filters         domain.SearchFilters `json:"filters"`
	CVURL           string               `json:"cv_url,omitempty"`
}

func (c *Client) StartSearch(ctx context.Context, crit domain.SearchCriteria) (StartSearchResponse, error) {
	req := startSearchRequest{
		JobTitle:        crit.JobTitle,
		Location:        crit.Location,
		ContractType:    crit.ContractType,
		WorkType:        crit.WorkType,
		ExperienceLevel: crit.ExperienceLevel,
		Filters:         crit.Filters,
		CVURL:           crit.CVReference,
	}
	var out StartSearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v2/search/start", req, &out); err != nil {
		return StartSearchResponse{}, err
	}
	if err := checkPhase(out.Status); err != nil {
		return StartSearchResponse{}, err
	}
	if out.ApplicationID == "" {
		return StartSearchResponse{}, transientErr(fmt.Errorf("start response missing application_id"))
	}
	return out, nil
}

// PollResults reads the status of a running search. Idempotent; the
// workflow phase travels in-band, including FAILED.
func (c *Client) PollResults(ctx context.Context, applicationID string) (PollResponse, error) {
	var out PollResponse
	path := "/api/v2/applications/" + url.PathEscape(applicationID) + "/results"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return PollResponse{}, err
	}
	if err := checkPhase(out.Status); err != nil {
		return PollResponse{}, err
	}
	return out, nil
}

type selectRequest struct {
	SelectedJobIDs []string `json:"selected_job_ids"`
}

func (c *Client) SelectJobs(ctx context.Context, applicationID string, ids []string) (SelectResponse, error) {
	var out SelectResponse
	path := "/api/v2/applications/" + url.PathEscape(applicationID) + "/select"
	if err := c.do(ctx, http.MethodPost, path, selectRequest{SelectedJobIDs: ids}, &out); err != nil {
		return SelectResponse{}, err
	}
	return out, nil
}

func (c *Client) Credits(ctx context.Context) (domain.CreditBalance, error) {
	var p creditsPayload
	if err := c.do(ctx, http.MethodGet, "/api/v2/credits", nil, &p); err != nil {
		return domain.CreditBalance{}, err
	}
	b, err := p.toDomain()
	if err != nil {
		return domain.CreditBalance{}, transientErr(err)
	}
	return b, nil
}

func (c *Client) ListApplications(ctx context.Context, limit int) ([]ApplicationSummary, error) {
	var p applicationsPayload
	path := fmt.Sprintf("/api/v2/applications?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return p.Applications, nil
}

func (c *Client) Notifications(ctx context.Context, unreadOnly bool) (NotificationsResponse, error) {
	path := "/api/v2/notifications"
	if unreadOnly {
		path += "?unread_only=true"
	}
	var out NotificationsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return NotificationsResponse{}, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path := "/api/v2/notifications/" + url.PathEscape(id) + "/read"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) AcceptNotification(ctx context.Context, id string) (AcceptResponse, error) {
	var out AcceptResponse
	path := "/api/v2/notifications/" + url.PathEscape(id) + "/accept-jobyjoba"
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return AcceptResponse{}, err
	}
	return out, nil
}

func (c *Client) ChatSession(ctx context.Context, applicationID string) (SessionResponse, error) {
	var out SessionResponse
	path := "/api/v2/chat/session/" + url.PathEscape(applicationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return SessionResponse{}, err
	}
	return out, nil
}

type chatSendRequest struct {
	Message       string `json:"message"`
	ApplicationID string `json:"application_id"`
}

func (c *Client) SendChat(ctx context.Context, applicationID, text string) (ChatSendResponse, error) {
	var out ChatSendResponse
	req := chatSendRequest{Message: text, ApplicationID: applicationID}
	if err := c.do(ctx, http.MethodPost, "/api/v2/chat/send", req, &out); err != nil {
		return ChatSendResponse{}, err
	}
	return out, nil
}
