package config

import (
	"fmt"
	"net/url"
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

// NormalizeAndValidate returns a normalized copy plus everything a careful
// operator should hear about before the config is saved.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(out.Remote.BaseURL), "/")

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Remote.BaseURL == "" {
		res.addErr("remote.base_url is required")
	} else {
		u, err := url.Parse(out.Remote.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.addErr("remote.base_url must be an http(s) URL")
		} else if u.Scheme == "http" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
			res.addWarn("remote.base_url uses plain http to a non-local host; the bearer token travels in clear.")
		}
	}

	if out.Remote.RequestsPerSecond <= 0 {
		res.addErr("remote.requests_per_second must be > 0")
	}
	if out.Remote.Burst <= 0 {
		res.addErr("remote.burst must be > 0")
	}

	// polling sanity
	if out.Polling.ResultsSeconds <= 0 {
		res.addErr("polling.results_seconds must be > 0")
	} else if out.Polling.ResultsSeconds < 2 {
		res.addWarn("polling.results_seconds below 2 hammers the backend for no benefit.")
	}
	if out.Polling.MaxAttempts <= 0 {
		res.addErr("polling.max_attempts must be > 0")
	} else if out.Polling.MaxAttempts > 120 {
		res.addWarn("polling.max_attempts is very high (%d); a stuck search will spin for a long time.", out.Polling.MaxAttempts)
	}
	if out.Polling.RefreshSeconds <= 0 {
		res.addErr("polling.refresh_seconds must be > 0")
	} else if out.Polling.RefreshSeconds < 15 {
		res.addWarn("polling.refresh_seconds is very low (%d) and may cause rate limits.", out.Polling.RefreshSeconds)
	}

	if out.History.Limit < 0 {
		res.addErr("history.limit must be >= 0")
	}
	if out.History.Limit == 0 {
		out.History.Limit = 20
	}

	return out, res
}
