package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SearchFilters narrows a search. MaxDaysOld is bounded 1..30.
type SearchFilters struct {
	ExcludeAgencies bool `json:"exclude_agencies" yaml:"exclude_agencies"`
	MaxDaysOld      int  `json:"max_days_old" yaml:"max_days_old"`
	RemoteOnly      bool `json:"remote_only" yaml:"remote_only"`
}

// DefaultFilters matches the backend defaults.
func DefaultFilters() SearchFilters {
	return SearchFilters{ExcludeAgencies: true, MaxDaysOld: 14}
}

// SearchCriteria is the immutable input of one workflow instance.
type SearchCriteria struct {
	JobTitle        string        `json:"job_title"`
	Location        string        `json:"location"`
	ContractType    string        `json:"contract_type"`
	WorkType        string        `json:"work_type,omitempty"`
	ExperienceLevel string        `json:"experience_level"`
	Filters         SearchFilters `json:"filters"`
	CVReference     string        `json:"cv_reference,omitempty"`
}

var ErrInvalidCriteria = errors.New("invalid search criteria")

// Validate checks required fields and filter bounds. Runs before any
// network call; a failure here never reaches the remote API.
func (c SearchCriteria) Validate() error {
	required := []struct{ name, val string }{
		{"job_title", c.JobTitle},
		{"location", c.Location},
		{"contract_type", c.ContractType},
		{"experience_level", c.ExperienceLevel},
	}
	for _, f := range required {
		if strings.TrimSpace(f.val) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidCriteria, f.name)
		}
	}
	if c.Filters.MaxDaysOld < 1 || c.Filters.MaxDaysOld > 30 {
		return fmt.Errorf("%w: filters.max_days_old must be 1..30", ErrInvalidCriteria)
	}
	return nil
}
