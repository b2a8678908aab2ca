package domain

// JobResult is one offer returned by the remote matching engine.
// Immutable once received; identity is ID.
type JobResult struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Company       string `json:"company"`
	Location      string `json:"location"`
	URL           string `json:"url"`
	IsRemote      bool   `json:"is_remote"`
	IsAgency      bool   `json:"is_agency"`
	SalaryWarning bool   `json:"salary_warning"`
	DatePosted    string `json:"date_posted,omitempty"`
	Source        string `json:"source,omitempty"`
}
