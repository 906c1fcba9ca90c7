package jobs

import "time"

const (
	KindRefresh        = "refresh"
	KindBulkRefresh    = "bulk_refresh"
	KindDiscoverSeries = "discover_series"
	KindImport         = "import"
)

const (
	startingMessage = "Starting..."
	unknownMessage  = "Unknown process"
)

// Status is a snapshot of a background job's progress.
type Status struct {
	Percent    int       `json:"percent"`
	Message    string    `json:"message"`
	IsComplete bool      `json:"isComplete"`
	IsError    bool      `json:"isError"`
	Kind       string    `json:"kind,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (s Status) Done() bool {
	return s.IsComplete || s.IsError
}

// StartedResponse is returned by every endpoint that kicks off a job.
type StartedResponse struct {
	Success   bool   `json:"success"`
	ProcessID string `json:"processId"`
}
