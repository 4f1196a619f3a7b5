package apiclient

import "encoding/json"

// Source identifies the catalogue an external paper comes from.
type Source string

const (
	SourceOpenAlex Source = "openalex"
	SourceScholar  Source = "scholar"
)

// Valid reports whether s is a source the simplify endpoint accepts.
func (s Source) Valid() bool {
	return s == SourceOpenAlex || s == SourceScholar
}

// ActiveJobs is the payload of GET /jobs/my-active.
type ActiveJobs struct {
	Count  int       `json:"count"`
	Limits JobLimits `json:"limits"`
}

// JobLimits are the per-user limits reported by the server.
// A zero maximum means the server did not report that limit.
type JobLimits struct {
	MaxConcurrent int `json:"maxConcurrent"`
	MaxDaily      int `json:"maxDaily"`
	CurrentDaily  int `json:"currentDaily"`
}

// SimplifyRequest is the body of POST /simplify/external.
type SimplifyRequest struct {
	ExternalID     string   `json:"externalId"`
	Source         Source   `json:"source"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Year           int      `json:"year"`
	Abstract       string   `json:"abstract,omitempty"`
	PDFURL         string   `json:"pdfUrl,omitempty"`
	LandingPageURL string   `json:"landingPageUrl,omitempty"`
	DOI            string   `json:"doi,omitempty"`
	ReadingLevel   string   `json:"readingLevel"`
	CitationCount  *int     `json:"citationCount,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	CategoryName   string   `json:"categoryName,omitempty"`
}

// SubmitResult is returned when the server accepts a simplify job.
type SubmitResult struct {
	JobID     string `json:"jobId"`
	StreamURL string `json:"streamUrl"`
}

// JobState is the server-side state of a job.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateDelayed   JobState = "delayed"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether no further status changes are expected.
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// JobResult carries the output of a completed job.
type JobResult struct {
	ArticleID string `json:"articleId,omitempty"`
}

// JobStatus is one snapshot of GET /jobs/{jobId}.
type JobStatus struct {
	State    JobState   `json:"state"`
	Progress *float64   `json:"progress,omitempty"`
	Stage    string     `json:"stage,omitempty"`
	Result   *JobResult `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// UnmarshalJSON accepts "status" as an alias of "state". Some queue
// backends report the field under that name.
func (s *JobStatus) UnmarshalJSON(b []byte) error {
	type plain JobStatus
	var aux struct {
		plain
		Status JobState `json:"status"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = JobStatus(aux.plain)
	if s.State == "" {
		s.State = aux.Status
	}
	return nil
}

// envelope is the canonical {"data": ...} wrapper of every response.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// errorBody is the shape of a non-2xx response body.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
