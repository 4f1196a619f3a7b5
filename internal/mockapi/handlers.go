package mockapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roach88/jobwatch/internal/apiclient"
)

type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, errorBody{Error: msg})
}

// activeJobs handles GET /jobs/my-active.
func (s *Server) activeJobs(c echo.Context) error {
	s.mu.Lock()
	out := apiclient.ActiveJobs{
		Count: s.activeCount(),
		Limits: apiclient.JobLimits{
			MaxConcurrent: s.opts.MaxConcurrent,
			MaxDaily:      s.opts.MaxDaily,
			CurrentDaily:  s.daily,
		},
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, envelope{Data: out})
}

// submit handles POST /simplify/external.
func (s *Server) submit(c echo.Context) error {
	var req apiclient.SimplifyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if missing := missingFields(req); missing != "" {
		return fail(c, http.StatusBadRequest, "missing "+missing)
	}
	if !req.Source.Valid() {
		return fail(c, http.StatusBadRequest, fmt.Sprintf("unsupported source %q", req.Source))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.MaxConcurrent > 0 && s.activeCount() >= s.opts.MaxConcurrent {
		return fail(c, http.StatusTooManyRequests, "too many active jobs")
	}
	if s.opts.MaxDaily > 0 && s.daily >= s.opts.MaxDaily {
		return fail(c, http.StatusTooManyRequests, "daily limit reached")
	}

	j := &job{
		id:         s.newID(),
		req:        req,
		state:      apiclient.StateWaiting,
		requestIDs: []string{c.Request().Header.Get(echo.HeaderXRequestID)},
	}
	s.jobs[j.id] = j
	s.order = append(s.order, j.id)
	s.daily++

	s.opts.Logger.Info("mock job accepted", "job_id", j.id, "external_id", req.ExternalID)
	return c.JSON(http.StatusAccepted, envelope{Data: apiclient.SubmitResult{
		JobID:     j.id,
		StreamURL: "/api/jobs/" + j.id + "/stream",
	}})
}

func missingFields(req apiclient.SimplifyRequest) string {
	var missing []string
	if req.ExternalID == "" {
		missing = append(missing, "externalId")
	}
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if req.ReadingLevel == "" {
		missing = append(missing, "readingLevel")
	}
	return strings.Join(missing, ", ")
}

// status handles GET /jobs/:id. Every call advances the job one step.
func (s *Server) status(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[c.Param("id")]
	if !ok {
		return fail(c, http.StatusNotFound, "Job not found")
	}
	j.requestIDs = append(j.requestIDs, c.Request().Header.Get(echo.HeaderXRequestID))
	s.advance(j)

	body := map[string]any{}
	stateKey := "state"
	if s.opts.LegacyStatusField {
		stateKey = "status"
	}
	body[stateKey] = j.state

	switch j.state {
	case apiclient.StateActive:
		pct, stage := s.progress(j)
		body["progress"] = pct
		body["stage"] = stage
	case apiclient.StateCompleted:
		body["progress"] = 100
		body["result"] = apiclient.JobResult{ArticleID: j.articleID}
	case apiclient.StateFailed:
		body["error"] = j.errMsg
	}

	return c.JSON(http.StatusOK, envelope{Data: body})
}

// cancel handles DELETE /jobs/:id.
func (s *Server) cancel(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[c.Param("id")]
	if !ok {
		return fail(c, http.StatusNotFound, "Job not found")
	}
	if !j.state.Terminal() {
		j.state = apiclient.StateCancelled
	}
	return c.JSON(http.StatusOK, envelope{Data: map[string]bool{"cancelled": true}})
}
