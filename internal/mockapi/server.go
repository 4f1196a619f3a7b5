// Package mockapi is an in-process simulation of the reading API's job
// endpoints. It backs `jobwatch mock-server` and the end-to-end tests.
//
// Jobs advance one step per status poll rather than by wall clock, so a
// client polling with a fake timer sees a deterministic progression.
package mockapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/roach88/jobwatch/internal/apiclient"
)

// FailPrefix marks a paper whose job fails halfway: any externalId starting
// with it.
const FailPrefix = "fail:"

// FailureMessage is the error reported for FailPrefix jobs.
const FailureMessage = "Could not extract text from PDF"

// stages are reported in order as a job advances.
var stages = []string{"extracting_text", "simplifying", "generating_quiz"}

// Options configures a Server.
type Options struct {
	// MaxConcurrent and MaxDaily are the per-user limits. Zero is unlimited.
	MaxConcurrent int
	MaxDaily      int

	// Steps is the number of status polls a job takes to complete.
	Steps int

	// Token, when set, is required as a bearer token on every request.
	Token string

	// LegacyStatusField reports job state under "status" instead of "state".
	LegacyStatusField bool

	Logger *slog.Logger
}

// DefaultOptions returns 3 concurrent / 10 daily jobs, 4 steps each.
func DefaultOptions() Options {
	return Options{MaxConcurrent: 3, MaxDaily: 10, Steps: 4}
}

type job struct {
	id         string
	req        apiclient.SimplifyRequest
	polls      int
	state      apiclient.JobState
	articleID  string
	errMsg     string
	requestIDs []string
}

// Server is the simulated backend.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Server struct {
	opts Options
	echo *echo.Echo

	mu    sync.Mutex
	jobs  map[string]*job
	order []string
	daily int
	newID func() string
}

// New builds a Server with its routes mounted under /api.
func New(opts Options) *Server {
	if opts.Steps < 1 {
		opts.Steps = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:  opts,
		jobs:  make(map[string]*job),
		newID: uuid.NewString,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			opts.Logger.Debug("mock request",
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency", v.Latency, "request_id", v.RequestID)
			return nil
		},
	}))

	api := e.Group("/api")
	if opts.Token != "" {
		api.Use(middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
			return key == opts.Token, nil
		}))
	}
	api.GET("/jobs/my-active", s.activeJobs)
	api.POST("/simplify/external", s.submit)
	api.GET("/jobs/:id", s.status)
	api.DELETE("/jobs/:id", s.cancel)

	s.echo = e
	return s
}

// ServeHTTP lets the Server back an httptest.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.opts.Logger.Info("mock API listening", "addr", addr, "base", "/api")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// JobView is a read-only snapshot of a simulated job.
type JobView struct {
	ID         string
	ExternalID string
	Title      string
	State      apiclient.JobState
	Polls      int
	RequestIDs []string
}

// Job returns a snapshot of job id.
func (s *Server) Job(id string) (JobView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return j.view(), true
}

// Jobs returns every job in submission order.
func (s *Server) Jobs() []JobView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobView, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].view())
	}
	return out
}

func (j *job) view() JobView {
	return JobView{
		ID:         j.id,
		ExternalID: j.req.ExternalID,
		Title:      j.req.Title,
		State:      j.state,
		Polls:      j.polls,
		RequestIDs: append([]string(nil), j.requestIDs...),
	}
}

// activeCount must be called with mu held.
func (s *Server) activeCount() int {
	n := 0
	for _, j := range s.jobs {
		if !j.state.Terminal() {
			n++
		}
	}
	return n
}

// advance moves j one poll forward. Must be called with mu held.
func (s *Server) advance(j *job) {
	if j.state.Terminal() {
		return
	}
	j.polls++

	if strings.HasPrefix(j.req.ExternalID, FailPrefix) && j.polls*2 >= s.opts.Steps {
		j.state = apiclient.StateFailed
		j.errMsg = FailureMessage
		return
	}
	if j.polls >= s.opts.Steps {
		j.state = apiclient.StateCompleted
		j.articleID = "art_" + j.id
		return
	}
	j.state = apiclient.StateActive
}

// progress reports j's completion percentage and stage. Must be called
// with mu held.
func (s *Server) progress(j *job) (float64, string) {
	pct := float64(j.polls) * 100 / float64(s.opts.Steps)
	idx := j.polls * len(stages) / s.opts.Steps
	if idx >= len(stages) {
		idx = len(stages) - 1
	}
	return pct, stages[idx]
}
