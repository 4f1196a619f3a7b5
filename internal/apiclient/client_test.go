package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api")
}

func TestClient_ActiveJobs(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/jobs/my-active", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"data":{"count":2,"limits":{"maxConcurrent":3,"maxDaily":10,"currentDaily":4}}}`))
	})

	active, err := c.ActiveJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, active.Count)
	assert.Equal(t, JobLimits{MaxConcurrent: 3, MaxDaily: 10, CurrentDaily: 4}, active.Limits)
}

func TestClient_SubmitSimplify(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/simplify/external", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "W123", body["externalId"])
		assert.Equal(t, "openalex", body["source"])
		assert.Equal(t, "beginner", body["readingLevel"])
		assert.NotContains(t, body, "doi", "empty optional fields are omitted")

		w.Write([]byte(`{"data":{"jobId":"job_123","streamUrl":"/jobs/job_123/stream"}}`))
	})

	res, err := c.SubmitSimplify(context.Background(), SimplifyRequest{
		ExternalID:   "W123",
		Source:       SourceOpenAlex,
		Title:        "Attention Is All You Need",
		Authors:      []string{"Vaswani"},
		Year:         2017,
		ReadingLevel: "beginner",
	})
	require.NoError(t, err)
	assert.Equal(t, "job_123", res.JobID)
	assert.Equal(t, "/jobs/job_123/stream", res.StreamURL)
}

func TestClient_SubmitSimplify_MissingJobID(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"streamUrl":"/x"}}`))
	})

	_, err := c.SubmitSimplify(context.Background(), SimplifyRequest{ExternalID: "W1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobId")
}

func TestClient_JobStatus(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     JobState
		progress float64
	}{
		{"state field", `{"data":{"state":"active","progress":40,"stage":"extracting_text"}}`, StateActive, 40},
		{"status alias", `{"data":{"status":"active","progress":12.5}}`, StateActive, 12.5},
		{"state wins over status", `{"data":{"state":"completed","status":"active","progress":100}}`, StateCompleted, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/jobs/job_1", r.URL.Path)
				w.Write([]byte(tt.body))
			})

			st, err := c.JobStatus(context.Background(), "job_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.State)
			require.NotNil(t, st.Progress)
			assert.Equal(t, tt.progress, *st.Progress)
		})
	}
}

func TestClient_JobStatus_Result(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"state":"completed","result":{"articleId":"art_1"}}}`))
	})

	st, err := c.JobStatus(context.Background(), "job_1")
	require.NoError(t, err)
	require.NotNil(t, st.Result)
	assert.Equal(t, "art_1", st.Result.ArticleID)
	assert.Nil(t, st.Progress)
}

func TestClient_MissingEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"active"}`))
	})

	_, err := c.JobStatus(context.Background(), "job_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		notFound    bool
		rateLimited bool
	}{
		{"not found", http.StatusNotFound, `{"error":"job not found"}`, "job not found", true, false},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, "slow down", false, true},
		{"server error without body", http.StatusInternalServerError, ``, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.JobStatus(context.Background(), "job_1")
			require.Error(t, err)

			var he *HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tt.status, he.StatusCode)
			assert.Equal(t, tt.wantMessage, he.Message)
			assert.Equal(t, tt.notFound, IsNotFound(err))
			assert.Equal(t, tt.rateLimited, IsRateLimited(err))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestClient_CancelJob_IgnoresBody(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/jobs/job_9", r.URL.Path)
		w.Write([]byte(`not json`))
	})

	require.NoError(t, c.CancelJob(context.Background(), "job_9"))
	assert.True(t, called)
}

func TestClient_Headers(t *testing.T) {
	var gotID, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"state":"active"}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithToken("secret"))
	ctx := WithRequestID(context.Background(), "trace-1")
	_, err := c.JobStatus(ctx, "job_1")
	require.NoError(t, err)

	assert.Equal(t, "trace-1", gotID)
	assert.Equal(t, "Bearer secret", gotAuth)

	// Without a context id a fresh UUID is generated.
	_, err = New(srv.URL).JobStatus(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Len(t, gotID, 36)
	assert.Empty(t, gotAuth)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).ActiveJobs(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.False(t, IsNotFound(err))
}

func TestSource_Valid(t *testing.T) {
	assert.True(t, SourceOpenAlex.Valid())
	assert.True(t, SourceScholar.Valid())
	assert.False(t, Source("arxiv").Valid())
	assert.False(t, Source("").Valid())
}

func TestJobState_Terminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateActive.Terminal())
	assert.False(t, StateWaiting.Terminal())
	assert.False(t, JobState("mystery").Terminal())
}
