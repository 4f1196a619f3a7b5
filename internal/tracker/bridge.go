package tracker

import (
	"fmt"
	"net/url"

	"github.com/roach88/jobwatch/internal/apiclient"
)

const msgArticleReady = "Article ready!"

// ArticlePath is the route of a simplified article.
func ArticlePath(articleID string) string {
	return "/article/" + url.PathEscape(articleID)
}

// handleCompleted finishes a successful job. No-op if the job is no longer
// tracked (already handled or cancelled).
func (e *Engine) handleCompleted(jobID string, status *apiclient.JobStatus) {
	t, ok := e.registry.Take(jobID)
	if !ok {
		return
	}
	t.halt()
	e.notifier.HideToast(t.Handle)

	var articleID string
	if status != nil && status.Result != nil {
		articleID = status.Result.ArticleID
	}

	msg := msgArticleReady
	if articleID != "" {
		e.router.Push(ArticlePath(articleID))
	} else {
		msg = fmt.Sprintf("%q has been simplified.", t.Title)
	}
	e.notifier.Success(msg)

	e.emit(t, LifecycleEvent{Kind: EventCompleted, ArticleID: articleID, Message: msg})
	e.logger.Info("job completed", "job_id", jobID, "article_id", articleID)
}

// handleFailed finishes a failed job with a user-facing message. No-op if
// the job is no longer tracked.
func (e *Engine) handleFailed(jobID, message string, cause error) {
	t, ok := e.registry.Take(jobID)
	if !ok {
		return
	}
	t.halt()
	e.notifier.HideToast(t.Handle)
	e.notifier.Error(message)

	e.emit(t, LifecycleEvent{Kind: EventFailed, Message: message})
	e.logger.Warn("job failed", "job_id", jobID, "error", cause)
}
