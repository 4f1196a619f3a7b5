// Package notify defines the toast and navigation surfaces the job tracker
// reports through, plus a console implementation for the CLI.
package notify

// Handle identifies one visible notification. The zero Handle is never issued.
type Handle int64

// Update changes a visible notification in place.
// An empty Message keeps the current text; a nil Progress keeps the current percentage.
type Update struct {
	Message  string
	Progress *int
}

// Notifier shows user-facing notifications.
//
// Implementations must be safe for concurrent use: every tracked job reports
// from its own goroutine.
type Notifier interface {
	// Loading shows an indeterminate notification.
	Loading(message string) Handle

	// Progress shows a notification with a percentage (0-100).
	Progress(message string, percent int) Handle

	// UpdateToast changes a visible notification. Unknown handles are ignored.
	UpdateToast(h Handle, u Update)

	// HideToast removes a notification. Hiding twice is a no-op.
	HideToast(h Handle)

	// Success shows a transient success message.
	Success(message string)

	// Error shows a transient error message.
	Error(message string)
}

// Router navigates the application to a path.
type Router interface {
	Push(path string)
}

// NopRouter ignores navigation.
type NopRouter struct{}

// Push implements Router.
func (NopRouter) Push(string) {}
