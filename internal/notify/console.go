package notify

import (
	"fmt"
	"io"
	"sync"
)

// Console renders notifications as lines of text.
//
// Every visible notification is prefixed with its handle so interleaved
// output from several jobs stays readable:
//
//	[1] ... Starting simplification...
//	[2]  40% Extracting text
//	ok  Article ready!
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	next    Handle
	visible map[Handle]*consoleToast
}

type consoleToast struct {
	message  string
	progress int
	hasBar   bool
}

// NewConsole creates a console notifier writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:       w,
		visible: make(map[Handle]*consoleToast),
	}
}

// Loading implements Notifier.
func (c *Console) Loading(message string) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.issue(&consoleToast{message: message})
	fmt.Fprintf(c.w, "[%d] ... %s\n", h, message)
	return h
}

// Progress implements Notifier.
func (c *Console) Progress(message string, percent int) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &consoleToast{message: message, progress: percent, hasBar: true}
	h := c.issue(t)
	c.render(h, t)
	return h
}

// UpdateToast implements Notifier.
func (c *Console) UpdateToast(h Handle, u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.visible[h]
	if !ok {
		return
	}
	if u.Message != "" {
		t.message = u.Message
	}
	if u.Progress != nil {
		t.progress = *u.Progress
		t.hasBar = true
	}
	c.render(h, t)
}

// HideToast implements Notifier.
func (c *Console) HideToast(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.visible, h)
}

// Success implements Notifier.
func (c *Console) Success(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "ok  %s\n", message)
}

// Error implements Notifier.
func (c *Console) Error(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "err %s\n", message)
}

// Visible returns the number of notifications currently shown.
func (c *Console) Visible() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.visible)
}

func (c *Console) issue(t *consoleToast) Handle {
	c.next++
	c.visible[c.next] = t
	return c.next
}

func (c *Console) render(h Handle, t *consoleToast) {
	if t.hasBar {
		fmt.Fprintf(c.w, "[%d] %3d%% %s\n", h, t.progress, t.message)
		return
	}
	fmt.Fprintf(c.w, "[%d] ... %s\n", h, t.message)
}

// ConsoleRouter prints navigation targets instead of navigating.
type ConsoleRouter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

// NewConsoleRouter creates a router writing to w.
func NewConsoleRouter(w io.Writer) *ConsoleRouter {
	return &ConsoleRouter{w: w}
}

// Push implements Router.
func (r *ConsoleRouter) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = path
	fmt.Fprintf(r.w, "->  open %s\n", path)
}

// Last returns the most recent path pushed, or "".
func (r *ConsoleRouter) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
