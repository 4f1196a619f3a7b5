package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole_Lifecycle(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewConsole(buf)

	loading := c.Loading("Starting simplification...")
	c.HideToast(loading)

	h := c.Progress("Simplifying: Paper", 0)
	p := 40
	c.UpdateToast(h, Update{Progress: &p})
	c.UpdateToast(h, Update{Message: "Extracting text"})
	assert.Equal(t, 1, c.Visible())

	c.HideToast(h)
	c.Success("Article ready!")
	c.Error("boom")

	want := "[1] ... Starting simplification...\n" +
		"[2]   0% Simplifying: Paper\n" +
		"[2]  40% Simplifying: Paper\n" +
		"[2]  40% Extracting text\n" +
		"ok  Article ready!\n" +
		"err boom\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 0, c.Visible())
}

func TestConsole_UpdateUnknownHandle(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewConsole(buf)

	c.UpdateToast(Handle(99), Update{Message: "ignored"})
	c.HideToast(Handle(99))

	assert.Empty(t, buf.String())
}

func TestConsole_HideTwice(t *testing.T) {
	c := NewConsole(&bytes.Buffer{})
	h := c.Loading("x")
	c.HideToast(h)
	c.HideToast(h)
	assert.Equal(t, 0, c.Visible())
}

func TestConsoleRouter_Push(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewConsoleRouter(buf)

	assert.Equal(t, "", r.Last())
	r.Push("/article/art_1")

	assert.Equal(t, "/article/art_1", r.Last())
	assert.Equal(t, "->  open /article/art_1\n", buf.String())
}
