package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetVerbose(false)
	})
	return &buf
}

func TestDebugRequiresVerbose(t *testing.T) {
	buf := capture(t)

	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestWarnAndErrorAlwaysPrint(t *testing.T) {
	buf := capture(t)

	Warn("retrying %s", "acme/widgets")
	Error("gave up on %s", "acme/widgets")
	Info("plain %s", "line")

	out := buf.String()
	assert.Contains(t, out, "retrying acme/widgets")
	assert.Contains(t, out, "gave up on acme/widgets")
	assert.Contains(t, out, "  plain line\n")
}
