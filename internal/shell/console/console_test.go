package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixes(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithColor(&buf, false)

	c.Status("preparing %s", "filesystem")
	c.Success("stack is up")
	c.Warning("network already exists")
	c.Error("settings file not found")

	out := buf.String()
	assert.Contains(t, out, "[INFO] preparing filesystem\n")
	assert.Contains(t, out, "[ OK ] stack is up\n")
	assert.Contains(t, out, "[WARNING] network already exists\n")
	assert.Contains(t, out, "[ERROR] settings file not found\n")
	assert.NotContains(t, out, "\033[")
}

func TestColorOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithColor(&buf, true)

	c.Warning("slow DNS")
	assert.Contains(t, buf.String(), colorYellow)
	assert.Contains(t, buf.String(), colorReset)
}

func TestNonTTYDisablesColor(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	c.Success("done")
	assert.NotContains(t, buf.String(), "\033[")
}
