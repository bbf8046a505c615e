package cascadelog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: WarnLevel, Format: TextFormat, Output: &buf})

	logger.Info("should not appear")
	assert.Empty(t, buf.String())

	logger.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestLoggerRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: InfoLevel, Format: TextFormat, Output: &buf, Redact: true})

	logger.Info("issued credential", map[string]interface{}{"salt": "deadbeef", "layer": 3})

	out := buf.String()
	assert.NotContains(t, out, "deadbeef")
	assert.Contains(t, out, "salt=[REDACTED]")
	assert.Contains(t, out, "layer=3")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})

	logger.Info("hello")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}

func TestFieldLoggerCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: InfoLevel, Format: TextFormat, Output: &buf})

	logger.WithField("request_id", "abc123").Info("handled request")
	assert.Contains(t, buf.String(), "request_id=abc123")
}
