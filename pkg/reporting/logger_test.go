package reporting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildLoggersStampIdentity(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LoggerConfig{Level: LogLevelDebug, Format: LogFormatJSON, Output: &buf})

	l.ForTournament(7).ForCore(2).Debug("target started", "pid", 123)

	out := buf.String()
	assert.Contains(t, out, `"tourn_nr":7`)
	assert.Contains(t, out, `"core":2`)
	assert.Contains(t, out, `"pid":123`)
	assert.Contains(t, out, "target started")
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LoggerConfig{Level: LogLevelWarn, Format: LogFormatJSON, Output: &buf})

	l.Info("quiet")
	l.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestEmitSurfacesMalformedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LoggerConfig{Level: LogLevelDebug, Format: LogFormatJSON, Output: &buf})

	l.Info("msg", "orphan")
	assert.Contains(t, buf.String(), "dangling_field")

	buf.Reset()
	l.Info("msg", 42, "value")
	assert.Contains(t, buf.String(), "bad_field_key")
}
