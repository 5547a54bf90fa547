package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriterLoggerFormatsLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	l.LogAPI("POST", "/api/bookings", 201, 12*time.Millisecond)
	l.LogBooking("CREATE", "b-1", "2 tickets on e-1")

	out := buf.String()
	assert.Contains(t, out, "[API       ]")
	assert.Contains(t, out, "POST /api/bookings - 201 (12ms)")
	assert.Contains(t, out, "[CREATE] b-1 - 2 tickets on e-1")
}

func TestMinLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)
	l.minLevel = WARN

	l.Info("APP", "hidden")
	l.Warn("APP", "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, ERROR, parseLevel("error"))
	assert.Equal(t, WARN, parseLevel("WARN"))
	assert.Equal(t, DEBUG, parseLevel(""))
	assert.Equal(t, DEBUG, parseLevel("verbose"))
}
