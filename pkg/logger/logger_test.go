package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{input: "error", expected: LevelError},
		{input: "WARN", expected: LevelWarn},
		{input: "warning", expected: LevelWarn},
		{input: "info", expected: LevelInfo},
		{input: "", expected: LevelInfo},
		{input: " debug ", expected: LevelDebug},
		{input: "verbose", expected: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("router", LevelWarn, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 3")
	assert.Contains(t, out, "shown 4")
	assert.Contains(t, out, "component=router")
}

func TestNamedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("main", LevelInfo, &buf)
	l.Named("proxy").WithField("zone", "zone-one").Info("forwarding")

	out := buf.String()
	assert.Contains(t, out, "component=proxy")
	assert.Contains(t, out, "zone=zone-one")
	assert.Contains(t, out, "forwarding")
}

func TestLogWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("proxy", LevelDebug, &buf)
	std := log.New(NewLogWriter(l, LevelError), "", 0)

	std.Printf("upstream dial failed\n")
	std.Printf("   ")

	out := buf.String()
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "upstream dial failed")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}
