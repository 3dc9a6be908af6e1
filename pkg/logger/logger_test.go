package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel).With("component", "optimizer")

	l.Info("sweep done",
		String("symbol", "AAPL"),
		Int("candidates", 73),
		Float64("multiple", 1.25),
		Bool("cached", false),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)
	l.Debug("dropped below level")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "sweep done", line["message"])
	assert.Equal(t, "optimizer", line["component"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Equal(t, 73.0, line["candidates"])
	assert.Equal(t, 1.25, line["multiple"])
	assert.Equal(t, 1500.0, line["took"])
	assert.Equal(t, "boom", line["error"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}
