package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "cinepos/internal/log"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	t.Cleanup(func() {
		stdlog.SetOutput(prevOut)
		stdlog.SetFlags(prevFlags)
	})
	return &buf
}

func TestError_WritesJSONLine(t *testing.T) {
	buf := capture(t)
	applog.Error("sale.create", errors.New("boom"), map[string]any{"sale_id": "s-1", "stage": "stock"})

	var got map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got))
	assert.Equal(t, "error", got["level"])
	assert.Equal(t, "sale.create", got["action"])
	assert.Equal(t, "boom", got["err"])
	assert.Equal(t, "s-1", got["sale_id"])
	assert.Equal(t, map[string]any{"stage": "stock"}, got["fields"])
}

func TestDebug_Gated(t *testing.T) {
	buf := capture(t)
	applog.Debug("cache.hit", nil)
	assert.Empty(t, buf.String())

	applog.SetDebug(true)
	t.Cleanup(func() { applog.SetDebug(false) })
	applog.Debug("cache.hit", map[string]any{"id": "A1"})
	assert.True(t, strings.Contains(buf.String(), `"level":"debug"`))
}

func TestSecurity_IsWarn(t *testing.T) {
	buf := capture(t)
	applog.Security("sale.return_repeat", map[string]any{"sale_id": "s-1"})

	var got map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "s-1", got["sale_id"])
}
