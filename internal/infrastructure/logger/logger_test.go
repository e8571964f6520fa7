package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigs(t *testing.T) {
	dev := DefaultConfig()
	assert.Equal(t, "console", dev.Format)
	assert.Equal(t, "stdout", dev.Output)

	prod := ProductionConfig()
	assert.Equal(t, "json", prod.Format)
	assert.Equal(t, "info", prod.Level)
}

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("level is applied", func(t *testing.T) {
		l, err := New(&Config{Level: "warn", Format: "json", Output: "stderr"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger: open")
	})
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("shipment recorded")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shipment recorded"`)
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err, env)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestMasked(t *testing.T) {
	assert.Equal(t, "****cdef", Masked("app_key", "0123456789abcdef").String)
	assert.Equal(t, "****", Masked("app_key", "abc").String)
	assert.Equal(t, "", Masked("app_key", "").String)
}

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"page_size=20", "page_size=20"},
		{"app_key=abc&sign=deadbeef&timestamp=1", "app_key=abc&sign=REDACTED&timestamp=1"},
		{"ACCESS_TOKEN=t&flag", "ACCESS_TOKEN=REDACTED&flag"},
		{"refresh_token=r&code=c", "refresh_token=REDACTED&code=REDACTED"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactQuery(tt.in), tt.in)
	}
}

func TestSync(t *testing.T) {
	l, err := New(&Config{Format: "json", Output: filepath.Join(t.TempDir(), "sync.log")})
	require.NoError(t, err)
	assert.NoError(t, Sync(l))
}
