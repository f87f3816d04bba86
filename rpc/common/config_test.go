package common

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := DecodeServerConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultServerConfig(), config)
		assert.Equal(t, 100*time.Second, config.IdleTimeout)
	})

	t.Run("StringValues", func(t *testing.T) {
		// values as they arrive from environment variables
		config, err := DecodeServerConfig(map[string]any{
			"endpoint":          "127.0.0.1:0",
			"workers":           "4",
			"idle-timeout":      "30s",
			"shutdown-timeout":  time.Minute,
			"tcp-nodelay":       "false",
			"backend":           "pebble",
			"data-dir":          "/tmp/drec",
			"saturation-policy": "block",
			"unrelated-flag":    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:0", config.Endpoint)
		assert.Equal(t, 4, config.Workers)
		assert.Equal(t, 30*time.Second, config.IdleTimeout)
		assert.Equal(t, time.Minute, config.ShutdownTimeout)
		assert.False(t, config.TCPNoDelay)
		assert.Equal(t, BackendPebble, config.Backend)
		assert.Equal(t, SaturationBlock, config.SaturationPolicy)
		// untouched values keep their default
		assert.Equal(t, 100, config.Backlog)
	})

	t.Run("Invalid", func(t *testing.T) {
		tests := map[string]map[string]any{
			"no workers":         {"workers": 0},
			"unknown backend":    {"backend": "mysql"},
			"missing data dir":   {"backend": "badger"},
			"unknown policy":     {"saturation-policy": "drop"},
			"bad endpoint":       {"endpoint": "localhost"},
			"bad port":           {"endpoint": "localhost:99999"},
			"bad metrics":        {"metrics-endpoint": "metrics"},
			"bad log level":      {"log-level": "trace"},
			"negative idle":      {"idle-timeout": "-1s"},
			"tiny line limit":    {"max-line-bytes": 10},
			"unparsable timeout": {"idle-timeout": "soon"},
		}
		for name, settings := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := DecodeServerConfig(settings)
				assert.Error(t, err)
			})
		}
	})

	t.Run("String", func(t *testing.T) {
		config := DefaultServerConfig()
		out := config.String()
		assert.Contains(t, out, "WORKER POOL")
		assert.Contains(t, out, "0.0.0.0:12345")
		assert.Contains(t, out, "caller-runs")
		assert.NotContains(t, out, "Data Directory")
	})
}

func TestDecodeClientConfig(t *testing.T) {
	config, err := DecodeClientConfig(map[string]any{"timeout": "2s"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:12345", config.Endpoint)
	assert.Equal(t, 2*time.Second, config.Timeout)

	_, err = DecodeClientConfig(map[string]any{"timeout": 0})
	assert.Error(t, err)
	_, err = DecodeClientConfig(map[string]any{"endpoint": ""})
	assert.Error(t, err)
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionInsert, ParseAction(" insert "))
	assert.True(t, ParseAction("Quit").Known())
	assert.False(t, ParseAction("DROP").Known())
	assert.False(t, ParseAction("").Known())
}

func TestPayloadGet(t *testing.T) {
	p := Payload{"id": []byte("1"), "name": []byte("null")}
	_, ok := p.Get("id")
	assert.True(t, ok)
	_, ok = p.Get("name")
	assert.False(t, ok, "null is absent")
	_, ok = p.Get("gpa")
	assert.False(t, ok)
	assert.True(t, Payload(nil).Empty())
}

func TestLogger(t *testing.T) {
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)

	var out bytes.Buffer
	l := &dRecLogger{name: "test", level: logger.WARNING, logger: log.New(&out, "", 0)}
	l.Infof("hidden")
	l.Warningf("shown %d", 1)
	assert.Equal(t, "WARN  | test            | shown 1\n", out.String())

	l.SetLevel(logger.DEBUG)
	l.Debugf("now visible")
	assert.Contains(t, out.String(), "DEBUG | test            | now visible")
}
