package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPath(t *testing.T) {
	config, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DefaultActionTimeout, config.Timeouts.Action)
	assert.Equal(t, DefaultWorkflowTimeout, config.Timeouts.Workflow)
	assert.Empty(t, config.Schedules)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeouts:
  action: 5s
schedules:
  - name: nightly-stale-leads
    cron: "0 2 * * *"
    trigger: LEADS_STALE
    payload:
      olderThanDays: 14
      filters:
        source: web
  - name: paused
    cron: "*/5 * * * *"
    trigger: PING
    enabled: false
`), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, config.Timeouts.Action)
	assert.Equal(t, DefaultWorkflowTimeout, config.Timeouts.Workflow)

	require.Len(t, config.Schedules, 2)

	nightly := config.Schedules[0]
	assert.Equal(t, "LEADS_STALE", nightly.Trigger)
	assert.True(t, nightly.Active())
	assert.Equal(t, 14, nightly.Payload["olderThanDays"])
	assert.Equal(t, map[string]any{"source": "web"}, nightly.Payload["filters"])

	assert.False(t, config.Schedules[1].Active())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{
			name:     "bad cron",
			document: "schedules:\n  - {name: a, cron: 'every day', trigger: T}\n",
		},
		{
			name:     "missing trigger",
			document: "schedules:\n  - {name: a, cron: '* * * * *'}\n",
		},
		{
			name:     "duplicate name",
			document: "schedules:\n  - {name: a, cron: '* * * * *', trigger: T}\n  - {name: a, cron: '0 * * * *', trigger: U}\n",
		},
		{
			name:     "negative timeout",
			document: "timeouts:\n  action: -1s\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.document))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("timeouts: ["))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
