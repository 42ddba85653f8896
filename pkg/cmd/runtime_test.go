package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
)

// runWith parses args against CommonFlags and calls fn inside the action.
func runWith(t *testing.T, args []string, fn func(ctx context.Context, command *cli.Command) error) {
	t.Helper()

	command := &cli.Command{
		Name:   "autoflow-test",
		Flags:  CommonFlags(),
		Action: fn,
	}

	require.NoError(t, command.Run(context.Background(), append([]string{"autoflow-test"}, args...)))
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeouts:\n  action: 5s\n  workflow: 1m\n"), 0o600))

	runWith(t, []string{"--config-file", path, "--workflow-timeout", "90s"}, func(_ context.Context, command *cli.Command) error {
		cfg, err := LoadConfig(command)
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, cfg.Timeouts.Action)
		assert.Equal(t, 90*time.Second, cfg.Timeouts.Workflow)

		return nil
	})
}

func TestNewRuntime_FileAndGochannel(t *testing.T) {
	root := t.TempDir()

	runWith(t, []string{"--database-url", "file://" + root}, func(ctx context.Context, command *cli.Command) error {
		runtime, err := NewRuntime(ctx, log.Discard(), command, "autoflow-test")
		require.NoError(t, err)

		assert.NotNil(t, runtime.Engine.Dispatcher)
		assert.NoError(t, runtime.Persistence.HealthCheck(ctx))
		assert.NoError(t, runtime.Close(ctx))

		return nil
	})
}
