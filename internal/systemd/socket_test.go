package systemd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListenersWithoutActivation(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")

	listeners, err := GetListeners()
	require.NoError(t, err)
	assert.False(t, listeners.Activated, "expected no socket activation")
	assert.Nil(t, listeners.HTTP)
	assert.Nil(t, listeners.Metrics)
}

func TestNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	assert.NoError(t, NotifyReady())
	assert.NoError(t, NotifyStopping())
}

func TestRunWatchdogDisabled(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")

	assert.NoError(t, RunWatchdog(context.Background()))
}
