package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRealRunner_Run_Success(t *testing.T) {
	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	require.True(t, result.Success())
	require.Contains(t, result.Stdout, "hello")
}

func TestRealRunner_Run_NonZeroExit(t *testing.T) {
	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "false")
	require.NoError(t, err)
	require.False(t, result.Success())
	require.NotZero(t, result.ExitCode)
}

func TestRealRunner_Run_CommandNotFound(t *testing.T) {
	runner := NewRealRunner()

	_, err := runner.Run(context.Background(), "definitely-not-a-real-command-xyz")
	require.Error(t, err)
}

func TestRealRunner_Run_ContextCancelled(t *testing.T) {
	runner := NewRealRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "sleep", "10")
	require.Error(t, err)
}

func TestRealRunner_LookPath(t *testing.T) {
	runner := NewRealRunner()

	require.True(t, runner.LookPath("echo"))
	require.False(t, runner.LookPath("definitely-not-a-real-command-xyz"))
}
