package command

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Stdout(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	out, err := NewExecRunner().Run(context.Background(), "echo", "hello")

	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExecRunner_Failure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := NewExecRunner().Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sh failed")
	assert.Contains(t, err.Error(), "broken")
}

func TestExecRunner_NotFound(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), "folio-no-such-tool")

	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecRunner_Cancelled(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecRunner().Run(ctx, "sleep", "5")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookPath(t *testing.T) {
	assert.ErrorIs(t, LookPath("folio-no-such-tool"), ErrToolNotFound)
}
