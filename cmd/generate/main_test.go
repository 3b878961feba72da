package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/cli"
)

func TestRunHeadless(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-vis=false", "-max-steps", "50", "-log-level", "error"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "generate: 50 steps")
}

func TestRunBadFlag(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-max-steps", "many"})
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)
}
