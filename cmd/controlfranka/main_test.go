package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunHeadless(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-vis=false", "-log-level", "error"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "control-franka: 1,400 steps")
}

func TestRunShouldExit(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, []string{"-h"}))
	require.Contains(t, out.String(), "Usage:")
}
