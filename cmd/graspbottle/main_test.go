package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunHeadless(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-video", "grasp.mp4", "-log-level", "error"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "grasp-bottle: 500 steps")
	require.Contains(t, out.String(), "to grasp.mp4")
}

func TestRunShouldExit(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, []string{"-h"}))
	require.Contains(t, out.String(), "Usage:")
}
