package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/cli"
	"github.com/zeusync/simrunner/internal/scenarios"
)

var quiet = []string{"-log-level", "error"}

func TestRunScenarioGraspBottle(t *testing.T) {
	var out bytes.Buffer
	args := append([]string{"-video", "bottle.mp4"}, quiet...)
	require.NoError(t, RunScenario(context.Background(), &out, scenarios.GraspBottle, args))

	assert.Contains(t, out.String(), "grasp-bottle: 500 steps")
	assert.Contains(t, out.String(), "recorded 501 frames at 60 fps to bottle.mp4")
}

func TestRunScenarioGenerateCapped(t *testing.T) {
	var out bytes.Buffer
	args := append([]string{"-vis=false", "-max-steps", "1234"}, quiet...)
	require.NoError(t, RunScenario(context.Background(), &out, scenarios.Generate, args))
	assert.Contains(t, out.String(), "generate: 1,234 steps")
}

func TestRunScenarioInterrupted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, RunScenario(ctx, &out, scenarios.Generate, quiet))
	assert.Contains(t, out.String(), ", stopped")
}

func TestRunScenarioHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunScenario(context.Background(), &out, scenarios.ControlFranka, []string{"-h"}))
	assert.Contains(t, out.String(), "controlfranka [options]")
	assert.Contains(t, out.String(), scenarios.ControlFranka.Summary)
}

func TestRunScenarioBadFlag(t *testing.T) {
	var out bytes.Buffer
	err := RunScenario(context.Background(), &out, scenarios.ControlFranka, []string{"-engine", "ftp://x"})
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}

func TestRunScenarioThroughBridge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrs := make(chan BridgeAddrs, 1)
	bridgeDone := make(chan error, 1)
	go func() {
		bridgeDone <- RunBridge(ctx, &bytes.Buffer{}, []string{"-listen", "127.0.0.1:0", "-quic", "127.0.0.1:0", "-log-level", "error"},
			func(a BridgeAddrs) { addrs <- a })
	}()

	var a BridgeAddrs
	select {
	case a = <-addrs:
	case err := <-bridgeDone:
		t.Fatalf("bridge exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge never listened")
	}

	for _, url := range []string{"ws://" + a.WebSocket + "/engine", "quic://" + a.QUIC} {
		var out bytes.Buffer
		args := append([]string{"-vis=false", "-engine", url}, quiet...)
		require.NoError(t, RunScenario(ctx, &out, scenarios.GraspBottle, args), url)
		assert.Contains(t, out.String(), "grasp-bottle: 500 steps", url)
	}

	cancel()
	select {
	case err := <-bridgeDone:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("bridge did not shut down")
	}
}
