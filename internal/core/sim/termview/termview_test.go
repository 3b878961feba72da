package termview

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/core/sim/dryrun"
)

type fixedSource struct {
	snap  dryrun.Snapshot
	calls int
}

func (f *fixedSource) Snapshot() dryrun.Snapshot {
	f.calls++
	return f.snap
}

func pandaSnapshot() dryrun.Snapshot {
	return dryrun.Snapshot{
		SceneID: "scene0",
		Steps:   42,
		Time:    0.42,
		Entities: []dryrun.EntitySnapshot{{
			ID:     "scene0/entity1",
			File:   sim.PandaMJCF,
			Joints: []string{"joint1", "finger_joint1"},
			Qpos:   []float64{1.5, 0.04},
			Force:  []float64{12.5, -20},
		}},
	}
}

func TestModelView(t *testing.T) {
	src := &fixedSource{snap: pandaSnapshot()}
	m := newModel(src, time.Millisecond, sim.ThemeDark)

	view := m.View()
	assert.Contains(t, view, "scene0")
	assert.Contains(t, view, "step 42")
	assert.Contains(t, view, "finger_joint1")
	assert.Contains(t, view, "+1.500")
	assert.Contains(t, view, "-20.00 N")
}

func TestModelTickRefreshesSnapshot(t *testing.T) {
	src := &fixedSource{snap: pandaSnapshot()}
	m := newModel(src, time.Millisecond, sim.ThemeLight)
	require.Equal(t, 1, src.calls)

	src.snap.Steps = 43
	next, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd, "tick reschedules itself")
	nm := next.(model)
	assert.Equal(t, int64(43), nm.snap.Steps)
	assert.Equal(t, 1, nm.frames)
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
	} {
		m := newModel(&fixedSource{snap: pandaSnapshot()}, time.Millisecond, sim.ThemeDark)
		next, cmd := m.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.Equal(t, tea.Quit(), cmd(), key.String())
		assert.Empty(t, next.View())
	}

	m := newModel(&fixedSource{snap: pandaSnapshot()}, time.Millisecond, sim.ThemeDark)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
}

func TestBar(t *testing.T) {
	centre := bar(0)
	assert.Equal(t, barWidth, len([]rune(centre)))
	assert.Equal(t, '●', []rune(centre)[barWidth/2])
	assert.Equal(t, '●', []rune(bar(-10))[0])
	assert.Equal(t, '●', []rune(bar(10))[barWidth-1])
	assert.True(t, strings.ContainsRune(bar(1), '┼'))
}

func TestViewerStopBeforeStart(t *testing.T) {
	v := New(&fixedSource{snap: pandaSnapshot()}, sim.ViewerOptions{MaxFPS: 30}, Options{Output: &bytes.Buffer{}})
	require.NoError(t, v.Stop())
	require.NoError(t, v.Stop())
	assert.NoError(t, v.Start(context.Background()))
}

func TestViewerRunsUntilContextDone(t *testing.T) {
	var out bytes.Buffer
	v := New(&fixedSource{snap: pandaSnapshot()}, sim.ViewerOptions{MaxFPS: 100}, Options{Output: &out})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- v.Start(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("viewer ignored context cancellation")
	}
}
