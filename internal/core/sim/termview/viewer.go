// Package termview draws the joint state of a dry-run scene in the
// terminal. It plugs into the dry-run engine as its ViewerFactory.
package termview

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/core/sim/dryrun"
)

var _ sim.Viewer = (*Viewer)(nil)

// Options selects the terminal the viewer draws on. A nil Input disables
// keyboard handling; a nil Output draws on stdout.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	Theme     sim.Theme
	AltScreen bool
}

// Viewer runs a bubbletea program refreshing at the viewer's max FPS.
type Viewer struct {
	source   Source
	opts     Options
	interval time.Duration

	mu      sync.Mutex
	program *tea.Program
	stopped bool
}

func New(source Source, vo sim.ViewerOptions, opts Options) *Viewer {
	fps := vo.MaxFPS
	if fps <= 0 {
		fps = 60
	}
	return &Viewer{
		source:   source,
		opts:     opts,
		interval: time.Second / time.Duration(fps),
	}
}

// Factory returns a dryrun.ViewerFactory building terminal viewers.
func Factory(opts Options) dryrun.ViewerFactory {
	return func(scene *dryrun.Scene, vo sim.ViewerOptions) sim.Viewer {
		return New(scene, vo, opts)
	}
}

// Start runs the program until Stop, ctx cancellation or the user quits.
func (v *Viewer) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return nil
	}
	popts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
		tea.WithInput(v.opts.Input),
	}
	if v.opts.Output != nil {
		popts = append(popts, tea.WithOutput(v.opts.Output))
	}
	if v.opts.AltScreen {
		popts = append(popts, tea.WithAltScreen())
	}
	v.program = tea.NewProgram(newModel(v.source, v.interval, v.opts.Theme), popts...)
	p := v.program
	v.mu.Unlock()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (v *Viewer) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return nil
	}
	v.stopped = true
	if v.program != nil {
		v.program.Quit()
	}
	return nil
}
