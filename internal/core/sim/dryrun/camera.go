package dryrun

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

var _ sim.Camera = (*Camera)(nil)

// Camera implements sim.Camera. Frames carry a digest of the scene state
// instead of pixels.
type Camera struct {
	scene     *Scene
	id        string
	opts      sim.CameraOptions
	rendered  int
	recording bool
	recorded  int
}

func (c *Camera) ID() string { return c.id }

func (c *Camera) StartRecording(_ context.Context) error {
	eng := c.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	if c.recording {
		return sim.ErrAlreadyRecording
	}
	c.recording = true
	c.recorded = 0
	eng.journal.record(Call{Op: sim.OpStartRecording, Target: c.id})
	return nil
}

func (c *Camera) Render(_ context.Context) (sim.Frame, error) {
	eng := c.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return sim.Frame{}, err
	}
	frame := sim.Frame{
		Index:     c.rendered,
		Width:     c.opts.Res[0],
		Height:    c.opts.Res[1],
		Digest:    stateDigest(c.scene.snapshotLocked()),
		Recording: c.recording,
	}
	c.rendered++
	if c.recording {
		c.recorded++
	}
	eng.journal.record(Call{Op: sim.OpRender, Target: c.id})
	return frame, nil
}

func (c *Camera) StopRecording(_ context.Context, filename string, fps int) (sim.Recording, error) {
	eng := c.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return sim.Recording{}, err
	}
	if !c.recording {
		return sim.Recording{}, sim.ErrNotRecording
	}
	if fps <= 0 || filename == "" {
		return sim.Recording{}, fmt.Errorf("%w: recording %q at %d fps", sim.ErrInvalidOption, filename, fps)
	}
	c.recording = false
	rec := sim.Recording{Filename: filename, FPS: fps, Frames: c.recorded}
	eng.journal.record(Call{Op: sim.OpStopRecording, Target: c.id, Text: filename, Values: []float64{float64(fps)}})
	eng.logger.Info("Recording finalized (dry run, no file written)",
		log.String("file", filename),
		log.Int("fps", fps),
		log.Int("frames", rec.Frames))
	return rec, nil
}

func (c *Camera) readyLocked() error {
	if err := c.scene.engine.checkLocked(); err != nil {
		return err
	}
	if !c.scene.built {
		return sim.ErrSceneNotBuilt
	}
	return nil
}

func stateDigest(snap Snapshot) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(snap.Steps))
	_, _ = d.Write(buf[:])
	for _, ent := range snap.Entities {
		_, _ = d.WriteString(ent.ID)
		for _, q := range ent.Qpos {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(q))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}
