package runner

import (
	"fmt"
	"slices"
)

// Stage is a step of the scenario pipeline.
type Stage uint8

const (
	StageIdle Stage = iota
	StageInit
	StageScene
	StagePopulate
	StageBuild
	StageControl
	StageFinish
)

var stageNames = [...]string{
	StageIdle:     "idle",
	StageInit:     "init",
	StageScene:    "scene",
	StagePopulate: "populate",
	StageBuild:    "build",
	StageControl:  "control",
	StageFinish:   "finish",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", s)
}

// transitionError names the attempted move.
func transitionError(op string, at Stage, want []Stage) error {
	return fmt.Errorf("%w: %s at stage %s, want one of %v", ErrStageOrder, op, at, want)
}

func allowed(at Stage, from []Stage) bool {
	return slices.Contains(from, at)
}
