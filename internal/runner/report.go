package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// Report summarises one run.
type Report struct {
	Scenario   string
	Stage      Stage
	Steps      int64
	Elapsed    time.Duration
	MeanFPS    float64
	Stopped    bool
	Err        error
	Recordings []sim.Recording
	Events     uint64
}

// Summary renders the report on one line.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s steps", r.Scenario, humanize.Comma(r.Steps))
	if r.Elapsed > 0 {
		fmt.Fprintf(&b, " in %s (%s fps)", r.Elapsed.Round(time.Millisecond), humanize.FormatFloat("#,###.#", r.MeanFPS))
	}
	for _, rec := range r.Recordings {
		fmt.Fprintf(&b, ", recorded %s %s at %d fps to %s",
			humanize.Comma(int64(rec.Frames)), plural(rec.Frames, "frame"), rec.FPS, rec.Filename)
	}
	switch {
	case r.Err != nil:
		fmt.Fprintf(&b, ", aborted: %v", r.Err)
	case r.Stopped:
		b.WriteString(", stopped")
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
