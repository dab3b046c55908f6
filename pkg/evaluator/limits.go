package evaluator

import (
	"fmt"
	"time"

	"github.com/thomasrohde/piske/pkg/diagnostics"
)

// Limits bounds a single evaluation. A zero field means no limit.
type Limits struct {
	TimeMs        int64
	MaxIterations int64
	MaxCallDepth  int
}

// usage tracks consumption against Limits.
type usage struct {
	Iterations int64
	Depth      int
	Start      time.Time
}

func (ev *evaluator) checkTime() error {
	if ev.opts.Done != nil {
		select {
		case <-ev.opts.Done:
			return &RuntimeError{Code: diagnostics.ELimit, Message: "evaluation cancelled"}
		default:
		}
	}
	if ev.opts.Limits.TimeMs > 0 {
		if time.Since(ev.usage.Start).Milliseconds() >= ev.opts.Limits.TimeMs {
			return &RuntimeError{
				Code:    diagnostics.ELimit,
				Message: fmt.Sprintf("time limit exceeded (%dms)", ev.opts.Limits.TimeMs),
			}
		}
	}
	return nil
}

func (ev *evaluator) countIteration() error {
	ev.usage.Iterations++
	if max := ev.opts.Limits.MaxIterations; max > 0 && ev.usage.Iterations > max {
		return &RuntimeError{
			Code:    diagnostics.ELimit,
			Message: fmt.Sprintf("iteration limit exceeded (max %d)", max),
		}
	}
	return ev.checkTime()
}

func (ev *evaluator) enterCall() error {
	ev.usage.Depth++
	if max := ev.opts.Limits.MaxCallDepth; max > 0 && ev.usage.Depth > max {
		return &RuntimeError{
			Code:    diagnostics.ELimit,
			Message: fmt.Sprintf("call depth limit exceeded (max %d)", max),
		}
	}
	return ev.checkTime()
}

func (ev *evaluator) leaveCall() {
	ev.usage.Depth--
}
