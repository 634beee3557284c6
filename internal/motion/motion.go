// Package motion computes where task rows should sit and how they get there.
// Everything here is a pure function of a row's index and the clock; it never
// feeds back into the task list.
package motion

import (
	"math"
	"time"
)

// Target returns the vertical position, in lines, that a row with the given
// index should move to. Visible rows stack by rank, hidden rows slide up out
// of view and rows pending removal drop below the container.
func Target(index, rowHeight, containerHeight int) int {
	switch {
	case index >= 0:
		return index * rowHeight
	case index == -2:
		return containerHeight
	default:
		return -rowHeight
	}
}

// Leaving reports whether the index marks a row on its way out.
func Leaving(index int) bool { return index == -2 }

type Ease func(float64) float64

func Linear(t float64) float64 { return clamp(t) }

func InCubic(t float64) float64 {
	t = clamp(t)
	return t * t * t
}

func OutCubic(t float64) float64 {
	t = clamp(t) - 1
	return t*t*t + 1
}

// EaseFor picks the curve for a row moving to the given index.
func EaseFor(index int) Ease {
	if Leaving(index) {
		return InCubic
	}
	return OutCubic
}

func clamp(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

// Track is one row's movement from From to To.
type Track struct {
	From     float64
	To       float64
	Start    time.Time
	Duration time.Duration
	Ease     Ease
}

// NewTrack starts a move at now. A zero duration jumps straight to the end.
func NewTrack(from, to float64, now time.Time, d time.Duration, ease Ease) Track {
	if ease == nil {
		ease = Linear
	}
	return Track{From: from, To: to, Start: now, Duration: d, Ease: ease}
}

func (t Track) progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	return clamp(float64(now.Sub(t.Start)) / float64(t.Duration))
}

// At returns the eased position at now.
func (t Track) At(now time.Time) float64 {
	ease := t.Ease
	if ease == nil {
		ease = Linear
	}
	return t.From + (t.To-t.From)*ease(t.progress(now))
}

func (t Track) Done(now time.Time) bool {
	return t.progress(now) >= 1
}
