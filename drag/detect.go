package drag

import (
	"math"

	"prism-sync/domain"
)

type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box in the client's coordinate space.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

type TargetKind int

const (
	TargetColumn TargetKind = iota
	TargetCard
)

// Target is a drop zone: a whole column or a single card inside one.
type Target struct {
	Kind  TargetKind
	ID    string
	Stage domain.Stage
	Rect  Rect
}

type Mode int

const (
	// ModeCard moves a card between or within columns.
	ModeCard Mode = iota
	// ModeColumn reorders whole columns; only other columns are candidates.
	ModeColumn
)

// Detector resolves the drop target under the pointer. When nothing is hit
// it keeps returning the previous target so the preview does not flicker
// while the pointer crosses gaps between zones.
type Detector struct {
	last *Target
}

// Reset forgets the last target. Call it when a new gesture starts.
func (d *Detector) Reset() {
	d.last = nil
}

// Last returns the most recent target, if any.
func (d *Detector) Last() (Target, bool) {
	if d.last == nil {
		return Target{}, false
	}
	return *d.last, true
}

// Detect returns the target for pointer while activeID is being dragged.
func (d *Detector) Detect(mode Mode, activeID string, pointer Point, targets []Target) (Target, bool) {
	var hit *Target
	switch mode {
	case ModeColumn:
		hit = detectColumn(activeID, pointer, targets)
	default:
		hit = detectCard(activeID, pointer, targets)
	}
	if hit == nil {
		return d.Last()
	}
	t := *hit
	d.last = &t
	return t, true
}

func detectColumn(activeID string, pointer Point, targets []Target) *Target {
	var best *Target
	bestDist := math.Inf(1)
	for i := range targets {
		t := &targets[i]
		if t.Kind != TargetColumn || t.ID == activeID || !t.Rect.Contains(pointer) {
			continue
		}
		if dist := distance(pointer, t.Rect.Center()); dist < bestDist {
			best, bestDist = t, dist
		}
	}
	return best
}

// detectCard prefers a card directly under the pointer. Over a column that
// holds other cards it narrows to the nearest of them so a drop can land
// mid-list; an empty column is returned as is.
func detectCard(activeID string, pointer Point, targets []Target) *Target {
	var column *Target
	var direct *Target
	directDist := math.Inf(1)
	for i := range targets {
		t := &targets[i]
		if t.ID == activeID || !t.Rect.Contains(pointer) {
			continue
		}
		switch t.Kind {
		case TargetCard:
			if dist := distance(pointer, t.Rect.Center()); dist < directDist {
				direct, directDist = t, dist
			}
		case TargetColumn:
			if column == nil {
				column = t
			}
		}
	}
	if direct != nil {
		return direct
	}
	if column == nil {
		return nil
	}

	var nearest *Target
	nearestDist := math.Inf(1)
	for i := range targets {
		t := &targets[i]
		if t.Kind != TargetCard || t.ID == activeID || t.Stage != column.Stage {
			continue
		}
		if dist := distance(pointer, t.Rect.Center()); dist < nearestDist {
			nearest, nearestDist = t, dist
		}
	}
	if nearest != nil {
		return nearest
	}
	return column
}
