package annotation

import (
	"math"
	"math/rand"
)

// Sketch is the hand-drawn rendering of a shape. Each stroke is a cubic
// Bézier given as [start, control1, control2, end].
type Sketch [][4]Point

const (
	sketchPasses    = 2
	sketchRoughness = 1.0
	maxJitter       = 2.0
)

// BuildSketch computes the sketch geometry of a shape. It is seeded by the
// element id so the same element always looks the same while it is moved.
func BuildSketch(e Element) Sketch {
	rng := rand.New(rand.NewSource(int64(e.ID)*7919 + 1))

	switch e.Kind {
	case KindLine:
		return sketchEdges(rng, []Point{{e.X1, e.Y1}, {e.X2, e.Y2}})
	case KindRectangle:
		return sketchEdges(rng, []Point{
			{e.X1, e.Y1}, {e.X2, e.Y1},
			{e.X2, e.Y1}, {e.X2, e.Y2},
			{e.X2, e.Y2}, {e.X1, e.Y2},
			{e.X1, e.Y2}, {e.X1, e.Y1},
		})
	default:
		return nil
	}
}

// sketchEdges draws every consecutive pair in pts as an edge.
func sketchEdges(rng *rand.Rand, pts []Point) Sketch {
	var s Sketch
	for i := 0; i+1 < len(pts); i += 2 {
		for pass := 0; pass < sketchPasses; pass++ {
			s = append(s, sketchEdge(rng, pts[i], pts[i+1]))
		}
	}
	return s
}

func sketchEdge(rng *rand.Rand, a, b Point) [4]Point {
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	j := math.Min(maxJitter, length/20) * sketchRoughness

	jitter := func() float64 { return (rng.Float64()*2 - 1) * j }

	// bow the curve perpendicular to the edge
	bow := jitter()
	var nx, ny float64
	if length > 0 {
		nx, ny = -(b.Y-a.Y)/length, (b.X-a.X)/length
	}
	at := func(t float64) Point {
		return Point{
			X: a.X + (b.X-a.X)*t + nx*bow + jitter(),
			Y: a.Y + (b.Y-a.Y)*t + ny*bow + jitter(),
		}
	}

	return [4]Point{
		{a.X + jitter(), a.Y + jitter()},
		at(1.0 / 3),
		at(2.0 / 3),
		{b.X + jitter(), b.Y + jitter()},
	}
}
