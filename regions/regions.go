/*
####################  regions ##################################

	G36/G37 region support: the boundary collector fed by the interpreter
	and the ear-clipping triangulation that fills the closed contour.
	Arc segments are flattened to chords on the way in, so FillRegion only
	ever sees straight edges.
*/
package regions

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
	"github.com/SohaibAli9/gerberview/render"
)

// consecutive points closer than this merge into one
const pointEqualityEps = 1e-9

// cross products below this magnitude count as collinear
const collinearEps = 1e-12

// Boundary accumulates the flattened contour of one region subpath.
type Boundary struct {
	points []mgl64.Vec2
}

// creates and initialises a region boundary
func NewBoundary() *Boundary {
	return &Boundary{points: make([]mgl64.Vec2, 0, 16)}
}

// Start begins a fresh subpath at p, dropping whatever was collected.
func (region *Boundary) Start(p mgl64.Vec2) {
	region.points = region.points[:0]
	region.points = append(region.points, p)
}

// LineTo appends a straight boundary segment.
func (region *Boundary) LineTo(p mgl64.Vec2) {
	region.points = append(region.points, p)
}

// ArcTo appends an arc boundary segment flattened by the shared chord
// rule. The segment starts at the current end of the boundary.
func (region *Boundary) ArcTo(b *mesh.Builder, to, offset mgl64.Vec2, ipm gerberbasetypes.IPmode) {
	if len(region.points) == 0 {
		region.points = append(region.points, to)
		return
	}
	from := region.points[len(region.points)-1]
	chords, ok := render.ArcCenterline(b, from, to, offset, ipm)
	if !ok {
		// degenerate arc already warned; fall back to a straight edge
		region.points = append(region.points, to)
		return
	}
	region.points = append(region.points, chords[1:]...)
}

// Len returns the number of collected points.
func (region *Boundary) Len() int {
	return len(region.points)
}

// Points hands out the collected contour.
func (region *Boundary) Points() []mgl64.Vec2 {
	return region.points
}

// FillRegion triangulates a closed polygon boundary into the builder by
// ear clipping. Winding is normalised to counter-clockwise first; ears
// are picked by smallest interior angle; when no ear can be found the
// remaining vertices are emitted as a fan with a warning.
func FillRegion(b *mesh.Builder, boundary []mgl64.Vec2) {
	ringPts := dedupRing(boundary)
	if len(ringPts) < 3 {
		b.Warnf("%s: region boundary has %d distinct point(s); need at least 3; region skipped",
			gerberbasetypes.WarnDegenerateGeometry, len(ringPts))
		return
	}

	area := signedArea(ringPts)
	if math.Abs(area) <= areaTolerance(ringPts) {
		b.Warnf("%s: region boundary has zero area; region skipped",
			gerberbasetypes.WarnDegenerateGeometry)
		return
	}
	if area < 0 {
		reverse(ringPts)
	}

	// all ring vertices go in up front so the triangles share them
	vertIdx := make([]uint32, len(ringPts))
	for i, p := range ringPts {
		idx, ok := b.PushVertex(p.X(), p.Y())
		if !ok {
			return
		}
		vertIdx[i] = idx
	}

	ring := make([]int, len(ringPts))
	for i := range ring {
		ring[i] = i
	}

	emit := func(i0, i1, i2 int) {
		b.PushTriangle(vertIdx[i0], vertIdx[i1], vertIdx[i2])
	}

	for len(ring) > 3 {
		if clipCollinear(&ring, ringPts) {
			continue
		}
		best := findEar(ring, ringPts)
		if best == -1 {
			// self-intersecting or deeply twisted: best effort
			b.Warnf("region boundary is self-intersecting or degenerate; emitting a triangle fan")
			for i := 1; i+1 < len(ring); i++ {
				emit(ring[0], ring[i], ring[i+1])
			}
			return
		}
		n := len(ring)
		emit(ring[(best+n-1)%n], ring[best], ring[(best+1)%n])
		ring = append(ring[:best], ring[best+1:]...)
	}
	if len(ring) == 3 {
		a := ringPts[ring[0]]
		c := ringPts[ring[1]]
		d := ringPts[ring[2]]
		if math.Abs(cross(c.Sub(a), d.Sub(a))) > collinearEps {
			emit(ring[0], ring[1], ring[2])
		}
	}
}

// dedupRing drops consecutive duplicates and the closing repetition of
// the first point. Auto-closure is implicit: the triangulation always
// treats the ring as closed.
func dedupRing(in []mgl64.Vec2) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, 0, len(in))
	for _, p := range in {
		if len(out) > 0 && out[len(out)-1].Sub(p).Len() <= pointEqualityEps {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].Sub(out[len(out)-1]).Len() <= pointEqualityEps {
		out = out[:len(out)-1]
	}
	return out
}

func signedArea(pts []mgl64.Vec2) float64 {
	area := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X()*pts[j].Y() - pts[j].X()*pts[i].Y()
	}
	return area / 2.0
}

func areaTolerance(pts []mgl64.Vec2) float64 {
	bb := mesh.NewBoundingBox()
	for _, p := range pts {
		bb.Update(p.X(), p.Y())
	}
	span := (bb.MaxX - bb.MinX) * (bb.MaxY - bb.MinY)
	return math.Max(1e-12, 1e-9*span)
}

func reverse(pts []mgl64.Vec2) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

func cross(a, c mgl64.Vec2) float64 {
	return a.X()*c.Y() - a.Y()*c.X()
}

// clipCollinear removes one straight-through or spike vertex, if any.
// Both have no area of their own, so dropping them is always safe.
func clipCollinear(ring *[]int, pts []mgl64.Vec2) bool {
	r := *ring
	n := len(r)
	for i := 0; i < n; i++ {
		a := pts[r[(i+n-1)%n]]
		c := pts[r[i]]
		d := pts[r[(i+1)%n]]
		if math.Abs(cross(c.Sub(a), d.Sub(c))) <= collinearEps {
			*ring = append(r[:i], r[i+1:]...)
			return true
		}
	}
	return false
}

// findEar locates the clippable convex corner with the smallest interior
// angle, or -1 when the ring has stalled.
func findEar(ring []int, pts []mgl64.Vec2) int {
	n := len(ring)
	best := -1
	bestAngle := math.Inf(1)
	for i := 0; i < n; i++ {
		a := pts[ring[(i+n-1)%n]]
		c := pts[ring[i]]
		d := pts[ring[(i+1)%n]]
		if cross(c.Sub(a), d.Sub(c)) <= collinearEps {
			continue // reflex or collinear corner
		}
		if earBlocked(ring, pts, i, a, c, d) {
			continue
		}
		angle := interiorAngle(a, c, d)
		if angle < bestAngle {
			bestAngle = angle
			best = i
		}
	}
	return best
}

// earBlocked reports whether any other ring vertex sits inside the
// candidate triangle.
func earBlocked(ring []int, pts []mgl64.Vec2, i int, a, c, d mgl64.Vec2) bool {
	n := len(ring)
	for j := 0; j < n; j++ {
		if j == i || j == (i+n-1)%n || j == (i+1)%n {
			continue
		}
		p := pts[ring[j]]
		if samePoint(p, a) || samePoint(p, c) || samePoint(p, d) {
			continue
		}
		if pointInTriangle(p, a, c, d) {
			return true
		}
	}
	return false
}

func samePoint(a, c mgl64.Vec2) bool {
	return a.Sub(c).Len() <= pointEqualityEps
}

// pointInTriangle tests p against the CCW triangle a-b-c, counting the
// edges as inside.
func pointInTriangle(p, a, b, c mgl64.Vec2) bool {
	d1 := cross(b.Sub(a), p.Sub(a))
	d2 := cross(c.Sub(b), p.Sub(b))
	d3 := cross(a.Sub(c), p.Sub(c))
	return d1 >= -collinearEps && d2 >= -collinearEps && d3 >= -collinearEps
}

func interiorAngle(a, c, d mgl64.Vec2) float64 {
	u := a.Sub(c)
	v := d.Sub(c)
	lu := u.Len()
	lv := v.Len()
	if lu <= pointEqualityEps || lv <= pointEqualityEps {
		return 0
	}
	cosine := u.Dot(v) / (lu * lv)
	cosine = math.Max(-1.0, math.Min(1.0, cosine))
	return math.Acos(cosine)
}
