/*
************************** Geometry producers ****************************

The render package turns draftsman operations (flash, draw, arc) into
triangles in the shared mesh.Builder. Producers read interpreter state
only through their arguments and never keep state of their own.
*/
package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
)

const (
	// perimeter segments of a flashed circle
	CircleSegments = 32
	// segments of one semicircular endcap
	EndcapSegments = 16
	// ChordLength is the maximum chord of a tessellated arc, in
	// millimeters. Design-time constant, not user configurable.
	ChordLength = 0.02
	// MinArcSegments is the floor of the arc segment count.
	MinArcSegments = 8
)

// RotatePoint rotates p around the origin by degrees, counter-clockwise.
func RotatePoint(p mgl64.Vec2, degrees float64) mgl64.Vec2 {
	if degrees == 0 {
		return p
	}
	return mgl64.Rotate2D(mgl64.DegToRad(degrees)).Mul2x1(p)
}

// normalizeDimension applies the shared dimension rules: non-finite is
// rejected, negative is absolute-valued with a warning, zero skips the
// emission with a warning.
func normalizeDimension(b *mesh.Builder, value float64, label string) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		b.Warnf("%s: %s is not finite", gerberbasetypes.WarnDegenerateGeometry, label)
		return 0, false
	}
	if value < 0 {
		b.Warnf("%s is negative (%v); using absolute value", label, value)
		value = -value
	}
	if value <= 1e-12 {
		b.Warnf("%s: %s is zero; nothing emitted", gerberbasetypes.WarnDegenerateGeometry, label)
		return 0, false
	}
	return value, true
}

// pushSemiCircle fans a partial disc from startAngle to endAngle around
// center.
func pushSemiCircle(b *mesh.Builder, center mgl64.Vec2, radius, startAngle, endAngle float64, segments int) {
	if segments < 1 {
		segments = 1
	}
	centerIdx, ok := b.PushVertex(center.X(), center.Y())
	if !ok {
		return
	}
	step := (endAngle - startAngle) / float64(segments)
	var prev uint32
	havePrev := false
	for i := 0; i <= segments; i++ {
		angle := startAngle + step*float64(i)
		idx, ok := b.PushVertex(center.X()+radius*math.Cos(angle), center.Y()+radius*math.Sin(angle))
		if !ok {
			return
		}
		if havePrev {
			b.PushTriangle(centerIdx, prev, idx)
		}
		prev = idx
		havePrev = true
	}
}

// pushCenteredRect emits an axis-aligned rectangle centered at center.
func pushCenteredRect(b *mesh.Builder, center mgl64.Vec2, width, height float64) {
	hw := width / 2.0
	hh := height / 2.0
	a, ok0 := b.PushVertex(center.X()-hw, center.Y()-hh)
	c1, ok1 := b.PushVertex(center.X()+hw, center.Y()-hh)
	c2, ok2 := b.PushVertex(center.X()+hw, center.Y()+hh)
	d, ok3 := b.PushVertex(center.X()-hw, center.Y()+hh)
	if ok0 && ok1 && ok2 && ok3 {
		b.PushQuad(a, c1, c2, d)
	}
}

// RotatedRect emits a rectangle centered at center and rotated by
// degrees around its own center. Dimensions follow the shared rules:
// negative is absolute-valued with a warning, zero emits nothing. The
// aperture macro center-line primitive is its only producer besides the
// tests.
func RotatedRect(b *mesh.Builder, center mgl64.Vec2, width, height, degrees float64) {
	w, ok := normalizeDimension(b, width, "center line width")
	if !ok {
		return
	}
	h, ok := normalizeDimension(b, height, "center line height")
	if !ok {
		return
	}
	width, height = w, h
	if degrees == 0 {
		pushCenteredRect(b, center, width, height)
		return
	}
	hw := width / 2.0
	hh := height / 2.0
	corners := [4]mgl64.Vec2{
		{-hw, -hh},
		{hw, -hh},
		{hw, hh},
		{-hw, hh},
	}
	var idx [4]uint32
	for i, c := range corners {
		p := RotatePoint(c, degrees).Add(center)
		var ok bool
		idx[i], ok = b.PushVertex(p.X(), p.Y())
		if !ok {
			return
		}
	}
	b.PushQuad(idx[0], idx[1], idx[2], idx[3])
}
