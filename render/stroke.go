// Linear stroke widening (D01 in linear interpolation mode)
package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
)

// DrawLinear emits the swept region of the aperture translated along the
// segment from..to: a quad for the body and, for circular apertures,
// semicircular endcaps at both ends.
func DrawLinear(b *mesh.Builder, from, to mgl64.Vec2, apert *apertures.Aperture) error {
	width, ok := strokeWidth(b, apert)
	if !ok {
		return nil
	}

	delta := to.Sub(from)
	if delta.Len() <= 1e-12 {
		// zero-length draw: a round aperture leaves a dot, anything
		// else has no defined image
		if apert.Type == gerberbasetypes.AptypeCircle {
			return Flash(b, apert, from)
		}
		b.Warnf("%s: zero-length draw with %s skipped",
			gerberbasetypes.WarnDegenerateGeometry, apert.Type.String())
		return nil
	}

	dir := delta.Normalize()
	normal := mgl64.Vec2{-dir.Y(), dir.X()}
	half := width / 2.0
	off := normal.Mul(half)

	a, ok0 := pushVec(b, from.Add(off))
	c1, ok1 := pushVec(b, from.Sub(off))
	c2, ok2 := pushVec(b, to.Sub(off))
	d, ok3 := pushVec(b, to.Add(off))
	if ok0 && ok1 && ok2 && ok3 {
		b.PushQuad(a, c1, c2, d)
	}

	if apert.Type == gerberbasetypes.AptypeCircle {
		// endcap diameters align with the segment normal
		dirAngle := angleOf(dir)
		pushSemiCircle(b, from, half, dirAngle+halfPi, dirAngle+halfPi+pi, EndcapSegments)
		pushSemiCircle(b, to, half, dirAngle-halfPi, dirAngle+halfPi, EndcapSegments)
	}
	return nil
}

// strokeWidth derives the pen width of an aperture for D01 drawing. For
// rectangles and obrounds this is the min(w,h) approximation: the Gerber
// spec only promises a correct appearance for circular and rectangular
// pens, and rectangular draws are rare in practice.
func strokeWidth(b *mesh.Builder, apert *apertures.Aperture) (float64, bool) {
	if apert == nil {
		return 0, false
	}
	switch apert.Type {
	case gerberbasetypes.AptypeCircle:
		return normalizeDimension(b, apert.Diameter, "circle diameter")
	case gerberbasetypes.AptypeRectangle, gerberbasetypes.AptypeObround:
		w, ok := normalizeDimension(b, apert.XSize, apert.Type.String()+" width")
		if !ok {
			return 0, false
		}
		h, ok := normalizeDimension(b, apert.YSize, apert.Type.String()+" height")
		if !ok {
			return 0, false
		}
		if h < w {
			return h, true
		}
		return w, true
	case gerberbasetypes.AptypePoly:
		return normalizeDimension(b, apert.Diameter, "polygon diameter")
	}
	b.Warnf("%s: drawing with %s is not supported",
		gerberbasetypes.WarnUnsupportedFeature, apert.Type.String())
	return 0, false
}

func pushVec(b *mesh.Builder, v mgl64.Vec2) (uint32, bool) {
	return b.PushVertex(v.X(), v.Y())
}
