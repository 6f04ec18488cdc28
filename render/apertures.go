// Aperture flash expansion (D03)
package render

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
)

// Flash emits a closed shape of the standard aperture centered at
// position. Macro apertures are instantiated by the amprocessor package
// and are an error here.
func Flash(b *mesh.Builder, apert *apertures.Aperture, position mgl64.Vec2) error {
	if apert == nil {
		return errors.New("no aperture")
	}
	if apert.HoleDiameter > 0 {
		b.Warnf("%s: hole of %s ignored", gerberbasetypes.WarnUnsupportedFeature, apert.String())
	}
	switch apert.Type {
	case gerberbasetypes.AptypeCircle:
		FlashCircle(b, position, apert.Diameter)
	case gerberbasetypes.AptypeRectangle:
		flashRectangle(b, position, apert.XSize, apert.YSize)
	case gerberbasetypes.AptypeObround:
		flashObround(b, position, apert.XSize, apert.YSize)
	case gerberbasetypes.AptypePoly:
		FlashPolygon(b, position, apert.Diameter, apert.Vertices, apert.RotAngle)
	default:
		return errors.New("aperture type not flashable here: " + apert.Type.String())
	}
	return nil
}

// FlashCircle fans a 32-segment disc around position.
func FlashCircle(b *mesh.Builder, position mgl64.Vec2, diameter float64) {
	d, ok := normalizeDimension(b, diameter, "circle diameter")
	if !ok {
		return
	}
	b.PushNgon(position.X(), position.Y(), d/2.0, CircleSegments)
}

func flashRectangle(b *mesh.Builder, position mgl64.Vec2, width, height float64) {
	w, ok := normalizeDimension(b, width, "rectangle width")
	if !ok {
		return
	}
	h, ok := normalizeDimension(b, height, "rectangle height")
	if !ok {
		return
	}
	pushCenteredRect(b, position, w, h)
}

func flashObround(b *mesh.Builder, position mgl64.Vec2, width, height float64) {
	w, ok := normalizeDimension(b, width, "obround width")
	if !ok {
		return
	}
	h, ok := normalizeDimension(b, height, "obround height")
	if !ok {
		return
	}
	if math.Abs(w-h) <= 1e-12 {
		b.PushNgon(position.X(), position.Y(), w/2.0, CircleSegments)
		return
	}

	if w > h {
		radius := h / 2.0
		body := w - h
		half := body / 2.0
		pushCenteredRect(b, position, body, h)
		pushSemiCircle(b, mgl64.Vec2{position.X() - half, position.Y()}, radius,
			math.Pi/2.0, 3.0*math.Pi/2.0, EndcapSegments)
		pushSemiCircle(b, mgl64.Vec2{position.X() + half, position.Y()}, radius,
			-math.Pi/2.0, math.Pi/2.0, EndcapSegments)
		return
	}

	radius := w / 2.0
	body := h - w
	half := body / 2.0
	pushCenteredRect(b, position, w, body)
	pushSemiCircle(b, mgl64.Vec2{position.X(), position.Y() + half}, radius,
		0.0, math.Pi, EndcapSegments)
	pushSemiCircle(b, mgl64.Vec2{position.X(), position.Y() - half}, radius,
		math.Pi, 2.0*math.Pi, EndcapSegments)
}

// FlashPolygon emits a regular polygon of the given outer diameter.
// The vertex count is clamped to [3,12] with a warning when it was out
// of range; the rotation is reduced modulo 360 without a warning.
func FlashPolygon(b *mesh.Builder, position mgl64.Vec2, diameter float64, vertices int, rotDegrees float64) {
	d, ok := normalizeDimension(b, diameter, "polygon diameter")
	if !ok {
		return
	}
	if vertices < 3 {
		b.Warnf("polygon aperture has %d vertices; clamping to 3", vertices)
		vertices = 3
	} else if vertices > 12 {
		b.Warnf("polygon aperture has %d vertices; clamping to 12", vertices)
		vertices = 12
	}
	rot := math.Mod(rotDegrees, 360.0)

	radius := d / 2.0
	base := mgl64.DegToRad(rot)
	indices := make([]uint32, 0, vertices)
	for i := 0; i < vertices; i++ {
		angle := base + 2.0*math.Pi*float64(i)/float64(vertices)
		idx, ok := b.PushVertex(position.X()+radius*math.Cos(angle), position.Y()+radius*math.Sin(angle))
		if !ok {
			return
		}
		indices = append(indices, idx)
	}
	for i := 1; i+1 < len(indices); i++ {
		b.PushTriangle(indices[0], indices[i], indices[i+1])
	}
}
