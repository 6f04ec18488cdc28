// Multi-quadrant arc tessellation (D01 in circular interpolation modes)
package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
)

const (
	pi     = math.Pi
	tau    = 2.0 * math.Pi
	halfPi = math.Pi / 2.0
)

// coincidence radius for arc endpoints and offsets
const pointEqualityEps = 1e-9

func angleOf(v mgl64.Vec2) float64 {
	return math.Atan2(v.Y(), v.X())
}

// ArcCenterline samples a multi-quadrant arc into chord endpoints. The
// center is from+offset; the chord rule keeps every chord at most
// ChordLength long with at least MinArcSegments segments. A degenerate
// arc warns and returns ok=false.
func ArcCenterline(b *mesh.Builder, from, to, offset mgl64.Vec2, ipm gerberbasetypes.IPmode) ([]mgl64.Vec2, bool) {
	center := from.Add(offset)
	radius := from.Sub(center).Len()
	if radius <= 1e-12 {
		b.Warnf("%s: arc has zero radius; skipped", gerberbasetypes.WarnDegenerateGeometry)
		return nil, false
	}

	startAngle := angleOf(from.Sub(center))
	var sweep float64
	if from.Sub(to).Len() <= pointEqualityEps {
		if offset.Len() <= pointEqualityEps {
			b.Warnf("%s: arc start equals end with zero center offset; skipped",
				gerberbasetypes.WarnDegenerateGeometry)
			return nil, false
		}
		// a closed arc is a full circle
		if ipm == gerberbasetypes.IPModeCwC {
			sweep = -tau
		} else {
			sweep = tau
		}
	} else {
		endRadius := to.Sub(center).Len()
		if diff := math.Abs(endRadius - radius); diff > math.Max(1e-6, 0.001*radius) {
			b.Warnf("arc radii mismatch (%v vs %v); using average", radius, endRadius)
			radius = (radius + endRadius) / 2.0
		}
		endAngle := angleOf(to.Sub(center))
		sweep = endAngle - startAngle
		if ipm == gerberbasetypes.IPModeCwC {
			if sweep >= 0 {
				sweep -= tau
			}
		} else {
			if sweep <= 0 {
				sweep += tau
			}
		}
	}

	segments := int(math.Ceil(math.Abs(sweep) * radius / ChordLength))
	if segments < MinArcSegments {
		segments = MinArcSegments
	}
	points := make([]mgl64.Vec2, 0, segments+1)
	for i := 0; i <= segments; i++ {
		angle := startAngle + sweep*float64(i)/float64(segments)
		points = append(points, mgl64.Vec2{
			center.X() + radius*math.Cos(angle),
			center.Y() + radius*math.Sin(angle),
		})
	}
	return points, true
}

// DrawArc widens a multi-quadrant arc: the centerline is tessellated and
// every chord is stroked with the aperture through DrawLinear.
func DrawArc(b *mesh.Builder, from, to, offset mgl64.Vec2, ipm gerberbasetypes.IPmode, apert *apertures.Aperture) error {
	if _, ok := strokeWidth(b, apert); !ok {
		return nil
	}
	// sanitize once so per-chord stroking does not repeat the warnings
	pen := *apert
	pen.Diameter = math.Abs(pen.Diameter)
	pen.XSize = math.Abs(pen.XSize)
	pen.YSize = math.Abs(pen.YSize)

	points, ok := ArcCenterline(b, from, to, offset, ipm)
	if !ok {
		return nil
	}
	for i := 1; i < len(points); i++ {
		if err := DrawLinear(b, points[i-1], points[i], &pen); err != nil {
			return err
		}
	}
	return nil
}
