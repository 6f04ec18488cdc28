package render

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
)

func circleAp(d float64) *apertures.Aperture {
	return &apertures.Aperture{Code: 10, Type: gerberbasetypes.AptypeCircle, Diameter: d}
}

func rectAp(w, h float64) *apertures.Aperture {
	return &apertures.Aperture{Code: 11, Type: gerberbasetypes.AptypeRectangle, XSize: w, YSize: h}
}

func boundsClose(t *testing.T, bb mesh.BoundingBox, minX, minY, maxX, maxY float64) {
	t.Helper()
	const eps = 1e-6
	if math.Abs(bb.MinX-minX) > eps || math.Abs(bb.MinY-minY) > eps ||
		math.Abs(bb.MaxX-maxX) > eps || math.Abs(bb.MaxY-maxY) > eps {
		t.Fatal("bounds mismatch:", bb.String())
	}
}

func TestFlashCircleFan(t *testing.T) {
	b := mesh.NewBuilder()
	if err := Flash(b, circleAp(1.0), mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 33 {
		t.Fatal("expected 33 vertices, got", layer.VertexCount)
	}
	if len(layer.Indices) != 32*3 {
		t.Fatal("expected 32 triangles, got", len(layer.Indices)/3)
	}
	boundsClose(t, layer.Bounds, -0.5, -0.5, 0.5, 0.5)
	if layer.WarningCount != 0 {
		t.Fatal("unexpected warnings:", layer.Warnings)
	}
}

func TestFlashCirclePerimeterDistance(t *testing.T) {
	b := mesh.NewBuilder()
	if err := Flash(b, circleAp(2.0), mgl64.Vec2{5, 3}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	for i := 1; i < int(layer.VertexCount); i++ {
		dx := float64(layer.Positions[2*i]) - 5.0
		dy := float64(layer.Positions[2*i+1]) - 3.0
		if math.Abs(math.Hypot(dx, dy)-1.0) > 1e-5 {
			t.Fatal("perimeter vertex", i, "is off the circle")
		}
	}
}

func TestFlashRectangleCorners(t *testing.T) {
	b := mesh.NewBuilder()
	if err := Flash(b, rectAp(2.0, 1.0), mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 4 || len(layer.Indices) != 6 {
		t.Fatal("rectangle flash shape:", layer.VertexCount, len(layer.Indices))
	}
	want := []float32{-1, -0.5, 1, -0.5, 1, 0.5, -1, 0.5}
	for i := range want {
		if layer.Positions[i] != want[i] {
			t.Fatal("corner", i/2, "mismatch:", layer.Positions)
		}
	}
}

func TestFlashObroundBounds(t *testing.T) {
	b := mesh.NewBuilder()
	ap := &apertures.Aperture{Type: gerberbasetypes.AptypeObround, XSize: 3.0, YSize: 1.0}
	if err := Flash(b, ap, mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	boundsClose(t, layer.Bounds, -1.5, -0.5, 1.5, 0.5)

	b = mesh.NewBuilder()
	ap = &apertures.Aperture{Type: gerberbasetypes.AptypeObround, XSize: 1.0, YSize: 3.0}
	if err := Flash(b, ap, mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer = b.Finish()
	boundsClose(t, layer.Bounds, -0.5, -1.5, 0.5, 1.5)
}

func TestFlashObroundSquareIsCircle(t *testing.T) {
	b := mesh.NewBuilder()
	ap := &apertures.Aperture{Type: gerberbasetypes.AptypeObround, XSize: 1.0, YSize: 1.0}
	if err := Flash(b, ap, mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 33 {
		t.Fatal("square obround must degrade to a circle, got", layer.VertexCount, "vertices")
	}
}

func TestFlashPolygonRotationIdempotence(t *testing.T) {
	flash := func(rot float64) []float32 {
		b := mesh.NewBuilder()
		ap := &apertures.Aperture{Type: gerberbasetypes.AptypePoly, Diameter: 2.0, Vertices: 6, RotAngle: rot}
		if err := Flash(b, ap, mgl64.Vec2{0, 0}); err != nil {
			t.Fatal(err)
		}
		return b.Finish().Positions
	}
	a := flash(30.0)
	c := flash(30.0 + 360.0)
	if len(a) != len(c) {
		t.Fatal("vertex counts differ between rot and rot+360")
	}
	for i := range a {
		if math.Abs(float64(a[i]-c[i])) > 1e-5 {
			t.Fatal("rotation is not 360-periodic at float", i)
		}
	}
}

func TestFlashPolygonVertexClamp(t *testing.T) {
	b := mesh.NewBuilder()
	ap := &apertures.Aperture{Type: gerberbasetypes.AptypePoly, Diameter: 2.0, Vertices: 40}
	if err := Flash(b, ap, mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 12 {
		t.Fatal("vertex count not clamped to 12:", layer.VertexCount)
	}
	if layer.WarningCount != 1 {
		t.Fatal("clamping did not warn")
	}
}

func TestFlashZeroAndNegativeDimensions(t *testing.T) {
	b := mesh.NewBuilder()
	if err := Flash(b, circleAp(0), mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 0 {
		t.Fatal("zero-diameter circle emitted geometry")
	}
	if layer.WarningCount != 1 {
		t.Fatal("zero-diameter circle did not warn")
	}

	b = mesh.NewBuilder()
	if err := Flash(b, rectAp(-2.0, -1.0), mgl64.Vec2{0, 0}); err != nil {
		t.Fatal(err)
	}
	layer = b.Finish()
	boundsClose(t, layer.Bounds, -1, -0.5, 1, 0.5)
	if layer.WarningCount != 2 {
		t.Fatal("negative dimensions did not warn twice:", layer.Warnings)
	}
}

func TestDrawLinearQuad(t *testing.T) {
	b := mesh.NewBuilder()
	if err := DrawLinear(b, mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0}, rectAp(2.0, 2.0)); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 4 || len(layer.Indices) != 6 {
		t.Fatal("rectangular stroke must be a bare quad:", layer.VertexCount)
	}
	boundsClose(t, layer.Bounds, 0, -1, 10, 1)
}

func TestDrawLinearPerpendicularOffsets(t *testing.T) {
	b := mesh.NewBuilder()
	if err := DrawLinear(b, mgl64.Vec2{0, 0}, mgl64.Vec2{3, 4}, rectAp(2.0, 2.0)); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	// first quad edge must be perpendicular to the segment direction
	ex := float64(layer.Positions[2] - layer.Positions[0])
	ey := float64(layer.Positions[3] - layer.Positions[1])
	dot := ex*(3.0/5.0) + ey*(4.0/5.0)
	if math.Abs(dot) > 1e-6 {
		t.Fatal("stroke quad is not perpendicular to the direction, dot =", dot)
	}
}

func TestDrawLinearRoundCaps(t *testing.T) {
	b := mesh.NewBuilder()
	if err := DrawLinear(b, mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0}, circleAp(2.0)); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount <= 4 {
		t.Fatal("circular stroke lost its endcaps")
	}
	boundsClose(t, layer.Bounds, -1, -1, 11, 1)
}

func TestDrawLinearZeroLength(t *testing.T) {
	b := mesh.NewBuilder()
	if err := DrawLinear(b, mgl64.Vec2{5, 5}, mgl64.Vec2{5, 5}, circleAp(1.0)); err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount != 33 {
		t.Fatal("zero-length circular draw must flash, got", layer.VertexCount, "vertices")
	}

	b = mesh.NewBuilder()
	if err := DrawLinear(b, mgl64.Vec2{5, 5}, mgl64.Vec2{5, 5}, rectAp(1.0, 1.0)); err != nil {
		t.Fatal(err)
	}
	layer = b.Finish()
	if layer.VertexCount != 0 || layer.WarningCount != 1 {
		t.Fatal("zero-length rectangular draw must warn and skip")
	}
}

func TestArcCenterlineStaysOnRadius(t *testing.T) {
	b := mesh.NewBuilder()
	points, ok := ArcCenterline(b, mgl64.Vec2{0, 5}, mgl64.Vec2{5, 0}, mgl64.Vec2{0, -5},
		gerberbasetypes.IPModeCwC)
	if !ok || len(points) == 0 {
		t.Fatal("quarter arc not tessellated")
	}
	for _, p := range points {
		if math.Abs(p.Len()-5.0) > 1e-6 {
			t.Fatal("arc point off radius:", p)
		}
	}
}

func TestArcCenterlineChordRule(t *testing.T) {
	b := mesh.NewBuilder()
	points, ok := ArcCenterline(b, mgl64.Vec2{5, 0}, mgl64.Vec2{0, 5}, mgl64.Vec2{-5, 0},
		gerberbasetypes.IPModeCCwC)
	if !ok {
		t.Fatal("arc not tessellated")
	}
	// quarter circle of radius 5: arc length ~7.854, chords of at most 0.02
	want := int(math.Ceil(halfPi * 5.0 / ChordLength))
	if len(points) != want+1 {
		t.Fatal("chord rule violated: got", len(points), "points, expected", want+1)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Sub(points[i-1]).Len() > ChordLength+1e-9 {
			t.Fatal("chord longer than the limit at", i)
		}
	}
}

func TestArcCenterlineMinimumSegments(t *testing.T) {
	b := mesh.NewBuilder()
	// a tiny arc still gets MinArcSegments segments
	to := mgl64.Vec2{0.001 * math.Cos(0.001), 0.001 * math.Sin(0.001)}
	points, ok := ArcCenterline(b, mgl64.Vec2{0.001, 0}, to, mgl64.Vec2{-0.001, 0},
		gerberbasetypes.IPModeCCwC)
	if !ok {
		t.Fatal("tiny arc not tessellated")
	}
	if len(points) != MinArcSegments+1 {
		t.Fatal("minimum segment count not honored:", len(points))
	}
}

func TestArcFullCircle(t *testing.T) {
	b := mesh.NewBuilder()
	points, ok := ArcCenterline(b, mgl64.Vec2{5, 0}, mgl64.Vec2{5, 0}, mgl64.Vec2{-5, 0},
		gerberbasetypes.IPModeCCwC)
	if !ok {
		t.Fatal("full circle not tessellated")
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X())
		maxX = math.Max(maxX, p.X())
		minY = math.Min(minY, p.Y())
		maxY = math.Max(maxY, p.Y())
	}
	if minX > -4.999 || maxX < 4.999 || minY > -4.999 || maxY < 4.999 {
		t.Fatal("full circle does not cover all quadrants")
	}
}

func TestArcSweepSigns(t *testing.T) {
	b := mesh.NewBuilder()
	// CCW from (5,0) to (0,5): the first step must move counter-clockwise
	points, _ := ArcCenterline(b, mgl64.Vec2{5, 0}, mgl64.Vec2{0, 5}, mgl64.Vec2{-5, 0},
		gerberbasetypes.IPModeCCwC)
	if points[1].Y() <= 0 {
		t.Fatal("counter-clockwise arc moved clockwise")
	}
	points, _ = ArcCenterline(b, mgl64.Vec2{5, 0}, mgl64.Vec2{0, 5}, mgl64.Vec2{-5, 0},
		gerberbasetypes.IPModeCwC)
	if points[1].Y() >= 0 {
		t.Fatal("clockwise arc moved counter-clockwise")
	}
}

func TestArcRadiusMismatchWarnsAndAverages(t *testing.T) {
	b := mesh.NewBuilder()
	_, ok := ArcCenterline(b, mgl64.Vec2{5, 0}, mgl64.Vec2{0, 5.2}, mgl64.Vec2{-5, 0},
		gerberbasetypes.IPModeCCwC)
	if !ok {
		t.Fatal("mismatched-radius arc must still tessellate")
	}
	layer := b.Finish()
	if layer.WarningCount != 1 {
		t.Fatal("radius mismatch did not warn")
	}
}

func TestArcDegenerateCases(t *testing.T) {
	b := mesh.NewBuilder()
	if _, ok := ArcCenterline(b, mgl64.Vec2{1, 1}, mgl64.Vec2{2, 2}, mgl64.Vec2{0, 0},
		gerberbasetypes.IPModeCCwC); ok {
		t.Fatal("zero-radius arc accepted")
	}
	if _, ok := ArcCenterline(b, mgl64.Vec2{1, 1}, mgl64.Vec2{1, 1}, mgl64.Vec2{0, 0},
		gerberbasetypes.IPModeCCwC); ok {
		t.Fatal("degenerate closed arc accepted")
	}
	layer := b.Finish()
	if layer.WarningCount != 2 {
		t.Fatal("degenerate arcs did not warn:", layer.Warnings)
	}
}

func TestDrawArcEmitsGeometry(t *testing.T) {
	b := mesh.NewBuilder()
	err := DrawArc(b, mgl64.Vec2{5, 0}, mgl64.Vec2{0, 5}, mgl64.Vec2{-5, 0},
		gerberbasetypes.IPModeCCwC, rectAp(1.0, 1.0))
	if err != nil {
		t.Fatal(err)
	}
	layer := b.Finish()
	if layer.VertexCount == 0 || len(layer.Indices) == 0 {
		t.Fatal("widened arc emitted nothing")
	}
	// a quarter arc of radius 5 with a 1.0 rectangular pen: the pen has no
	// endcaps, so the strip stops at the offset corners of the first and
	// last chords, which the chord tilt puts about 0.001 past the axes
	bb := layer.Bounds
	const eps = 1e-3
	if math.Abs(bb.MinX+0.001) > eps || math.Abs(bb.MinY+0.001) > eps ||
		math.Abs(bb.MaxX-5.5) > eps || math.Abs(bb.MaxY-5.5) > eps {
		t.Fatal("arc bounds mismatch:", bb.String())
	}
}

func TestRotatedRect(t *testing.T) {
	b := mesh.NewBuilder()
	RotatedRect(b, mgl64.Vec2{0, 0}, 2.0, 1.0, 90.0)
	layer := b.Finish()
	// after 90 degrees the long side is vertical
	boundsClose(t, layer.Bounds, -0.5, -1, 0.5, 1)
}
