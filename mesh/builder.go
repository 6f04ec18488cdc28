package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/SohaibAli9/gerberview/gerberbasetypes"
)

// MaxTriangles is the per-invocation output cap. When the cap is hit the
// builder warns once, stops accepting geometry and the partial result is
// still returned.
const MaxTriangles = 10_000_000

// indices are unsigned 32-bit on the wire but the builder refuses to go
// past 2^31 so hosts with signed index types stay safe
const maxIndexValue = 1 << 31

/*
############################ builder #####################
*/

// Builder is the append-only accumulator all geometry producers share.
// Positions are kept in float64 until Finish, which narrows them to
// float32 for the GPU.
type Builder struct {
	positions []float64
	indices   []uint32
	bounds    BoundingBox
	warnings  []string

	clearRanges []ClearRange
	clearStart  int // index count at the open of the active clear run, -1 when closed

	full bool // resource limit reached, drop further geometry
}

// creates an empty builder
func NewBuilder() *Builder {
	b := new(Builder)
	b.bounds = NewBoundingBox()
	b.clearStart = -1
	return b
}

// records a warning message
func (b *Builder) Warn(msg string) {
	b.warnings = append(b.warnings, msg)
}

// records a formatted warning message
func (b *Builder) Warnf(format string, args ...interface{}) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// returns the current number of vertices
func (b *Builder) VertexCount() uint32 {
	return uint32(len(b.positions) / 2)
}

// returns the current number of triangle indices
func (b *Builder) IndexCount() uint32 {
	return uint32(len(b.indices))
}

// reports whether the resource limit has been reached
func (b *Builder) Full() bool {
	return b.full
}

// returns the vertex at index i, valid until the next PushVertex
func (b *Builder) Vertex(i uint32) (x, y float64) {
	return b.positions[2*i], b.positions[2*i+1]
}

// returns the i-th entry of the triangle index list
func (b *Builder) Index(i uint32) uint32 {
	return b.indices[i]
}

// PushVertex appends a vertex and returns its index. Non-finite
// coordinates are rejected with a warning; the second return value
// reports acceptance.
func (b *Builder) PushVertex(x, y float64) (uint32, bool) {
	if b.full {
		return 0, false
	}
	if !isFinite(x) || !isFinite(y) {
		b.Warnf("%s: non-finite vertex (%v,%v) rejected", gerberbasetypes.WarnDegenerateGeometry, x, y)
		return 0, false
	}
	idx := len(b.positions) / 2
	if idx >= maxIndexValue {
		b.stop("vertex index space exhausted")
		return 0, false
	}
	b.positions = append(b.positions, x, y)
	b.bounds.Update(x, y)
	return uint32(idx), true
}

// PushTriangle appends one triangle. Indices referring to vertices that
// do not exist are rejected with a warning.
func (b *Builder) PushTriangle(i0, i1, i2 uint32) {
	if b.full {
		return
	}
	n := b.VertexCount()
	if i0 >= n || i1 >= n || i2 >= n {
		b.Warnf("%s: triangle index out of range (%d,%d,%d of %d vertices)",
			gerberbasetypes.WarnDegenerateGeometry, i0, i1, i2, n)
		return
	}
	if len(b.indices)/3 >= MaxTriangles {
		b.stop("triangle cap reached")
		return
	}
	b.indices = append(b.indices, i0, i1, i2)
}

// PushQuad appends a quad as the two triangles (i0,i1,i2) and (i0,i2,i3).
func (b *Builder) PushQuad(i0, i1, i2, i3 uint32) {
	b.PushTriangle(i0, i1, i2)
	b.PushTriangle(i0, i2, i3)
}

// PushNgon appends a regular N-gon centered at (cx,cy): the center vertex
// first, then segments perimeter vertices, fan-triangulated into exactly
// segments triangles. Returns the index of the center vertex.
func (b *Builder) PushNgon(cx, cy, radius float64, segments int) (uint32, bool) {
	if segments < 3 {
		segments = 3
	}
	center, ok := b.PushVertex(cx, cy)
	if !ok {
		return 0, false
	}
	for i := 0; i < segments; i++ {
		angle := 2.0 * math.Pi * float64(i) / float64(segments)
		if _, ok := b.PushVertex(cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)); !ok {
			return center, false
		}
	}
	for i := 0; i < segments; i++ {
		next := (i+1)%segments + 1
		b.PushTriangle(center, center+uint32(i)+1, center+uint32(next))
	}
	return center, true
}

// OpenClearRange marks the current index count as the start of a clear
// run. Nested opens are idempotent: the start stays put until the close.
func (b *Builder) OpenClearRange() {
	if b.clearStart < 0 {
		b.clearStart = len(b.indices)
	}
}

// CloseClearRange ends the active clear run, recording it when non-empty.
func (b *Builder) CloseClearRange() {
	if b.clearStart < 0 {
		return
	}
	count := len(b.indices) - b.clearStart
	if count > 0 {
		b.clearRanges = append(b.clearRanges, ClearRange{
			First: uint32(b.clearStart),
			Count: uint32(count),
		})
	}
	b.clearStart = -1
}

// Finish seals the builder and hands the accumulated geometry to the
// caller. The builder must not be used afterwards.
func (b *Builder) Finish() *Layer {
	b.CloseClearRange()

	layer := new(Layer)
	layer.Positions = make([]float32, len(b.positions))
	for i, v := range b.positions {
		layer.Positions[i] = float32(v)
	}
	layer.Indices = b.indices
	if b.bounds.Defined() {
		layer.Bounds = b.bounds
	} else {
		layer.Bounds = BoundingBox{}
	}
	layer.VertexCount = b.VertexCount()
	layer.IndexCount = b.IndexCount()
	layer.Warnings = b.warnings
	layer.WarningCount = uint32(len(b.warnings))
	layer.ClearRanges = coalesceClearRanges(b.clearRanges)
	return layer
}

func (b *Builder) stop(reason string) {
	if b.full {
		return
	}
	b.full = true
	b.Warnf("%s: %s; remainder of the file ignored", gerberbasetypes.WarnResourceLimit, reason)
}

// coalesceClearRanges merges overlapping and adjacent runs and drops
// empty ones.
func coalesceClearRanges(in []ClearRange) []ClearRange {
	out := make([]ClearRange, 0, len(in))
	for _, r := range in {
		if r.Count > 0 {
			out = append(out, r)
		}
	}
	if len(out) < 2 {
		return out
	}
	sort.Slice(out, func(i, j int) bool { return out[i].First < out[j].First })
	merged := out[:1]
	for _, r := range out[1:] {
		last := &merged[len(merged)-1]
		if r.First <= last.First+last.Count {
			end := r.First + r.Count
			if end > last.First+last.Count {
				last.Count = end - last.First
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
