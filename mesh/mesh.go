/*
Triangle mesh output record.

A Layer is what one parsed file turns into: interleaved 2-component
float32 positions, a 32-bit triangle index list, a bounding box and the
bookkeeping counters. The record is built once per entry call and owned
exclusively by the caller afterwards.
*/
package mesh

import (
	"math"
	"strconv"
)

// Axis-aligned bounding box in millimeters.
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// creates an undefined bounding box which expands with the first Update
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// expands the box to include the point
func (bb *BoundingBox) Update(x, y float64) {
	bb.MinX = math.Min(bb.MinX, x)
	bb.MinY = math.Min(bb.MinY, y)
	bb.MaxX = math.Max(bb.MaxX, x)
	bb.MaxY = math.Max(bb.MaxY, y)
}

// reports whether any vertex has been accumulated
func (bb *BoundingBox) Defined() bool {
	return bb.MinX <= bb.MaxX && bb.MinY <= bb.MaxY
}

func (bb BoundingBox) String() string {
	return "(" + strconv.FormatFloat(bb.MinX, 'f', 5, 64) +
		"," + strconv.FormatFloat(bb.MinY, 'f', 5, 64) +
		")-(" + strconv.FormatFloat(bb.MaxX, 'f', 5, 64) +
		"," + strconv.FormatFloat(bb.MaxY, 'f', 5, 64) + ")"
}

// ClearRange identifies a contiguous run of triangle indices that was
// emitted under clear polarity. The host may paint the run in the
// background color.
type ClearRange struct {
	First uint32 // first index of the run
	Count uint32 // number of indices in the run
}

// Layer is the flat GPU-ready geometry plus metadata for one input file.
type Layer struct {
	Positions []float32 // interleaved [x0 y0 x1 y1 ...], length 2*V
	Indices   []uint32  // triangle list, length 3*T, each < V

	Bounds BoundingBox

	CommandCount uint32
	VertexCount  uint32
	IndexCount   uint32
	WarningCount uint32

	Warnings    []string
	ClearRanges []ClearRange
}
