/*
Package gerberview turns Gerber RS-274X image files and Excellon
NC-drill files into flat triangulated meshes suitable for a GPU:
interleaved float32 positions, uint32 triangle indices and a compact
metadata record.

The two entry points are pure: bytes in, geometry and metadata out. All
interpreter state lives and dies inside a single call, so concurrent
invocations on different goroutines are safe. Recoverable problems
degrade to warnings inside the returned record; an error comes back
only for empty input or an encoding violation.
*/
package gerberview

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/excellon"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/gerbparser"
	"github.com/SohaibAli9/gerberview/mesh"
	"github.com/SohaibAli9/gerberview/render"
)

// fatal conditions of the entry points
var (
	ErrEmptyInput      = gerberbasetypes.ErrEmptyInput
	ErrInvalidEncoding = gerberbasetypes.ErrInvalidEncoding
)

// ParseGerber interprets one Gerber RS-274X file.
func ParseGerber(data []byte) (*mesh.Layer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	return gerbparser.NewParser().Process(data)
}

// ParseExcellon interprets one Excellon drill file; every hole is
// flashed as a circle of the tool's diameter.
func ParseExcellon(data []byte) (*mesh.Layer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	drill, err := excellon.Parse(data)
	if err != nil {
		return nil, err
	}

	b := mesh.NewBuilder()
	for _, w := range drill.Warnings {
		b.Warn(w)
	}
	for _, hole := range drill.Holes {
		if b.Full() {
			break
		}
		render.FlashCircle(b, mgl64.Vec2{hole.X, hole.Y}, hole.Diameter)
	}
	layer := b.Finish()
	layer.CommandCount = uint32(len(drill.Holes))
	return layer, nil
}
