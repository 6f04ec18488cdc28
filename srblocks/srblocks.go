/*
############################## step and repeat blocks #################################

	%SRX<n>Y<n>I<n>J<n>*% opens a block; a bare %SR*% closes it. While a
	block is open the geometry it accumulates is tracked as a builder index
	range; on close the range is duplicated over the nx×ny grid.
*/
package srblocks

import (
	"errors"
	"strconv"
	"strings"

	"github.com/SohaibAli9/gerberview/mesh"
)

type SRBlock struct {
	srString string
	numX     int
	numY     int
	dX       float64
	dY       float64

	startVertex uint32
	startIndex  uint32
}

func (srblock *SRBlock) String() string {
	if srblock == nil {
		return "<nil>"
	}
	return "Step and repeat block: " + srblock.srString +
		" (" + strconv.Itoa(srblock.numX) + "x" + strconv.Itoa(srblock.numY) +
		" repeats, dX=" + strconv.FormatFloat(srblock.dX, 'f', 5, 64) +
		", dY=" + strconv.FormatFloat(srblock.dY, 'f', 5, 64) + ")"
}

func (srblock *SRBlock) NumX() int {
	return srblock.numX
}

func (srblock *SRBlock) NumY() int {
	return srblock.numY
}

func (srblock *SRBlock) DX() float64 {
	return srblock.dX
}

func (srblock *SRBlock) DY() float64 {
	return srblock.dY
}

// Init parses the parameter body, e.g. "SRX2Y3I10.0J5.0". The I/J pitch
// is in file units and scaled to millimeters by mu.
func (srblock *SRBlock) Init(ins string, mu float64) error {
	ins = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ins), "SR"))
	res, err := ExtractLetterDelimitedFloats(ins, "XYIJ")
	if err != nil {
		return err
	}
	if len(res) != 4 {
		return errors.New("SRBlock.Init: missing one or some SRBlock parameter(s)")
	}
	srblock.numX = int(res['X'])
	srblock.numY = int(res['Y'])
	if srblock.numX < 0 || srblock.numY < 0 {
		return errors.New("SRBlock.Init: negative repeat count")
	}
	srblock.dX = res['I'] * mu
	srblock.dY = res['J'] * mu
	srblock.srString = ins
	return nil
}

// Open records the current builder marks; everything pushed afterwards
// belongs to the block.
func (srblock *SRBlock) Open(b *mesh.Builder) {
	srblock.startVertex = b.VertexCount()
	srblock.startIndex = b.IndexCount()
}

// Expand duplicates the block geometry over the grid, row-major with j
// (the Y step) as the outer loop. The (0,0) copy is the geometry already
// in place.
func (srblock *SRBlock) Expand(b *mesh.Builder) {
	if srblock.numX < 1 || srblock.numY < 1 {
		b.Warnf("step-repeat with zero count (%dx%d); no copies emitted", srblock.numX, srblock.numY)
		return
	}
	endVertex := b.VertexCount()
	endIndex := b.IndexCount()
	for j := 0; j < srblock.numY; j++ {
		for i := 0; i < srblock.numX; i++ {
			if i == 0 && j == 0 {
				continue
			}
			offX := float64(i) * srblock.dX
			offY := float64(j) * srblock.dY
			base := b.VertexCount()
			for v := srblock.startVertex; v < endVertex; v++ {
				x, y := b.Vertex(v)
				if _, ok := b.PushVertex(x+offX, y+offY); !ok {
					return
				}
			}
			for k := srblock.startIndex; k+2 < endIndex; k += 3 {
				i0 := b.Index(k) - srblock.startVertex + base
				i1 := b.Index(k+1) - srblock.startVertex + base
				i2 := b.Index(k+2) - srblock.startVertex + base
				b.PushTriangle(i0, i1, i2)
			}
		}
	}
}

// ExtractLetterDelimitedFloats splits the input by the template's
// symbols used as ordered delimiters and returns a symbol:value map.
func ExtractLetterDelimitedFloats(ins, template string) (map[byte]float64, error) {
	out := make(map[byte]float64)
	type hit struct {
		sym byte
		pos int
	}
	hits := make([]hit, 0, len(template))
	for i := 0; i < len(template); i++ {
		if p := strings.IndexByte(ins, template[i]); p != -1 {
			hits = append(hits, hit{template[i], p})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	for i, h := range hits {
		end := len(ins)
		if i+1 < len(hits) {
			end = hits[i+1].pos
		}
		fv, err := strconv.ParseFloat(ins[h.pos+1:end], 64)
		if err != nil {
			return nil, err
		}
		out[h.sym] = fv
	}
	return out, nil
}
