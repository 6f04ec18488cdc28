// Aperture Macros support
//
// %AM...% bodies are parsed once into a MacroTemplate of primitives;
// flashing a macro aperture instantiates the template with its actual
// parameters through the calculator environment.
package amprocessor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/calculator"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/mesh"
	"github.com/SohaibAli9/gerberview/regions"
	"github.com/SohaibAli9/gerberview/render"
)

type AMPrimitiveType int

const (
	AMPrimitive_Comment    AMPrimitiveType = 0
	AMPrimitive_Circle     AMPrimitiveType = 1
	AMPrimitive_VectLine   AMPrimitiveType = 20
	AMPrimitive_CenterLine AMPrimitiveType = 21
	AMPrimitive_OutLine    AMPrimitiveType = 4
	AMPrimitive_Polygon    AMPrimitiveType = 5
	AMPrimitive_Moire      AMPrimitiveType = 6
	AMPrimitive_Thermal    AMPrimitiveType = 7
)

func (amp AMPrimitiveType) String() string {
	switch amp {
	case AMPrimitive_Comment:
		return "comment"
	case AMPrimitive_Circle:
		return "circle"
	case AMPrimitive_VectLine:
		return "vector line"
	case AMPrimitive_CenterLine:
		return "center line"
	case AMPrimitive_OutLine:
		return "outline"
	case AMPrimitive_Polygon:
		return "polygon"
	case AMPrimitive_Moire:
		return "moire"
	case AMPrimitive_Thermal:
		return "thermal"
	default:
		return "unknown"
	}
}

// DrawContext carries everything a primitive needs to emit itself.
type DrawContext struct {
	Builder *mesh.Builder
	Env     *calculator.Env
	At      mgl64.Vec2 // flash position, millimeters
	MU      float64    // scale of dimensional modifiers to millimeters
	// GlobalClear is true while the interpreter has %LPC*% active; the
	// whole emission is already inside a clear range then and
	// exposure-off primitives need no range of their own.
	GlobalClear bool
}

func (ctx *DrawContext) eval(mod string) (float64, error) {
	return calculator.CalcExpression(mod, ctx.Env)
}

func (ctx *DrawContext) evalAll(mods []string) ([]float64, error) {
	out := make([]float64, len(mods))
	for i, m := range mods {
		v, err := ctx.eval(m)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// scale converts a dimensional modifier value to millimeters
func (ctx *DrawContext) scale(v float64) float64 {
	return v * ctx.MU
}

// AMPrimitive is one entry of a macro body.
type AMPrimitive interface {
	// Draw evaluates the primitive in the context and emits its
	// geometry into the builder
	Draw(ctx *DrawContext) error

	// returns a string representation of the primitive
	String() string
}

// withExposure wraps an emission in a clear range when the exposure flag
// evaluates to off.
func withExposure(ctx *DrawContext, exposure float64, emit func()) {
	clear := exposure == 0 && !ctx.GlobalClear
	if clear {
		ctx.Builder.OpenClearRange()
	}
	emit()
	if clear {
		ctx.Builder.CloseClearRange()
	}
}

/*
############################ primitives #####################
*/

type AMPrimitiveComment struct {
	AMModifiers []string
}

func (amp AMPrimitiveComment) String() string {
	return "macro primitive: comment"
}

func (amp AMPrimitiveComment) Draw(ctx *DrawContext) error {
	return nil
}

type AMPrimitiveCircle struct {
	AMModifiers []string
}

func (amp AMPrimitiveCircle) String() string {
	return "macro primitive: circle(" + strings.Join(amp.AMModifiers, ",") + ")"
}

func (amp AMPrimitiveCircle) Draw(ctx *DrawContext) error {
	if len(amp.AMModifiers) < 4 {
		return errors.New("circle primitive needs exposure, diameter and center")
	}
	vals, err := ctx.evalAll(amp.AMModifiers)
	if err != nil {
		return err
	}
	rot := 0.0
	if len(vals) >= 5 {
		rot = vals[4]
	}
	center := render.RotatePoint(mgl64.Vec2{ctx.scale(vals[2]), ctx.scale(vals[3])}, rot).Add(ctx.At)
	withExposure(ctx, vals[0], func() {
		render.FlashCircle(ctx.Builder, center, ctx.scale(vals[1]))
	})
	return nil
}

type AMPrimitiveVectLine struct {
	AMModifiers []string
}

func (amp AMPrimitiveVectLine) String() string {
	return "macro primitive: vector line(" + strings.Join(amp.AMModifiers, ",") + ")"
}

func (amp AMPrimitiveVectLine) Draw(ctx *DrawContext) error {
	if len(amp.AMModifiers) < 6 {
		return errors.New("vector line primitive needs exposure, width, start and end")
	}
	vals, err := ctx.evalAll(amp.AMModifiers)
	if err != nil {
		return err
	}
	rot := 0.0
	if len(vals) >= 7 {
		rot = vals[6]
	}
	start := render.RotatePoint(mgl64.Vec2{ctx.scale(vals[2]), ctx.scale(vals[3])}, rot).Add(ctx.At)
	end := render.RotatePoint(mgl64.Vec2{ctx.scale(vals[4]), ctx.scale(vals[5])}, rot).Add(ctx.At)
	// the line is stroked with a round pen of the declared width
	pen := &apertures.Aperture{Type: gerberbasetypes.AptypeCircle, Diameter: ctx.scale(vals[1])}
	withExposure(ctx, vals[0], func() {
		_ = render.DrawLinear(ctx.Builder, start, end, pen)
	})
	return nil
}

type AMPrimitiveCenterLine struct {
	AMModifiers []string
}

func (amp AMPrimitiveCenterLine) String() string {
	return "macro primitive: center line(" + strings.Join(amp.AMModifiers, ",") + ")"
}

func (amp AMPrimitiveCenterLine) Draw(ctx *DrawContext) error {
	if len(amp.AMModifiers) < 5 {
		return errors.New("center line primitive needs exposure, size and center")
	}
	vals, err := ctx.evalAll(amp.AMModifiers)
	if err != nil {
		return err
	}
	rot := 0.0
	if len(vals) >= 6 {
		rot = vals[5]
	}
	w := ctx.scale(vals[1])
	h := ctx.scale(vals[2])
	center := render.RotatePoint(mgl64.Vec2{ctx.scale(vals[3]), ctx.scale(vals[4])}, rot).Add(ctx.At)
	withExposure(ctx, vals[0], func() {
		render.RotatedRect(ctx.Builder, center, w, h, rot)
	})
	return nil
}

type AMPrimitiveOutLine struct {
	AMModifiers []string
}

func (amp AMPrimitiveOutLine) String() string {
	return "macro primitive: outline(" + strings.Join(amp.AMModifiers, ",") + ")"
}

func (amp AMPrimitiveOutLine) Draw(ctx *DrawContext) error {
	if len(amp.AMModifiers) < 2 {
		return errors.New("outline primitive needs exposure and a vertex count")
	}
	exposure, err := ctx.eval(amp.AMModifiers[0])
	if err != nil {
		return err
	}
	nf, err := ctx.eval(amp.AMModifiers[1])
	if err != nil {
		return err
	}
	n := int(nf)
	if n < 1 {
		return fmt.Errorf("outline primitive with %d segments", n)
	}
	// n+1 coordinate pairs, the first vertex repeated at the end
	pairs := n + 1
	if len(amp.AMModifiers) < 2+2*pairs {
		return fmt.Errorf("outline primitive expects %d coordinates, has %d",
			2*pairs, len(amp.AMModifiers)-2)
	}
	rot := 0.0
	if len(amp.AMModifiers) > 2+2*pairs {
		if rot, err = ctx.eval(amp.AMModifiers[2+2*pairs]); err != nil {
			return err
		}
	}
	boundary := make([]mgl64.Vec2, 0, pairs)
	for i := 0; i < pairs; i++ {
		x, err := ctx.eval(amp.AMModifiers[2+2*i])
		if err != nil {
			return err
		}
		y, err := ctx.eval(amp.AMModifiers[3+2*i])
		if err != nil {
			return err
		}
		p := render.RotatePoint(mgl64.Vec2{ctx.scale(x), ctx.scale(y)}, rot).Add(ctx.At)
		boundary = append(boundary, p)
	}
	withExposure(ctx, exposure, func() {
		regions.FillRegion(ctx.Builder, boundary)
	})
	return nil
}

type AMPrimitivePolygon struct {
	AMModifiers []string
}

func (amp AMPrimitivePolygon) String() string {
	return "macro primitive: polygon(" + strings.Join(amp.AMModifiers, ",") + ")"
}

func (amp AMPrimitivePolygon) Draw(ctx *DrawContext) error {
	if len(amp.AMModifiers) < 5 {
		return errors.New("polygon primitive needs exposure, vertices, center and diameter")
	}
	vals, err := ctx.evalAll(amp.AMModifiers)
	if err != nil {
		return err
	}
	rot := 0.0
	if len(vals) >= 6 {
		rot = vals[5]
	}
	center := render.RotatePoint(mgl64.Vec2{ctx.scale(vals[2]), ctx.scale(vals[3])}, rot).Add(ctx.At)
	withExposure(ctx, vals[0], func() {
		render.FlashPolygon(ctx.Builder, center, ctx.scale(vals[4]), int(vals[1]), rot)
	})
	return nil
}

// amVarDef is a $n=<expr> body line: it extends the parameter
// environment for the primitives that follow.
type amVarDef struct {
	slot int
	expr string
}

func (vd amVarDef) String() string {
	return "macro variable $" + strconv.Itoa(vd.slot) + "=" + vd.expr
}

func (vd amVarDef) Draw(ctx *DrawContext) error {
	val, err := ctx.eval(vd.expr)
	if err != nil {
		return err
	}
	for len(ctx.Env.Params) < vd.slot {
		ctx.Env.Params = append(ctx.Env.Params, 0.0)
	}
	ctx.Env.Params[vd.slot-1] = val
	return nil
}

/*
############################ template #####################
*/

type MacroTemplate struct {
	Name         string
	SourceString string
	items        []AMPrimitive
}

func (macro *MacroTemplate) String() string {
	return "aperture macro " + macro.Name + " (" + strconv.Itoa(len(macro.items)) + " entries)"
}

// ParseMacro decodes an %AM...% body as delivered by the lexer:
// "AM<NAME>*<primitive>*<primitive>...".
func ParseMacro(body string) (*MacroTemplate, error) {
	blocks := strings.Split(strings.TrimSpace(body), "*")
	if len(blocks) < 2 {
		return nil, errors.New("aperture macro without a body: " + body)
	}
	name := strings.TrimSpace(strings.TrimPrefix(blocks[0], "AM"))
	if name == "" {
		return nil, errors.New("aperture macro without a name")
	}

	macro := &MacroTemplate{Name: name, SourceString: body}
	for _, raw := range blocks[1:] {
		block := strings.TrimSpace(raw)
		if block == "" {
			continue
		}
		if strings.HasPrefix(block, "$") {
			eq := strings.IndexByte(block, '=')
			if eq == -1 {
				return nil, errors.New("macro variable definition lacks '=': " + block)
			}
			slot, err := strconv.Atoi(block[1:eq])
			if err != nil || slot < 1 {
				return nil, errors.New("macro variable definition has a bad slot: " + block)
			}
			macro.items = append(macro.items, amVarDef{slot: slot, expr: block[eq+1:]})
			continue
		}
		fields := strings.Split(block, ",")
		code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, errors.New("macro primitive lacks a numeric code: " + block)
		}
		mods := make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			mods = append(mods, strings.TrimSpace(f))
		}
		prim, err := NewAMPrimitive(AMPrimitiveType(code), mods)
		if err != nil {
			return nil, err
		}
		macro.items = append(macro.items, prim)
	}
	return macro, nil
}

// creates and returns a new primitive object of the given type
func NewAMPrimitive(amp AMPrimitiveType, modifStrings []string) (AMPrimitive, error) {
	switch amp {
	case AMPrimitive_Comment:
		return AMPrimitiveComment{modifStrings}, nil
	case AMPrimitive_Circle:
		return AMPrimitiveCircle{modifStrings}, nil
	case AMPrimitive_VectLine:
		return AMPrimitiveVectLine{modifStrings}, nil
	case AMPrimitive_CenterLine:
		return AMPrimitiveCenterLine{modifStrings}, nil
	case AMPrimitive_OutLine:
		return AMPrimitiveOutLine{modifStrings}, nil
	case AMPrimitive_Polygon:
		return AMPrimitivePolygon{modifStrings}, nil
	case AMPrimitive_Moire, AMPrimitive_Thermal:
		return nil, fmt.Errorf("%s primitive is not supported", amp.String())
	default:
		return nil, fmt.Errorf("unknown aperture macro primitive type %d", int(amp))
	}
}

// Instantiate evaluates the template with the given actual parameters
// and emits the geometry at the flash position. Failures inside one
// primitive warn and abort that primitive only.
func (macro *MacroTemplate) Instantiate(b *mesh.Builder, params []float64, at mgl64.Vec2, mu float64, globalClear bool) error {
	env := &calculator.Env{
		Params: append([]float64(nil), params...),
		Warn: func(msg string) {
			b.Warnf("%s: macro %s: %s", gerberbasetypes.WarnArithmeticError, macro.Name, msg)
		},
	}
	ctx := &DrawContext{Builder: b, Env: env, At: at, MU: mu, GlobalClear: globalClear}
	for _, item := range macro.items {
		if err := item.Draw(ctx); err != nil {
			b.Warnf("%s: macro %s: %s aborted: %v",
				gerberbasetypes.WarnArithmeticError, macro.Name, item.String(), err)
		}
	}
	return nil
}
