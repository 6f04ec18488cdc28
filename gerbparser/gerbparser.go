/*
Gerber RS-274X interpreter.

The parser walks the typed command stream from the lexer, keeps the
interpreter state and dispatches every draw to the geometry producers.
Individual failures degrade to warnings in the output record; the only
fatal condition is an encoding violation raised by the lexer.
*/
package gerbparser

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/SohaibAli9/gerberview/amprocessor"
	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/gerberlexer"
	"github.com/SohaibAli9/gerberview/mesh"
	"github.com/SohaibAli9/gerberview/regions"
	"github.com/SohaibAli9/gerberview/render"
	"github.com/SohaibAli9/gerberview/srblocks"
	"github.com/SohaibAli9/gerberview/xy"
)

type Parser struct {
	b     *mesh.Builder
	fs    *xy.FormatSpec
	state *State

	apertTable map[int]*apertures.Aperture
	macroTable map[string]*amprocessor.MacroTemplate
	srStack    []*srblocks.SRBlock

	commandCount uint32

	warnedQuadMode bool
	warnedNoFormat bool
	warnedNoUnit   bool
}

// creates a parser with fresh per-invocation state
func NewParser() *Parser {
	parser := new(Parser)
	parser.b = mesh.NewBuilder()
	parser.fs = xy.NewFormatSpec()
	parser.state = NewState()
	parser.apertTable = make(map[int]*apertures.Aperture)
	parser.macroTable = make(map[string]*amprocessor.MacroTemplate)
	return parser
}

// Process interprets one Gerber file and returns its geometry record.
func (parser *Parser) Process(buf []byte) (*mesh.Layer, error) {
	cmds, err := gerberlexer.SplitByGCommands(buf)
	if err != nil {
		return nil, err
	}

	stopped := false
	for i := range cmds {
		if parser.b.Full() {
			break
		}
		parser.commandCount++
		if parser.processCommand(&cmds[i]) == gerberbasetypes.OpcodeStop {
			stopped = true
			break
		}
	}

	if parser.state.RegionMode {
		parser.b.Warnf("%s: region left open at end of file", gerberbasetypes.WarnTruncated)
		parser.closeRegion()
	}
	// an end-of-file closes any open step-repeat blocks
	for len(parser.srStack) > 0 {
		parser.popSRBlock()
	}
	if !stopped && !parser.b.Full() {
		parser.b.Warnf("%s: M02 never observed; returning partial result", gerberbasetypes.WarnTruncated)
	}

	layer := parser.b.Finish()
	layer.CommandCount = parser.commandCount
	return layer, nil
}

func (parser *Parser) processCommand(cmd *gerberlexer.GerberCommand) gerberbasetypes.ActType {
	b := parser.b
	state := parser.state

	switch cmd.Cmd {
	case gerberlexer.FS:
		warns, err := parser.fs.Init(cmd.Body)
		for _, w := range warns {
			b.Warnf("line %d: %s", cmd.Line, w)
		}
		if err != nil {
			b.Warnf("%s: line %d: %v", gerberbasetypes.WarnMalformedCommand, cmd.Line, err)
		}

	case gerberlexer.MO:
		switch strings.TrimPrefix(cmd.Body, "MO") {
		case "MM":
			parser.fs.SetUnitsMM()
		case "IN":
			parser.fs.SetUnitsInch()
		default:
			b.Warnf("%s: line %d: unknown unit directive %q", gerberbasetypes.WarnMalformedCommand, cmd.Line, cmd.Body)
		}

	case gerberlexer.AD:
		parser.ensureUnit(cmd.Line)
		apert, err := apertures.Parse(cmd.Body, parser.fs.ReadMU())
		if err != nil {
			b.Warnf("%s: line %d: %v", gerberbasetypes.WarnMalformedCommand, cmd.Line, err)
			break
		}
		if apert.Type == gerberbasetypes.AptypeMacro {
			if _, ok := parser.macroTable[apert.MacroName]; !ok {
				b.Warnf("%s: line %d: aperture D%d references undefined macro %q",
					gerberbasetypes.WarnUndefinedReference, cmd.Line, apert.Code, apert.MacroName)
				break
			}
		}
		if _, exists := parser.apertTable[apert.Code]; exists {
			b.Warnf("line %d: aperture D%d redefined; last definition wins", cmd.Line, apert.Code)
		}
		parser.apertTable[apert.Code] = apert

	case gerberlexer.AM:
		macro, err := amprocessor.ParseMacro(cmd.Body)
		if err != nil {
			b.Warnf("%s: line %d: %v", gerberbasetypes.WarnUnsupportedFeature, cmd.Line, err)
			break
		}
		if _, exists := parser.macroTable[macro.Name]; exists {
			b.Warnf("line %d: aperture macro %q redefined; last definition wins", cmd.Line, macro.Name)
		}
		parser.macroTable[macro.Name] = macro

	case gerberlexer.D:
		code, err := strconv.Atoi(cmd.Body)
		if err != nil {
			b.Warnf("%s: line %d: bad aperture select %q", gerberbasetypes.WarnMalformedCommand, cmd.Line, cmd.Body)
			break
		}
		apert, ok := parser.apertTable[code]
		if !ok {
			b.Warnf("%s: line %d: aperture D%d selected but never defined",
				gerberbasetypes.WarnUndefinedReference, cmd.Line, code)
			state.CurrentAp = nil
			break
		}
		state.CurrentAp = apert

	case gerberlexer.G01:
		state.IpMode = gerberbasetypes.IPModeLinear
	case gerberlexer.G02:
		state.IpMode = gerberbasetypes.IPModeCwC
	case gerberlexer.G03:
		state.IpMode = gerberbasetypes.IPModeCCwC

	case gerberlexer.G36:
		state.RegionMode = true
		state.Region = regions.NewBoundary()
	case gerberlexer.G37:
		if !state.RegionMode {
			b.Warnf("%s: line %d: G37 without an open region", gerberbasetypes.WarnMalformedCommand, cmd.Line)
			break
		}
		parser.closeRegion()

	case gerberlexer.G74:
		state.QMode = gerberbasetypes.QuadModeSingle
		if !parser.warnedQuadMode {
			parser.warnedQuadMode = true
			b.Warnf("%s: line %d: single-quadrant arc mode (G74) is deprecated; arcs are treated as multi-quadrant",
				gerberbasetypes.WarnUnsupportedFeature, cmd.Line)
		}
	case gerberlexer.G75:
		state.QMode = gerberbasetypes.QuadModeMulti

	case gerberlexer.G70:
		parser.fs.SetUnitsInch()
	case gerberlexer.G71:
		parser.fs.SetUnitsMM()

	case gerberlexer.G04, gerberlexer.G54, gerberlexer.G55, gerberlexer.G90, gerberlexer.IN:
		// no effect

	case gerberlexer.G91:
		b.Warnf("%s: line %d: incremental notation (G91) is not supported",
			gerberbasetypes.WarnUnsupportedFeature, cmd.Line)

	case gerberlexer.LP:
		switch strings.TrimPrefix(cmd.Body, "LP") {
		case "D":
			if state.Polarity == gerberbasetypes.PolTypeClear {
				b.CloseClearRange()
			}
			state.Polarity = gerberbasetypes.PolTypeDark
		case "C":
			if state.Polarity == gerberbasetypes.PolTypeDark {
				b.OpenClearRange()
			}
			state.Polarity = gerberbasetypes.PolTypeClear
		default:
			b.Warnf("%s: line %d: bad polarity directive %q", gerberbasetypes.WarnMalformedCommand, cmd.Line, cmd.Body)
		}

	case gerberlexer.SR:
		if cmd.Body == "SR" {
			if len(parser.srStack) == 0 {
				b.Warnf("%s: line %d: step-repeat end without an open block",
					gerberbasetypes.WarnMalformedCommand, cmd.Line)
				break
			}
			parser.popSRBlock()
			break
		}
		parser.ensureUnit(cmd.Line)
		srblock := new(srblocks.SRBlock)
		if err := srblock.Init(cmd.Body, parser.fs.ReadMU()); err != nil {
			b.Warnf("%s: line %d: %v", gerberbasetypes.WarnMalformedCommand, cmd.Line, err)
			break
		}
		srblock.Open(b)
		parser.srStack = append(parser.srStack, srblock)

	case gerberlexer.D01:
		parser.opDraw(cmd)
	case gerberlexer.D02:
		parser.opMove(cmd)
	case gerberlexer.D03:
		parser.opFlash(cmd)

	case gerberlexer.M02:
		return gerberbasetypes.OpcodeStop

	case gerberlexer.AB, gerberlexer.AS, gerberlexer.IP, gerberlexer.IR,
		gerberlexer.LM, gerberlexer.LN, gerberlexer.LR, gerberlexer.LS,
		gerberlexer.MI, gerberlexer.OF, gerberlexer.SF,
		gerberlexer.TA, gerberlexer.TD, gerberlexer.TF, gerberlexer.TO:
		b.Warnf("%s: line %d: %s directive skipped",
			gerberbasetypes.WarnUnsupportedFeature, cmd.Line, cmd.Cmd.String())

	default:
		b.Warnf("%s: line %d: unrecognised command %q skipped",
			gerberbasetypes.WarnMalformedCommand, cmd.Line, cmd.Body)
	}
	return gerberbasetypes.OpcodeD02_MOVE
}

// resolveCoord parses the coordinate payload of a D01/D02/D03 command,
// falling back to the current point on failure.
func (parser *Parser) resolveCoord(cmd *gerberlexer.GerberCommand) (*xy.XY, bool) {
	parser.ensureFormat(cmd.Line)
	parser.ensureUnit(cmd.Line)
	coord, err := xy.ParseCoord(cmd.Body, parser.fs, parser.state.Coord)
	if err != nil {
		parser.b.Warnf("%s: line %d: %v", gerberbasetypes.WarnMalformedCommand, cmd.Line, err)
		return nil, false
	}
	return coord, true
}

func (parser *Parser) opDraw(cmd *gerberlexer.GerberCommand) {
	state := parser.state
	coord, ok := parser.resolveCoord(cmd)
	if !ok {
		return
	}
	from := mgl64.Vec2{state.Coord.X, state.Coord.Y}
	to := mgl64.Vec2{coord.X, coord.Y}
	offset := mgl64.Vec2{coord.I, coord.J}
	state.Coord = coord

	if state.RegionMode {
		if state.Region.Len() == 0 {
			// a draw before any D02 starts the subpath at the current point
			state.Region.Start(from)
		}
		switch state.IpMode {
		case gerberbasetypes.IPModeLinear:
			state.Region.LineTo(to)
		default:
			state.Region.ArcTo(parser.b, to, offset, state.IpMode)
		}
		return
	}

	if state.CurrentAp == nil {
		parser.b.Warnf("%s: line %d: draw with no aperture selected; skipped",
			gerberbasetypes.WarnUndefinedReference, cmd.Line)
		return
	}
	switch state.IpMode {
	case gerberbasetypes.IPModeLinear:
		_ = render.DrawLinear(parser.b, from, to, state.CurrentAp)
	default:
		_ = render.DrawArc(parser.b, from, to, offset, state.IpMode, state.CurrentAp)
	}
}

func (parser *Parser) opMove(cmd *gerberlexer.GerberCommand) {
	state := parser.state
	coord, ok := parser.resolveCoord(cmd)
	if !ok {
		return
	}
	state.Coord = coord
	if state.RegionMode {
		// D02 starts a new subpath; a collected one is filled first
		if state.Region.Len() >= 3 {
			regions.FillRegion(parser.b, state.Region.Points())
		}
		state.Region.Start(mgl64.Vec2{coord.X, coord.Y})
	}
}

func (parser *Parser) opFlash(cmd *gerberlexer.GerberCommand) {
	state := parser.state
	coord, ok := parser.resolveCoord(cmd)
	if !ok {
		return
	}
	state.Coord = coord
	if state.RegionMode {
		parser.b.Warnf("%s: line %d: flash inside a region; skipped",
			gerberbasetypes.WarnMalformedCommand, cmd.Line)
		return
	}
	if state.CurrentAp == nil {
		parser.b.Warnf("%s: line %d: flash with no aperture selected; skipped",
			gerberbasetypes.WarnUndefinedReference, cmd.Line)
		return
	}
	position := mgl64.Vec2{coord.X, coord.Y}
	if state.CurrentAp.Type == gerberbasetypes.AptypeMacro {
		macro, ok := parser.macroTable[state.CurrentAp.MacroName]
		if !ok {
			parser.b.Warnf("%s: line %d: macro %q is not defined",
				gerberbasetypes.WarnUndefinedReference, cmd.Line, state.CurrentAp.MacroName)
			return
		}
		_ = macro.Instantiate(parser.b, state.CurrentAp.MacroParams, position,
			parser.fs.ReadMU(), state.Polarity == gerberbasetypes.PolTypeClear)
		return
	}
	_ = render.Flash(parser.b, state.CurrentAp, position)
}

func (parser *Parser) closeRegion() {
	state := parser.state
	if state.Region != nil {
		regions.FillRegion(parser.b, state.Region.Points())
	}
	state.RegionMode = false
	state.Region = nil
}

func (parser *Parser) popSRBlock() {
	srblock := parser.srStack[len(parser.srStack)-1]
	parser.srStack = parser.srStack[:len(parser.srStack)-1]
	srblock.Expand(parser.b)
}

// ensureFormat warns once when coordinates arrive before %FS...%
func (parser *Parser) ensureFormat(line int) {
	if parser.fs.Set() || parser.warnedNoFormat {
		return
	}
	parser.warnedNoFormat = true
	parser.b.Warnf("%s: line %d: coordinate before format specification; assuming X36Y36 leading-zero absolute",
		gerberbasetypes.WarnMalformedCommand, line)
}

// ensureUnit warns once when dimensions arrive before %MO...% and
// assumes millimeters from then on
func (parser *Parser) ensureUnit(line int) {
	if parser.fs.UnitSet() {
		return
	}
	if !parser.warnedNoUnit {
		parser.warnedNoUnit = true
		parser.b.Warnf("line %d: value before unit directive; assuming millimeters", line)
	}
	parser.fs.SetUnitsMM()
}
