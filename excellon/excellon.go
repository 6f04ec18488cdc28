/*
Excellon NC-drill parser.

The format is line oriented: an M48 header with units, zero-suppression
and the tool table, then a body of tool selects and hole coordinates.
Holes come out in millimeters; the caller flashes each as a circle.
Routing (G00..G03, G85 slots) is not supported and is skipped with a
warning.
*/
package excellon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/SohaibAli9/gerberview/gerberbasetypes"
)

// header defaults when no M48 block is present: inch, 2.4, leading-zero
// suppression
const (
	defaultIntegerDigits = 2
	defaultDecimalDigits = 4
	// METRIC implies a 3.3 layout unless the file says otherwise
	metricIntegerDigits = 3
	metricDecimalDigits = 3
)

// DrillHole is one hole, millimeters.
type DrillHole struct {
	X        float64
	Y        float64
	Diameter float64
}

// DrillFile is the parse result: the holes, the tool table and the
// warnings raised on the way.
type DrillFile struct {
	Holes    []DrillHole
	Tools    map[int]float64 // tool id -> diameter, millimeters
	Warnings []string
	// Stopped reports whether M30 was observed.
	Stopped bool
}

type parserState struct {
	metric        bool
	integerDigits int
	decimalDigits int
	omitTrailing  bool

	tools         map[int]float64
	currentTool   int // 0 = none selected
	inHeader      bool
	sawHeader     bool
	declaredUnits bool

	out *DrillFile
}

func (st *parserState) warnf(format string, args ...interface{}) {
	st.out.Warnings = append(st.out.Warnings, fmt.Sprintf(format, args...))
}

// scale returns the unit conversion to millimeters
func (st *parserState) scale() float64 {
	if st.metric {
		return 1.0
	}
	return gerberbasetypes.InchesToMM
}

// Parse consumes an Excellon drill file.
func Parse(buf []byte) (*DrillFile, error) {
	if !utf8.Valid(buf) {
		return nil, gerberbasetypes.ErrInvalidEncoding
	}

	st := &parserState{
		integerDigits: defaultIntegerDigits,
		decimalDigits: defaultDecimalDigits,
		tools:         make(map[int]float64),
		out:           &DrillFile{Tools: make(map[int]float64)},
	}

	lines := strings.Split(string(buf), "\n")
	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		upper := strings.ToUpper(line)

		switch {
		case upper == "M48":
			st.inHeader = true
			st.sawHeader = true
			continue
		case upper == "%" || upper == "M95":
			st.inHeader = false
			continue
		case upper == "M30":
			st.out.Stopped = true
		}
		if st.out.Stopped {
			break
		}

		if st.inHeader {
			st.headerLine(upper)
		} else {
			st.bodyLine(upper)
		}
	}

	if !st.sawHeader {
		st.warnf("no M48 header; assuming inch 2.4 with leading-zero suppression")
	}
	if !st.out.Stopped {
		st.warnf("%s: M30 never observed; returning partial result", gerberbasetypes.WarnTruncated)
	}
	st.out.Tools = st.tools
	return st.out, nil
}

func (st *parserState) headerLine(line string) {
	if st.unitsDirective(line) {
		return
	}
	if tool, dia, ok := st.toolDefinition(line); ok {
		st.registerTool(tool, dia)
		return
	}
	// FMAT, VER, detect and other header lines have no effect here
}

func (st *parserState) bodyLine(line string) {
	if st.unitsDirective(line) {
		return
	}
	if isRoutingCommand(line) {
		st.warnf("%s: routing command %q skipped (drill holes only)",
			gerberbasetypes.WarnUnsupportedFeature, line)
		return
	}
	if tool, dia, ok := st.toolDefinition(line); ok {
		st.registerTool(tool, dia)
		return
	}
	if tool, ok := st.toolSelection(line); ok {
		if _, defined := st.tools[tool]; defined {
			st.currentTool = tool
		} else {
			st.currentTool = 0
			st.warnf("%s: tool T%d selected but not defined",
				gerberbasetypes.WarnUndefinedReference, tool)
		}
		return
	}
	if x, y, ok := st.coordinates(line); ok {
		if st.currentTool == 0 {
			st.warnf("%s: hole at (%v, %v) skipped: no tool selected",
				gerberbasetypes.WarnUndefinedReference, x, y)
			return
		}
		st.out.Holes = append(st.out.Holes, DrillHole{X: x, Y: y, Diameter: st.tools[st.currentTool]})
	}
}

// unitsDirective handles METRIC/INCH with the optional ,TZ/,LZ suffix.
func (st *parserState) unitsDirective(line string) bool {
	var metric bool
	var suffix string
	switch {
	case strings.HasPrefix(line, "METRIC"):
		metric = true
		suffix = strings.TrimPrefix(line, "METRIC")
	case strings.HasPrefix(line, "INCH"):
		metric = false
		suffix = strings.TrimPrefix(line, "INCH")
	default:
		return false
	}

	if st.declaredUnits && st.metric != metric {
		st.warnf("mixed unit declarations; last declaration wins")
	}
	if st.metric != metric {
		st.metric = metric
		if metric {
			st.integerDigits = metricIntegerDigits
			st.decimalDigits = metricDecimalDigits
		} else {
			st.integerDigits = defaultIntegerDigits
			st.decimalDigits = defaultDecimalDigits
		}
	}
	st.declaredUnits = true
	if strings.Contains(suffix, "TZ") {
		st.omitTrailing = true
	} else if strings.Contains(suffix, "LZ") {
		st.omitTrailing = false
	}
	return true
}

func (st *parserState) registerTool(tool int, dia float64) {
	if dia <= 0 {
		st.warnf("%s: tool T%d has zero or negative diameter; skipped",
			gerberbasetypes.WarnDegenerateGeometry, tool)
		return
	}
	if _, exists := st.tools[tool]; exists {
		st.warnf("duplicate tool definition for T%d; last definition wins", tool)
	}
	st.tools[tool] = dia * st.scale()
}

// toolDefinition matches T<n>C<diameter> lines, tolerating feed/speed
// modifiers between the fields.
func (st *parserState) toolDefinition(line string) (int, float64, bool) {
	if !strings.HasPrefix(line, "T") {
		return 0, 0, false
	}
	cPos := strings.IndexByte(line, 'C')
	if cPos == -1 {
		return 0, 0, false
	}
	toolRaw := line[1:cPos]
	// strip feed/speed modifiers such as T1F00S00C0.8
	if f := strings.IndexAny(toolRaw, "FSB"); f != -1 {
		toolRaw = toolRaw[:f]
	}
	diaRaw := line[cPos+1:]
	if end := strings.IndexAny(diaRaw, "FSB"); end != -1 {
		diaRaw = diaRaw[:end]
	}
	tool, err := strconv.Atoi(toolRaw)
	if err != nil || tool < 1 {
		return 0, 0, false
	}
	dia, err := strconv.ParseFloat(diaRaw, 64)
	if err != nil {
		return 0, 0, false
	}
	return tool, dia, true
}

func (st *parserState) toolSelection(line string) (int, bool) {
	if !strings.HasPrefix(line, "T") || strings.ContainsRune(line, 'C') {
		return 0, false
	}
	tool, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, false
	}
	return tool, true
}

// coordinates matches X<n>Y<n> hole lines.
func (st *parserState) coordinates(line string) (float64, float64, bool) {
	if !strings.HasPrefix(line, "X") {
		return 0, 0, false
	}
	yPos := strings.IndexByte(line, 'Y')
	if yPos == -1 {
		return 0, 0, false
	}
	x, okX := st.coordinate(line[1:yPos])
	y, okY := st.coordinate(line[yPos+1:])
	if !okX || !okY {
		st.warnf("%s: bad coordinate line %q skipped", gerberbasetypes.WarnMalformedCommand, line)
		return 0, 0, false
	}
	return x, y, true
}

// coordinate decodes one axis value per the active format. Values with
// an explicit decimal point pass through; bare integers no longer than
// the integer digit count are taken at face value.
func (st *parserState) coordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	neg := false
	switch {
	case strings.HasPrefix(raw, "-"):
		neg = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}
	if raw == "" {
		return 0, false
	}

	var val float64
	if strings.ContainsRune(raw, '.') {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		val = f
	} else {
		for i := 0; i < len(raw); i++ {
			if raw[i] < '0' || raw[i] > '9' {
				return 0, false
			}
		}
		if len(raw) <= st.integerDigits {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, false
			}
			val = f
		} else {
			digits := raw
			total := st.integerDigits + st.decimalDigits
			if st.omitTrailing && len(digits) < total {
				digits = digits + strings.Repeat("0", total-len(digits))
			}
			n, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				return 0, false
			}
			val = float64(n) / math.Pow10(st.decimalDigits)
		}
	}
	if neg {
		val = -val
	}
	return val * st.scale(), true
}

func isRoutingCommand(line string) bool {
	for _, prefix := range []string{"G00", "G01", "G02", "G03", "G85"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
