package excellon

import (
	"math"
	"strings"
	"testing"
)

func parse(t *testing.T, src string) *DrillFile {
	t.Helper()
	drill, err := Parse([]byte(src))
	if err != nil {
		t.Fatal("Parse failed:", err)
	}
	return drill
}

func warningsContaining(drill *DrillFile, sub string) int {
	n := 0
	for _, w := range drill.Warnings {
		if strings.Contains(w, sub) {
			n++
		}
	}
	return n
}

func TestSimpleMetricFile(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nT1\nX5000Y5000\nX15000Y5000\nM30")
	if len(drill.Warnings) != 0 {
		t.Fatal("unexpected warnings:", drill.Warnings)
	}
	if len(drill.Holes) != 2 {
		t.Fatal("expected 2 holes, got", len(drill.Holes))
	}
	h0, h1 := drill.Holes[0], drill.Holes[1]
	if math.Abs(h0.X-5.0) > 1e-9 || math.Abs(h0.Y-5.0) > 1e-9 {
		t.Fatal("first hole at", h0.X, h0.Y)
	}
	if math.Abs(h1.X-15.0) > 1e-9 || math.Abs(h1.Y-5.0) > 1e-9 {
		t.Fatal("second hole at", h1.X, h1.Y)
	}
	if math.Abs(h0.Diameter-0.8) > 1e-9 {
		t.Fatal("hole diameter:", h0.Diameter)
	}
	if !drill.Stopped {
		t.Fatal("M30 not seen")
	}
}

func TestInchConversion(t *testing.T) {
	drill := parse(t, "M48\nINCH\nT1C0.1\n%\nT1\nX10000Y20000\nM30")
	if len(drill.Holes) != 1 {
		t.Fatal("expected one hole")
	}
	h := drill.Holes[0]
	// inch 2.4: 10000 -> 1.0in -> 25.4mm
	if math.Abs(h.X-25.4) > 1e-9 || math.Abs(h.Y-50.8) > 1e-9 {
		t.Fatal("inch coordinates not converted:", h.X, h.Y)
	}
	if math.Abs(h.Diameter-2.54) > 1e-9 {
		t.Fatal("inch diameter not converted:", h.Diameter)
	}
}

func TestDecimalCoordinatesPassThrough(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nT1\nX1.25Y-2.5\nM30")
	h := drill.Holes[0]
	if math.Abs(h.X-1.25) > 1e-9 || math.Abs(h.Y+2.5) > 1e-9 {
		t.Fatal("decimal coordinates misparsed:", h.X, h.Y)
	}
}

func TestLeadingZeroSuppressionDefault(t *testing.T) {
	// LZ mode: the given digits are the trailing ones
	drill := parse(t, "M48\nMETRIC,LZ\nT1C1.0\n%\nT1\nX1500Y2500\nM30")
	h := drill.Holes[0]
	if math.Abs(h.X-1.5) > 1e-9 || math.Abs(h.Y-2.5) > 1e-9 {
		t.Fatal("LZ coordinates misparsed:", h.X, h.Y)
	}
}

func TestTrailingZeroSuppression(t *testing.T) {
	// TZ mode: the given digits are the leading ones, pad right
	drill := parse(t, "M48\nMETRIC,TZ\nT1C1.0\n%\nT1\nX1500Y2500\nM30")
	h := drill.Holes[0]
	if math.Abs(h.X-150.0) > 1e-9 || math.Abs(h.Y-250.0) > 1e-9 {
		t.Fatal("TZ coordinates misparsed:", h.X, h.Y)
	}
}

func TestShortIntegerCoordinates(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C1.0\n%\nT1\nX5Y10\nM30")
	h := drill.Holes[0]
	// values no longer than the integer digit count are taken at face value
	if math.Abs(h.X-5.0) > 1e-9 || math.Abs(h.Y-10.0) > 1e-9 {
		t.Fatal("short integer coordinates misparsed:", h.X, h.Y)
	}
}

func TestMissingHeaderDefaultsWithWarning(t *testing.T) {
	drill := parse(t, "T1C0.8\nT1\nX10000Y20000\nM30")
	if warningsContaining(drill, "no M48 header") != 1 {
		t.Fatal("missing header did not warn:", drill.Warnings)
	}
	h := drill.Holes[0]
	// inch 2.4 defaults: 10000 -> 1.0in -> 25.4mm
	if math.Abs(h.X-25.4) > 1e-9 || math.Abs(h.Y-50.8) > 1e-9 {
		t.Fatal("default format misapplied:", h.X, h.Y)
	}
}

func TestDuplicateToolLastWins(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\nT1C1.0\n%\nT1\nX1000Y1000\nM30")
	if warningsContaining(drill, "duplicate tool") != 1 {
		t.Fatal("duplicate tool did not warn:", drill.Warnings)
	}
	if math.Abs(drill.Holes[0].Diameter-1.0) > 1e-9 {
		t.Fatal("duplicate tool is not last-wins:", drill.Holes[0].Diameter)
	}
}

func TestZeroDiameterToolSkipped(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.0\nT2C0.8\n%\nT1\nX1000Y1000\nT2\nX2000Y2000\nM30")
	if warningsContaining(drill, "zero or negative diameter") != 1 {
		t.Fatal("zero-diameter tool did not warn:", drill.Warnings)
	}
	// T1 was never registered, so selecting it also warns and its hole drops
	if len(drill.Holes) != 1 {
		t.Fatal("expected one hole, got", len(drill.Holes))
	}
}

func TestHoleBeforeToolSelectionSkipped(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nX1000Y1000\nT1\nX2000Y2000\nM30")
	if len(drill.Holes) != 1 {
		t.Fatal("expected one hole, got", len(drill.Holes))
	}
	if warningsContaining(drill, "no tool selected") != 1 {
		t.Fatal("hole before tool selection did not warn:", drill.Warnings)
	}
}

func TestRoutingCommandsWarnAndSkip(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nT1\nG00X100Y200\nX1000Y2000\nG85X1Y1\nM30")
	if warningsContaining(drill, "routing command") != 2 {
		t.Fatal("routing commands did not warn:", drill.Warnings)
	}
	if len(drill.Holes) != 1 {
		t.Fatal("expected one hole, got", len(drill.Holes))
	}
}

func TestUndefinedToolSelectionWarns(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nT9\nX1000Y1000\nM30")
	if warningsContaining(drill, "T9 selected but not defined") != 1 {
		t.Fatal("undefined tool selection did not warn:", drill.Warnings)
	}
	if len(drill.Holes) != 0 {
		t.Fatal("hole with undefined tool was kept")
	}
}

func TestMissingM30Warns(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nT1\nX1000Y1000")
	if drill.Stopped {
		t.Fatal("Stopped set without M30")
	}
	if warningsContaining(drill, "M30 never observed") != 1 {
		t.Fatal("missing M30 did not warn:", drill.Warnings)
	}
	if len(drill.Holes) != 1 {
		t.Fatal("partial result lost")
	}
}

func TestLinesAfterM30Ignored(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nT1C0.8\n%\nT1\nX1000Y1000\nM30\nX2000Y2000")
	if len(drill.Holes) != 1 {
		t.Fatal("holes after M30 were drilled")
	}
}

func TestMixedUnitsWarn(t *testing.T) {
	drill := parse(t, "M48\nMETRIC\nINCH\nT1C0.1\n%\nT1\nX10000Y10000\nM30")
	if warningsContaining(drill, "mixed unit") != 1 {
		t.Fatal("mixed units did not warn:", drill.Warnings)
	}
	// last declaration (inch) wins
	if math.Abs(drill.Holes[0].X-25.4) > 1e-9 {
		t.Fatal("last unit declaration did not win:", drill.Holes[0].X)
	}
}

func TestCommentsAndFeedModifiers(t *testing.T) {
	drill := parse(t, "M48\n; a comment\nMETRIC\nT1F00S00C0.8\n%\nT1\nX1000Y1000\nM30")
	if len(drill.Holes) != 1 {
		t.Fatal("tool with feed/speed modifiers not registered")
	}
	if math.Abs(drill.Holes[0].Diameter-0.8) > 1e-9 {
		t.Fatal("diameter with modifiers:", drill.Holes[0].Diameter)
	}
}

func TestInvalidEncodingFails(t *testing.T) {
	if _, err := Parse([]byte{0x4D, 0x34, 0x38, 0x0A, 0xFF, 0xFE}); err == nil {
		t.Fatal("invalid UTF-8 accepted")
	}
}
