/*
############################ coordinate handling #####################

	Format specification (%FS...%) and modal X/Y/I/J coordinate parsing.
	All values leave this package already normalised to millimeters.
*/
package xy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const GerberFormatSpec string = "FSLA"

const InchesToMM float64 = 25.4

// zero omission mode of the coordinate format
type ZeroOmission int

const (
	OmitLeading ZeroOmission = iota + 1
	OmitTrailing
)

func (z ZeroOmission) String() string {
	switch z {
	case OmitLeading:
		return "leading zeros omitted"
	case OmitTrailing:
		return "trailing zeros omitted"
	}
	return "unknown zero omission"
}

/*
############################ format specification #####################
*/

// FormatSpec holds the coordinate format and unit state of one file.
type FormatSpec struct {
	XI int // digits in the integer part, X axis
	XD int // digits in the fractional part, X axis
	YI int
	YD int

	Omission ZeroOmission

	mu      float64 // scale factor to millimeters
	unitSet bool
	set     bool
}

// creates a format spec with the fallback X36Y36 leading-zero layout and
// units unset
func NewFormatSpec() *FormatSpec {
	return &FormatSpec{XI: 3, XD: 6, YI: 3, YD: 6, Omission: OmitLeading, mu: 1.0}
}

// Init parses an %FS...% body such as "FSLAX24Y24". Non-fatal oddities
// (trailing-zero omission, incremental notation, mismatched axes) are
// returned as warnings while parsing continues; a nil error means the
// format was installed.
func (fs *FormatSpec) Init(body string) ([]string, error) {
	var warns []string
	s := strings.ToUpper(strings.TrimSpace(body))
	if !strings.HasPrefix(s, "FS") {
		return nil, errors.New("not a format specification: " + body)
	}
	s = s[2:]

	xPos := strings.IndexByte(s, 'X')
	yPos := strings.LastIndexByte(s, 'Y')
	if xPos == -1 || yPos == -1 || yPos < xPos {
		return warns, errors.New("format specification lacks X/Y digit counts: " + body)
	}

	omission := OmitLeading
	for _, c := range s[:xPos] {
		switch c {
		case 'L':
			omission = OmitLeading
		case 'T':
			omission = OmitTrailing
			warns = append(warns, "trailing-zero suppression selected; accepted but unusual")
		case 'A':
			// absolute notation, the only supported one
		case 'I':
			warns = append(warns, "incremental notation is not supported; coordinates treated as absolute")
		case 'D':
			// explicit decimal, nothing to do
		default:
			warns = append(warns, fmt.Sprintf("unknown format flag %q ignored", string(c)))
		}
	}

	xi, xd, err := splitDigits(s[xPos+1 : yPos])
	if err != nil {
		return warns, fmt.Errorf("bad X format digits in %q: %w", body, err)
	}
	yi, yd, err := splitDigits(s[yPos+1:])
	if err != nil {
		return warns, fmt.Errorf("bad Y format digits in %q: %w", body, err)
	}
	if xi != yi || xd != yd {
		warns = append(warns, fmt.Sprintf("X and Y formats differ (%d.%d vs %d.%d); using the X format", xi, xd, yi, yd))
		yi, yd = xi, xd
	}
	if xi < 1 || xi > 6 || xd < 1 || xd > 6 {
		return warns, fmt.Errorf("format digits out of range in %q", body)
	}

	fs.XI, fs.XD, fs.YI, fs.YD = xi, xd, yi, yd
	fs.Omission = omission
	fs.set = true
	return warns, nil
}

// splitDigits decodes the "<n><m>" digit-count pair of one axis,
// tolerating a trailing '*' left over by the lexer.
func splitDigits(s string) (int, int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "*")
	if len(s) != 2 {
		return 0, 0, errors.New("expected two digits")
	}
	n, err := strconv.Atoi(s[:1])
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, 0, err
	}
	return n, m, nil
}

func (fs *FormatSpec) SetUnitsMM() {
	fs.mu = 1.0
	fs.unitSet = true
}

func (fs *FormatSpec) SetUnitsInch() {
	fs.mu = InchesToMM
	fs.unitSet = true
}

// reports whether an %MO...% directive has been seen
func (fs *FormatSpec) UnitSet() bool {
	return fs.unitSet
}

// reports whether an %FS...% directive has been seen
func (fs *FormatSpec) Set() bool {
	return fs.set
}

// returns the active scale factor to millimeters
func (fs *FormatSpec) ReadMU() float64 {
	return fs.mu
}

// ParseNumber decodes one fixed-point coordinate string according to the
// format and returns millimeters.
func (fs *FormatSpec) ParseNumber(in string) (float64, error) {
	s := strings.TrimSpace(in)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, errors.New("empty coordinate value")
	}

	var val float64
	if strings.ContainsRune(s, '.') {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		val = f
	} else {
		if !isNumString(s) {
			return 0, errors.New("non-numeric coordinate " + in)
		}
		total := fs.XI + fs.XD
		digits := s
		if fs.Omission == OmitTrailing && len(digits) < total {
			digits = digits + strings.Repeat("0", total-len(digits))
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, err
		}
		val = float64(n) / math.Pow10(fs.XD)
	}
	if neg {
		val = -val
	}
	return val * fs.mu, nil
}

// checks against non-number characters in the string
func isNumString(ins string) bool {
	for i := 0; i < len(ins); i++ {
		if ins[i] < '0' || ins[i] > '9' {
			return false
		}
	}
	return len(ins) > 0
}

/*
######################### coordinates #########################################
*/

// XY is one resolved coordinate block. X and Y are modal (they inherit
// the previous value when absent); the I/J arc offsets are not.
type XY struct {
	X float64
	Y float64
	I float64
	J float64
}

func NewXY() *XY {
	return new(XY)
}

func (xy *XY) String() string {
	return "x,y=(" +
		strconv.FormatFloat(xy.X, 'f', 5, 64) + "," +
		strconv.FormatFloat(xy.Y, 'f', 5, 64) + ") i,j=(" +
		strconv.FormatFloat(xy.I, 'f', 5, 64) + "," +
		strconv.FormatFloat(xy.J, 'f', 5, 64) + ")"
}

// tolerance is the radius of the circle around the first point inside of
// which another point is treated as equal to it
func (xy *XY) Equals(another *XY, tolerance float64) bool {
	return math.Hypot(xy.X-another.X, xy.Y-another.Y) < tolerance
}

// ParseCoord decodes a coordinate block such as "X100Y-200I5J5" (with any
// trailing D-code already stripped). Axes missing from the block inherit
// prev; offsets reset to zero.
func ParseCoord(s string, fs *FormatSpec, prev *XY) (*XY, error) {
	out := NewXY()
	if prev != nil {
		out.X = prev.X
		out.Y = prev.Y
	}

	s = strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(s) {
		axis := s[i]
		i++
		start := i
		for i < len(s) && (s[i] == '+' || s[i] == '-' || s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		if start == i {
			return nil, fmt.Errorf("coordinate %q: axis %q has no value", s, string(axis))
		}
		val, err := fs.ParseNumber(s[start:i])
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", s, err)
		}
		switch axis {
		case 'X':
			out.X = val
		case 'Y':
			out.Y = val
		case 'I':
			out.I = val
		case 'J':
			out.J = val
		default:
			return nil, fmt.Errorf("coordinate %q: unexpected axis %q", s, string(axis))
		}
	}
	return out, nil
}
