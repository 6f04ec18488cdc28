// functions related to parsing gerber files
// Apertures support
package apertures

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SohaibAli9/gerberview/gerberbasetypes"
)

// Aperture is one %ADD...% definition. Standard template dimensions are
// stored in millimeters; macro parameters stay raw and are scaled when
// the macro is instantiated.
type Aperture struct {
	Code         int
	SourceString string
	Type         gerberbasetypes.GerberApType
	XSize        float64
	YSize        float64
	Diameter     float64
	HoleDiameter float64
	Vertices     int
	RotAngle     float64
	MacroName    string
	MacroParams  []float64
}

func (apert *Aperture) GetCode() int {
	return apert.Code
}

func (apert *Aperture) String() string {
	return "D" + strconv.Itoa(apert.Code) + " (" + apert.Type.String() + ") " + apert.SourceString
}

// Parse decodes an aperture definition body as produced by the lexer,
// e.g. "ADD10C,1.5X0.2" or "ADD12THERMAL60,0.5". mu is the unit scale
// factor to millimeters.
func Parse(body string, mu float64) (*Aperture, error) {
	s := strings.TrimSpace(body)
	s = strings.TrimPrefix(s, "AD")
	if !strings.HasPrefix(s, "D") {
		return nil, errors.New("aperture definition lacks a D code: " + body)
	}
	s = s[1:]

	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return nil, errors.New("aperture definition lacks a numeric code: " + body)
	}
	code, err := strconv.Atoi(s[:digits])
	if err != nil {
		return nil, err
	}
	if code < 10 {
		return nil, fmt.Errorf("aperture code %d is reserved (codes start at 10)", code)
	}

	apert := new(Aperture)
	apert.Code = code
	apert.SourceString = body

	rest := s[digits:]
	template := rest
	params := ""
	if comma := strings.IndexByte(rest, ','); comma != -1 {
		template = rest[:comma]
		params = rest[comma+1:]
	}
	if template == "" {
		return nil, errors.New("aperture definition lacks a template: " + body)
	}

	var vals []float64
	if params != "" {
		for _, part := range strings.Split(params, "X") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("bad aperture parameter %q in %q", part, body)
			}
			vals = append(vals, v)
		}
	}

	switch template {
	case "C":
		apert.Type = gerberbasetypes.AptypeCircle
		if len(vals) < 1 || len(vals) > 2 {
			return nil, errors.New("bad number of parameters for circle aperture")
		}
		apert.Diameter = vals[0] * mu
		if len(vals) == 2 {
			apert.HoleDiameter = vals[1] * mu
		}
	case "R":
		apert.Type = gerberbasetypes.AptypeRectangle
		if len(vals) < 2 || len(vals) > 3 {
			return nil, errors.New("bad number of parameters for rectangle aperture")
		}
		apert.XSize = vals[0] * mu
		apert.YSize = vals[1] * mu
		if len(vals) == 3 {
			apert.HoleDiameter = vals[2] * mu
		}
	case "O":
		apert.Type = gerberbasetypes.AptypeObround
		if len(vals) < 2 || len(vals) > 3 {
			return nil, errors.New("bad number of parameters for obround aperture")
		}
		apert.XSize = vals[0] * mu
		apert.YSize = vals[1] * mu
		if len(vals) == 3 {
			apert.HoleDiameter = vals[2] * mu
		}
	case "P":
		apert.Type = gerberbasetypes.AptypePoly
		if len(vals) < 2 || len(vals) > 4 {
			return nil, errors.New("bad number of parameters for polygon aperture")
		}
		apert.Diameter = vals[0] * mu
		apert.Vertices = int(vals[1])
		if len(vals) >= 3 {
			apert.RotAngle = vals[2]
		}
		if len(vals) == 4 {
			apert.HoleDiameter = vals[3] * mu
		}
	default:
		// a macro instance; parameters stay in file units
		apert.Type = gerberbasetypes.AptypeMacro
		apert.MacroName = template
		apert.MacroParams = vals
	}
	return apert, nil
}
