/*
################################## State machine ######################################
*/
package gerbparser

import (
	"github.com/SohaibAli9/gerberview/apertures"
	"github.com/SohaibAli9/gerberview/gerberbasetypes"
	"github.com/SohaibAli9/gerberview/regions"
	"github.com/SohaibAli9/gerberview/xy"
)

/*
The State object represents the mutable interpreter state while one
file is processed. It is created at entry and dies with the call;
nothing here survives between invocations.
*/
type State struct {
	Polarity  gerberbasetypes.PolType
	QMode     gerberbasetypes.QuadMode
	IpMode    gerberbasetypes.IPmode
	CurrentAp *apertures.Aperture

	Coord *xy.XY // current point

	RegionMode bool
	Region     *regions.Boundary
}

// creates and initializes the state object with default values
func NewState() *State {
	state := new(State)
	state.Coord = xy.NewXY()
	state.Polarity = gerberbasetypes.PolTypeDark
	state.IpMode = gerberbasetypes.IPModeLinear
	state.QMode = gerberbasetypes.QuadModeMulti
	return state
}
