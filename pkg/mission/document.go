package mission

import (
	"github.com/stronnag/ges2wpmz/pkg/geo"
)

// Wire constants of the waylines document.
const (
	FLY_TO_WAYLINE_MODE = "safely"
	EXIT_ON_RC_LOST     = "executeLostAction"

	TURN_MODE_INTERMEDIATE = "toPointAndPassWithContinuityCurvature"
	TURN_MODE_LAST         = "toPointAndStopWithContinuityCurvature"

	HEADING_FOLLOW_WAYLINE    = "followWayline"
	HEADING_SMOOTH_TRANSITION = "smoothTransition"
	HEADING_PATH_MODE         = "followBadArc"
	HEADING_POI_POINT         = "0.000000,0.000000,0.000000"

	GROUP_MODE_PARALLEL   = "parallel"
	TRIGGER_REACH_POINT   = "reachPoint"
	TRIGGER_BETWEEN_PTS   = "betweenAdjacentPoints"
	ACTUATOR_ROTATE       = "gimbalRotate"
	ACTUATOR_EVEN_ROTATE  = "gimbalEvenlyRotate"
	GIMBAL_YAW_BASE       = "aircraft"
	GIMBAL_ROTATE_MODE    = "absoluteAngle"
	PAYLOAD_POSITION_INDX = "0"
)

type Config struct {
	FlyToWaylineMode  string
	FinishAction      string
	ExitOnRCLost      string
	RCLostAction      string
	TransitionalSpeed float64
	DroneEnum         int
	DroneSubEnum      int
}

// Document is the in-memory waylines mission. It is not modified once
// handed to a serializer.
type Document struct {
	Config          Config
	HeightMode      string
	Distance        float64
	Duration        float64
	AutoFlightSpeed float64
	Pitch           float64
	ReferenceAlt    float64
	Placemarks      []Placemark
}

type Placemark struct {
	Index           int
	Lon             float64
	Lat             float64
	Alt             float64
	ExecuteHeight   float64
	WaypointSpeed   float64
	TurnMode        string
	TurnDamping     float64
	UseStraightLine bool
	Heading         HeadingParam
	ActionGroups    []ActionGroup
	Source          string
}

type HeadingParam struct {
	Mode        string
	Angle       float64
	PoiPoint    string
	AngleEnable bool
	PathMode    string
}

type ActionGroup struct {
	ID          int
	StartIndex  int
	EndIndex    int
	Mode        string
	TriggerType string
	Actions     []Action
}

type Action struct {
	ID           int
	ActuatorFunc string
	Params       []Param
}

// Param is one actuator parameter; order is significant on the wire.
type Param struct {
	Key   string
	Value string
}

// Sources lists the distinct source files in first-seen order.
func (d *Document) Sources() []string {
	var srcs []string
	seen := make(map[string]bool)
	for _, p := range d.Placemarks {
		if !seen[p.Source] {
			seen[p.Source] = true
			srcs = append(srcs, p.Source)
		}
	}
	return srcs
}

// Legs returns the length in metres of each leg between consecutive
// placemarks.
func (d *Document) Legs() []float64 {
	var legs []float64
	for j := 1; j < len(d.Placemarks); j++ {
		a := d.Placemarks[j-1]
		b := d.Placemarks[j]
		legs = append(legs, geo.Distance(a.Lat, a.Lon, b.Lat, b.Lon))
	}
	return legs
}
