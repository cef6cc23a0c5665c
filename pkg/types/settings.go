package types

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

type HeadingMode int

const (
	FollowCourse HeadingMode = iota
	PointTowardFilePOI
	ManualFixedHeading
)

func (h HeadingMode) String() string {
	switch h {
	case PointTowardFilePOI:
		return "Point Towards File's POI"
	case ManualFixedHeading:
		return "Manual Fixed Heading"
	default:
		return "Follow Course"
	}
}

// ParseHeadingMode accepts the short CLI names and the long display names.
func ParseHeadingMode(s string) (HeadingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "course", "follow", "follow course", "followcourse":
		return FollowCourse, nil
	case "poi", "point towards file's poi", "pointtowardfilepoi":
		return PointTowardFilePOI, nil
	case "manual", "manual fixed heading", "manualfixedheading":
		return ManualFixedHeading, nil
	}
	return FollowCourse, errors.Wrapf(ErrInvalidSetting, "heading mode %q", s)
}

const (
	AltitudeWGS84    = "WGS84"
	AltitudeRelative = "relativeToStartPoint"
)

const (
	DEFAULT_SPEED_MPS          = 12.0
	DEFAULT_TRANSITIONAL_SPEED = 12.0
	DEFAULT_WAYPOINT_SPEED     = 12.0
	DEFAULT_ALTITUDE_TYPE      = AltitudeWGS84
	DEFAULT_FINISH_ACTION      = "goHome"
	DEFAULT_RC_LOST_ACTION     = "goBack"
	DEFAULT_TURN_DAMPING       = 0.0
	MIN_GIMBAL_PITCH           = -90.0
	MAX_GIMBAL_PITCH           = 60.0
	DEFAULT_GIMBAL_PITCH       = 0.0
	MIN_HEADING                = -180.0
	MAX_HEADING                = 180.0
	DRONE_ENUM_VALUE           = 68
	DRONE_SUB_ENUM_VALUE       = 0
)

var (
	FinishActions = []string{"goHome", "autoLand", "hover", "noAction"}
	RCLostActions = []string{"goBack", "hover", "autoLand"}
)

// Settings is the mission-wide configuration of one conversion run.
// Optional values are pointers (nil = not given) or zero for
// DesiredWaypoints.
type Settings struct {
	Speed             float64
	TransitionalSpeed float64
	WaypointSpeed     float64
	AltitudeType      string
	FinishAction      string
	RCLostAction      string
	TurnDamping       float64
	DesiredWaypoints  int
	FixedPitch        *float64
	HeadingMode       HeadingMode
	ManualHeading     *float64
}

func DefaultSettings() Settings {
	return Settings{
		Speed:             DEFAULT_SPEED_MPS,
		TransitionalSpeed: DEFAULT_TRANSITIONAL_SPEED,
		WaypointSpeed:     DEFAULT_WAYPOINT_SPEED,
		AltitudeType:      DEFAULT_ALTITUDE_TYPE,
		FinishAction:      DEFAULT_FINISH_ACTION,
		RCLostAction:      DEFAULT_RC_LOST_ACTION,
		TurnDamping:       DEFAULT_TURN_DAMPING,
		HeadingMode:       FollowCourse,
	}
}

func (s Settings) Relative() bool {
	return s.AltitudeType != AltitudeWGS84
}

// Pitch is the gimbal pitch for every waypoint of the run.
func (s Settings) Pitch() float64 {
	if s.FixedPitch == nil {
		return DEFAULT_GIMBAL_PITCH
	}
	p := *s.FixedPitch
	if math.IsNaN(p) {
		return DEFAULT_GIMBAL_PITCH
	}
	if p < MIN_GIMBAL_PITCH {
		p = MIN_GIMBAL_PITCH
	}
	if p > MAX_GIMBAL_PITCH {
		p = MAX_GIMBAL_PITCH
	}
	return p
}

// Validate checks everything the builder relies on before any work is
// done. The first problem found is returned, wrapping ErrInvalidSetting.
func (s Settings) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"speed", s.Speed},
		{"transitional speed", s.TransitionalSpeed},
		{"waypoint speed", s.WaypointSpeed},
		{"turn damping", s.TurnDamping},
	} {
		if !finite(v.val) {
			return errors.Wrapf(ErrInvalidSetting, "%s must be a finite number (%g)", v.name, v.val)
		}
	}
	if s.FixedPitch != nil && !finite(*s.FixedPitch) {
		return errors.Wrapf(ErrInvalidSetting, "gimbal pitch must be a finite number (%g)", *s.FixedPitch)
	}
	if !(s.Speed > 0) {
		return errors.Wrapf(ErrInvalidSetting, "speed must be positive (%g)", s.Speed)
	}
	if !(s.TransitionalSpeed > 0) {
		return errors.Wrapf(ErrInvalidSetting, "transitional speed must be positive (%g)", s.TransitionalSpeed)
	}
	if !(s.WaypointSpeed > 0) {
		return errors.Wrapf(ErrInvalidSetting, "waypoint speed must be positive (%g)", s.WaypointSpeed)
	}
	if s.TurnDamping < 0 {
		return errors.Wrapf(ErrInvalidSetting, "turn damping must not be negative (%g)", s.TurnDamping)
	}
	if s.DesiredWaypoints < 0 {
		return errors.Wrapf(ErrInvalidSetting, "desired waypoints must be positive (%d)", s.DesiredWaypoints)
	}
	if s.AltitudeType != AltitudeWGS84 && s.AltitudeType != AltitudeRelative {
		return errors.Wrapf(ErrInvalidSetting, "altitude type %q", s.AltitudeType)
	}
	if !oneOf(s.FinishAction, FinishActions) {
		return errors.Wrapf(ErrInvalidSetting, "finish action %q", s.FinishAction)
	}
	if !oneOf(s.RCLostAction, RCLostActions) {
		return errors.Wrapf(ErrInvalidSetting, "RC lost action %q", s.RCLostAction)
	}
	switch s.HeadingMode {
	case FollowCourse, PointTowardFilePOI:
	case ManualFixedHeading:
		if s.ManualHeading == nil {
			return errors.Wrap(ErrInvalidSetting, "manual heading is required for Manual Fixed Heading mode")
		}
		if h := *s.ManualHeading; !finite(h) || h < MIN_HEADING || h > MAX_HEADING {
			return errors.Wrapf(ErrInvalidSetting, "manual heading must be between -180 and 180 (%g)", h)
		}
	default:
		return errors.Wrapf(ErrInvalidSetting, "heading mode %d", s.HeadingMode)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
