// Package mission builds the waylines mission document from tagged
// keyframes, settings and per-file points of interest.
package mission

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stronnag/ges2wpmz/pkg/geo"
	"github.com/stronnag/ges2wpmz/pkg/types"
)

type idCounter struct {
	group  int
	action int
}

func (c *idCounter) next_group() int {
	c.group++
	return c.group
}

func (c *idCounter) next_action() int {
	c.action++
	return c.action
}

type builder struct {
	s        types.Settings
	pois     types.POIMap
	progress types.Progress
	pitch    string
	ids      idCounter
	warned   map[string]bool
}

// path_length sums the legs between consecutive located keyframes. A
// frame lacking only its altitude still counts.
func path_length(kfs []types.TaggedKeyframe) float64 {
	var d float64
	var last *types.TaggedKeyframe
	for j := range kfs {
		if !kfs[j].Located() {
			continue
		}
		if last != nil {
			d += geo.Distance(last.Lat, last.Lon, kfs[j].Lat, kfs[j].Lon)
		}
		last = &kfs[j]
	}
	return d
}

// Build turns thinned keyframes into a mission document. Settings are
// validated first; keyframes without a usable coordinate are skipped and
// take no index.
func Build(kfs []types.TaggedKeyframe, s types.Settings, pois types.POIMap, progress types.Progress) (*Document, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	progress.Say("Generating WPML structure...")
	if len(kfs) == 0 {
		return nil, errors.Wrap(types.ErrEmptyMission, "thinned keyframes list is empty")
	}

	var pts []types.TaggedKeyframe
	for i, kf := range kfs {
		if !kf.Valid() {
			bn := filepath.Base(kf.Source)
			log.Warn().Err(kf.Err).Str("file", bn).Int("waypoint", i).Msg("Skipping waypoint with missing/invalid data")
			progress.Say("Warning: Skipping waypoint %d from %s due to missing/invalid data: %v", i, bn, kf.Err)
			continue
		}
		pts = append(pts, kf)
	}
	if len(pts) == 0 {
		return nil, errors.Wrap(types.ErrEmptyMission, "no keyframe has a usable coordinate")
	}

	doc := &Document{
		Config: Config{
			FlyToWaylineMode:  FLY_TO_WAYLINE_MODE,
			FinishAction:      s.FinishAction,
			ExitOnRCLost:      EXIT_ON_RC_LOST,
			RCLostAction:      s.RCLostAction,
			TransitionalSpeed: s.TransitionalSpeed,
			DroneEnum:         types.DRONE_ENUM_VALUE,
			DroneSubEnum:      types.DRONE_SUB_ENUM_VALUE,
		},
		HeightMode:      s.AltitudeType,
		AutoFlightSpeed: s.Speed,
	}

	doc.Distance = path_length(kfs)
	doc.Duration = geo.Duration(doc.Distance, s.Speed)

	doc.ReferenceAlt = pts[0].Alt
	progress.Say("Reference altitude (first point): %.2fm", doc.ReferenceAlt)

	doc.Pitch = s.Pitch()
	if s.FixedPitch != nil {
		progress.Say("Using fixed gimbal pitch: %.1f°", doc.Pitch)
	} else {
		progress.Say("Using default gimbal pitch: %.1f° (Horizon)", doc.Pitch)
	}
	progress.Say("Using Heading Mode: %s", s.HeadingMode)

	b := &builder{
		s:        s,
		pois:     pois,
		progress: progress,
		pitch:    fmt.Sprintf("%.1f", doc.Pitch),
		warned:   make(map[string]bool),
	}

	n := len(pts)
	doc.Placemarks = make([]Placemark, 0, n)
	for i, kf := range pts {
		if i%10 == 0 {
			progress.Say("Processing waypoint %d/%d...", i+1, n)
		}
		doc.Placemarks = append(doc.Placemarks, b.placemark(i, n, kf, doc.ReferenceAlt))
	}
	return doc, nil
}

func (b *builder) placemark(i, n int, kf types.TaggedKeyframe, refalt float64) Placemark {
	last := (i == n-1)
	p := Placemark{
		Index:         i,
		Lon:           kf.Lon,
		Lat:           kf.Lat,
		Alt:           kf.Alt,
		ExecuteHeight: kf.Alt,
		WaypointSpeed: b.s.WaypointSpeed,
		TurnMode:      TURN_MODE_INTERMEDIATE,
		TurnDamping:   b.s.TurnDamping,
		Source:        kf.Source,
	}
	if b.s.Relative() {
		p.ExecuteHeight = kf.Alt - refalt
	}
	if last {
		p.TurnMode = TURN_MODE_LAST
	}
	p.Heading = b.heading(i, kf, i == 0 || last)

	p.ActionGroups = append(p.ActionGroups, b.rotate_group(i))
	if !last {
		p.ActionGroups = append(p.ActionGroups, b.evenly_rotate_group(i))
	}
	return p
}

func (b *builder) heading(i int, kf types.TaggedKeyframe, endpoint bool) HeadingParam {
	h := HeadingParam{
		Mode:     HEADING_FOLLOW_WAYLINE,
		PoiPoint: HEADING_POI_POINT,
		PathMode: HEADING_PATH_MODE,
	}
	switch b.s.HeadingMode {
	case types.PointTowardFilePOI:
		poi, ok := b.pois.Lookup(kf.Source)
		if !ok {
			bn := filepath.Base(kf.Source)
			log.Warn().Err(errors.Wrapf(types.ErrMissingPOI, "%s", bn)).Int("waypoint", i).Msg("Defaulting heading to followWayline")
			if !b.warned[kf.Source] {
				b.warned[kf.Source] = true
				b.progress.Say("Warning: POI not set for file '%s'. Defaulting heading to 'followWayline'.", bn)
			}
			return h
		}
		h.Mode = HEADING_SMOOTH_TRANSITION
		h.Angle = geo.Bearing(kf.Lat, kf.Lon, poi.Lat, poi.Lon)
		h.AngleEnable = endpoint
	case types.ManualFixedHeading:
		h.Mode = HEADING_SMOOTH_TRANSITION
		h.Angle = *b.s.ManualHeading
		h.AngleEnable = endpoint
	}
	return h
}

func (b *builder) rotate_group(i int) ActionGroup {
	return ActionGroup{
		ID:          b.ids.next_group(),
		StartIndex:  i,
		EndIndex:    i,
		Mode:        GROUP_MODE_PARALLEL,
		TriggerType: TRIGGER_REACH_POINT,
		Actions: []Action{{
			ID:           b.ids.next_action(),
			ActuatorFunc: ACTUATOR_ROTATE,
			Params: []Param{
				{"gimbalHeadingYawBase", GIMBAL_YAW_BASE},
				{"gimbalRotateMode", GIMBAL_ROTATE_MODE},
				{"gimbalPitchRotateEnable", "1"},
				{"gimbalPitchRotateAngle", b.pitch},
				{"gimbalRollRotateEnable", "0"},
				{"gimbalRollRotateAngle", "0"},
				{"gimbalYawRotateEnable", "0"},
				{"gimbalYawRotateAngle", "0"},
				{"gimbalRotateTimeEnable", "0"},
				{"gimbalRotateTime", "0"},
				{"payloadPositionIndex", PAYLOAD_POSITION_INDX},
			},
		}},
	}
}

func (b *builder) evenly_rotate_group(i int) ActionGroup {
	trigger := TRIGGER_BETWEEN_PTS
	if i == 0 {
		trigger = TRIGGER_REACH_POINT
	}
	return ActionGroup{
		ID:          b.ids.next_group(),
		StartIndex:  i,
		EndIndex:    i + 1,
		Mode:        GROUP_MODE_PARALLEL,
		TriggerType: trigger,
		Actions: []Action{{
			ID:           b.ids.next_action(),
			ActuatorFunc: ACTUATOR_EVEN_ROTATE,
			Params: []Param{
				{"gimbalPitchRotateAngle", b.pitch},
				{"payloadPositionIndex", PAYLOAD_POSITION_INDX},
			},
		}},
	}
}
