package mission

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stronnag/ges2wpmz/pkg/geo"
	"github.com/stronnag/ges2wpmz/pkg/types"
)

func track(src string, n int, lat0 float64) []types.TaggedKeyframe {
	var kfs []types.TaggedKeyframe
	for j := 0; j < n; j++ {
		kfs = append(kfs, types.TaggedKeyframe{
			Keyframe: types.Keyframe{Lat: lat0 + float64(j)*0.001, Lon: -1.5, Alt: 100 + float64(j)},
			Source:   src,
		})
	}
	return kfs
}

// two files of five keyframes sharing the seam coordinate
func seamed() []types.TaggedKeyframe {
	a := track("/data/a.json", 5, 50.0)
	b := track("/data/b.json", 5, 50.004)
	b[0].Lat = a[4].Lat
	return append(a, b...)
}

func fp(v float64) *float64 {
	return &v
}

func param(a Action, key string) string {
	for _, p := range a.Params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	old := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = old })
	return &buf
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil, types.DefaultSettings(), nil, nil)
	assert.True(t, errors.Is(err, types.ErrEmptyMission))

	bad := []types.TaggedKeyframe{{Keyframe: types.Keyframe{Err: errors.New("nope")}, Source: "a"}}
	_, err = Build(bad, types.DefaultSettings(), nil, nil)
	assert.True(t, errors.Is(err, types.ErrEmptyMission))
}

func TestBuild_InvalidSettings(t *testing.T) {
	s := types.DefaultSettings()
	s.Speed = 0
	var msgs []string
	_, err := Build(seamed(), s, nil, func(m string) { msgs = append(msgs, m) })
	assert.True(t, errors.Is(err, types.ErrInvalidSetting))
	assert.Empty(t, msgs)
}

func TestBuild_NonFiniteSettings(t *testing.T) {
	nan := math.NaN()
	for name, modify := range map[string]func(*types.Settings){
		"pitch":   func(s *types.Settings) { s.FixedPitch = &nan },
		"damping": func(s *types.Settings) { s.TurnDamping = nan },
		"speed":   func(s *types.Settings) { s.Speed = math.Inf(1) },
		"heading": func(s *types.Settings) {
			s.HeadingMode = types.ManualFixedHeading
			s.ManualHeading = &nan
		},
	} {
		s := types.DefaultSettings()
		modify(&s)
		doc, err := Build(seamed(), s, nil, nil)
		assert.True(t, errors.Is(err, types.ErrInvalidSetting), name)
		assert.Nil(t, doc, name)
	}
}

func TestBuild_SeamedFiles(t *testing.T) {
	kfs := seamed()
	require.Equal(t, kfs[4].Lat, kfs[5].Lat)

	doc, err := Build(kfs, types.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 10)
	for i, p := range doc.Placemarks {
		assert.Equal(t, i, p.Index)
		if i == 9 {
			assert.Equal(t, TURN_MODE_LAST, p.TurnMode)
			assert.Len(t, p.ActionGroups, 1)
		} else {
			assert.Equal(t, TURN_MODE_INTERMEDIATE, p.TurnMode)
			assert.Len(t, p.ActionGroups, 2)
		}
		assert.Equal(t, HEADING_FOLLOW_WAYLINE, p.Heading.Mode)
		assert.False(t, p.Heading.AngleEnable)
	}
	assert.Equal(t, []string{"/data/a.json", "/data/b.json"}, doc.Sources())
	assert.InDelta(t, 8*111.195, doc.Distance, 0.5)
	assert.InDelta(t, doc.Distance/12.0, doc.Duration, 1e-9)
	assert.Len(t, doc.Legs(), 9)
}

func TestBuild_IDsMonotonic(t *testing.T) {
	doc, err := Build(seamed(), types.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	var gids, aids []int
	for _, p := range doc.Placemarks {
		for _, g := range p.ActionGroups {
			gids = append(gids, g.ID)
			for _, a := range g.Actions {
				aids = append(aids, a.ID)
			}
		}
	}
	for j, id := range gids {
		assert.Equal(t, j+1, id)
	}
	for j, id := range aids {
		assert.Equal(t, j+1, id)
	}
	assert.Len(t, gids, 19)

	again, err := Build(seamed(), types.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Placemarks[0].ActionGroups[0].ID)
}

func TestBuild_ActionGroups(t *testing.T) {
	s := types.DefaultSettings()
	s.FixedPitch = fp(-45)
	doc, err := Build(seamed(), s, nil, nil)
	require.NoError(t, err)

	first := doc.Placemarks[0]
	a := first.ActionGroups[0]
	assert.Equal(t, 0, a.StartIndex)
	assert.Equal(t, 0, a.EndIndex)
	assert.Equal(t, TRIGGER_REACH_POINT, a.TriggerType)
	assert.Equal(t, GROUP_MODE_PARALLEL, a.Mode)
	require.Len(t, a.Actions, 1)
	assert.Equal(t, ACTUATOR_ROTATE, a.Actions[0].ActuatorFunc)
	assert.Equal(t, Param{"gimbalPitchRotateAngle", "-45.0"}, a.Actions[0].Params[3])
	assert.Len(t, a.Actions[0].Params, 11)

	bg := first.ActionGroups[1]
	assert.Equal(t, 0, bg.StartIndex)
	assert.Equal(t, 1, bg.EndIndex)
	assert.Equal(t, TRIGGER_REACH_POINT, bg.TriggerType)
	assert.Equal(t, ACTUATOR_EVEN_ROTATE, bg.Actions[0].ActuatorFunc)

	mid := doc.Placemarks[3].ActionGroups[1]
	assert.Equal(t, 3, mid.StartIndex)
	assert.Equal(t, 4, mid.EndIndex)
	assert.Equal(t, TRIGGER_BETWEEN_PTS, mid.TriggerType)

	for _, p := range doc.Placemarks {
		for _, g := range p.ActionGroups {
			assert.Equal(t, "-45.0", param(g.Actions[0], "gimbalPitchRotateAngle"))
		}
	}
}

func TestBuild_PitchClamped(t *testing.T) {
	s := types.DefaultSettings()
	s.FixedPitch = fp(-120)
	doc, err := Build(seamed(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, -90.0, doc.Pitch)

	doc, err = Build(seamed(), types.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, doc.Pitch)
}

func TestBuild_Heights(t *testing.T) {
	doc, err := Build(seamed(), types.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, doc.Placemarks[0].ExecuteHeight)
	assert.Equal(t, 104.0, doc.Placemarks[9].ExecuteHeight)
	assert.Equal(t, types.AltitudeWGS84, doc.HeightMode)

	s := types.DefaultSettings()
	s.AltitudeType = types.AltitudeRelative
	doc, err = Build(seamed(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, doc.Placemarks[0].ExecuteHeight)
	assert.Equal(t, 4.0, doc.Placemarks[4].ExecuteHeight)
	assert.Equal(t, 100.0, doc.ReferenceAlt)
}

func TestBuild_ManualHeadingEnable(t *testing.T) {
	s := types.DefaultSettings()
	s.HeadingMode = types.ManualFixedHeading
	s.ManualHeading = fp(-35.5)
	doc, err := Build(seamed(), s, nil, nil)
	require.NoError(t, err)
	n := len(doc.Placemarks)
	for i, p := range doc.Placemarks {
		assert.Equal(t, HEADING_SMOOTH_TRANSITION, p.Heading.Mode)
		assert.Equal(t, -35.5, p.Heading.Angle)
		assert.Equal(t, i == 0 || i == n-1, p.Heading.AngleEnable, "placemark %d", i)
		assert.Equal(t, HEADING_PATH_MODE, p.Heading.PathMode)
	}
}

func TestBuild_POIHeading(t *testing.T) {
	kfs := seamed()
	pois := types.POIMap{
		"/data/a.json": {Lat: 50.1, Lon: -1.5},
		"/data/b.json": {Lat: 49.9, Lon: -1.5},
	}
	s := types.DefaultSettings()
	s.HeadingMode = types.PointTowardFilePOI
	doc, err := Build(kfs, s, pois, nil)
	require.NoError(t, err)
	for i, p := range doc.Placemarks {
		assert.Equal(t, HEADING_SMOOTH_TRANSITION, p.Heading.Mode)
		assert.Equal(t, i == 0 || i == 9, p.Heading.AngleEnable, "placemark %d", i)
	}
	// a's POI lies due north, b's due south
	assert.InDelta(t, 0.0, doc.Placemarks[2].Heading.Angle, 1e-6)
	assert.InDelta(t, 180.0, doc.Placemarks[7].Heading.Angle, 1e-6)
}

// One file has no POI: its placemarks fall back to following the
// wayline, and angle enable stays tied to the first and last placemark
// of the whole merged mission.
func TestBuild_MissingPOIForOneFile(t *testing.T) {
	buf := captureLog(t)
	kfs := seamed()
	pois := types.POIMap{"/data/a.json": {Lat: 50.1, Lon: -1.5}}
	s := types.DefaultSettings()
	s.HeadingMode = types.PointTowardFilePOI

	var msgs []string
	doc, err := Build(kfs, s, pois, func(m string) { msgs = append(msgs, m) })
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 10)

	for i, p := range doc.Placemarks[:5] {
		assert.Equal(t, HEADING_SMOOTH_TRANSITION, p.Heading.Mode, "placemark %d", i)
		assert.Equal(t, i == 0, p.Heading.AngleEnable, "placemark %d", i)
	}
	for _, p := range doc.Placemarks[5:] {
		assert.Equal(t, HEADING_FOLLOW_WAYLINE, p.Heading.Mode, "placemark %d", p.Index)
		assert.Equal(t, 0.0, p.Heading.Angle)
		assert.False(t, p.Heading.AngleEnable, "placemark %d", p.Index)
	}

	warns := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, "Warning: POI not set for file 'b.json'") {
			warns++
		}
	}
	assert.Equal(t, 1, warns)
	assert.Equal(t, 5, strings.Count(buf.String(), types.ErrMissingPOI.Error()))
}

func TestBuild_SkipsInvalidPoint(t *testing.T) {
	captureLog(t)
	kfs := seamed()
	kfs[3].Err = errors.New("keyframe 3: missing latitude")
	var msgs []string
	doc, err := Build(kfs, types.DefaultSettings(), nil, func(m string) { msgs = append(msgs, m) })
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 9)
	for i, p := range doc.Placemarks {
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, TURN_MODE_LAST, doc.Placemarks[8].TurnMode)
	assert.Len(t, doc.Placemarks[8].ActionGroups, 1)
	assert.Contains(t, msgs, "Warning: Skipping waypoint 3 from a.json due to missing/invalid data: keyframe 3: missing latitude")
}

func TestBuild_DistanceCountsFrameWithoutAltitude(t *testing.T) {
	kfs := []types.TaggedKeyframe{
		{Keyframe: types.Keyframe{Lat: 50.0, Lon: -1.5, Alt: 100}, Source: "a"},
		{Keyframe: types.Keyframe{Lat: 50.001, Lon: -1.499, NoAlt: true, Err: errors.New("missing altitude")}, Source: "a"},
		{Keyframe: types.Keyframe{Lat: 50.002, Lon: -1.5, Alt: 100}, Source: "a"},
		{Keyframe: types.Keyframe{Err: errors.New("missing coordinate")}, Source: "a"},
	}
	captureLog(t)
	doc, err := Build(kfs, types.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 2)

	want := geo.Distance(50.0, -1.5, 50.001, -1.499) + geo.Distance(50.001, -1.499, 50.002, -1.5)
	assert.InDelta(t, want, doc.Distance, 1e-6)
	assert.Greater(t, doc.Distance, geo.Distance(50.0, -1.5, 50.002, -1.5)+1)
}

func TestBuild_ReferenceFromFirstValid(t *testing.T) {
	captureLog(t)
	kfs := seamed()
	kfs[0].Err = errors.New("bad")
	s := types.DefaultSettings()
	s.AltitudeType = types.AltitudeRelative
	doc, err := Build(kfs, s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 101.0, doc.ReferenceAlt)
	assert.Equal(t, 0.0, doc.Placemarks[0].ExecuteHeight)
}

func TestBuild_Config(t *testing.T) {
	s := types.DefaultSettings()
	s.FinishAction = "autoLand"
	s.RCLostAction = "hover"
	s.TransitionalSpeed = 8
	s.Speed = 5
	doc, err := Build(seamed(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Config{
		FlyToWaylineMode:  "safely",
		FinishAction:      "autoLand",
		ExitOnRCLost:      "executeLostAction",
		RCLostAction:      "hover",
		TransitionalSpeed: 8,
		DroneEnum:         68,
		DroneSubEnum:      0,
	}, doc.Config)
	assert.Equal(t, 5.0, doc.AutoFlightSpeed)
}
