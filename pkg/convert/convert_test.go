package convert

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stronnag/ges2wpmz/pkg/kmz"
	"github.com/stronnag/ges2wpmz/pkg/types"
	"github.com/stronnag/ges2wpmz/pkg/wpml"
)

func writeExport(t *testing.T, dir, name string, n int, lat0 float64) string {
	t.Helper()
	var frames []string
	for j := 0; j < n; j++ {
		frames = append(frames, fmt.Sprintf(
			`{"rotation":{"x":0,"y":%d,"z":0},"coordinate":{"latitude":%.6f,"longitude":-1.5,"altitude":%.1f}}`,
			j, lat0+float64(j)*0.0005, 80.0+float64(j)))
	}
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(`{"cameraFrames":[`+strings.Join(frames, ",")+`]}`), 0644))
	return fn
}

func fixedNow() time.Time {
	return time.UnixMilli(1712345678901)
}

func TestRun_TwoFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "a.json", 5, 51.0)
	// b starts where a ends
	b := writeExport(t, dir, "b.json", 5, 51.002)

	var msgs []string
	out := filepath.Join(dir, "out", "mission.kmz")
	res, err := Run(Request{
		Files:    []string{a, b},
		Settings: types.DefaultSettings(),
		Output:   out,
		Progress: func(s string) { msgs = append(msgs, s) },
		Now:      fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, out, res.Output)
	require.Len(t, res.Document.Placemarks, 10)
	for i, p := range res.Document.Placemarks {
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, wpml.Synthesize, res.Template)
	assert.Greater(t, res.Size, int64(0))
	assert.Equal(t, "10", res.Summary["Points"])
	assert.Contains(t, res.Summary, "Legs")
	assert.Contains(t, res.Summary, "Size")

	w, tm, err := kmz.Read(out)
	require.NoError(t, err)
	assert.Equal(t, res.Waylines, w)
	assert.Contains(t, string(tm), "<wpml:createTime>1712345678901</wpml:createTime>")

	p, err := wpml.ParseWaylines(w)
	require.NoError(t, err)
	assert.Len(t, p.Placemarks, 10)
	assert.InDelta(t, res.Document.Distance, p.Distance, 0.1)

	assert.Equal(t, "Loading file 1/2: a.json...", msgs[0])
	assert.Contains(t, msgs, "Total keyframes loaded: 10")
	assert.Contains(t, msgs, "Generating default template.kml.")
	assert.Equal(t, "Successfully created KMZ: mission.kmz", msgs[len(msgs)-1])
}

func TestRun_Thinning(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "long.json", 100, 40.0)
	s := types.DefaultSettings()
	s.DesiredWaypoints = 10
	res, err := Run(Request{Files: []string{a}, Settings: s, Output: filepath.Join(dir, "long.kmz")})
	require.NoError(t, err)
	n := len(res.Document.Placemarks)
	assert.GreaterOrEqual(t, n, 10)
	assert.LessOrEqual(t, n, 11)
	assert.InDelta(t, 40.0, res.Document.Placemarks[0].Lat, 1e-9)
	assert.InDelta(t, 40.0+99*0.0005, res.Document.Placemarks[n-1].Lat, 1e-9)
}

func TestRun_ReferenceTemplate(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "a.json", 3, 10.0)
	ref := `<kml xmlns:wpml="x"><Document><wpml:missionConfig><wpml:droneInfo/></wpml:missionConfig></Document></kml>`
	var msgs []string
	out := filepath.Join(dir, "a.kmz")
	res, err := Run(Request{
		Files:    []string{a},
		Settings: types.DefaultSettings(),
		Template: ref,
		Output:   out,
		Progress: func(s string) { msgs = append(msgs, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, wpml.ValidTemplate, res.Template)
	_, tm, err := kmz.Read(out)
	require.NoError(t, err)
	assert.Equal(t, ref, string(tm))
	assert.Contains(t, msgs, "Using provided reference template.kml.")

	msgs = nil
	_, err = Run(Request{
		Files:    []string{a},
		Settings: types.DefaultSettings(),
		Template: "<kml/>",
		Output:   out,
		Progress: func(s string) { msgs = append(msgs, s) },
	})
	require.NoError(t, err)
	assert.Contains(t, msgs, "Warning: Provided reference KML incomplete. Generating default.")
	assert.Contains(t, msgs, "Generating default template.kml.")
}

func TestRun_FatalLeavesNoArchive(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "a.json", 3, 10.0)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"cameraFrames": "nope"}`), 0644))

	tests := []struct {
		name  string
		files []string
		set   func(*types.Settings)
		want  error
	}{
		{"schema", []string{a, bad}, nil, types.ErrSchema},
		{"missing", []string{filepath.Join(dir, "gone.json")}, nil, types.ErrInputNotFound},
		{"no files", nil, nil, types.ErrNoInput},
		{"speed", []string{a}, func(s *types.Settings) { s.Speed = -1 }, types.ErrInvalidSetting},
		{"damping", []string{a}, func(s *types.Settings) { s.TurnDamping = -1 }, types.ErrInvalidSetting},
		{"pitch", []string{a}, func(s *types.Settings) {
			nan := math.NaN()
			s.FixedPitch = &nan
		}, types.ErrInvalidSetting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			old := log.Logger
			log.Logger = zerolog.New(&buf)
			t.Cleanup(func() { log.Logger = old })

			s := types.DefaultSettings()
			if tt.set != nil {
				tt.set(&s)
			}
			var errs []string
			out := filepath.Join(dir, tt.name+".kmz")
			_, err := Run(Request{
				Files:    tt.files,
				Settings: s,
				Output:   out,
				Progress: func(m string) {
					if strings.HasPrefix(m, "Error: ") {
						errs = append(errs, m)
					}
				},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "%v", err)
			assert.Len(t, errs, 1)
			assert.NotContains(t, buf.String(), `"level":"error"`)
			_, serr := os.Stat(out)
			assert.True(t, os.IsNotExist(serr))
		})
	}
}

func TestRun_PackagingFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "a.json", 3, 10.0)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	_, err := Run(Request{Files: []string{a}, Settings: types.DefaultSettings(), Output: filepath.Join(blocker, "x.kmz")})
	assert.True(t, errors.Is(err, types.ErrPackaging))
}

func TestSurvey(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "a.json", 11, 0.0)
	e := filepath.Join(dir, "e.json")
	require.NoError(t, os.WriteFile(e, []byte(`{"cameraFrames":[]}`), 0644))

	s := types.DefaultSettings()
	s.DesiredWaypoints = 3
	res := Survey([]string{a, e}, s)
	require.Len(t, res, 2)
	assert.Equal(t, 11, res[0].Keyframes)
	assert.Equal(t, 3, res[0].Waypoints)
	assert.InEpsilon(t, 10*0.0005*111195.0, res[0].Distance, 0.01)
	assert.InDelta(t, res[0].Distance/12.0, res[0].Duration, 1e-9)
	assert.NoError(t, res[0].Err)
	assert.Contains(t, res[0].String(), "a.json: 0.556 km | Est. Time: 00:46 (at 12.0 m/s) | 11 -> 3 waypoints")
	assert.True(t, errors.Is(res[1].Err, types.ErrEmptySource))
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	a := writeExport(t, dir, "a.json", 6, 45.0)
	res, err := Run(Request{Files: []string{a}, Settings: types.DefaultSettings(), Output: filepath.Join(dir, "s.kmz")})
	require.NoError(t, err)

	m := Summary(res.Document, 2048)
	assert.Equal(t, "6", m["Points"])
	assert.Equal(t, "1", m["Sources"])
	assert.Equal(t, "2.0 kB", m["Size"])
	assert.Equal(t, "45.000000 -1.500000", m["Start"])
	assert.Contains(t, m["Legs"], "55.6 / 55.6 / 55.6 m")
	assert.NotContains(t, Summary(res.Document, 0), "Size")
}
