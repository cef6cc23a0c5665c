package convert

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/bmizerany/perks/quantile"
	humanize "github.com/dustin/go-humanize"

	"github.com/stronnag/ges2wpmz/pkg/geo"
	"github.com/stronnag/ges2wpmz/pkg/ges"
	"github.com/stronnag/ges2wpmz/pkg/mission"
	"github.com/stronnag/ges2wpmz/pkg/thin"
	"github.com/stronnag/ges2wpmz/pkg/types"
)

// Summary describes a built mission for display. size is the archive
// size in bytes, omitted when zero.
func Summary(d *mission.Document, size int64) types.MapRec {
	m := types.MapRec{}
	m["Points"] = strconv.Itoa(len(d.Placemarks))
	m["Sources"] = strconv.Itoa(len(d.Sources()))
	m["Distance"] = geo.DistanceFormat(d.Distance)
	m["Duration"] = fmt.Sprintf("%s (at %.1f m/s)", geo.FormatTime(d.Duration), d.AutoFlightSpeed)
	m["Altitude"] = fmt.Sprintf("%s (ref %.1fm)", d.HeightMode, d.ReferenceAlt)
	m["Pitch"] = fmt.Sprintf("%.1f°", d.Pitch)
	if len(d.Placemarks) > 0 {
		p := d.Placemarks[0]
		m["Start"] = geo.PositionFormat(p.Lat, p.Lon, false)
	}
	if legs := d.Legs(); len(legs) > 0 {
		q := quantile.NewTargeted(0.05, 0.5, 0.95)
		for _, l := range legs {
			q.Insert(l)
		}
		m["Legs"] = fmt.Sprintf("%.1f / %.1f / %.1f m (p5/p50/p95)", q.Query(0.05), q.Query(0.5), q.Query(0.95))
	}
	if size > 0 {
		m["Size"] = humanize.Bytes(uint64(size))
	}
	return m
}

// FileSurvey is the per-file estimate shown before converting.
type FileSurvey struct {
	File      string
	Keyframes int
	Waypoints int
	Distance  float64
	Duration  float64
	Speed     float64
	Err       error
}

func (f FileSurvey) String() string {
	bn := filepath.Base(f.File)
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", bn, f.Err)
	}
	secs := -1.0
	if f.Speed > 0 {
		secs = f.Duration
	}
	return fmt.Sprintf("%s: %.3f km | Est. Time: %s (at %.1f m/s) | %d -> %d waypoints",
		bn, f.Distance/1000.0, geo.FormatTime(secs), f.Speed, f.Keyframes, f.Waypoints)
}

// Survey reads each file on its own, thins it with the run's target and
// estimates its length and flight time. Problems are recorded per file.
func Survey(files []string, s types.Settings) []FileSurvey {
	var res []FileSurvey
	for _, fn := range files {
		fs := FileSurvey{File: fn, Speed: s.Speed}
		kfs, err := ges.ReadFile(fn)
		if err != nil {
			fs.Err = err
			res = append(res, fs)
			continue
		}
		fs.Keyframes = len(kfs)
		kfs = thin.Keyframes(kfs, s.DesiredWaypoints, nil)
		fs.Waypoints = len(kfs)
		var last *types.Keyframe
		for j := range kfs {
			if !kfs[j].Located() {
				continue
			}
			if last != nil {
				fs.Distance += geo.Distance(last.Lat, last.Lon, kfs[j].Lat, kfs[j].Lon)
			}
			last = &kfs[j]
		}
		fs.Duration = geo.Duration(fs.Distance, s.Speed)
		res = append(res, fs)
	}
	return res
}
