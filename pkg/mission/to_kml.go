package mission

import (
	"fmt"
	"path/filepath"
	"strings"

	kml "github.com/twpayne/go-kml"

	"github.com/stronnag/ges2wpmz/pkg/geo"
	"github.com/stronnag/ges2wpmz/pkg/styles"
)

func (p *Placemark) style_url(n int) string {
	switch p.Index {
	case 0:
		return "#styleWPStart"
	case n - 1:
		return "#styleWPEnd"
	default:
		return "#styleWAYPOINT"
	}
}

func (p *Placemark) description(dms bool, next *Placemark) string {
	var sb strings.Builder
	row := func(k, v string) {
		sb.WriteString(fmt.Sprintf("<tr><td><b>%s</b></td><td>%s</td></tr>", k, v))
	}
	sb.WriteString(`<table style="border="1px" silver; border="1" silver; rules="all";;">`)
	row("Source", filepath.Base(p.Source))
	row("Position", geo.PositionFormat(p.Lat, p.Lon, dms))
	row("Altitude", fmt.Sprintf("%.1f m", p.Alt))
	row("Execute Height", fmt.Sprintf("%.1f m", p.ExecuteHeight))
	row("Speed", fmt.Sprintf("%.1f m/s", p.WaypointSpeed))
	row("Turn", p.TurnMode)
	row("Heading", p.Heading.Mode)
	if p.Heading.Mode != HEADING_FOLLOW_WAYLINE {
		row("Heading Angle", fmt.Sprintf("%.1f°", p.Heading.Angle))
	}
	if next != nil {
		cse, d := geo.Csedist(p.Lat, p.Lon, next.Lat, next.Lon)
		row("Next Leg", fmt.Sprintf("%s at %.0f°", geo.DistanceFormat(d), cse))
	}
	for _, g := range p.ActionGroups {
		for _, a := range g.Actions {
			row(fmt.Sprintf("Action %d", a.ID), fmt.Sprintf("%s (%s %d-%d)", a.ActuatorFunc, g.TriggerType, g.StartIndex, g.EndIndex))
		}
	}
	sb.WriteString("</table>")
	return sb.String()
}

// To_kml renders the mission as a folder holding one track per source
// file and a placemark per waypoint. Track styles are referenced by
// source order (styles.TrackStyleID).
func (d *Document) To_kml(dms bool, isvis bool) *kml.CompoundElement {
	n := len(d.Placemarks)
	srcs := d.Sources()
	sidx := make(map[string]int, len(srcs))
	for j, s := range srcs {
		sidx[s] = j
	}

	tracks := make([][]kml.Coordinate, len(srcs))
	var wps []kml.Element
	for j := range d.Placemarks {
		p := &d.Placemarks[j]
		pt := kml.Coordinate{Lon: p.Lon, Lat: p.Lat, Alt: p.Alt}
		k := sidx[p.Source]
		// join each track to the start of the next so the path is unbroken
		if k > 0 && len(tracks[k]) == 0 {
			tracks[k-1] = append(tracks[k-1], pt)
		}
		tracks[k] = append(tracks[k], pt)

		var next *Placemark
		if j < n-1 {
			next = &d.Placemarks[j+1]
		}
		wp := kml.Placemark(
			kml.Name(fmt.Sprintf("WP %d", p.Index)),
			kml.Description(p.description(dms, next)),
			kml.StyleURL(p.style_url(n)),
			kml.Point(
				kml.AltitudeMode(kml.AltitudeModeAbsolute),
				kml.Coordinates(pt),
			),
		)
		wp.Add(kml.Visibility(isvis))
		wps = append(wps, wp)
	}

	f := kml.Folder(kml.Name("Mission")).Add(kml.Visibility(isvis))
	for k, pts := range tracks {
		track := kml.Placemark(
			kml.Name(filepath.Base(srcs[k])),
			kml.StyleURL("#"+styles.TrackStyleID(k)),
			kml.LineString(
				kml.AltitudeMode(kml.AltitudeModeAbsolute),
				kml.Extrude(false),
				kml.Tessellate(false),
				kml.Coordinates(pts...),
			),
		)
		track.Add(kml.Visibility(isvis))
		f.Add(track)
	}
	f.Add(wps...)
	return f
}
