package kmlgen

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-kml/icon"
	kmz "github.com/twpayne/go-kmz"

	"github.com/stronnag/ges2wpmz/pkg/geo"
	"github.com/stronnag/ges2wpmz/pkg/mission"
	"github.com/stronnag/ges2wpmz/pkg/styles"
	"github.com/stronnag/ges2wpmz/pkg/types"
)

var Gradset = styles.GRAD_RGN

func getPOIs(d *mission.Document, pois types.POIMap, dms bool) []kml.Element {
	var pp []kml.Element
	for _, src := range d.Sources() {
		poi, ok := pois.Lookup(src)
		if !ok {
			continue
		}
		bn := filepath.Base(src)
		k := kml.Placemark(
			kml.Name(fmt.Sprintf("POI %s", bn)),
			kml.Description(fmt.Sprintf("Point of interest for %s<br/>Location %s<br/>",
				bn, geo.PositionFormat(poi.Lat, poi.Lon, dms))),
			kml.StyleURL("#styleSET_POI"),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: poi.Lon, Lat: poi.Lat}),
			),
		)
		pp = append(pp, k)
	}
	return pp
}

func getHome(d *mission.Document, dms bool) kml.Element {
	p := d.Placemarks[0]
	return kml.Placemark(
		kml.Name("Start"),
		kml.Description(fmt.Sprintf("Location %s<br/>Reference Altitude: %.1fm<br/>",
			geo.PositionFormat(p.Lat, p.Lon, dms), d.ReferenceAlt)),
		kml.Point(
			kml.Coordinates(kml.Coordinate{Lon: p.Lon, Lat: p.Lat}),
		),
		kml.Style(
			kml.IconStyle(
				kml.Icon(
					kml.Href(icon.PaletteHref(4, 29)),
				),
			),
		).Add(styles.Balloon_style(styles.BS_NAME_DESC)),
	)
}

func add_ground_track(d *mission.Document) kml.Element {
	f := kml.Folder(kml.Name("Ground Track")).Add(kml.Visibility(false))
	var points []kml.Coordinate
	for _, p := range d.Placemarks {
		points = append(points, kml.Coordinate{Lon: p.Lon, Lat: p.Lat})
	}
	tk := kml.Placemark(
		kml.Style(
			kml.LineStyle(
				kml.Width(4.0),
				kml.Color(color.RGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0x66}),
			),
		),
		kml.LineString(kml.Coordinates(points...)),
	)
	f.Add(tk)
	return f
}

// Preview builds a KML folder showing the finished mission: coloured
// tracks per source file, waypoints, POIs and the summary as extended
// data.
func Preview(d *mission.Document, pois types.POIMap, dms bool, name string, smap types.MapRec) *kml.CompoundElement {
	f := kml.Folder(kml.Name(name)).Add(kml.Open(true))
	f.Add(styles.Get_waypoint_styles()...)
	f.Add(styles.Get_track_styles(len(d.Sources()), Gradset)...)

	e := kml.ExtendedData(kml.Data(kml.Name("Mission"), kml.Value(name)))
	for _, k := range smap.Keys() {
		e.Add(kml.Data(kml.Name(k), kml.Value(smap[k])))
	}
	f.Add(e)

	if len(d.Placemarks) > 0 {
		f.Add(getHome(d, dms))
		f.Add(add_ground_track(d))
	}
	f.Add(getPOIs(d, pois, dms)...)
	f.Add(d.To_kml(dms, true))
	return f
}

// Write saves the element as KMZ when outfn ends in .kmz, otherwise as
// plain KML.
func Write(outfn string, el *kml.CompoundElement) error {
	w, err := os.Create(outfn)
	if err != nil {
		return errors.Wrapf(err, "preview %s", outfn)
	}
	if strings.HasSuffix(strings.ToLower(outfn), ".kmz") {
		err = kmz.NewKMZ(el).WriteIndent(w, "", "  ")
	} else {
		err = kml.KML(el).WriteIndent(w, "", "  ")
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outfn)
		return errors.Wrapf(err, "preview %s", outfn)
	}
	return nil
}
