package styles

import (
	"fmt"
	"image/color"

	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-kml/icon"
)

const (
	BS_NAME_DESC = iota
	BS_DESC_ONLY
)

func Balloon_style(bs uint8) *kml.CompoundElement {
	if bs == BS_NAME_DESC {
		return kml.BalloonStyle(kml.BgColor(color.RGBA{R: 0xde, G: 0xde, B: 0xde, A: 0x40}),
			kml.Text(`<b><font size="+2">$[name]</font></b><br/><br/>$[description]<br/>`))
	}
	return kml.BalloonStyle(kml.BgColor(color.RGBA{R: 0xde, G: 0xde, B: 0xde, A: 0x40}),
		kml.Text(`$[description]`))
}

// TrackStyleID names the line style of the n'th source file.
func TrackStyleID(n int) string {
	return fmt.Sprintf("styleTrack%02d", n)
}

func Get_waypoint_styles() []kml.Element {
	return []kml.Element{
		kml.SharedStyle(
			"styleWPStart",
			kml.IconStyle(
				kml.Scale(0.8),
				kml.Icon(
					kml.Href(icon.PaddleHref("grn-circle")),
				),
			),
		).Add(Balloon_style(BS_NAME_DESC)),
		kml.SharedStyle(
			"styleWAYPOINT",
			kml.IconStyle(
				kml.Scale(0.6),
				kml.Icon(
					kml.Href(icon.PaddleHref("ltblu-circle")),
				),
			),
		).Add(Balloon_style(BS_NAME_DESC)),
		kml.SharedStyle(
			"styleWPEnd",
			kml.IconStyle(
				kml.Scale(0.8),
				kml.Icon(
					kml.Href(icon.PaddleHref("red-circle")),
				),
			),
		).Add(Balloon_style(BS_NAME_DESC)),
		kml.SharedStyle(
			"styleSET_POI",
			kml.IconStyle(
				kml.Scale(0.8),
				kml.Icon(
					kml.Href(icon.PaddleHref("ylw-diamond")),
				),
			),
		).Add(Balloon_style(BS_NAME_DESC)),
	}
}

// Get_track_styles returns one line style per source file, coloured
// along the named gradient.
func Get_track_styles(n int, gname string) []kml.Element {
	var el []kml.Element
	for j, c := range Track_colours(n, gname) {
		el = append(el, kml.SharedStyle(
			TrackStyleID(j),
			kml.LineStyle(
				kml.Width(4.0),
				kml.Color(c),
			),
			kml.PolyStyle(
				kml.Color(color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0x66}),
			),
		))
	}
	return el
}
