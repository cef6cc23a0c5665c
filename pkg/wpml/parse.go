package wpml

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/stronnag/ges2wpmz/pkg/types"
)

type ParsedPlacemark struct {
	Index         int
	Lon           float64
	Lat           float64
	ExecuteHeight float64
	HeadingMode   string
	HeadingAngle  float64
	AngleEnable   bool
	TurnMode      string
}

// Parsed is what ParseWaylines recovers from a waylines document.
type Parsed struct {
	FinishAction string
	RCLostAction string
	DroneEnum    int
	HeightMode   string
	Distance     float64
	Duration     float64
	Speed        float64
	Placemarks   []ParsedPlacemark
	GroupIDs     []int
	ActionIDs    []int
}

func child_text(e *etree.Element, path string) string {
	if c := e.FindElement(path); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func child_float(e *etree.Element, path string) (float64, error) {
	s := child_text(e, path)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(types.ErrSchema, "%s: %q", path, s)
	}
	return v, nil
}

func child_int(e *etree.Element, path string) (int, error) {
	s := child_text(e, path)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(types.ErrSchema, "%s: %q", path, s)
	}
	return v, nil
}

// ParseWaylines reads a waylines document back. It checks structure and
// numbers, not semantics.
func ParseWaylines(data []byte) (*Parsed, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrapf(types.ErrSchema, "waylines: %v", err)
	}
	var kd *etree.Element
	if root := doc.SelectElement("kml"); root != nil {
		kd = root.SelectElement("Document")
	}
	if kd == nil {
		return nil, errors.Wrap(types.ErrSchema, "waylines: no kml/Document")
	}
	mc := kd.SelectElement("wpml:missionConfig")
	folder := kd.SelectElement("Folder")
	if mc == nil || folder == nil {
		return nil, errors.Wrap(types.ErrSchema, "waylines: missing missionConfig or Folder")
	}

	var err error
	p := &Parsed{
		FinishAction: child_text(mc, "wpml:finishAction"),
		RCLostAction: child_text(mc, "wpml:executeRCLostAction"),
		HeightMode:   child_text(folder, "wpml:executeHeightMode"),
	}
	if p.DroneEnum, err = child_int(mc, "wpml:droneInfo/wpml:droneEnumValue"); err != nil {
		return nil, err
	}
	if p.Distance, err = child_float(folder, "wpml:distance"); err != nil {
		return nil, err
	}
	if p.Duration, err = child_float(folder, "wpml:duration"); err != nil {
		return nil, err
	}
	if p.Speed, err = child_float(folder, "wpml:autoFlightSpeed"); err != nil {
		return nil, err
	}

	for _, pm := range folder.SelectElements("Placemark") {
		var pp ParsedPlacemark
		coords := strings.Split(child_text(pm, "Point/coordinates"), ",")
		if len(coords) < 2 {
			return nil, errors.Wrap(types.ErrSchema, "waylines: placemark coordinates")
		}
		if pp.Lon, err = strconv.ParseFloat(strings.TrimSpace(coords[0]), 64); err != nil {
			return nil, errors.Wrapf(types.ErrSchema, "waylines: longitude %q", coords[0])
		}
		if pp.Lat, err = strconv.ParseFloat(strings.TrimSpace(coords[1]), 64); err != nil {
			return nil, errors.Wrapf(types.ErrSchema, "waylines: latitude %q", coords[1])
		}
		if pp.Index, err = child_int(pm, "wpml:index"); err != nil {
			return nil, err
		}
		if pp.ExecuteHeight, err = child_float(pm, "wpml:executeHeight"); err != nil {
			return nil, err
		}
		if pp.HeadingAngle, err = child_float(pm, "wpml:waypointHeadingParam/wpml:waypointHeadingAngle"); err != nil {
			return nil, err
		}
		pp.HeadingMode = child_text(pm, "wpml:waypointHeadingParam/wpml:waypointHeadingMode")
		pp.AngleEnable = child_text(pm, "wpml:waypointHeadingParam/wpml:waypointHeadingAngleEnable") == "1"
		pp.TurnMode = child_text(pm, "wpml:waypointTurnParam/wpml:waypointTurnMode")

		for _, ag := range pm.SelectElements("wpml:actionGroup") {
			id, err := child_int(ag, "wpml:actionGroupId")
			if err != nil {
				return nil, err
			}
			p.GroupIDs = append(p.GroupIDs, id)
			for _, a := range ag.SelectElements("wpml:action") {
				aid, err := child_int(a, "wpml:actionId")
				if err != nil {
					return nil, err
				}
				p.ActionIDs = append(p.ActionIDs, aid)
			}
		}
		p.Placemarks = append(p.Placemarks, pp)
	}
	return p, nil
}
