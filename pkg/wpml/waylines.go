// Package wpml renders mission documents as DJI waylines markup and
// provides the template.kml that accompanies them.
package wpml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/stronnag/ges2wpmz/pkg/mission"
)

const (
	KML_NAMESPACE  = "http://www.opengis.net/kml/2.2"
	WPML_NAMESPACE = "http://www.dji.com/wpmz/1.0.2"
)

// pyfloat formats like a shortest round-trip float that always shows a
// fractional part (12 -> "12.0", 0.25 -> "0.25").
func pyfloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func f1(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func bool01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func new_document() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("kml")
	root.CreateAttr("xmlns", KML_NAMESPACE)
	root.CreateAttr("xmlns:wpml", WPML_NAMESPACE)
	return doc, root.CreateElement("Document")
}

// wtext adds a wpml: prefixed child holding text.
func wtext(parent *etree.Element, tag, text string) *etree.Element {
	e := parent.CreateElement("wpml:" + tag)
	e.SetText(text)
	return e
}

func add_mission_config(parent *etree.Element, cfg mission.Config) {
	mc := parent.CreateElement("wpml:missionConfig")
	wtext(mc, "flyToWaylineMode", cfg.FlyToWaylineMode)
	wtext(mc, "finishAction", cfg.FinishAction)
	wtext(mc, "exitOnRCLost", cfg.ExitOnRCLost)
	wtext(mc, "executeRCLostAction", cfg.RCLostAction)
	wtext(mc, "globalTransitionalSpeed", f1(cfg.TransitionalSpeed))
	di := mc.CreateElement("wpml:droneInfo")
	wtext(di, "droneEnumValue", strconv.Itoa(cfg.DroneEnum))
	wtext(di, "droneSubEnumValue", strconv.Itoa(cfg.DroneSubEnum))
}

func add_placemark(folder *etree.Element, p *mission.Placemark) {
	pm := folder.CreateElement("Placemark")
	pm.CreateElement("Point").CreateElement("coordinates").SetText(fmt.Sprintf("%.8f,%.8f", p.Lon, p.Lat))
	wtext(pm, "index", strconv.Itoa(p.Index))
	wtext(pm, "executeHeight", f1(p.ExecuteHeight))
	wtext(pm, "waypointSpeed", f1(p.WaypointSpeed))
	tp := pm.CreateElement("wpml:waypointTurnParam")
	wtext(tp, "waypointTurnMode", p.TurnMode)
	wtext(tp, "waypointTurnDampingDist", pyfloat(p.TurnDamping))
	wtext(pm, "useStraightLine", bool01(p.UseStraightLine))

	hp := pm.CreateElement("wpml:waypointHeadingParam")
	wtext(hp, "waypointHeadingMode", p.Heading.Mode)
	wtext(hp, "waypointHeadingAngle", f1(p.Heading.Angle))
	wtext(hp, "waypointPoiPoint", p.Heading.PoiPoint)
	wtext(hp, "waypointHeadingAngleEnable", bool01(p.Heading.AngleEnable))
	wtext(hp, "waypointHeadingPathMode", p.Heading.PathMode)

	for _, g := range p.ActionGroups {
		ag := pm.CreateElement("wpml:actionGroup")
		wtext(ag, "actionGroupId", strconv.Itoa(g.ID))
		wtext(ag, "actionGroupStartIndex", strconv.Itoa(g.StartIndex))
		wtext(ag, "actionGroupEndIndex", strconv.Itoa(g.EndIndex))
		wtext(ag, "actionGroupMode", g.Mode)
		wtext(ag.CreateElement("wpml:actionTrigger"), "actionTriggerType", g.TriggerType)
		for _, a := range g.Actions {
			ae := ag.CreateElement("wpml:action")
			wtext(ae, "actionId", strconv.Itoa(a.ID))
			wtext(ae, "actionActuatorFunc", a.ActuatorFunc)
			pe := ae.CreateElement("wpml:actionActuatorFuncParam")
			for _, prm := range a.Params {
				wtext(pe, prm.Key, prm.Value)
			}
		}
	}
}

// Waylines renders the mission as the waylines.wpml document. Element
// order is fixed; firmware rejects reordered documents.
func Waylines(d *mission.Document) ([]byte, error) {
	if d == nil || len(d.Placemarks) == 0 {
		return nil, errors.New("waylines: empty mission document")
	}
	doc, kd := new_document()
	add_mission_config(kd, d.Config)

	folder := kd.CreateElement("Folder")
	wtext(folder, "templateId", "0")
	wtext(folder, "executeHeightMode", d.HeightMode)
	wtext(folder, "waylineId", "0")
	wtext(folder, "distance", f1(d.Distance))
	wtext(folder, "duration", f1(d.Duration))
	wtext(folder, "autoFlightSpeed", f1(d.AutoFlightSpeed))
	for j := range d.Placemarks {
		add_placemark(folder, &d.Placemarks[j])
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}
