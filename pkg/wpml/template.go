package wpml

import (
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/stronnag/ges2wpmz/pkg/mission"
)

const TEMPLATE_AUTHOR = "ges2wpmz"

type TemplateKind int

const (
	Synthesize TemplateKind = iota
	ValidTemplate
)

func (k TemplateKind) String() string {
	if k == ValidTemplate {
		return "reference"
	}
	return "default"
}

// Template is either a caller supplied template.kml to be reused as is,
// or a request to generate the default one.
type Template struct {
	Kind TemplateKind
	Text string
}

// ChooseTemplate decides whether ref can be reused: it must parse and
// carry both wpml:missionConfig and wpml:droneInfo.
func ChooseTemplate(ref string) Template {
	if ref == "" {
		return Template{Kind: Synthesize}
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(ref); err != nil {
		return Template{Kind: Synthesize}
	}
	if doc.FindElement("//wpml:missionConfig") == nil || doc.FindElement("//wpml:droneInfo") == nil {
		return Template{Kind: Synthesize}
	}
	return Template{Kind: ValidTemplate, Text: ref}
}

// Render returns the template.kml bytes. A reference template comes back
// verbatim; otherwise a minimal default stamped with now is generated
// around cfg.
func (t Template) Render(cfg mission.Config, now time.Time) ([]byte, error) {
	if t.Kind == ValidTemplate {
		return []byte(t.Text), nil
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	doc, kd := new_document()
	wtext(kd, "author", TEMPLATE_AUTHOR)
	wtext(kd, "createTime", ts)
	wtext(kd, "updateTime", ts)
	add_mission_config(kd, cfg)
	kd.CreateElement("Folder").CreateElement("Placemark").CreateElement("Point").CreateElement("coordinates").SetText("0,0")
	doc.Indent(2)
	return doc.WriteToBytes()
}
