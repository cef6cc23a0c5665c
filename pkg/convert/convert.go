// Package convert runs the whole camera path to mission archive
// pipeline: load, thin, build, serialise, template and package.
package convert

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stronnag/ges2wpmz/pkg/ges"
	"github.com/stronnag/ges2wpmz/pkg/kmz"
	"github.com/stronnag/ges2wpmz/pkg/mission"
	"github.com/stronnag/ges2wpmz/pkg/thin"
	"github.com/stronnag/ges2wpmz/pkg/types"
	"github.com/stronnag/ges2wpmz/pkg/wpml"
)

type Request struct {
	Files    []string
	POIs     types.POIMap
	Settings types.Settings
	// Template is the text of a reference template.kml, or empty.
	Template string
	Output   string
	Progress types.Progress
	// Now stamps a generated template; time.Now when nil.
	Now func() time.Time
}

type Result struct {
	Output   string
	Document *mission.Document
	Waylines []byte
	Template wpml.TemplateKind
	Size     int64
	Summary  types.MapRec
}

// Run converts req.Files into a single archive at req.Output. A fatal
// error is reported once through req.Progress and returned; no archive
// is produced in that case.
func Run(req Request) (Result, error) {
	res, err := run(req)
	if err != nil {
		req.Progress.Say("Error: %v", err)
		return Result{}, err
	}
	log.Info().Str("output", res.Output).Int("waypoints", len(res.Document.Placemarks)).Msg("Conversion complete")
	return res, nil
}

func run(req Request) (Result, error) {
	var res Result
	if err := req.Settings.Validate(); err != nil {
		return res, err
	}
	kfs, err := ges.Load(req.Files, req.Progress)
	if err != nil {
		return res, err
	}
	kfs = thin.Keyframes(kfs, req.Settings.DesiredWaypoints, req.Progress)

	doc, err := mission.Build(kfs, req.Settings, req.POIs, req.Progress)
	if err != nil {
		return res, err
	}
	waylines, err := wpml.Waylines(doc)
	if err != nil {
		return res, err
	}
	req.Progress.Say("WPML structure generated.")

	tmpl := wpml.ChooseTemplate(req.Template)
	switch {
	case tmpl.Kind == wpml.ValidTemplate:
		req.Progress.Say("Using provided reference template.kml.")
	case req.Template != "":
		req.Progress.Say("Warning: Provided reference KML incomplete. Generating default.")
		fallthrough
	default:
		req.Progress.Say("Generating default template.kml.")
	}
	now := time.Now
	if req.Now != nil {
		now = req.Now
	}
	template, err := tmpl.Render(doc.Config, now())
	if err != nil {
		return res, err
	}

	bn := filepath.Base(req.Output)
	req.Progress.Say("Creating KMZ: %s", bn)
	if err := kmz.Write(req.Output, waylines, template); err != nil {
		return res, err
	}
	res = Result{
		Output:   req.Output,
		Document: doc,
		Waylines: waylines,
		Template: tmpl.Kind,
	}
	if st, err := os.Stat(req.Output); err == nil {
		res.Size = st.Size()
	}
	res.Summary = Summary(doc, res.Size)
	req.Progress.Say("Successfully created KMZ: %s", bn)
	return res, nil
}
