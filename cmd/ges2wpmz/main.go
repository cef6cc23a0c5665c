package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yookoala/realpath"

	"github.com/stronnag/ges2wpmz/pkg/convert"
	"github.com/stronnag/ges2wpmz/pkg/kmlgen"
	"github.com/stronnag/ges2wpmz/pkg/kmz"
	"github.com/stronnag/ges2wpmz/pkg/logging"
	"github.com/stronnag/ges2wpmz/pkg/options"
	"github.com/stronnag/ges2wpmz/pkg/progress"
	"github.com/stronnag/ges2wpmz/pkg/types"
	"github.com/stronnag/ges2wpmz/pkg/wpml"
	"github.com/stronnag/ges2wpmz/pkg/wpsql"
)

var GitCommit = "local"
var GitTag = "0.0.0"

func GetVersion() string {
	return fmt.Sprintf("%s %s commit:%s", filepath.Base(os.Args[0]), GitTag, GitCommit)
}

func main() {
	files, err := options.ParseCLI(GetVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ges2wpmz: %v\n", err)
		os.Exit(2)
	}
	cfg := options.Config
	if cfg.Version {
		fmt.Println(GetVersion())
		os.Exit(0)
	}
	if err := logging.Setup(logging.Options{Level: cfg.LogLevel, LogFile: cfg.LogFile}); err != nil {
		fmt.Fprintf(os.Stderr, "ges2wpmz: %v\n", err)
		os.Exit(2)
	}
	if len(files) == 0 {
		options.Usage()
		os.Exit(1)
	}

	switch {
	case cfg.Inspect:
		for _, fn := range files {
			inspect(fn)
		}
		return
	case cfg.Summary:
		for _, fs := range convert.Survey(files, cfg.Settings) {
			fmt.Println(fs)
		}
		return
	}

	os.Exit(convert_files(files, cfg))
}

// convert_files runs the conversion and the optional side outputs,
// returning the exit status. A failed run has already been reported
// through the progress stream.
func convert_files(files []string, cfg options.Configuration) int {
	var pub progress.Publisher
	if cfg.Broker != "" {
		mc, err := progress.NewMQTTClient(cfg.Broker)
		if err != nil {
			log.Warn().Err(err).Msg("progress broker unavailable")
		} else {
			defer mc.Close()
			fmt.Printf("%-8.8s : %s\n", "Topic", mc.Topic())
			pub = mc
		}
	}
	rep := progress.New(os.Stderr, pub)

	req := convert.Request{
		Files:    files,
		POIs:     cfg.POIs,
		Settings: cfg.Settings,
		Template: read_template(cfg.Template),
		Output:   cfg.Output,
		Progress: rep.Func(),
	}
	res, err := convert.Run(req)
	if err != nil {
		return 1
	}

	fmt.Print(res.Summary)
	show_output(res.Output)

	if cfg.Preview != "" {
		name := filepath.Base(res.Output)
		el := kmlgen.Preview(res.Document, cfg.POIs, cfg.Dms, name, res.Summary)
		if err := kmlgen.Write(cfg.Preview, el); err != nil {
			log.Error().Err(err).Str("file", cfg.Preview).Msg("preview")
		} else {
			show_output(cfg.Preview)
		}
	}
	if cfg.Sql != "" {
		if n, err := export_sql(cfg.Sql, res); err != nil {
			log.Error().Err(err).Str("file", cfg.Sql).Msg("sql export")
		} else {
			fmt.Printf("%-8.8s : %d placemarks\n", "SQL", n)
			show_output(cfg.Sql)
		}
	}
	return 0
}

// read_template returns the reference template text, or "" (generate
// a default) when it cannot be read.
func read_template(fn string) string {
	if fn == "" {
		return ""
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		log.Warn().Err(err).Str("file", fn).Msg("Could not read reference template; generating default")
		return ""
	}
	return string(data)
}

func export_sql(fn string, res convert.Result) (int, error) {
	db, err := wpsql.Open(fn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	mid, err := db.WriteMission(res.Document)
	if err != nil {
		return 0, err
	}
	pms, err := db.Placemarks(mid)
	return len(pms), err
}

func inspect(fn string) {
	ft, err := types.EvinceFileType(fn)
	if err != nil {
		log.Error().Err(err).Msg("inspect")
		return
	}
	fmt.Printf("%-8.8s : %s\n", "File", fn)
	if ft != types.IS_KMZ {
		fmt.Fprintf(os.Stderr, "*** %s: not a mission package\n", fn)
		return
	}
	wl, tpl, err := kmz.Read(fn)
	if err != nil {
		log.Error().Err(err).Str("file", fn).Msg("inspect")
		return
	}
	p, err := wpml.ParseWaylines(wl)
	if err != nil {
		log.Error().Err(err).Str("file", fn).Msg("inspect")
		return
	}
	m := types.MapRec{
		"Points":   fmt.Sprintf("%d", len(p.Placemarks)),
		"Height":   p.HeightMode,
		"Distance": fmt.Sprintf("%.1f m", p.Distance),
		"Duration": fmt.Sprintf("%.1f s", p.Duration),
		"Speed":    fmt.Sprintf("%.1f m/s", p.Speed),
		"Finish":   p.FinishAction,
		"RCLost":   p.RCLostAction,
		"Groups":   fmt.Sprintf("%d", len(p.GroupIDs)),
		"Actions":  fmt.Sprintf("%d", len(p.ActionIDs)),
		"Template": wpml.ChooseTemplate(string(tpl)).Kind.String(),
	}
	var modes []string
	seen := map[string]bool{}
	for _, pm := range p.Placemarks {
		if !seen[pm.HeadingMode] {
			seen[pm.HeadingMode] = true
			modes = append(modes, pm.HeadingMode)
		}
	}
	m["Heading"] = strings.Join(modes, ",")
	fmt.Print(m)
	fmt.Println()
}

func show_output(outfn string) {
	if outfn != "" {
		rp, err := realpath.Realpath(outfn)
		if err != nil || rp == "" {
			fmt.Printf("%-8.8s : <%s> <%s>\n", "RealPath", rp, err)
			rp = outfn
		}
		fmt.Printf("%-8.8s : %s\n", "Output", rp)
	}
}
