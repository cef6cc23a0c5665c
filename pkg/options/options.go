package options

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stronnag/ges2wpmz/pkg/geo"
	"github.com/stronnag/ges2wpmz/pkg/kmlgen"
	"github.com/stronnag/ges2wpmz/pkg/types"
)

const (
	ENV_OPTS   = "GES2WPMZ_OPTS"
	ENV_PREFIX = "GES2WPMZ"
)

type Configuration struct {
	Settings types.Settings
	POIs     types.POIMap
	Output   string
	Outdir   string
	Template string
	Preview  string
	Sql      string
	Broker   string
	LogLevel string
	LogFile  string
	Dms      bool
	Summary  bool
	Inspect  bool
	Version  bool
}

var Config Configuration

// poilist collects repeated -poi file=lat,lon flags.
type poilist []string

func (p *poilist) String() string {
	return strings.Join(*p, " ")
}

func (p *poilist) Set(s string) error {
	*p = append(*p, s)
	return nil
}

type cliflags struct {
	pois poilist
}

// Flags whose values pass through viper, so a config file or GES2WPMZ_*
// variable may supply them.
var layered = []string{
	"speed", "transitional-speed", "waypoint-speed", "altitude-type",
	"finish", "rc-lost", "turn-damping", "waypoints", "pitch", "heading",
	"manual-heading", "poi-file", "template", "outdir", "preview", "sql",
	"broker", "dms", "log-level", "log-file",
}

func define(fs *flag.FlagSet, c *cliflags) {
	d := types.DefaultSettings()
	fs.String("o", "", "Output KMZ (default: first input's name with .kmz)")
	fs.String("outdir", "", "Output directory for generated files")
	fs.String("config", "", "Settings file (yaml, json or toml)")
	fs.Float64("speed", d.Speed, "Mission speed (m/s)")
	fs.Float64("transitional-speed", d.TransitionalSpeed, "Transitional speed (m/s)")
	fs.Float64("waypoint-speed", d.WaypointSpeed, "Per waypoint speed (m/s)")
	fs.String("altitude-type", d.AltitudeType, "Altitude reference [WGS84,relativeToStartPoint]")
	fs.String("finish", d.FinishAction, "Finish action ["+strings.Join(types.FinishActions, ",")+"]")
	fs.String("rc-lost", d.RCLostAction, "RC lost action ["+strings.Join(types.RCLostActions, ",")+"]")
	fs.Float64("turn-damping", d.TurnDamping, "Turn damping distance (m)")
	fs.Int("waypoints", 0, "Thin to approximately this many waypoints (0 keeps all)")
	fs.String("pitch", "", "Fixed gimbal pitch, -90 to 60 (default 0)")
	fs.String("heading", "course", "Heading mode [course,poi,manual]")
	fs.String("manual-heading", "", "Fixed heading for -heading manual, -180 to 180")
	fs.Var(&c.pois, "poi", "Point of interest, file=lat,lon (repeatable)")
	fs.String("poi-file", "", "YAML file of points of interest")
	fs.String("template", "", "Reference template.kml")
	fs.String("preview", "", "Also write a preview KML/KMZ of the path")
	fs.String("sql", "", "Also export the mission to a SQLite database")
	fs.String("broker", "", "Mqtt URI for progress (mqtt://[user[:pass]@]broker[:port]/topic[?cafile=file])")
	fs.Bool("dms", false, "Show positions as DD:MM:SS.s (vice decimal degrees)")
	fs.Bool("summary", false, "Print per file statistics and exit")
	fs.Bool("inspect", false, "Describe existing KMZ files and exit")
	fs.String("log-level", "info", "Log level [debug,info,warn,error]")
	fs.String("log-file", "", "Also write JSON log records to this file")
	fs.Bool("version", false, "Show version and exit")
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func env_parts(defs string) []string {
	var parts []string
	for _, p := range strings.Split(defs, " ") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// merge_env parses the $GES2WPMZ_OPTS flags and applies each one not
// given on the command line.
func merge_env(fs *flag.FlagSet, c *cliflags, defs string) error {
	parts := env_parts(defs)
	if len(parts) == 0 {
		return nil
	}
	var ec cliflags
	envflags := flag.NewFlagSet("$"+ENV_OPTS, flag.ContinueOnError)
	define(envflags, &ec)
	if err := envflags.Parse(parts); err != nil {
		return errors.Wrap(err, ENV_OPTS)
	}
	if envflags.NArg() > 0 {
		return errors.Errorf("%s: unexpected argument %q", ENV_OPTS, envflags.Arg(0))
	}
	var err error
	envflags.Visit(func(f *flag.Flag) {
		if f.Name == "poi" || isFlagSet(fs, f.Name) || err != nil {
			return
		}
		err = fs.Set(f.Name, f.Value.String())
	})
	c.pois = append(ec.pois, c.pois...)
	return err
}

func flag_value(fs *flag.FlagSet, name string) string {
	return fs.Lookup(name).Value.String()
}

// Parse builds Config from args (without the program name) and defs,
// the value of $GES2WPMZ_OPTS. Precedence is command line, then defs,
// then GES2WPMZ_* variables, then the -config file, then defaults.
func Parse(fs *flag.FlagSet, args []string, defs string) ([]string, error) {
	var c cliflags
	define(fs, &c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := merge_env(fs, &c, defs); err != nil {
		return nil, err
	}

	viper.SetEnvPrefix(ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range layered {
		switch name {
		case "pitch", "manual-heading":
			// no default, absence is meaningful
		default:
			viper.SetDefault(name, fs.Lookup(name).DefValue)
		}
	}
	if cfn := flag_value(fs, "config"); cfn != "" {
		viper.SetConfigFile(cfn)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config %s", cfn)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		viper.Set(f.Name, f.Value.String())
	})

	files := fs.Args()
	cfg, err := load(files, c.pois)
	if err != nil {
		return nil, err
	}
	cfg.Output = flag_value(fs, "o")
	cfg.Summary = flag_value(fs, "summary") == "true"
	cfg.Inspect = flag_value(fs, "inspect") == "true"
	cfg.Version = flag_value(fs, "version") == "true"
	if cfg.Output == "" && len(files) > 0 {
		cfg.Output = kmlgen.GenKmlName(files[0], ".kmz", 0)
	}
	if cfg.Outdir != "" && cfg.Output != "" && !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(cfg.Outdir, cfg.Output)
	}
	Config = cfg
	return files, nil
}

func optional(key string) (*float64, error) {
	if !viper.IsSet(key) || viper.GetString(key) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(viper.GetString(key)), 64)
	if err != nil {
		return nil, errors.Wrapf(types.ErrInvalidSetting, "%s %q", key, viper.GetString(key))
	}
	return &v, nil
}

func load(files []string, pois poilist) (Configuration, error) {
	var cfg Configuration
	var err error
	s := types.DefaultSettings()
	s.Speed = viper.GetFloat64("speed")
	s.TransitionalSpeed = viper.GetFloat64("transitional-speed")
	s.WaypointSpeed = viper.GetFloat64("waypoint-speed")
	s.AltitudeType = viper.GetString("altitude-type")
	s.FinishAction = viper.GetString("finish")
	s.RCLostAction = viper.GetString("rc-lost")
	s.TurnDamping = viper.GetFloat64("turn-damping")
	s.DesiredWaypoints = viper.GetInt("waypoints")
	if s.HeadingMode, err = types.ParseHeadingMode(viper.GetString("heading")); err != nil {
		return cfg, err
	}
	if s.FixedPitch, err = optional("pitch"); err != nil {
		return cfg, err
	}
	if s.ManualHeading, err = optional("manual-heading"); err != nil {
		return cfg, err
	}
	cfg.Settings = s

	cfg.POIs = types.POIMap{}
	if fn := viper.GetString("poi-file"); fn != "" {
		if err := read_poi_file(fn, cfg.POIs); err != nil {
			return cfg, err
		}
	}
	if viper.IsSet("pois") {
		var m map[string]types.Coordinate
		if err := viper.UnmarshalKey("pois", &m); err != nil {
			return cfg, errors.Wrap(err, "pois")
		}
		for k, v := range m {
			cfg.POIs[k] = v
		}
	}
	for _, p := range pois {
		fn, c, err := ParsePOI(p)
		if err != nil {
			return cfg, err
		}
		cfg.POIs[fn] = c
	}
	cfg.POIs = resolve_pois(cfg.POIs, files)

	cfg.Template = viper.GetString("template")
	cfg.Outdir = viper.GetString("outdir")
	cfg.Preview = viper.GetString("preview")
	cfg.Sql = viper.GetString("sql")
	cfg.Broker = viper.GetString("broker")
	cfg.Dms = viper.GetBool("dms")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.LogFile = viper.GetString("log-file")
	return cfg, nil
}

// ParsePOI splits "file=lat,lon". The position takes any of the
// separators accepted by geo.ParsePosition.
func ParsePOI(s string) (string, types.Coordinate, error) {
	var c types.Coordinate
	n := strings.LastIndex(s, "=")
	if n < 1 {
		return "", c, errors.Wrapf(types.ErrInvalidSetting, "poi %q: want file=lat,lon", s)
	}
	lat, lon, err := geo.ParsePosition(s[n+1:])
	if err != nil {
		return "", c, errors.Wrapf(types.ErrInvalidSetting, "poi %q: %v", s, err)
	}
	c.Lat, c.Lon = lat, lon
	return s[:n], c, nil
}

type poifile struct {
	POIs map[string]types.Coordinate `yaml:"pois"`
}

func read_poi_file(fn string, m types.POIMap) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return errors.Wrapf(err, "poi file")
	}
	var pf poifile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return errors.Wrapf(types.ErrInvalidSetting, "poi file %s: %v", fn, err)
	}
	for k, v := range pf.POIs {
		m[k] = v
	}
	return nil
}

// resolve_pois rekeys entries by the input path they name, so "a.json"
// matches an input given as "data/a.json".
func resolve_pois(pois types.POIMap, files []string) types.POIMap {
	res := types.POIMap{}
	for k, v := range pois {
		key := k
		for _, fn := range files {
			if fn == k {
				key = fn
				break
			}
			if filepath.Base(fn) == filepath.Base(k) {
				key = fn
			}
		}
		if len(files) > 0 && !contains(files, key) {
			log.Warn().Str("poi", k).Msg("POI does not match any input file")
		}
		res[key] = v
	}
	return res
}

func contains(files []string, s string) bool {
	for _, f := range files {
		if f == s {
			return true
		}
	}
	return false
}

func Usage() {
	flag.Usage()
}

// ParseCLI parses os.Args and $GES2WPMZ_OPTS into Config, returning
// the input files.
func ParseCLI(gv func() string) ([]string, error) {
	app := filepath.Base(os.Args[0])
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s [options] file...\n", app)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintln(os.Stderr, gv())
	}
	return Parse(flag.CommandLine, os.Args[1:], os.Getenv(ENV_OPTS))
}
