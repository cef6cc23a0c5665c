package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Keyframe is a single recorded camera pose. Err is set when the
// coordinate could not be read; such frames are carried through loading
// and thinning and dropped by the mission builder. NoAlt marks a frame
// whose latitude and longitude were read but whose altitude was not.
type Keyframe struct {
	Lat      float64
	Lon      float64
	Alt      float64
	Rotation json.RawMessage
	NoAlt    bool
	Err      error
}

func (k Keyframe) Valid() bool {
	return k.Err == nil
}

// Located reports whether Lat and Lon hold a position; such a frame
// counts towards the path length even when it cannot be a waypoint.
func (k Keyframe) Located() bool {
	return k.Err == nil || k.NoAlt
}

// TaggedKeyframe remembers the source file a keyframe came from, which is
// how a waypoint finds its file's point of interest.
type TaggedKeyframe struct {
	Keyframe
	Source string
}

type Coordinate struct {
	Lat float64 `yaml:"lat" json:"lat" mapstructure:"lat"`
	Lon float64 `yaml:"lon" json:"lon" mapstructure:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// POIMap associates a source file with the ground point its camera tracks.
// It is sparse; a missing entry is a normal state.
type POIMap map[string]Coordinate

func (p POIMap) Lookup(source string) (Coordinate, bool) {
	if p == nil {
		return Coordinate{}, false
	}
	c, ok := p[source]
	return c, ok
}

// Progress receives human readable status lines. It is called
// synchronously and must not block.
type Progress func(string)

func (p Progress) Say(format string, args ...interface{}) {
	if p != nil {
		p(fmt.Sprintf(format, args...))
	}
}

type MapRec map[string]string

// Keys returns the summary keys in a stable display order.
func (m MapRec) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m MapRec) String() string {
	var sb strings.Builder
	for _, k := range m.Keys() {
		sb.WriteString(fmt.Sprintf("%-8.8s : %s\n", k, m[k]))
	}
	return sb.String()
}
