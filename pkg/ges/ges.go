// Package ges reads camera path exports (a JSON object holding a
// cameraFrames list) into tagged keyframes.
package ges

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stronnag/ges2wpmz/pkg/types"
)

const FRAMES_KEY = "cameraFrames"

type gesCoordinate struct {
	Latitude  *flexFloat `json:"latitude"`
	Longitude *flexFloat `json:"longitude"`
	Altitude  *flexFloat `json:"altitude"`
}

type gesFrame struct {
	Coordinate *gesCoordinate  `json:"coordinate"`
	Rotation   json.RawMessage `json:"rotation"`
}

// flexFloat takes a JSON number or a string holding one.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// ReadFile returns the keyframes of a single export. Frames whose
// coordinate cannot be read are returned with Err set.
func ReadFile(fn string) ([]types.Keyframe, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(types.ErrInputNotFound, "%s: %v", fn, err)
	}
	bn := filepath.Base(fn)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Wrapf(types.ErrSchema, "invalid JSON format in %s: %v", bn, err)
	}
	raw, ok := top[FRAMES_KEY]
	if !ok {
		return nil, errors.Wrapf(types.ErrSchema, "could not find '%s' list in %s", FRAMES_KEY, bn)
	}
	var frames []json.RawMessage
	if err := json.Unmarshal(raw, &frames); err != nil || frames == nil {
		return nil, errors.Wrapf(types.ErrSchema, "'%s' in %s is not a list", FRAMES_KEY, bn)
	}
	if len(frames) == 0 {
		return nil, errors.Wrapf(types.ErrEmptySource, "%s", bn)
	}

	var first map[string]json.RawMessage
	if err := json.Unmarshal(frames[0], &first); err != nil {
		return nil, errors.Wrapf(types.ErrSchema, "first keyframe in %s is not an object", bn)
	}
	if _, ok := first["coordinate"]; !ok {
		return nil, errors.Wrapf(types.ErrSchema, "first keyframe in %s lacks 'coordinate' or 'rotation'", bn)
	}
	if _, ok := first["rotation"]; !ok {
		return nil, errors.Wrapf(types.ErrSchema, "first keyframe in %s lacks 'coordinate' or 'rotation'", bn)
	}

	kfs := make([]types.Keyframe, 0, len(frames))
	for j, fr := range frames {
		kfs = append(kfs, decode_frame(fr, j))
	}
	return kfs, nil
}

func decode_frame(raw json.RawMessage, j int) types.Keyframe {
	var kf types.Keyframe
	var g gesFrame
	if err := json.Unmarshal(raw, &g); err != nil {
		kf.Err = errors.Wrapf(err, "keyframe %d", j)
		return kf
	}
	kf.Rotation = g.Rotation
	c := g.Coordinate
	switch {
	case c == nil:
		kf.Err = errors.Errorf("keyframe %d: missing coordinate", j)
	case c.Latitude == nil:
		kf.Err = errors.Errorf("keyframe %d: missing latitude", j)
	case c.Longitude == nil:
		kf.Err = errors.Errorf("keyframe %d: missing longitude", j)
	default:
		kf.Lat = float64(*c.Latitude)
		kf.Lon = float64(*c.Longitude)
		if c.Altitude == nil {
			kf.NoAlt = true
			kf.Err = errors.Errorf("keyframe %d: missing altitude", j)
		} else {
			kf.Alt = float64(*c.Altitude)
		}
	}
	return kf
}

// Load reads every file in order and concatenates their keyframes, each
// tagged with its source. An empty file is skipped with a warning; any
// other file problem aborts the load.
func Load(files []string, progress types.Progress) ([]types.TaggedKeyframe, error) {
	if len(files) == 0 {
		return nil, errors.Wrap(types.ErrNoInput, "no JSON files selected")
	}
	var all []types.TaggedKeyframe
	for i, fn := range files {
		bn := filepath.Base(fn)
		progress.Say("Loading file %d/%d: %s...", i+1, len(files), bn)
		kfs, err := ReadFile(fn)
		if err != nil {
			if errors.Is(err, types.ErrEmptySource) {
				log.Warn().Str("file", bn).Msg("No keyframes found, skipping file")
				progress.Say("Warning: No keyframes found in %s. Skipping file.", bn)
				continue
			}
			return nil, err
		}
		for _, kf := range kfs {
			all = append(all, types.TaggedKeyframe{Keyframe: kf, Source: fn})
		}
		progress.Say("Loaded %d keyframes from %s.", len(kfs), bn)
	}
	if len(all) == 0 {
		return nil, errors.Wrap(types.ErrNoInput, "no valid keyframes found in any selected JSON file")
	}
	progress.Say("Total keyframes loaded: %d", len(all))
	return all, nil
}
