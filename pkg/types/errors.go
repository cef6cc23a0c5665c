package types

import (
	"errors"
)

// Failure kinds of a conversion run. Callers test with errors.Is; the
// returned errors carry file and field context on top of these.
var (
	ErrInputNotFound  = errors.New("input not found")
	ErrSchema         = errors.New("schema error")
	ErrEmptySource    = errors.New("no keyframes in source")
	ErrNoInput        = errors.New("no usable keyframes")
	ErrInvalidSetting = errors.New("invalid setting")
	ErrMissingPOI     = errors.New("no POI for source")
	ErrPackaging      = errors.New("packaging failed")
	ErrEmptyMission   = errors.New("empty mission")
)

// Fatal reports whether err must abort the whole run. Only the per-file
// and per-point kinds are recoverable.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !(errors.Is(err, ErrEmptySource) || errors.Is(err, ErrMissingPOI))
}
