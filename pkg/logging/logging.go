// Package logging sets up the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level   string
	LogFile string
	Console io.Writer
	NoColor bool
}

func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.InfoLevel, errors.Errorf("invalid log level %q", s)
}

func colour_ok(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return false
}

// New builds a logger writing human readable lines to the console and,
// when LogFile is set, JSON records to a rotated file.
func New(o Options) (zerolog.Logger, error) {
	lvl, err := ParseLevel(o.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := o.Console
	if out == nil {
		out = os.Stderr
	}
	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		NoColor:    o.NoColor || !colour_ok(out),
	}
	var w io.Writer = cw
	if o.LogFile != "" {
		w = zerolog.MultiLevelWriter(cw, &lumberjack.Logger{
			Filename:   o.LogFile,
			MaxSize:    16, // MB
			MaxBackups: 2,
		})
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Setup installs New's logger as the global one.
func Setup(o Options) error {
	l, err := New(o)
	if err != nil {
		return err
	}
	log.Logger = l
	return nil
}
