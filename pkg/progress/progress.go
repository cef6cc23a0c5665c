// Package progress delivers conversion status lines to the user's
// terminal, the log and, optionally, an MQTT topic.
package progress

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/stronnag/ges2wpmz/pkg/types"
)

// Publisher is the outbound side of a remote progress feed.
type Publisher interface {
	Publish(string) error
}

type Reporter struct {
	w     io.Writer
	pub   Publisher
	count int
}

// New returns a reporter writing to w (may be nil) and publishing to pub
// (may be nil).
func New(w io.Writer, pub Publisher) *Reporter {
	return &Reporter{w: w, pub: pub}
}

// Say handles one message. It goes to the log at debug level only, so a
// console logger does not repeat what w already shows.
func (r *Reporter) Say(msg string) {
	r.count++
	log.Debug().Str("progress", msg).Send()
	if r.w != nil {
		fmt.Fprintln(r.w, msg)
	}
	if r.pub != nil {
		if err := r.pub.Publish(msg); err != nil {
			log.Warn().Err(err).Msg("publish failed")
			r.pub = nil
		}
	}
}

func (r *Reporter) Count() int {
	return r.count
}

// Func adapts the reporter to the pipeline's callback type.
func (r *Reporter) Func() types.Progress {
	return r.Say
}
