// Package stdout provides a deployhook.EventStream implementation that prints
// events to stdout.
package stdout

import (
	"fmt"
	"io"
	"os"

	"github.com/remind101/deployhook"
)

// EventStream writes the human readable form of each event, one per line.
type EventStream struct {
	w io.Writer
}

func NewEventStream() *EventStream {
	return &EventStream{w: os.Stdout}
}

func (e *EventStream) PublishEvent(event deployhook.Event) error {
	_, err := fmt.Fprintln(e.w, event.String())
	return err
}
