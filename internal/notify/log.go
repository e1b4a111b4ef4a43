package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// LogSender writes the text part of each message to w. It backs dry runs.
type LogSender struct {
	w io.Writer
}

// NewLogSender writes to stdout when w is nil.
func NewLogSender(w io.Writer) *LogSender {
	if w == nil {
		w = os.Stdout
	}
	return &LogSender{w: w}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(s.w, "From: %s\nTo: %s\nSubject: %s\n\n%s\n",
		msg.From, strings.Join(msg.To, ", "), msg.Subject, msg.Text)
	return err
}
