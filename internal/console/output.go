// Package console is a line-oriented front-end for the lookup controller: the
// map, the notifications and the form are rendered as text, and user actions
// are typed as commands.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/k3a/html2text"
)

// Output serializes writes from the REPL loop, map callbacks and notification
// timers onto one writer.
type Output struct {
	mu sync.Mutex
	w  io.Writer
}

// NewOutput wraps w.
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// Printf writes one formatted line; a trailing newline is added if missing.
func (o *Output) Printf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = io.WriteString(o.w, s)
}

// plainText flattens popup markup onto one line for display.
func plainText(markup string) string {
	return strings.Join(strings.Fields(html2text.HTML2Text(markup)), " ")
}
