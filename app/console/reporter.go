// Package console is the terminal surface of gitagent: status output framed
// by a breaker rule and the interactive confirmation prompt.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Breaker frames every status message.
const Breaker = "---"

// Reporter prints pipeline progress. It implements framework.Reporter.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
	// Plain disables styling, e.g. when output is not a terminal.
	Plain bool
}

// NewReporter writes to out, or stdout when out is nil.
func NewReporter(out io.Writer, plain bool) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out, Plain: plain}
}

func (r *Reporter) Status(msg string) {
	r.framed(r.style(statusStyle, msg))
}

func (r *Reporter) Warn(msg string, err error) {
	line := r.style(warnStyle, msg)
	if err != nil {
		line += "\n" + r.style(causeStyle, err.Error())
	}
	r.framed(line)
}

// Show prints a titled block, such as a proposed change.
func (r *Reporter) Show(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body = strings.TrimRight(body, "\n")
	if r.Plain {
		fmt.Fprintf(r.out, "%s\n%s:\n%s\n%s\n", Breaker, title, body, Breaker)
		return
	}
	fmt.Fprintln(r.out, lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(title),
		boxStyle.Render(body),
	))
}

// Printf writes unframed text, used for listings and help.
func (r *Reporter) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *Reporter) framed(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule := r.style(breakerStyle, Breaker)
	fmt.Fprintf(r.out, "%s\n%s\n%s\n", rule, msg, rule)
}

func (r *Reporter) style(s lipgloss.Style, text string) string {
	if r.Plain {
		return text
	}
	return s.Render(text)
}
