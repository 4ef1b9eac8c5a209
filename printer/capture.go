package printer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/viper"
)

// Ring is a printer that keeps the last N lines in memory instead of writing
// to the terminal. While the TUI owns the screen, stray writes to stderr
// corrupt it, so all printer traffic is redirected here and surfaced in the
// footer instead.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func NewRing(max int) *Ring {
	return &Ring{max: max}
}

// SwitchToCapture redirects the package-level printers into a ring and
// disables ANSI escapes. Returns the ring so the UI can read it back.
func SwitchToCapture(max int) *Ring {
	Color = aurora.NewAurora(false)
	r := NewRing(max)
	Stderr = r
	Stdout = r
	return r
}

// Lines returns the captured lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Last returns the most recent line, or "".
func (r *Ring) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

func (r *Ring) push(status, msg string) {
	msg = strings.Trim(msg, "\n")
	if msg == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf("[%s] %s", status, msg))
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
}

func (r *Ring) Infoln(args ...interface{})    { r.push("info", fmt.Sprintln(args...)) }
func (r *Ring) Warningln(args ...interface{}) { r.push("warning", fmt.Sprintln(args...)) }
func (r *Ring) Errorln(args ...interface{})   { r.push("error", fmt.Sprintln(args...)) }

func (r *Ring) Debugln(args ...interface{}) {
	if viper.GetBool("debug") {
		r.push("debug", fmt.Sprintln(args...))
	}
}

func (r *Ring) Infof(f string, args ...interface{})    { r.push("info", fmt.Sprintf(f, args...)) }
func (r *Ring) Warningf(f string, args ...interface{}) { r.push("warning", fmt.Sprintf(f, args...)) }
func (r *Ring) Errorf(f string, args ...interface{})   { r.push("error", fmt.Sprintf(f, args...)) }

func (r *Ring) Debugf(f string, args ...interface{}) {
	if viper.GetBool("debug") {
		r.push("debug", fmt.Sprintf(f, args...))
	}
}

func (r *Ring) RawOutput(args ...interface{}) { r.push("info", fmt.Sprintln(args...)) }

func (r *Ring) V(level int) P {
	if l := viper.GetInt("verbose-level"); l > 0 && level >= l {
		return r
	}
	return noopPrinter{}
}
