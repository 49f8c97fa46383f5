package solver

import (
	"fmt"
	"io"
)

// Logger is a minimal leveled writer matching the teacher corpus's
// own style of reporting progress: plain fmt.Fprintf calls guarded by
// a verbosity flag, the same pattern cmd/m2sim/main.go uses for its
// run summaries, rather than pulling in a structured logging library
// the corpus never reaches for.
type Logger struct {
	out     io.Writer
	verbose bool
}

// NewLogger creates a logger writing to out; verbose gates Debugf.
func NewLogger(out io.Writer, verbose bool) *Logger {
	return &Logger{out: out, verbose: verbose}
}

// Infof always prints, matching the teacher's unconditional summary lines.
func (l *Logger) Infof(format string, args ...any) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Debugf prints only when verbose logging is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if l.verbose {
		fmt.Fprintf(l.out, format+"\n", args...)
	}
}
