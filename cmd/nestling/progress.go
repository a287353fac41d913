package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"nestling/internal/pipeline"
)

// progressPrinter renders batch progress to the terminal. On a TTY it keeps
// one status line updated in place; otherwise it prints plain lines so
// redirected output stays readable.
type progressPrinter struct {
	mu         sync.Mutex
	out        io.Writer
	tty        bool
	lineActive bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &progressPrinter{out: out, tty: tty}
}

func (p *progressPrinter) BatchUpdate(snap pipeline.ProgressSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := formatSnapshot(snap)
	if p.tty {
		fmt.Fprintf(p.out, "\r%-78s", line)
		p.lineActive = true
		if snap.Stage.Terminal() {
			fmt.Fprintln(p.out)
			p.lineActive = false
		}
		return
	}
	fmt.Fprintln(p.out, line)
}

func (p *progressPrinter) TaskUpdate(update pipeline.TaskUpdate) {
	if update.Error == "" && update.Warning == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	if update.Error != "" {
		fmt.Fprintf(p.out, "%s: %s\n", update.ID, update.Error)
	}
	if update.Warning != "" {
		fmt.Fprintf(p.out, "%s: warning: %s\n", update.ID, update.Warning)
	}
}

// breakLine terminates an in-place status line before printing full lines.
func (p *progressPrinter) breakLine() {
	if p.lineActive {
		fmt.Fprintln(p.out)
		p.lineActive = false
	}
}

func formatSnapshot(snap pipeline.ProgressSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%3d%%] %s", snap.Percent, snap.StageLabel)
	if snap.CurrentLabel != "" {
		fmt.Fprintf(&b, " %s", snap.CurrentLabel)
	}
	fmt.Fprintf(&b, " (%d/%d)", snap.Completed, snap.Total)
	return b.String()
}
