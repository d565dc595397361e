package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// progressRenderer draws a single-line byte-progress display on the
// terminal, rewritten in place with carriage returns. Inactive when the
// output is not a TTY or --quiet is set — the job runs identically
// either way.
type progressRenderer struct {
	mu      sync.Mutex
	out     *os.File
	enabled bool
	width   int
	lastLen int
}

// fallbackWidth is used when the terminal size cannot be determined.
const fallbackWidth = 80

func newProgressRenderer(out *os.File, quiet bool) *progressRenderer {
	r := &progressRenderer{out: out}

	if quiet || !isatty.IsTerminal(out.Fd()) {
		return r
	}

	r.enabled = true

	w, _, err := term.GetSize(int(out.Fd()))
	if err != nil || w <= 0 {
		w = fallbackWidth
	}

	r.width = w

	return r
}

// Observe implements pull.ProgressFunc.
func (r *progressRenderer) Observe(_, done, total int64) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("Pulling  %s / %s", formatBytes(done), formatBytes(total))
	if total > 0 {
		line += fmt.Sprintf("  (%d%%)", done*100/total)
	}

	if len(line) >= r.width {
		line = line[:r.width-1]
	}

	// Pad over the previous line so shrinking output leaves no residue.
	if pad := r.lastLen - len(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}

	r.lastLen = len(strings.TrimRight(line, " "))

	fmt.Fprint(r.out, "\r"+line)
}

// Finish terminates the progress line so subsequent output starts clean.
func (r *progressRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled || r.lastLen == 0 {
		return
	}

	fmt.Fprintln(r.out)
	r.lastLen = 0
}

// formatBytes renders a byte count for humans.
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}

	return humanize.Bytes(uint64(n))
}
