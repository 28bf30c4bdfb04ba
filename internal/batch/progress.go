package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const progressWidth = 30

var (
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
)

// Progress renders a one-line progress bar that advances once per completed
// dataset. It is not safe for concurrent use; the driver only ticks it from
// the goroutine collecting results.
type Progress struct {
	w      io.Writer
	total  int
	done   int
	failed int
}

func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total}
}

func (p *Progress) Tick(failed bool) {
	if p == nil {
		return
	}
	p.done++
	if failed {
		p.failed++
	}
	p.draw()
}

// Percentage is the share of completed datasets, 0 without datasets.
func (p *Progress) Percentage() int {
	if p.total <= 0 {
		return 0
	}
	return min(p.done*100/p.total, 100)
}

func (p *Progress) String() string {
	filled := 0
	if p.total > 0 {
		filled = min(p.done*progressWidth/p.total, progressWidth)
	}

	var b strings.Builder
	b.WriteString(doneStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(pendingStyle.Render(strings.Repeat("░", progressWidth-filled)))
	fmt.Fprintf(&b, " %3d%% %d/%d", p.Percentage(), p.done, p.total)
	if p.failed > 0 {
		b.WriteString(failedStyle.Render(fmt.Sprintf(" (%d failed)", p.failed)))
	}
	return b.String()
}

func (p *Progress) draw() {
	if p.w == nil {
		return
	}
	fmt.Fprintf(p.w, "\r%s", p)
}

// Finish ends the progress line.
func (p *Progress) Finish() {
	if p == nil || p.w == nil {
		return
	}
	fmt.Fprintf(p.w, "\r%s\n", p)
}
