package style

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar renders static progress bars for line-oriented output.
// It never starts a Bubble Tea program; each call to Render returns a
// snapshot string.
type ProgressBar struct {
	bar progress.Model
}

// NewProgressBar returns a bar of the given character width.
func NewProgressBar(width int) *ProgressBar {
	return &ProgressBar{
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(width),
			progress.WithoutPercentage(),
		),
	}
}

// Render draws the bar at done/total with a "done/total" counter.
func (p *ProgressBar) Render(done, total int) string {
	frac := 0.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	if frac > 1 {
		frac = 1
	}
	return fmt.Sprintf("%s %s", p.bar.ViewAs(frac), Dim.Render(fmt.Sprintf("%d/%d", done, total)))
}
