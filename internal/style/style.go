// Package style provides consistent terminal styling using Lipgloss.
package style

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Faint(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Info.Render("→")

	bannerBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("5")).
			Padding(0, 2)
)

// PrintWarning prints a warning line to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}

// Banner renders a boxed title followed by body lines.
// The title is title-cased so command names can be passed as-is.
func Banner(title string, lines ...string) string {
	caser := cases.Title(language.English)
	var sb strings.Builder
	sb.WriteString(Bold.Render(caser.String(title)))
	for _, l := range lines {
		sb.WriteString("\n")
		sb.WriteString(l)
	}
	return bannerBox.Render(sb.String())
}
