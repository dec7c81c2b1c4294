package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// stdout receives the results of the commands.
var stdout io.Writer = os.Stdout

var (
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#d29b1d")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c853"))
)

// printMarkdown renders markdown for the terminal, or prints it raw when
// the output is not a terminal.
func printMarkdown(md string) {
	if f, ok := stdout.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}

func warnf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render("warning: "+fmt.Sprintf(format, args...)))
}

func errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+fmt.Sprintf(format, args...)))
}

func successf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}
