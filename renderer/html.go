package renderer

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/etnz/planner"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var converter = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts a markdown document into an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("cannot convert markdown: %w", err)
	}
	return buf.String(), nil
}

// WriteHTML writes the month dashboard as a standalone HTML page.
func WriteHTML(w io.Writer, r *planner.Report, now time.Time) error {
	body, err := HTML(MonthMarkdown(r) + "\n\n" + generated(now) + "\n")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 56em; margin: 2em auto; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: .3em .8em; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString("Finance Dashboard "+r.Month.String()), body)
	return err
}
