package renderer

import (
	"bytes"

	"github.com/etnz/planner/remote"
	md "github.com/nao1215/markdown"
)

// RecordsMarkdown renders records of a remote collection as a table of the
// given columns.
func RecordsMarkdown(heading string, rs []remote.Record, columns ...string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2(heading)
	if len(rs) == 0 {
		doc.PlainText("Nothing yet.")
		return doc.String()
	}
	table := md.TableSet{Header: make([]string, len(columns))}
	for i, c := range columns {
		table.Header[i] = titled(c)
	}
	for _, r := range rs {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = r.String(c)
		}
		table.Rows = append(table.Rows, row)
	}
	doc.Table(table)
	return doc.String()
}
