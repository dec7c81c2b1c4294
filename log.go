package planner

import (
	"io"

	"github.com/sirupsen/logrus"
)

// orDiscard returns l, or a logger that writes nowhere when l is nil.
func orDiscard(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	d := logrus.New()
	d.SetOutput(io.Discard)
	return d
}
