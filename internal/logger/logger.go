// Package logger builds the diagnostic logger shared by the engines and the
// orchestrator. Findings go to the console renderer, not here.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger on stderr. verbose enables debug output, silent
// keeps only warnings and errors.
func New(verbose, silent bool) *logrus.Logger {
	return NewWithOutput(os.Stderr, verbose, silent)
}

// NewWithOutput is New with a custom destination.
func NewWithOutput(out io.Writer, verbose, silent bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
		DisableColors:   os.Getenv("NO_COLOR") != "",
	})

	switch {
	case verbose:
		l.SetLevel(logrus.DebugLevel)
	case silent:
		l.SetLevel(logrus.WarnLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
