// Package logging configures the structured logger shared by finburn components.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Component names used in the "component" field.
const (
	ComponentExtract  = "extract"
	ComponentCurrency = "currency"
	ComponentPipeline = "pipeline"
	ComponentResync   = "resync"
	ComponentDaemon   = "daemon"
	ComponentSource   = "source"
	ComponentStore    = "store"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// New builds a logrus logger from opts. Unknown levels fall back to info.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stderr)
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// For returns an entry tagged with the component name. A nil logger
// resolves to the logrus standard logger.
func For(l *logrus.Logger, component string) *logrus.Entry {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", component)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
