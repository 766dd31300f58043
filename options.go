package blink

import (
	"io"

	"github.com/sirupsen/logrus"
)

// options holds a Tree's configuration, assembled via functional
// options (the same DbOptions/DbOption pattern operator-registry's
// sqlite package uses for its database handle).
type options struct {
	logger *logrus.Logger
}

// Option configures a Tree at construction time.
type Option func(*options)

func defaultOptions() *options {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return &options{logger: log}
}

// WithLogger sets the *logrus.Logger a Tree uses for structured
// diagnostics (root materialization, split, root growth). The default
// logger is silent below warning level.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDiscardLogs silences all logging, useful in tests that would
// otherwise be noisy under -v.
func WithDiscardLogs() Option {
	return func(o *options) {
		log := logrus.New()
		log.SetOutput(io.Discard)
		o.logger = log
	}
}
