// Package logging configures the shared logrus logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logger writing to stderr so report output on stdout
// stays machine-readable.
func New(verbose bool, jsonFormat bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	if jsonFormat {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return log
}
