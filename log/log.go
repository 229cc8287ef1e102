// Package log creates loggers for contexts and commands.
package log

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	// DebugEnv is the environment variable which enables debug level.
	DebugEnv = "PHONOGRAPH_DEBUG"
	// JSONEnv is the environment variable which switches output to json.
	JSONEnv = "PHONOGRAPH_LOG_JSON"
)

var debug, json bool

func init() {
	debug = envBool(DebugEnv)
	json = envBool(JSONEnv)
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// Discard returns logger which drops every entry.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.SetLevel(logrus.PanicLevel)
	return l
}
