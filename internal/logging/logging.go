package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger writing to out. Without debug only warnings
// and errors are shown, so normal runs stay quiet on stderr.
func NewLogger(out io.Writer, debug bool, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.Formatter = GetLogFormatter(format)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

func GetLogFormatter(format string) logrus.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{}
	default:
		return &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	}
}
