package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger from config values.
func Setup(level string, formatJSON bool) {
	if formatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(parseLevel(level))
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
