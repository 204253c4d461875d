package obs

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared structured logger used across the application.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
			},
		})
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

// SetLevel adjusts the shared logger level. Unknown names keep the current level.
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		Logger().WithField("level", name).Warn("unknown log level, keeping current")
		return
	}
	Logger().SetLevel(lvl)
}
