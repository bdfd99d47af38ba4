package observability

import (
	"fmt"
	"strings"

	"todo_api/internal/config"

	"github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger. Format is "text" or "json".
func SetupLogging(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.Format)
	}
	return nil
}
