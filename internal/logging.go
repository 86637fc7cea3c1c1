package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/iproj/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

type LogOptions struct {
	Level  string
	Format string
	// Dir, when set, adds a daily rotated file next to stdout
	Dir string
}

// SetupLogger configures logger and returns the rotating writer, if any, so
// the caller can close it on shutdown.
func SetupLogger(logger *logrus.Logger, o LogOptions) (io.Closer, error) {
	level, err := logrus.ParseLevel(o.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	if o.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if o.Dir == "" {
		logger.SetOutput(os.Stdout)
		return nil, nil
	}

	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	writer, err := rotatelogs.New(
		filepath.Join(o.Dir, "social.%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(o.Dir, "social.log")),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("rotate logs: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, writer))
	return writer, nil
}
