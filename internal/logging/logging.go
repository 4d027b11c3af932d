package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/model"
)

// Setup configures the standard logrus logger from cfg and returns it.
func Setup(cfg model.LogConfig) (*logrus.Logger, error) {
	return configure(logrus.StandardLogger(), cfg, os.Stdout)
}

func configure(l *logrus.Logger, cfg model.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	switch cfg.Format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json", "":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l.SetOutput(out)
	l.SetLevel(level)
	return l, nil
}
