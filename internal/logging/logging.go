// Package logging builds the *log.Logger every other package receives
// as a collaborator, per the config file's [logging] section
// (spec.md §6): one of three output writers (console, file, syslog),
// leveled globally and per named subsystem.
package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/midigurdy/core/internal/config"
	"github.com/midigurdy/core/internal/errs"
)

// New builds the root logger for cfg.Method, applying cfg.Level as the
// default threshold. Callers needing a per-subsystem override should
// call Sublogger afterward.
func New(cfg config.Logging) (*log.Logger, error) {
	w, err := writerFor(cfg)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: cfg.Method != "syslog", // syslog already timestamps
		ReportCaller:    false,
	})

	if cfg.Oneline {
		logger.SetFormatter(log.TextFormatter)
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	return logger, nil
}

// writerFor resolves the [logging] method to its concrete io.Writer.
// syslog has no ecosystem package in the retrieved pack, so it's the
// one spot that deliberately falls back to the standard library's
// log/syslog.
func writerFor(cfg config.Logging) (io.Writer, error) {
	switch cfg.Method {
	case "", "console":
		return os.Stderr, nil
	case "file":
		path := cfg.File
		if path == "" {
			return nil, &errs.ConfigError{Path: path, Err: fmt.Errorf("log_method=file requires log_file")}
		}

		if strings.Contains(path, "%") {
			formatted, err := strftime.Format(path, time.Now())
			if err != nil {
				return nil, &errs.ConfigError{Path: path, Err: err}
			}
			path = formatted
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, &errs.ConfigError{Path: path, Err: err}
		}

		return f, nil
	case "syslog":
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "mgurdyd")
		if err != nil {
			return nil, &errs.ConfigError{Path: "syslog", Err: err}
		}

		return w, nil
	default:
		return nil, &errs.ConfigError{Path: cfg.Method, Err: fmt.Errorf("unknown log_method %q", cfg.Method)}
	}
}

// Sublogger returns a named child logger, applying any per-subsystem
// override found in cfg.Levels ("name:level,name:level,...").
func Sublogger(root *log.Logger, cfg config.Logging, name string) *log.Logger {
	sub := root.WithPrefix(name)

	for _, entry := range strings.Split(cfg.Levels, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] != name {
			continue
		}

		if level, err := log.ParseLevel(parts[1]); err == nil {
			sub.SetLevel(level)
		}
	}

	return sub
}
