package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/replay-inspector/internal/config"
	"github.com/joeycumines/replay-inspector/internal/logging"
)

// logConfig holds resolved logging configuration for scenario commands.
type logConfig struct {
	level      slog.Level
	logFile    io.WriteCloser // nil if no file logging
	bufferSize int
}

// resolveLogConfig resolves log configuration from flags, then config, then
// schema defaults. Empty or zero flags defer to the config. The caller must
// close logFile when it is non-nil.
func resolveLogConfig(flagPath, flagLevel string, flagBufferSize int, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	var lc logConfig

	levelStr := flagLevel
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, "log.level")
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level

	lc.bufferSize = flagBufferSize
	if lc.bufferSize <= 0 {
		if lc.bufferSize, err = schema.ResolveInt(cfg, "log.buffer-size"); err != nil {
			return lc, err
		}
	}

	logPath := flagPath
	if logPath == "" {
		logPath = schema.Resolve(cfg, "log.file")
	}
	if logPath == "" {
		return lc, nil
	}

	maxSizeMB, err := schema.ResolveInt(cfg, "log.max-size-mb")
	if err != nil {
		return lc, err
	}
	maxFiles, err := schema.ResolveInt(cfg, "log.max-files")
	if err != nil {
		return lc, err
	}
	w, err := logging.OpenRotatingFile(logPath, maxSizeMB, maxFiles)
	if err != nil {
		return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	lc.logFile = w
	return lc, nil
}
