package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joeycumines/replay-inspector/internal/config"
	"github.com/joeycumines/replay-inspector/internal/hover"
	"github.com/joeycumines/replay-inspector/internal/inspector"
	"github.com/joeycumines/replay-inspector/internal/logging"
	"github.com/joeycumines/replay-inspector/internal/replay"
)

// scenarioFlags are shared by the commands that run a scenario script.
type scenarioFlags struct {
	logFile    string
	logLevel   string
	bufferSize int
	timeout    time.Duration
	speed      string
	filter     string
}

func (f *scenarioFlags) setup(fs *flag.FlagSet) {
	fs.StringVar(&f.logFile, "log-file", "", "Write JSON logs to this file (overrides log.file)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	fs.IntVar(&f.bufferSize, "log-buffer-size", 0, "In-memory log buffer size (overrides log.buffer-size)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Maximum time the scenario may run (overrides the command's timeout option)")
	fs.StringVar(&f.speed, "speed", "", "Initial playback speed: fast, slow (overrides replay.playback-speed)")
	fs.StringVar(&f.filter, "filter", "", "Overview filter expression (overrides timeline.filter)")
}

// scenario is a finished scenario run. Close releases it.
type scenario struct {
	inspector *inspector.Inspector
	logs      *logging.Buffer
	logger    *slog.Logger
	closers   []io.Closer
}

func (s *scenario) Close() error {
	var errs []error
	if s.inspector != nil {
		errs = append(errs, s.inspector.Close())
	}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// runScenario runs the script at path against a fresh inspector and waits
// for playback to settle. The scenario is returned even when the script
// fails, so callers can report what happened, and must be closed.
func runScenario(ctx context.Context, command string, cfg *config.Config, flags *scenarioFlags, path string) (*scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	lc, err := resolveLogConfig(flags.logFile, flags.logLevel, flags.bufferSize, cfg)
	if err != nil {
		return nil, err
	}
	s := &scenario{}
	if lc.logFile != nil {
		s.closers = append(s.closers, lc.logFile)
	}
	s.logger, s.logs = logging.New(logging.Options{
		Level:      lc.level,
		BufferSize: lc.bufferSize,
		File:       lc.logFile,
	})

	opts, err := inspectorOptions(cfg, flags)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	opts.Logger = s.logger

	timeout := flags.timeout
	if timeout <= 0 {
		if timeout, err = config.DefaultSchema().ResolveCommandDuration(cfg, command, "timeout"); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	// the scenario deadline does not bound the inspector
	if s.inspector, err = inspector.New(ctx, opts); err != nil {
		_ = s.Close()
		return nil, err
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.logger.Info("[Command] running scenario", "command", command, "path", path, "timeout", timeout)
	if err := s.inspector.RunScript(runCtx, path, string(src)); err != nil {
		return s, err
	}
	if err := s.inspector.Idle(runCtx); err != nil {
		return s, fmt.Errorf("waiting for playback: %w", err)
	}
	return s, nil
}

// inspectorOptions resolves the inspector settings from the config, with
// flags taking precedence.
func inspectorOptions(cfg *config.Config, flags *scenarioFlags) (inspector.Options, error) {
	schema := config.DefaultSchema()
	var (
		opts inspector.Options
		errs []error
	)
	duration := func(key string) time.Duration {
		d, err := schema.ResolveDuration(cfg, key)
		errs = append(errs, err)
		return d
	}

	opts.SyncTimeout = duration("loop.sync-timeout")
	opts.FetchTimeout = duration("replay.fetch-timeout")
	opts.FrameInterval = duration("timeline.frame-interval")
	opts.Simulator.Latency = duration("simulator.latency")
	opts.Simulator.EventInterval = duration("simulator.event-interval")
	opts.Hover.MouseOverDelay = duration("hover.mouse-over-delay")
	opts.Hover.MouseOutReleaseDelay = duration("hover.mouse-out-release-delay")
	opts.Hover.HighlightClass = schema.Resolve(cfg, "hover.highlight-class")

	mode, err := hover.ParseMode(schema.Resolve(cfg, "hover.mode"))
	errs = append(errs, err)
	opts.Hover.Mode = mode

	speed := flags.speed
	if speed == "" {
		speed = schema.Resolve(cfg, "replay.playback-speed")
	}
	opts.PlaybackSpeed, err = replay.ParsePlaybackSpeed(speed)
	errs = append(errs, err)

	opts.Filter = flags.filter
	if opts.Filter == "" {
		opts.Filter = schema.Resolve(cfg, "timeline.filter")
	}

	return opts, errors.Join(errs...)
}
