// Package inspector assembles the replay and timeline components around one
// event loop and an in-process simulated runtime, and exposes them to
// scenario scripts through the "replay:runtime" module.
package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joeycumines/replay-inspector/internal/hover"
	"github.com/joeycumines/replay-inspector/internal/loop"
	"github.com/joeycumines/replay-inspector/internal/replay"
	"github.com/joeycumines/replay-inspector/internal/simulator"
	"github.com/joeycumines/replay-inspector/internal/timeline"
)

// ModuleName is the require() name of the scenario module.
const ModuleName = "replay:runtime"

// Options configures an Inspector.
type Options struct {
	Logger *slog.Logger
	// SyncTimeout bounds each call made onto the loop from outside it.
	SyncTimeout   time.Duration
	FetchTimeout  time.Duration
	PlaybackSpeed replay.PlaybackSpeed
	FrameInterval time.Duration
	// Filter is the initial overview filter expression.
	Filter string
	// Hover holds the defaults for controllers created by scripts.
	Hover     hover.Options
	Simulator simulator.Options
}

// Inspector owns the loop and every component confined to it. Methods are
// safe to call from any goroutine other than the loop's.
type Inspector struct {
	logger  *slog.Logger
	loop    *loop.Loop
	runtime *simulator.Runtime
	hover   hover.Options

	// loop confined
	manager   *replay.Manager
	recording *timeline.Recording
	overview  *timeline.Overview
	events    []replay.Event
	hovers    map[string]*hoverSession
	unbind    []func()
}

// New starts a loop and wires a simulator, a replay manager and a timeline
// overview onto it.
func New(ctx context.Context, opts Options) (*Inspector, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loopOpts := []loop.Option{loop.WithLogger(logger)}
	if opts.SyncTimeout > 0 {
		loopOpts = append(loopOpts, loop.WithSyncTimeout(opts.SyncTimeout))
	}
	l, err := loop.New(ctx, loopOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start event loop: %w", err)
	}

	simOpts := opts.Simulator
	if simOpts.Logger == nil {
		simOpts.Logger = logger
	}
	hoverOpts := opts.Hover
	if hoverOpts.Logger == nil {
		hoverOpts.Logger = logger
	}
	i := &Inspector{
		logger:  logger,
		loop:    l,
		runtime: simulator.New(simOpts),
		hover:   hoverOpts,
		hovers:  make(map[string]*hoverSession),
	}

	err = l.Sync(func() error {
		i.manager = replay.NewManager(ctx, l, i.runtime, replay.Options{
			Logger:        logger,
			FetchTimeout:  opts.FetchTimeout,
			PlaybackSpeed: opts.PlaybackSpeed,
		})
		i.recording = timeline.NewRecording(logger)
		i.overview = timeline.NewOverview(timeline.OverviewOptions{
			Logger:        logger,
			Timers:        l,
			FrameInterval: opts.FrameInterval,
		})
		if err := i.overview.SetFilter(opts.Filter); err != nil {
			return err
		}
		i.unbind = append(i.unbind, i.overview.Attach(i.recording), timeline.BindReplay(i.overview, i.manager))
		for _, kind := range replay.EventTypes {
			id := i.manager.On(kind, func(ev replay.Event) { i.events = append(i.events, ev) })
			i.unbind = append(i.unbind, func() { i.manager.Off(id) })
		}
		i.overview.Shown()
		return nil
	})
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	i.runtime.SetObserver(replay.NewDispatcher(l, i.manager, logger))
	l.Registry().RegisterNativeModule(ModuleName, i.require)
	return i, nil
}

// Close detaches the components and stops the loop.
func (i *Inspector) Close() error {
	_ = i.loop.Sync(func() error {
		for _, fn := range i.unbind {
			fn()
		}
		i.unbind = nil
		return nil
	})
	return i.loop.Close()
}

// Loop returns the inspector's event loop.
func (i *Inspector) Loop() *loop.Loop { return i.loop }

// Runtime returns the simulated runtime.
func (i *Inspector) Runtime() *simulator.Runtime { return i.runtime }

// Manager returns the replay manager. It must only be used on the loop.
func (i *Inspector) Manager() *replay.Manager { return i.manager }

// Recording returns the timeline recording. It must only be used on the loop.
func (i *Inspector) Recording() *timeline.Recording { return i.recording }

// Overview returns the timeline overview. It must only be used on the loop.
func (i *Inspector) Overview() *timeline.Overview { return i.overview }

// Idle waits for simulated playback to finish and for every notification
// it sent to be handled on the loop.
func (i *Inspector) Idle(ctx context.Context) error {
	if err := i.runtime.WaitIdle(ctx); err != nil {
		return err
	}
	return i.loop.Sync(func() error { return nil })
}

// Events returns every replay manager event emitted so far.
func (i *Inspector) Events() ([]replay.Event, error) {
	var out []replay.Event
	err := i.loop.Sync(func() error {
		out = slices.Clone(i.events)
		return nil
	})
	return out, err
}

// Render lays out the overview and draws it width cells wide.
func (i *Inspector) Render(width int) (string, error) {
	var out string
	err := i.loop.Sync(func() error {
		out = i.render(width)
		return nil
	})
	return out, err
}

func (i *Inspector) render(width int) string {
	i.overview.UpdateLayout()
	return timeline.Render(i.overview, timeline.RenderOptions{Width: width})
}
