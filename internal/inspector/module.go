package inspector

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/replay-inspector/internal/future"
	"github.com/joeycumines/replay-inspector/internal/hover"
	"github.com/joeycumines/replay-inspector/internal/replay"
	"github.com/joeycumines/replay-inspector/internal/timeline"
)

// require is the loader for ModuleName. Every export runs on the loop.
//
// Replay commands return promises that settle once the runtime has
// answered; the notifications the command caused have been handled by
// then.
func (i *Inspector) require(runtime *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)
	m := &scenario{vm: runtime}

	// capture(): Promise - start capturing a new session
	_ = exports.Set("capture", func() goja.Value { return m.command(i.manager.StartCapturing()) })
	// stopCapture(): Promise
	_ = exports.Set("stopCapture", func() goja.Value { return m.command(i.manager.StopCapturing()) })
	// replay(segment, event): Promise - replay up to and including the position
	_ = exports.Set("replay", func(segment, event int) goja.Value {
		return m.command(i.manager.ReplayToPosition(replay.Position{Segment: segment, Event: event}))
	})
	// replayMark(index): Promise - replay to an event in the current segment
	_ = exports.Set("replayMark", func(index int) goja.Value { return m.command(i.manager.ReplayToMarkIndex(index)) })
	// replayAll(): Promise
	_ = exports.Set("replayAll", func() goja.Value { return m.command(i.manager.ReplayToCompletion()) })
	// pause(), stop(): Promise
	_ = exports.Set("pause", func() goja.Value { return m.command(i.manager.PausePlayback()) })
	_ = exports.Set("stop", func() goja.Value { return m.command(i.manager.StopPlayback()) })

	// speed(name?): string - get, or set to "fast"/"slow"
	_ = exports.Set("speed", func(call goja.FunctionCall) goja.Value {
		if arg := call.Argument(0); !goja.IsUndefined(arg) {
			speed, err := replay.ParsePlaybackSpeed(arg.String())
			if err != nil {
				panic(runtime.NewGoError(err))
			}
			i.manager.SetPlaybackSpeed(speed)
		}
		return runtime.ToValue(i.manager.PlaybackSpeed().String())
	})

	// record(kind, data?): {segment, event} - append an event to the capture
	_ = exports.Set("record", func(call goja.FunctionCall) goja.Value {
		var data any
		if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			data = arg.Export()
		}
		pos, err := i.runtime.Record(call.Argument(0).String(), data)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		return m.position(pos)
	})
	// cut() - complete the segment being captured and open another
	_ = exports.Set("cut", func() {
		if err := i.runtime.CutSegment(); err != nil {
			panic(runtime.NewGoError(err))
		}
	})
	// load(session) - make a stored session active
	_ = exports.Set("load", func(id int64) {
		if err := i.runtime.LoadSession(replay.SessionID(id)); err != nil {
			panic(runtime.NewGoError(err))
		}
	})
	// remove(session) - delete a stored session
	_ = exports.Set("remove", func(id int64) {
		if err := i.runtime.DeleteSession(replay.SessionID(id)); err != nil {
			panic(runtime.NewGoError(err))
		}
	})
	// idle(): Promise - settles when playback has finished and been handled
	_ = exports.Set("idle", func() goja.Value {
		return m.command(future.Go(context.Background(), i.loop, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, i.runtime.WaitIdle(ctx)
		}))
	})
	// wait(ms): Promise
	_ = exports.Set("wait", func(ms float64) goja.Value {
		p, resolve, _ := runtime.NewPromise()
		i.loop.SetTimeout(func() { resolve(goja.Undefined()) }, millis(ms))
		return runtime.ToValue(p)
	})

	// state(): {sessionState, segmentState, session, segment, position, speed}
	_ = exports.Set("state", func() goja.Value {
		s := i.manager.State()
		return runtime.ToValue(map[string]any{
			"initialized":  i.manager.Initialized(),
			"sessionState": s.SessionState.String(),
			"segmentState": s.SegmentState.String(),
			"session":      int64(s.SessionID),
			"segment":      int64(s.SegmentID),
			"position":     m.position(s.Position),
			"speed":        i.manager.PlaybackSpeed().String(),
		})
	})
	// sessions(): [{id, label, segments}]
	_ = exports.Set("sessions", func() goja.Value {
		store := i.manager.Store()
		out := make([]any, 0)
		for _, id := range store.SessionIDs() {
			s, ok := store.Session(id)
			if !ok {
				continue
			}
			segments := make([]any, len(s.Segments))
			for n, seg := range s.Segments {
				segments[n] = int64(seg)
			}
			out = append(out, map[string]any{"id": int64(id), "label": s.Label, "segments": segments})
		}
		return runtime.ToValue(out)
	})
	// events(): [{type, session, segment, position, timestamp}]
	_ = exports.Set("events", func() goja.Value {
		out := make([]any, len(i.events))
		for n, ev := range i.events {
			out[n] = map[string]any{
				"type":      string(ev.Type),
				"session":   int64(ev.SessionID),
				"segment":   int64(ev.SegmentID),
				"position":  ev.Position.String(),
				"timestamp": ev.Timestamp,
			}
		}
		return runtime.ToValue(out)
	})

	// resource(url) - register a resource with the timeline recording
	_ = exports.Set("resource", func(url string) { i.recording.AddResource(url) })
	// timeline({type, eventType, title, start, end, url, line, column})
	_ = exports.Set("timeline", func(call goja.FunctionCall) goja.Value {
		rec, err := timelineRecord(call.Argument(0).Export())
		if err == nil {
			err = i.recording.AddRecord(rec)
		}
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		return goja.Undefined()
	})
	// filter(expression) - "" clears
	_ = exports.Set("filter", func(src string) {
		if err := i.overview.SetFilter(src); err != nil {
			panic(runtime.NewGoError(err))
		}
	})
	// render(width?): string
	_ = exports.Set("render", func(call goja.FunctionCall) goja.Value {
		return runtime.ToValue(i.render(int(call.Argument(0).ToInteger())))
	})

	// hover(name, text, {mode, delay, releaseDelay}?): Hover
	_ = exports.Set("hover", func(call goja.FunctionCall) goja.Value {
		opts := i.hover
		if arg := call.Argument(2); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			var err error
			if opts, err = hoverOptions(opts, arg.Export()); err != nil {
				panic(runtime.NewGoError(err))
			}
		}
		s := i.newHoverSession(call.Argument(0).String(), call.Argument(1).String(), opts)
		return m.hoverObject(s)
	})
}

// scenario holds the helpers shared by the module exports.
type scenario struct {
	vm *goja.Runtime
}

// command adapts a future to a JS promise. It is only called on the loop,
// and futures settle there too.
func (m *scenario) command(f *future.Future[struct{}]) goja.Value {
	p, resolve, reject := m.vm.NewPromise()
	f.Then(func(r future.Result[struct{}]) {
		if r.Err != nil {
			reject(m.vm.NewGoError(r.Err))
			return
		}
		resolve(goja.Undefined())
	})
	return m.vm.ToValue(p)
}

func (m *scenario) position(p replay.Position) goja.Value {
	return m.vm.ToValue(map[string]any{"segment": p.Segment, "event": p.Event})
}

func (m *scenario) hoverObject(s *hoverSession) goja.Value {
	vm, c := m.vm, s.controller
	obj := vm.NewObject()
	pos := func(call goja.FunctionCall) hover.Position {
		return hover.Position{Line: int(call.Argument(0).ToInteger()), Ch: int(call.Argument(1).ToInteger())}
	}
	_ = obj.Set("enable", func() { c.SetEnabled(true) })
	_ = obj.Set("disable", func() { c.SetEnabled(false) })
	_ = obj.Set("enter", func() { c.MouseEntered() })
	_ = obj.Set("leave", func() { c.MouseLeft() })
	_ = obj.Set("out", func() { c.MouseOut() })
	_ = obj.Set("move", func(call goja.FunctionCall) goja.Value {
		s.moved(pos(call))
		return goja.Undefined()
	})
	_ = obj.Set("down", func() { c.MouseDown() })
	_ = obj.Set("up", func(call goja.FunctionCall) goja.Value {
		c.MouseUp(pos(call))
		return goja.Undefined()
	})
	_ = obj.Set("blur", func() { c.Blur() })
	_ = obj.Set("select", func(selected bool) { s.surface.SetSelection(selected) })
	_ = obj.Set("keep", func(keep bool) { s.keep = keep })
	_ = obj.Set("mode", func(call goja.FunctionCall) goja.Value {
		if arg := call.Argument(0); !goja.IsUndefined(arg) {
			mode, err := hover.ParseMode(arg.String())
			if err != nil {
				panic(vm.NewGoError(err))
			}
			c.SetMode(mode)
		}
		return vm.ToValue(c.Mode().String())
	})
	_ = obj.Set("state", func() string { return c.State().String() })
	_ = obj.Set("listeners", func() string { return c.Listeners().String() })
	_ = obj.Set("candidate", func() goja.Value {
		if sum := s.summary(); sum.Candidate != "" {
			return vm.ToValue(sum.Candidate)
		}
		return goja.Null()
	})
	_ = obj.Set("highlighted", func() goja.Value {
		if text := s.highlighted(); text != "" {
			return vm.ToValue(text)
		}
		return goja.Null()
	})
	_ = obj.Set("decisions", func() []string { return append([]string(nil), s.decisions...) })
	return obj
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func timelineRecord(v any) (*timeline.Record, error) {
	spec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("timeline record must be an object, got %T", v)
	}
	str := func(key string) string {
		s, _ := spec[key].(string)
		return s
	}
	typ, err := timeline.ParseRecordType(str("type"))
	if err != nil {
		return nil, err
	}
	rec := &timeline.Record{
		Type:      typ,
		EventType: str("eventType"),
		Title:     str("title"),
		URL:       str("url"),
	}
	if n, ok := number(spec["start"]); ok {
		rec.Start = timeline.At(n)
	}
	if n, ok := number(spec["end"]); ok {
		rec.End = timeline.At(n)
	}
	if line, ok := number(spec["line"]); ok {
		col, _ := number(spec["column"])
		rec.Location = &timeline.SourceLocation{URL: rec.URL, Line: int(line), Column: int(col)}
	}
	return rec, nil
}

func hoverOptions(base hover.Options, v any) (hover.Options, error) {
	spec, ok := v.(map[string]any)
	if !ok {
		return base, fmt.Errorf("hover options must be an object, got %T", v)
	}
	if s, ok := spec["mode"].(string); ok {
		mode, err := hover.ParseMode(s)
		if err != nil {
			return base, err
		}
		base.Mode = mode
	}
	if n, ok := number(spec["delay"]); ok {
		base.MouseOverDelay = millis(n)
	}
	if n, ok := number(spec["releaseDelay"]); ok {
		base.MouseOutReleaseDelay = millis(n)
	}
	if s, ok := spec["highlightClass"].(string); ok {
		base.HighlightClass = s
	}
	return base, nil
}
