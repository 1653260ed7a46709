package replay

import "context"

// Agent is the request/response surface of the instrumented runtime. Every
// method may block; the Manager and Store only call it off the loop.
type Agent interface {
	CurrentReplayState(ctx context.Context) (State, error)
	GetAvailableSessions(ctx context.Context) ([]SessionID, error)
	GetSessionData(ctx context.Context, id SessionID) (SessionPayload, error)
	GetSegmentData(ctx context.Context, id SegmentID) (SegmentPayload, error)

	StartCapturing(ctx context.Context) error
	StopCapturing(ctx context.Context) error
	ReplayToPosition(ctx context.Context, position Position, fastForward bool) error
	ReplayToCompletion(ctx context.Context, fastForward bool) error
	PausePlayback(ctx context.Context) error
	StopPlayback(ctx context.Context) error
}

// Observer receives the runtime's push notifications. The Manager implements
// it directly (loop only); Dispatcher implements it for any goroutine.
type Observer interface {
	CaptureStarted()
	CaptureStopped()

	PlaybackStarted()
	PlaybackHitPosition(position Position, timestamp float64)
	PlaybackPaused(position Position)
	PlaybackFinished()

	SessionCreated(id SessionID)
	SessionModified(id SessionID)
	SessionRemoved(id SessionID)
	SessionLoaded(id SessionID)

	SegmentCreated(id SegmentID)
	SegmentCompleted(id SegmentID)
	SegmentRemoved(id SegmentID)
	SegmentLoaded(id SegmentID)
	SegmentUnloaded()
}
