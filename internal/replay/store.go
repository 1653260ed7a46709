package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/joeycumines/replay-inspector/internal/future"
)

// ErrUnknownSession is returned for sessions the Store does not track.
var ErrUnknownSession = errors.New("replay: unknown session")

// Store caches sessions and segments fetched from the runtime. It keeps two
// caches per kind: resolved objects, and the future of the fetch that
// produced (or is producing) them. All methods must be called on the loop.
type Store struct {
	ctx     context.Context
	exec    future.Executor
	agent   Agent
	logger  *slog.Logger
	timeout time.Duration

	sessions       map[SessionID]*Session
	sessionFutures map[SessionID]*future.Future[*Session]
	segments       map[SegmentID]Segment
	segmentFutures map[SegmentID]*future.Future[Segment]

	sessionFetches map[SessionID]int
	segmentFetches map[SegmentID]int
}

// NewStore returns an empty Store. A zero fetchTimeout disables the per-fetch
// deadline.
func NewStore(ctx context.Context, exec future.Executor, agent Agent, logger *slog.Logger, fetchTimeout time.Duration) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		ctx:            ctx,
		exec:           exec,
		agent:          agent,
		logger:         logger,
		timeout:        fetchTimeout,
		sessions:       make(map[SessionID]*Session),
		sessionFutures: make(map[SessionID]*future.Future[*Session]),
		segments:       make(map[SegmentID]Segment),
		segmentFutures: make(map[SegmentID]*future.Future[Segment]),
		sessionFetches: make(map[SessionID]int),
		segmentFetches: make(map[SegmentID]int),
	}
}

func (s *Store) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// GetSession returns the cached fetch for id, issuing one if none exists.
// Concurrent callers share a single underlying request.
func (s *Store) GetSession(id SessionID) *future.Future[*Session] {
	if f, ok := s.sessionFutures[id]; ok {
		return f
	}
	s.sessionFetches[id]++
	f := future.Go(s.ctx, s.exec, func(ctx context.Context) (*Session, error) {
		ctx, cancel := s.fetchContext(ctx)
		defer cancel()
		payload, err := s.agent.GetSessionData(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get session %d: %w", id, err)
		}
		return SessionFromPayload(payload), nil
	})
	s.sessionFutures[id] = f
	f.Then(func(r future.Result[*Session]) {
		if r.Err != nil {
			s.logger.Error("[Replay] session fetch failed", "session", id, "error", r.Err)
			return
		}
		// a removal (or replacement) may have happened while in flight
		if s.sessionFutures[id] == f {
			s.sessions[id] = r.Value
		}
	})
	return f
}

// GetSegment returns the cached fetch for id, issuing one if none exists.
func (s *Store) GetSegment(id SegmentID) *future.Future[Segment] {
	if f, ok := s.segmentFutures[id]; ok {
		return f
	}
	s.segmentFetches[id]++
	f := future.Go(s.ctx, s.exec, func(ctx context.Context) (Segment, error) {
		ctx, cancel := s.fetchContext(ctx)
		defer cancel()
		payload, err := s.agent.GetSegmentData(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get segment %d: %w", id, err)
		}
		return SegmentFromPayload(payload), nil
	})
	s.segmentFutures[id] = f
	f.Then(func(r future.Result[Segment]) {
		if r.Err != nil {
			s.logger.Error("[Replay] segment fetch failed", "segment", id, "error", r.Err)
			return
		}
		if s.segmentFutures[id] == f {
			s.segments[id] = r.Value
		}
	})
	return f
}

// AddIncompleteSegment records a placeholder for a segment that is still
// being captured. The placeholder is immediately resolvable.
func (s *Store) AddIncompleteSegment(id SegmentID) *IncompleteSegment {
	seg := &IncompleteSegment{ID: id}
	s.segments[id] = seg
	s.segmentFutures[id] = future.Resolved[Segment](s.exec, seg)
	return seg
}

// CompleteSegment swaps the placeholder's cache entry for a fresh fetch of
// the complete segment. Callers holding the old future still see the
// placeholder; new callers only see the complete fetch.
func (s *Store) CompleteSegment(id SegmentID) *future.Future[Segment] {
	delete(s.segmentFutures, id)
	return s.GetSegment(id)
}

// RefreshSession re-fetches session data and updates the segment list of the
// cached session in place. An untracked session is not fetched; the result
// is rejected with ErrUnknownSession.
func (s *Store) RefreshSession(id SessionID) *future.Future[*Session] {
	current, ok := s.sessionFutures[id]
	if !ok {
		return future.Rejected[*Session](s.exec, fmt.Errorf("refresh session %d: %w", id, ErrUnknownSession))
	}
	out := future.New[*Session](s.exec)
	current.Then(func(r future.Result[*Session]) {
		if r.Err != nil {
			out.Reject(r.Err)
			return
		}
		s.sessionFetches[id]++
		fresh := future.Go(s.ctx, s.exec, func(ctx context.Context) (SessionPayload, error) {
			ctx, cancel := s.fetchContext(ctx)
			defer cancel()
			return s.agent.GetSessionData(ctx, id)
		})
		fresh.Then(func(p future.Result[SessionPayload]) {
			if p.Err != nil {
				s.logger.Error("[Replay] session refresh failed", "session", id, "error", p.Err)
				out.Reject(fmt.Errorf("refresh session %d: %w", id, p.Err))
				return
			}
			r.Value.Segments = append(r.Value.Segments[:0], p.Value.Segments...)
			out.Resolve(r.Value)
		})
	})
	return out
}

// RemoveSession waits for any outstanding fetch of id to settle, success or
// failure, then deletes both cache entries. The result is the removed
// session, or nil if it never resolved.
func (s *Store) RemoveSession(id SessionID) *future.Future[*Session] {
	out := future.New[*Session](s.exec)
	f, ok := s.sessionFutures[id]
	if !ok {
		removed := s.sessions[id]
		delete(s.sessions, id)
		out.Resolve(removed)
		return out
	}
	f.Settle().Then(func(future.Result[struct{}]) {
		var removed *Session
		if s.sessionFutures[id] == f {
			removed = s.sessions[id]
			delete(s.sessions, id)
			delete(s.sessionFutures, id)
		}
		out.Resolve(removed)
	})
	return out
}

// RemoveSegment is the segment counterpart of RemoveSession.
func (s *Store) RemoveSegment(id SegmentID) *future.Future[Segment] {
	out := future.New[Segment](s.exec)
	f, ok := s.segmentFutures[id]
	if !ok {
		removed := s.segments[id]
		delete(s.segments, id)
		out.Resolve(removed)
		return out
	}
	f.Settle().Then(func(future.Result[struct{}]) {
		var removed Segment
		if s.segmentFutures[id] == f {
			removed = s.segments[id]
			delete(s.segments, id)
			delete(s.segmentFutures, id)
		}
		out.Resolve(removed)
	})
	return out
}

// Session returns the resolved session for id.
func (s *Store) Session(id SessionID) (*Session, bool) {
	v, ok := s.sessions[id]
	return v, ok
}

// Segment returns the resolved segment for id, which may be a placeholder.
func (s *Store) Segment(id SegmentID) (Segment, bool) {
	v, ok := s.segments[id]
	return v, ok
}

// HasSession reports whether id has a resolved session object.
func (s *Store) HasSession(id SessionID) bool {
	_, ok := s.sessions[id]
	return ok
}

// HasSegment reports whether id has a resolved segment object.
func (s *Store) HasSegment(id SegmentID) bool {
	_, ok := s.segments[id]
	return ok
}

// TracksSession reports whether a fetch for id is cached, pending or not.
func (s *Store) TracksSession(id SessionID) bool {
	_, ok := s.sessionFutures[id]
	return ok
}

// TracksSegment reports whether a fetch for id is cached, pending or not.
func (s *Store) TracksSegment(id SegmentID) bool {
	_, ok := s.segmentFutures[id]
	return ok
}

// SessionIDs returns the ids of resolved sessions in ascending order.
func (s *Store) SessionIDs() []SessionID {
	return slices.Sorted(maps.Keys(s.sessions))
}

// SegmentIDs returns the ids of resolved segments in ascending order.
func (s *Store) SegmentIDs() []SegmentID {
	return slices.Sorted(maps.Keys(s.segments))
}

// SessionFetches returns how many runtime requests were issued for id.
func (s *Store) SessionFetches(id SessionID) int {
	return s.sessionFetches[id]
}

// SegmentFetches returns how many runtime requests were issued for id.
func (s *Store) SegmentFetches(id SegmentID) int {
	return s.segmentFetches[id]
}
