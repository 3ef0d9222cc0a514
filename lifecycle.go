package ralphflow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/clrke/ralphflow/notify"
	"github.com/clrke/ralphflow/storage"
)

// =============================================================================
// Lifecycle
// =============================================================================

// Lifecycle owns the session registry, the per-project queue, and the
// admission lock table. All mutations go through it; preconditions are
// checked before any state changes, so a rejected operation leaves both
// memory and storage untouched.
type Lifecycle struct {
	store       storage.Store
	broadcaster notify.Broadcaster
	locks       *LockRegistry
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session // by session id
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithBroadcaster sets the event broadcaster. Defaults to a log broadcaster.
func WithBroadcaster(b notify.Broadcaster) LifecycleOption {
	return func(l *Lifecycle) { l.broadcaster = b }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LifecycleOption {
	return func(l *Lifecycle) { l.logger = logger }
}

// WithLockRegistry sets the admission-lock registry, for sharing one table
// across components.
func WithLockRegistry(r *LockRegistry) LifecycleOption {
	return func(l *Lifecycle) { l.locks = r }
}

// NewLifecycle creates a lifecycle manager backed by store.
func NewLifecycle(store storage.Store, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		store:    store,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.broadcaster == nil {
		l.broadcaster = notify.NewLogBroadcaster(nil)
	}
	if l.locks == nil {
		l.locks = NewLockRegistry()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Locks returns the admission-lock registry.
func (l *Lifecycle) Locks() *LockRegistry { return l.locks }

// =============================================================================
// Queries
// =============================================================================

// Session returns a copy of the session with the given id.
func (l *Lifecycle) Session(id string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "get", ErrSessionNotFound)
	}
	cp := *s
	return &cp, nil
}

// SessionByFeature returns a copy of the session for (projectID, featureID),
// if one exists.
func (l *Lifecycle) SessionByFeature(projectID, featureID string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.findFeature(projectID, featureID)
	if s == nil {
		return nil, lifecycleErr(projectID+"/"+featureID, "get", ErrSessionNotFound)
	}
	cp := *s
	return &cp, nil
}

// ProjectSessions returns copies of all sessions for a project: the active
// session first if any, then queued sessions in queue order, then the rest
// by creation time.
func (l *Lifecycle) ProjectSessions(projectID string) []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Session
	for _, s := range l.sessions {
		if s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Active() != b.Active() {
			return a.Active()
		}
		if (a.Status == StatusQueued) != (b.Status == StatusQueued) {
			return a.Status == StatusQueued
		}
		if a.Status == StatusQueued && b.Status == StatusQueued {
			return a.QueuePosition < b.QueuePosition
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// findFeature returns the live (non-terminal) session for a feature, or the
// most recent terminal one when none is live. Callers hold l.mu.
func (l *Lifecycle) findFeature(projectID, featureID string) *Session {
	var terminal *Session
	for _, s := range l.sessions {
		if s.ProjectID != projectID || s.FeatureID != featureID {
			continue
		}
		if !s.Status.Terminal() {
			return s
		}
		if terminal == nil || s.CreatedAt.After(terminal.CreatedAt) {
			terminal = s
		}
	}
	return terminal
}

// activeSession returns the project's active session. Callers hold l.mu.
func (l *Lifecycle) activeSession(projectID string) *Session {
	for _, s := range l.sessions {
		if s.ProjectID == projectID && s.Active() {
			return s
		}
	}
	return nil
}

// queuedSessions returns the project's queued sessions sorted by position.
// Callers hold l.mu.
func (l *Lifecycle) queuedSessions(projectID string) []*Session {
	var out []*Session
	for _, s := range l.sessions {
		if s.ProjectID == projectID && s.Status == StatusQueued {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QueuePosition < out[j].QueuePosition
	})
	return out
}

// =============================================================================
// Create
// =============================================================================

// QueuePlacement names where a new queued session lands.
type QueuePlacement string

// Queue placements.
const (
	PlaceEnd   QueuePlacement = "end"
	PlaceFront QueuePlacement = "front"
	PlaceIndex QueuePlacement = "index"
)

// CreateParams describes a session to create.
type CreateParams struct {
	ProjectID   string
	FeatureID   string
	Title       string
	Description string

	// Placement applies only when the project already has an active
	// session and the new one must queue. Defaults to PlaceEnd.
	Placement QueuePlacement
	// Index is the 1-based queue position for PlaceIndex; clamped into
	// the valid range.
	Index int
}

// CreateSession registers a new session. If the project has no active
// session it starts immediately at discovery; otherwise it queues at the
// requested placement.
func (l *Lifecycle) CreateSession(params CreateParams) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing := l.findFeature(params.ProjectID, params.FeatureID); existing != nil && !existing.Status.Terminal() {
		return nil, lifecycleErr(existing.ID, "create", ErrSessionExists)
	}

	now := time.Now()
	s := &Session{
		ID:           newSessionID(),
		ProjectID:    params.ProjectID,
		FeatureID:    params.FeatureID,
		Title:        params.Title,
		Description:  params.Description,
		CurrentStage: StageDiscovery,
		DataVersion:  1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if l.activeSession(params.ProjectID) == nil {
		s.Status = StatusDiscovery
		l.sessions[s.ID] = s
		l.persist(s)
		l.broadcast(s, notify.EventSessionUpdated, "session created and active", nil)
		cp := *s
		return &cp, nil
	}

	s.Status = StatusQueued
	queue := l.queuedSessions(params.ProjectID)

	pos := len(queue) + 1
	switch params.Placement {
	case PlaceFront:
		pos = 1
	case PlaceIndex:
		pos = params.Index
		if pos < 1 {
			pos = 1
		}
		if pos > len(queue)+1 {
			pos = len(queue) + 1
		}
	}

	// Shift everything at or after the insertion point down by one.
	for _, q := range queue {
		if q.QueuePosition >= pos {
			q.QueuePosition++
			q.touch()
			l.persist(q)
		}
	}
	s.QueuePosition = pos

	l.sessions[s.ID] = s
	l.persist(s)
	l.broadcast(s, notify.EventSessionUpdated, "session created and queued", map[string]any{
		"queuePosition": pos,
	})
	cp := *s
	return &cp, nil
}

// =============================================================================
// Stage Transitions
// =============================================================================

// AdvanceStage moves an active session to another pipeline stage, forward
// or backward, subject to the stage entry gates. version must match the
// session's current DataVersion.
func (l *Lifecycle) AdvanceStage(id string, version int, target Stage) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "advance", ErrSessionNotFound)
	}
	if err := l.checkEdit(s, "advance", version); err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, lifecycleErr(id, "advance", ErrInvalidTransition)
	}
	if !target.Valid() || !CanAdvance(s.Status, target) {
		return nil, lifecycleErr(id, "advance", ErrInvalidTransition)
	}
	if err := checkStageEntry(s, target); err != nil {
		return nil, lifecycleErr(id, "advance", err)
	}

	s.CurrentStage = target
	s.Status = StatusForStage(target)
	s.touch()
	l.persist(s)
	l.broadcast(s, notify.EventStageChanged, "session advanced", map[string]any{
		"stage":  int(target),
		"status": string(s.Status),
	})

	if s.Status.Terminal() {
		l.promoteNext(s.ProjectID)
	}

	cp := *s
	return &cp, nil
}

// ApprovePlan records plan approval on the session, unlocking the
// implementing stage.
func (l *Lifecycle) ApprovePlan(id string, version int) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "approve_plan", ErrSessionNotFound)
	}
	if err := l.checkEdit(s, "approve_plan", version); err != nil {
		return nil, err
	}

	s.PlanApproved = true
	s.touch()
	l.persist(s)
	l.broadcast(s, notify.EventPlanUpdated, "plan approved", nil)
	cp := *s
	return &cp, nil
}

// AttachPR records the pull-request artifact produced by the pr_creation
// stage, unlocking final approval.
func (l *Lifecycle) AttachPR(id string, version int, number int, url string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "attach_pr", ErrSessionNotFound)
	}
	if err := l.checkEdit(s, "attach_pr", version); err != nil {
		return nil, err
	}

	s.PRNumber = number
	s.PRURL = url
	s.touch()
	l.persist(s)
	l.broadcast(s, notify.EventSessionUpdated, "pull request attached", map[string]any{
		"prNumber": number,
		"prUrl":    url,
	})
	cp := *s
	return &cp, nil
}

// ResolveFinalApproval applies a reviewer decision to a session sitting at
// final approval. plan_changes and re_review require feedback text.
func (l *Lifecycle) ResolveFinalApproval(id string, version int, action ApprovalAction, feedback string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "resolve_approval", ErrSessionNotFound)
	}
	if err := l.checkEdit(s, "resolve_approval", version); err != nil {
		return nil, err
	}
	if s.Status != StatusFinalApproval {
		return nil, lifecycleErr(id, "resolve_approval", ErrInvalidTransition)
	}
	if !s.HasPR() {
		return nil, lifecycleErr(id, "resolve_approval", ErrPRMissing)
	}

	outcome, ok := approvalTable[action]
	if !ok {
		return nil, lifecycleErr(id, "resolve_approval", ErrInvalidTransition)
	}
	if outcome.requiresFeedback && feedback == "" {
		return nil, lifecycleErr(id, "resolve_approval", ErrFeedbackRequired)
	}

	s.Status = outcome.status
	s.CurrentStage = outcome.stage
	if outcome.requiresFeedback {
		s.PlanFeedback = feedback
	}
	if outcome.clearsTracking {
		// Sending a session back to planning invalidates the prior
		// approval; the reworked plan must be approved again.
		s.PlanApproved = false
		s.PlanModified = true
	}
	s.touch()
	l.persist(s)
	l.broadcast(s, notify.EventStageChanged, "final approval resolved", map[string]any{
		"action": string(action),
		"stage":  int(s.CurrentStage),
		"status": string(s.Status),
	})

	if s.Status.Terminal() {
		l.promoteNext(s.ProjectID)
	}

	cp := *s
	return &cp, nil
}

// =============================================================================
// Backout / Resume
// =============================================================================

// BackoutAction names how a session leaves the active slot.
type BackoutAction string

// Backout actions.
const (
	BackoutPause   BackoutAction = "pause"
	BackoutAbandon BackoutAction = "abandon"
)

// Backout pauses or abandons a session. If the session was its project's
// active session, the lowest-position queued session is promoted.
func (l *Lifecycle) Backout(id string, version int, action BackoutAction, reason string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "backout", ErrSessionNotFound)
	}
	if err := l.checkEdit(s, "backout", version); err != nil {
		return nil, err
	}
	if s.Status == StatusPaused {
		return nil, lifecycleErr(id, "backout", ErrInvalidTransition)
	}

	wasActive := s.Active()
	wasQueued := s.Status == StatusQueued

	switch action {
	case BackoutPause:
		s.Status = StatusPaused
	case BackoutAbandon:
		s.Status = StatusFailed
	default:
		return nil, lifecycleErr(id, "backout", ErrInvalidTransition)
	}

	s.QueuePosition = 0
	s.BackoutReason = reason
	s.BackoutTimestamp = time.Now()
	s.touch()
	l.persist(s)
	l.broadcast(s, notify.EventSessionUpdated, "session backed out", map[string]any{
		"action": string(action),
		"reason": reason,
	})

	if wasActive {
		l.promoteNext(s.ProjectID)
	} else if wasQueued {
		l.renumberQueue(s.ProjectID)
	}

	cp := *s
	return &cp, nil
}

// Resume reactivates a paused session. If the project has no active session
// it becomes active immediately; otherwise it re-queues at the front.
func (l *Lifecycle) Resume(id string, version int) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[id]
	if !ok {
		return nil, lifecycleErr(id, "resume", ErrSessionNotFound)
	}
	if err := l.checkEdit(s, "resume", version); err != nil {
		return nil, err
	}
	if s.Status != StatusPaused {
		return nil, lifecycleErr(id, "resume", ErrNotPaused)
	}

	s.BackoutReason = ""
	s.BackoutTimestamp = time.Time{}

	if l.activeSession(s.ProjectID) == nil {
		s.Status = StatusForStage(s.CurrentStage)
		s.QueuePosition = 0
		s.touch()
		l.persist(s)
		l.broadcast(s, notify.EventSessionUpdated, "session resumed as active", map[string]any{
			"stage": int(s.CurrentStage),
		})
		cp := *s
		return &cp, nil
	}

	// Another session holds the active slot; jump the queue.
	for _, q := range l.queuedSessions(s.ProjectID) {
		q.QueuePosition++
		q.touch()
		l.persist(q)
	}
	s.Status = StatusQueued
	s.QueuePosition = 1
	s.touch()
	l.persist(s)
	l.broadcast(s, notify.EventSessionUpdated, "session resumed into queue", map[string]any{
		"queuePosition": 1,
	})
	cp := *s
	return &cp, nil
}

// =============================================================================
// Queue Management
// =============================================================================

// ReorderQueue moves the named features to the front of a project's queue in
// the given order. Unknown or non-queued feature ids are ignored; the rest
// of the queue keeps its relative order. The result is renumbered 1..N.
func (l *Lifecycle) ReorderQueue(projectID string, featureIDs []string) ([]*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queue := l.queuedSessions(projectID)
	byFeature := make(map[string]*Session, len(queue))
	for _, q := range queue {
		byFeature[q.FeatureID] = q
	}

	var ordered []*Session
	moved := make(map[string]bool)
	for _, fid := range featureIDs {
		if moved[fid] {
			continue
		}
		q, ok := byFeature[fid]
		if !ok {
			continue
		}
		moved[fid] = true
		ordered = append(ordered, q)
	}
	for _, q := range queue {
		if !moved[q.FeatureID] {
			ordered = append(ordered, q)
		}
	}

	for i, q := range ordered {
		if q.QueuePosition != i+1 {
			q.QueuePosition = i + 1
			q.touch()
			l.persist(q)
		}
	}

	if len(ordered) > 0 {
		l.broadcast(ordered[0], notify.EventQueueReordered, "queue reordered", map[string]any{
			"queueLength": len(ordered),
		})
	}

	out := make([]*Session, len(ordered))
	for i, q := range ordered {
		cp := *q
		out[i] = &cp
	}
	return out, nil
}

// promoteNext moves the lowest-position queued session into the active slot
// and renumbers the rest. Callers hold l.mu.
func (l *Lifecycle) promoteNext(projectID string) {
	queue := l.queuedSessions(projectID)
	if len(queue) == 0 {
		return
	}

	next := queue[0]
	next.Status = StatusForStage(next.CurrentStage)
	next.QueuePosition = 0
	next.touch()
	l.persist(next)
	l.broadcast(next, notify.EventStageChanged, "session promoted from queue", map[string]any{
		"stage":  int(next.CurrentStage),
		"status": string(next.Status),
	})

	for i, q := range queue[1:] {
		if q.QueuePosition != i+1 {
			q.QueuePosition = i + 1
			q.touch()
			l.persist(q)
		}
	}
}

// renumberQueue restores the dense 1..N sequence after a removal.
// Callers hold l.mu.
func (l *Lifecycle) renumberQueue(projectID string) {
	for i, q := range l.queuedSessions(projectID) {
		if q.QueuePosition != i+1 {
			q.QueuePosition = i + 1
			q.touch()
			l.persist(q)
		}
	}
}

// =============================================================================
// Internals
// =============================================================================

// checkEdit rejects edits against terminal sessions or stale versions.
// Callers hold l.mu.
func (l *Lifecycle) checkEdit(s *Session, action string, version int) error {
	if s.Status.Terminal() {
		return lifecycleErr(s.ID, action, ErrTerminalSession)
	}
	if version != s.DataVersion {
		return lifecycleErr(s.ID, action, ErrVersionConflict)
	}
	return nil
}

// persist writes the session document. Storage failures are logged, not
// propagated; the in-memory registry is the source of truth for ordering
// invariants, and the next successful write lands the whole document.
func (l *Lifecycle) persist(s *Session) {
	if l.store == nil {
		return
	}
	if err := l.store.WriteJSON(s.DocumentPath(), s); err != nil {
		l.logger.Error("persist session failed",
			"session_id", s.ID,
			"path", s.DocumentPath(),
			"error", err,
		)
	}
}

// broadcast publishes an event without awaiting delivery.
func (l *Lifecycle) broadcast(s *Session, eventType notify.EventType, message string, payload map[string]any) {
	b := l.broadcaster
	if b == nil {
		return
	}
	event := notify.Event{
		Type:      eventType,
		Channel:   notify.Channel{ProjectID: s.ProjectID, FeatureID: s.FeatureID},
		SessionID: s.ID,
		Message:   message,
		Severity:  notify.SeverityInfo,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.Broadcast(ctx, event); err != nil {
			l.logger.Warn("broadcast failed",
				"event_type", event.Type,
				"error", err,
			)
		}
	}()
}

// LoadSession reads a previously persisted session document into the
// registry, replacing any in-memory copy.
func (l *Lifecycle) LoadSession(projectID, featureID string) (*Session, error) {
	if l.store == nil {
		return nil, errors.New("no store configured")
	}

	var s Session
	path := (&Session{ProjectID: projectID, FeatureID: featureID}).DocumentPath()
	if err := l.store.ReadJSON(path, &s); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, lifecycleErr(projectID+"/"+featureID, "load", ErrSessionNotFound)
		}
		return nil, err
	}

	l.mu.Lock()
	l.sessions[s.ID] = &s
	l.mu.Unlock()

	cp := s
	return &cp, nil
}
