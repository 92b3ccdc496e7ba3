package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"scoreboard/internal/blob"
	"scoreboard/internal/cache"
	"scoreboard/internal/core"
	"scoreboard/internal/log"
	"scoreboard/internal/persist"
)

// View is everything a renderer needs for one revision of the board.
type View struct {
	State    core.State
	Earnings core.Earnings
	Summary  []core.KidSummary
}

// RolloverOutcome reports what a reset request did.
type RolloverOutcome struct {
	Confirmed bool
	Result    core.RolloverResult
	View      View
}

// Options tunes a ScoreboardService.
type Options struct {
	ViewCacheSize int
	Logger        *log.Logger
}

// ScoreboardService owns the single authoritative snapshot. Every mutation
// goes through it: apply, persist, then publish the new revision.
//
// Another process (scoreboardctl) may write the same store. Before each
// mutation the service compares the stored slots with the ones it last read
// or wrote and reloads when they differ, so an outside change is built on
// rather than overwritten.
type ScoreboardService struct {
	mu      sync.Mutex
	state   core.State
	loaded  bool
	dirty   bool
	saveErr error
	// synced holds the slots as last read from or written to the store.
	synced   map[string][]byte
	store    blob.Store
	notifier Notifier
	views    *cache.LRU[uint64, View]
	logger   *log.Logger
	events   *log.StructuredLogger
}

// NewScoreboardService starts from the default board until Load is called.
// notifier may be nil.
func NewScoreboardService(store blob.Store, notifier Notifier, opts Options) *ScoreboardService {
	if opts.ViewCacheSize < 1 {
		opts.ViewCacheSize = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent(log.ComponentBoard)
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ScoreboardService{
		state:    core.DefaultState(),
		store:    store,
		notifier: notifier,
		views:    cache.NewLRU[uint64, View](opts.ViewCacheSize, 0),
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
	}
}

// Load reads the persisted board once. Later calls are no-ops. Slots that
// were missing or malformed fall back to defaults and are returned.
func (s *ScoreboardService) Load(ctx context.Context) []persist.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	raw, readIssues := persist.Read(ctx, s.store)
	st, issues := persist.Decode(raw)
	issues = append(readIssues, issues...)
	if len(readIssues) == 0 {
		s.synced = raw
	}
	for _, issue := range issues {
		s.logger.WarnContext(ctx, "Slot fell back to default", log.FieldSlot, issue.Key, log.FieldError, issue.Err)
	}
	s.state = st
	s.loaded = true
	s.logger.InfoContext(ctx, "Scoreboard loaded",
		"kids", st.KidCount(),
		"tasks", len(st.Tasks),
		"issues", len(issues))
	return issues
}

// State returns the current snapshot. Callers must treat it as read-only.
func (s *ScoreboardService) State() core.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the derived view of the current snapshot, memoized per revision.
func (s *ScoreboardService) View() View {
	return s.viewOf(s.State())
}

func (s *ScoreboardService) viewOf(st core.State) View {
	if v, ok := s.views.Get(st.Revision); ok {
		return v
	}
	v := View{State: st, Earnings: core.ComputeEarnings(st), Summary: core.Summarize(st)}
	s.views.Set(st.Revision, v)
	return v
}

// ViewCacheStats reports memoization hits and misses.
func (s *ScoreboardService) ViewCacheStats() cache.Stats { return s.views.Stats() }

// Apply runs one command against the current snapshot and persists the result.
// A failed save is logged and retried later; the transition is kept.
func (s *ScoreboardService) Apply(ctx context.Context, cmd core.Command) (View, error) {
	s.mu.Lock()
	s.refreshLocked(ctx)
	next, err := core.ApplyCommand(s.state, cmd)
	if err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	s.state = next
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.events.LogCommandApplied(ctx, cmd.Name, cmd.Args, next.Revision)
	return s.viewOf(next), nil
}

func (s *ScoreboardService) RenameKid(ctx context.Context, kid int, name string) (View, error) {
	return s.Apply(ctx, core.Command{Name: core.CmdRenameKid, Args: core.Args{"kid": strconv.Itoa(kid), "name": name}})
}

func (s *ScoreboardService) RenameTask(ctx context.Context, id int64, name string) (View, error) {
	return s.Apply(ctx, core.Command{Name: core.CmdRenameTask, Args: core.Args{"task": formatID(id), "name": name}})
}

func (s *ScoreboardService) SetTaskValue(ctx context.Context, id int64, raw string) (View, error) {
	return s.Apply(ctx, core.Command{Name: core.CmdSetTaskValue, Args: core.Args{"task": formatID(id), "value": raw}})
}

// AddTask appends a default task and returns it with the new view.
func (s *ScoreboardService) AddTask(ctx context.Context) (core.Task, View, error) {
	v, err := s.Apply(ctx, core.Command{Name: core.CmdAddTask})
	if err != nil {
		return core.Task{}, View{}, err
	}
	tasks := v.State.Tasks
	return tasks[len(tasks)-1], v, nil
}

func (s *ScoreboardService) RemoveTask(ctx context.Context, id int64) (View, error) {
	return s.Apply(ctx, core.Command{Name: core.CmdRemoveTask, Args: core.Args{"task": formatID(id)}})
}

func (s *ScoreboardService) ToggleCompletion(ctx context.Context, kid int, id int64, day core.Day, sub int) (View, error) {
	return s.Apply(ctx, core.Command{Name: core.CmdToggleCompletion, Args: core.Args{
		"kid":  strconv.Itoa(kid),
		"task": formatID(id),
		"day":  strconv.Itoa(int(day)),
		"sub":  strconv.Itoa(sub),
	}})
}

// ResetWeek asks confirmer before banking the week. Declining changes
// nothing. The confirmer is consulted without holding the lock, so a slow
// prompt never blocks readers.
func (s *ScoreboardService) ResetWeek(ctx context.Context, confirmer Confirmer) (RolloverOutcome, error) {
	ok, err := confirmer.Confirm(ctx, core.RolloverPrompt)
	if err != nil {
		return RolloverOutcome{}, fmt.Errorf("confirm rollover: %w", err)
	}
	if !ok {
		return RolloverOutcome{Confirmed: false, View: s.View()}, nil
	}

	s.mu.Lock()
	s.refreshLocked(ctx)
	next, res := s.state.Rollover()
	s.state = next
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.events.LogRollover(ctx, next.KidCount(), next.Revision)
	if err := s.notifier.NotifyRollover(ctx, next.KidNames, res, next.Revision); err != nil {
		s.logger.WarnContext(ctx, "Rollover notice not delivered", log.FieldError, err)
	}
	return RolloverOutcome{Confirmed: true, Result: res, View: s.viewOf(next)}, nil
}

// Replace swaps in an imported snapshot. Its revision is moved past the
// current one so cached views are never reused.
func (s *ScoreboardService) Replace(ctx context.Context, st core.State) View {
	s.mu.Lock()
	st.Revision = s.state.Revision + 1
	s.state = st
	s.loaded = true
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Scoreboard replaced", log.FieldRevision, st.Revision)
	return s.viewOf(st)
}

// FlushPending retries a save that failed earlier. It is a no-op when the
// store is up to date.
func (s *ScoreboardService) FlushPending(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	s.saveLocked(ctx)
	return s.saveErr
}

// LastSaveError returns the error of the most recent save, or nil.
func (s *ScoreboardService) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

func (s *ScoreboardService) saveLocked(ctx context.Context) {
	blobs, err := persist.Encode(s.state)
	if err == nil {
		err = persist.Write(ctx, s.store, blobs)
	}
	s.saveErr = err
	s.dirty = err != nil
	if err != nil {
		s.events.LogError(ctx, "Failed to persist scoreboard", err, log.ComponentPersist, log.OpSave,
			log.NewFields().WithRevision(s.state.Revision))
		return
	}
	s.synced = blobs
}

// refreshLocked adopts the stored board when another process changed it
// since this service last read or wrote it. A pending unsaved change wins
// over the store, as does a store that cannot be read right now.
func (s *ScoreboardService) refreshLocked(ctx context.Context) {
	if !s.loaded {
		return
	}
	raw, readIssues := persist.Read(ctx, s.store)
	if len(readIssues) > 0 || persist.SameSlots(raw, s.synced) {
		return
	}
	if s.dirty {
		s.logger.WarnContext(ctx, "Store changed while a save is pending, keeping local board",
			log.FieldRevision, s.state.Revision)
		return
	}
	st, issues := persist.Decode(raw)
	for _, issue := range issues {
		s.logger.WarnContext(ctx, "Slot fell back to default", log.FieldSlot, issue.Key, log.FieldError, issue.Err)
	}
	// Move past the current revision so memoized views are not reused.
	st.Revision = s.state.Revision + 1
	s.state = st
	s.synced = raw
	s.logger.InfoContext(ctx, "Scoreboard changed in store, reloaded", log.FieldRevision, st.Revision)
}

// IsInvalidInput reports whether err was caused by a bad index or argument
// rather than a failure of the service itself.
func IsInvalidInput(err error) bool {
	return errors.Is(err, core.ErrKidOutOfRange) ||
		errors.Is(err, core.ErrTaskNotFound) ||
		errors.Is(err, core.ErrDayOutOfRange) ||
		errors.Is(err, core.ErrSubFlagOutOfRange) ||
		errors.Is(err, core.ErrInvalidArgument) ||
		errors.Is(err, core.ErrUnknownCommand)
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
