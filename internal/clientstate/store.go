package clientstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cv-optimizer/internal/optimize"
	"cv-optimizer/internal/shared/storage/kv"
	"cv-optimizer/internal/shared/telemetry"
)

// ResetPrompt is shown to the user before the draft is replaced by the master.
const ResetPrompt = "Discard changes and reload Master CV?"

// Optimizer produces a tailored document from a résumé and a job description.
type Optimizer interface {
	Optimize(ctx context.Context, resumeText, jobDescription string) (string, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer func(prompt string) bool

// Options tune time, id generation and timestamp rendering.
type Options struct {
	Now      func() time.Time
	NewID    func() (string, error)
	Location *time.Location
}

// Store holds one client's slots and history on top of a kv backend. All
// methods are safe for concurrent use; state changes are serialised.
type Store struct {
	backend  kv.Store
	now      func() time.Time
	newID    func() (string, error)
	location *time.Location

	mu       sync.Mutex
	loaded   bool
	draft    string
	jd       string
	master   string
	result   string
	history  []HistoryEntry
	status   Status
	inFlight bool

	// Set by Registry so the in-flight guard spans every Store built for
	// the same client.
	flights  *flightGuard
	clientID string
}

// New constructs a Store. Call Load before use.
func New(backend kv.Store, opts Options) *Store {
	s := &Store{
		backend:  backend,
		now:      opts.Now,
		newID:    opts.NewID,
		location: opts.Location,
		status:   StatusIdle,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = newUUIDv7
	}
	if s.location == nil {
		s.location = time.Local
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Load reads every slot from the backend. An empty draft is seeded from the
// master; a malformed history list degrades to empty.
func (s *Store) Load(ctx context.Context) error {
	draft, err := s.read(ctx, KeyDraftResume)
	if err != nil {
		return err
	}
	jd, err := s.read(ctx, KeyDraftJobDescription)
	if err != nil {
		return err
	}
	result, err := s.read(ctx, KeyResult)
	if err != nil {
		return err
	}
	master, err := s.read(ctx, KeyMasterResume)
	if err != nil {
		return err
	}
	rawHistory, err := s.read(ctx, KeyHistory)
	if err != nil {
		return err
	}

	history := []HistoryEntry{}
	if rawHistory != "" {
		if err := json.Unmarshal([]byte(rawHistory), &history); err != nil {
			telemetry.Warn("clientstate.history_malformed", map[string]any{"error": err})
			history = []HistoryEntry{}
		}
	}
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	if draft == "" {
		draft = master
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = draft
	s.jd = jd
	s.result = result
	s.master = master
	s.history = history
	s.loaded = true
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		DraftResume:         s.draft,
		DraftJobDescription: s.jd,
		MasterResume:        s.master,
		HasMaster:           s.master != "",
		Result:              s.result,
		History:             cloneHistory(s.history),
		Status:              s.status,
	}
}

// History returns the entries, newest first.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneHistory(s.history)
}

// AutosaveDrafts records both drafts. Before Load it does nothing. Backend
// failures, including a full quota, are logged and skipped.
func (s *Store) AutosaveDrafts(ctx context.Context, resumeText, jobDescription string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil
	}
	s.draft = resumeText
	s.jd = jobDescription
	s.persistDraftsLocked(ctx)
	return nil
}

// SaveMaster overwrites the master résumé.
func (s *Store) SaveMaster(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(ctx, KeyMasterResume, text); err != nil {
		return &StorageError{Op: "save", Key: KeyMasterResume, Err: err}
	}
	s.master = text
	return nil
}

// ResetDraftFromMaster replaces the draft résumé with the master when one
// exists and the caller confirmed. It returns the new draft.
func (s *Store) ResetDraftFromMaster(ctx context.Context, confirmed bool) (string, error) {
	return s.ResetDraftFromMasterWith(ctx, func(string) bool { return confirmed })
}

// ResetDraftFromMasterWith asks confirm only once a master is known to exist.
// confirm runs without the store lock held, so it may call back into the store.
func (s *Store) ResetDraftFromMasterWith(ctx context.Context, confirm Confirmer) (string, error) {
	master, err := s.read(ctx, KeyMasterResume)
	if err != nil {
		return "", err
	}
	if master == "" {
		return "", ErrNoMaster
	}
	s.mu.Lock()
	s.master = master
	s.mu.Unlock()

	if confirm == nil || !confirm(ResetPrompt) {
		return "", ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The master may have changed while the user was deciding.
	master, err = s.read(ctx, KeyMasterResume)
	if err != nil {
		return "", err
	}
	if master == "" {
		return "", ErrNoMaster
	}
	s.master = master
	s.draft = master
	s.persistDraftsLocked(ctx)
	return s.draft, nil
}

// RecordResult stores text as the current result and prepends a new history
// entry, keeping at most MaxHistory. Persistence failures are logged; the
// in-memory state is updated regardless.
func (s *Store) RecordResult(ctx context.Context, text string) (HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(ctx, text)
}

func (s *Store) recordLocked(ctx context.Context, text string) (HistoryEntry, error) {
	id, err := s.newID()
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("generate history id: %w", err)
	}
	entry := HistoryEntry{
		ID:        id,
		Timestamp: FormatTimestamp(s.now(), s.location),
		Label:     DeriveLabel(text),
		Result:    text,
	}

	s.result = text
	if err := s.backend.Set(ctx, KeyResult, text); err != nil {
		s.warnSkipped(KeyResult, err)
	}

	s.refreshHistoryLocked(ctx)
	next := make([]HistoryEntry, 0, MaxHistory)
	next = append(next, entry)
	next = append(next, s.history...)
	if len(next) > MaxHistory {
		next = next[:MaxHistory]
	}
	s.history = next
	s.persistHistoryLocked(ctx)
	return entry, nil
}

// DeleteEntry removes the entry with id. Unknown ids are a no-op.
func (s *Store) DeleteEntry(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshHistoryLocked(ctx)

	next := make([]HistoryEntry, 0, len(s.history))
	for _, e := range s.history {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(s.history) {
		return
	}
	s.history = next
	s.persistHistoryLocked(ctx)
}

// LoadEntry makes the entry's result current without touching history order.
func (s *Store) LoadEntry(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.history {
		if e.ID == id {
			s.result = e.Result
			if err := s.backend.Set(ctx, KeyResult, e.Result); err != nil {
				s.warnSkipped(KeyResult, err)
			}
			return e.Result, nil
		}
	}
	return "", ErrNotFound
}

// Submit runs one optimization for the given inputs. Only one submission per
// client may be in flight; the drafts are autosaved first and the current
// result is cleared while the request runs.
func (s *Store) Submit(ctx context.Context, opt Optimizer, resumeText, jobDescription string) (HistoryEntry, error) {
	if err := optimize.Validate(resumeText, jobDescription); err != nil {
		return HistoryEntry{}, err
	}

	s.mu.Lock()
	if s.inFlight || !s.flights.acquire(s.clientID) {
		s.mu.Unlock()
		return HistoryEntry{}, ErrInFlight
	}
	s.inFlight = true
	s.status = StatusInFlight
	s.result = ""
	if s.loaded {
		s.draft = resumeText
		s.jd = jobDescription
		s.persistDraftsLocked(ctx)
	}
	s.mu.Unlock()

	text, err := opt.Optimize(ctx, resumeText, jobDescription)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.flights.release(s.clientID)
	if err != nil {
		s.status = StatusError
		return HistoryEntry{}, err
	}
	entry, err := s.recordLocked(ctx, text)
	if err != nil {
		s.status = StatusError
		return HistoryEntry{}, err
	}
	s.status = StatusSuccess
	return entry, nil
}

func (s *Store) persistDraftsLocked(ctx context.Context) {
	if err := s.backend.Set(ctx, KeyDraftResume, s.draft); err != nil {
		s.warnSkipped(KeyDraftResume, err)
		return
	}
	if err := s.backend.Set(ctx, KeyDraftJobDescription, s.jd); err != nil {
		s.warnSkipped(KeyDraftJobDescription, err)
	}
}

func (s *Store) persistHistoryLocked(ctx context.Context) {
	raw, err := json.Marshal(s.history)
	if err != nil {
		s.warnSkipped(KeyHistory, err)
		return
	}
	if err := s.backend.Set(ctx, KeyHistory, string(raw)); err != nil {
		s.warnSkipped(KeyHistory, err)
	}
}

// refreshHistoryLocked adopts the persisted history list when one is readable,
// so entries written through another Store for the same client survive.
func (s *Store) refreshHistoryLocked(ctx context.Context) {
	raw, err := s.read(ctx, KeyHistory)
	if err != nil {
		telemetry.Warn("clientstate.history_refresh_failed", map[string]any{"error": err})
		return
	}
	if raw == "" {
		return
	}
	var persisted []HistoryEntry
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		return
	}
	if len(persisted) > MaxHistory {
		persisted = persisted[:MaxHistory]
	}
	s.history = persisted
}

func (s *Store) warnSkipped(key string, err error) {
	msg := "clientstate.write_failed"
	if IsStorageFull(err) {
		msg = "clientstate.storage_full"
	}
	telemetry.Warn(msg, map[string]any{"key": key, "error": err})
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	val, err := s.backend.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", &StorageError{Op: "load", Key: key, Err: err}
	}
	return val, nil
}

func cloneHistory(in []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(in))
	copy(out, in)
	return out
}
