package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/repository"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/tasks"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrProgramNotFound        = errors.New("program not found")
	ErrProgramAccessDenied    = errors.New("program does not belong to this user")
	ErrProgramInactive        = errors.New("program is no longer active")
	ErrDayNotFound            = errors.New("training day not found")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionAccessDenied    = errors.New("session does not belong to this user")
	ErrSessionAlreadyFinished = errors.New("session is already finished")
	ErrItemNotFound           = errors.New("exercise not found")
	ErrItemNotInSession       = errors.New("exercise does not belong to this session's day")
	ErrRepsRequired           = errors.New("a rep count is required for this exercise")
	ErrInvalidSetNumber       = errors.New("set number is out of range for this exercise")
	ErrInvalidRPE             = errors.New("rpe must be between 1 and 10")
	ErrInvalidRIR             = errors.New("rir must be between 0 and 10")
	ErrInvalidWeight          = errors.New("weight must not be negative")
)

// How many finished sessions bootstrap looks back through when hydrating
// previous weights, notes and RIR.
const recentSessionLookback = 5

// defaultWeightEpsilon gates the average-weight reconciliation: the item's
// shared default is only rewritten when the averaged session weight moved by
// more than this.
const defaultWeightEpsilon = 0.1

// SetOverride carries explicit values sent with a set completion. Nil fields
// fall through to the previously logged values and then the item's targets.
type SetOverride struct {
	Reps     *int
	Seconds  *int
	WeightKg *float64
}

// SetCompletionResult is what a completed set hands back to the caller.
type SetCompletionResult struct {
	Log               domain.SetLog `json:"log"`
	ExerciseCompleted bool          `json:"exerciseCompleted"`
	RestSeconds       int           `json:"restSeconds"`
}

// NoteInput is one outstanding per-item note flushed on finish.
type NoteInput struct {
	ItemID primitive.ObjectID
	Notes  string
	RPE    *int
	RIR    *int
}

// ItemContext is one exercise of the bootstrapped session, hydrated with
// everything the runner needs to render it.
type ItemContext struct {
	Item               domain.Item         `json:"item"`
	SetLogs            []domain.SetLog     `json:"setLogs"`
	SetWeightsKg       []float64           `json:"setWeightsKg"` // Index set-1; resolved by priority
	Note               *domain.ExerciseNote `json:"note,omitempty"`
	PreviousRIR        *int                `json:"previousRir,omitempty"`
	CompletedInSession bool                `json:"completedInSession"`
}

// SessionContext is the fully hydrated result of a bootstrap.
type SessionContext struct {
	Session domain.Session `json:"session"`
	Program domain.Program `json:"program"`
	Day     domain.Day     `json:"day"`
	Items   []ItemContext  `json:"items"`
}

// progressionEvaluator is the post-finish hook into the progression service.
type progressionEvaluator interface {
	EvaluateSession(ctx context.Context, userID, sessionID primitive.ObjectID) error
}

type SessionService interface {
	ListPrograms(ctx context.Context, userID primitive.ObjectID) ([]domain.Program, error)
	ProgramOverview(ctx context.Context, userID, programID primitive.ObjectID) (*ProgramDetail, error)
	Bootstrap(ctx context.Context, userID, programID, dayID primitive.ObjectID) (*SessionContext, error)
	CompleteSet(ctx context.Context, userID, sessionID, itemID primitive.ObjectID, setNumber int, override *SetOverride) (*SetCompletionResult, error)
	UpdateSetWeight(ctx context.Context, userID, itemID primitive.ObjectID, setNumber int, weightKg float64) error
	UpdateAllSetWeights(ctx context.Context, userID, itemID primitive.ObjectID, weightKg float64) (*domain.Item, error)
	SaveNoteAsync(ctx context.Context, userID, sessionID, itemID primitive.ObjectID, notes string, rpe, rir *int) error
	Touch(ctx context.Context, userID, sessionID primitive.ObjectID) error
	Finish(ctx context.Context, userID, sessionID primitive.ObjectID, outstanding []NoteInput) (*domain.Session, error)
}

// sessionService implements the SessionService interface. It owns the whole
// session/progression data flow: bootstrap hydration, set logging, weight
// preference sync and session close-out.
type sessionService struct {
	programRepo repository.ProgramRepository
	dayRepo     repository.DayRepository
	itemRepo    repository.ItemRepository
	sessionRepo repository.SessionRepository
	setLogRepo  repository.SetLogRepository
	noteRepo    repository.NoteRepository
	prefRepo    repository.PreferenceRepository
	eventRepo   repository.EventRepository
	queue       *tasks.Queue
	progression progressionEvaluator
}

// NewSessionService creates a new instance of sessionService. The progression
// evaluator may be nil; finishing then simply skips the post-workout
// evaluation.
func NewSessionService(
	programRepo repository.ProgramRepository,
	dayRepo repository.DayRepository,
	itemRepo repository.ItemRepository,
	sessionRepo repository.SessionRepository,
	setLogRepo repository.SetLogRepository,
	noteRepo repository.NoteRepository,
	prefRepo repository.PreferenceRepository,
	eventRepo repository.EventRepository,
	queue *tasks.Queue,
	progression progressionEvaluator,
) SessionService {
	return &sessionService{
		programRepo: programRepo,
		dayRepo:     dayRepo,
		itemRepo:    itemRepo,
		sessionRepo: sessionRepo,
		setLogRepo:  setLogRepo,
		noteRepo:    noteRepo,
		prefRepo:    prefRepo,
		eventRepo:   eventRepo,
		queue:       queue,
		progression: progression,
	}
}

// ListPrograms returns every program assigned to the user, active or not.
func (s *sessionService) ListPrograms(ctx context.Context, userID primitive.ObjectID) ([]domain.Program, error) {
	return s.programRepo.ListByUser(ctx, userID)
}

// ProgramOverview returns the user's own program with its days and exercises,
// the structure the day picker renders before a session starts.
func (s *sessionService) ProgramOverview(ctx context.Context, userID, programID primitive.ObjectID) (*ProgramDetail, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.UserID != userID {
		return nil, ErrProgramAccessDenied
	}

	days, err := s.dayRepo.GetByProgramID(ctx, programID)
	if err != nil {
		return nil, err
	}
	detail := &ProgramDetail{Program: *program, Days: make([]DayDetail, 0, len(days))}
	for _, day := range days {
		items, err := s.itemRepo.GetByDayID(ctx, day.ID)
		if err != nil {
			return nil, err
		}
		detail.Days = append(detail.Days, DayDetail{Day: day, Items: items})
	}
	return detail, nil
}

// === Bootstrap ===

// Bootstrap materializes the in-memory session context: ownership checks,
// find-or-create of the open session, and hydration of logs, weights, notes
// and previous-session RIR.
func (s *sessionService) Bootstrap(ctx context.Context, userID, programID, dayID primitive.ObjectID) (*SessionContext, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.UserID != userID {
		return nil, ErrProgramAccessDenied
	}
	if !program.IsActive {
		return nil, ErrProgramInactive
	}

	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	if day.ProgramID != program.ID {
		return nil, ErrDayNotFound
	}

	items, err := s.itemRepo.GetByDayID(ctx, dayID)
	if err != nil {
		return nil, err
	}

	session, err := s.findOrCreateSession(ctx, userID, program.ID, dayID)
	if err != nil {
		return nil, err
	}

	return s.hydrate(ctx, session, program, day, items)
}

// findOrCreateSession reuses the open session for (user, day) or creates one.
// A losing insert racer (ErrConflict from the partial unique index) re-reads
// the winner instead of failing the bootstrap.
func (s *sessionService) findOrCreateSession(ctx context.Context, userID, programID, dayID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.FindOpen(ctx, userID, dayID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fresh := &domain.Session{
		UserID:    userID,
		ProgramID: programID,
		DayID:     dayID,
		StartedAt: time.Now().UTC(),
	}
	id, err := s.sessionRepo.Create(ctx, fresh)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.sessionRepo.FindOpen(ctx, userID, dayID)
		}
		return nil, err
	}
	fresh.ID = id

	s.enqueue("session-started-event", func(taskCtx context.Context) error {
		_, insertErr := s.eventRepo.Insert(taskCtx, &domain.WorkoutEvent{
			Type:      domain.EventSessionStarted,
			UserID:    userID,
			SessionID: id,
			ProgramID: programID,
			DayID:     dayID,
			Timestamp: fresh.StartedAt,
		})
		return insertErr
	})

	return fresh, nil
}

func (s *sessionService) hydrate(ctx context.Context, session *domain.Session, program *domain.Program, day *domain.Day, items []domain.Item) (*SessionContext, error) {
	currentLogs, err := s.setLogRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	logsByItem := groupLogsByItem(currentLogs)

	itemIDs := make([]primitive.ObjectID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}
	prefs, err := s.prefRepo.ListByUserAndItems(ctx, session.UserID, itemIDs)
	if err != nil {
		return nil, err
	}
	prefsByItem := groupPrefsByItem(prefs)

	previous, err := s.sessionRepo.ListRecentCompleted(ctx, session.UserID, session.DayID, recentSessionLookback)
	if err != nil {
		return nil, err
	}

	// Weights fall back to the most recent *completed* session's logs.
	prevLogsByItem := map[primitive.ObjectID]setLogsBySet{}
	if len(previous) > 0 {
		prevLogs, err := s.setLogRepo.ListBySession(ctx, previous[0].ID)
		if err != nil {
			return nil, err
		}
		prevLogsByItem = groupLogsByItem(prevLogs)
	}

	sessionIDs := []primitive.ObjectID{session.ID}
	for _, prev := range previous {
		sessionIDs = append(sessionIDs, prev.ID)
	}
	notes, err := s.noteRepo.ListBySessions(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	completed := map[primitive.ObjectID]bool{}
	for _, id := range session.CompletedItemIDs {
		completed[id] = true
	}

	contexts := make([]ItemContext, 0, len(items))
	for _, item := range items {
		ic := ItemContext{
			Item:               item,
			SetLogs:            logsByItem[item.ID].ordered(item.TargetSets),
			SetWeightsKg:       make([]float64, item.TargetSets),
			CompletedInSession: completed[item.ID],
		}

		for set := 1; set <= item.TargetSets; set++ {
			ic.SetWeightsKg[set-1] = resolveSetWeight(
				set,
				logsByItem[item.ID],
				prefsByItem[item.ID],
				prevLogsByItem[item.ID],
				item.DefaultWeightKg(),
			)
		}

		// Latest note/RPE for the item, and the latest RIR reported in a
		// *different* (previous) session. Notes arrive newest first.
		for ni := range notes {
			note := notes[ni]
			if note.ItemID != item.ID {
				continue
			}
			if ic.Note == nil {
				ic.Note = &notes[ni]
			}
			if ic.PreviousRIR == nil && note.SessionID != session.ID && note.RIR != nil {
				ic.PreviousRIR = note.RIR
			}
			if ic.Note != nil && ic.PreviousRIR != nil {
				break
			}
		}

		contexts = append(contexts, ic)
	}

	return &SessionContext{
		Session: *session,
		Program: *program,
		Day:     *day,
		Items:   contexts,
	}, nil
}

// resolveSetWeight picks the weight to show for one set slot, highest priority
// first: current-session log, stored per-set preference, last completed
// session's log, item default.
func resolveSetWeight(set int, current setLogsBySet, prefs map[int]float64, previous setLogsBySet, defaultKg float64) float64 {
	if log, ok := current[set]; ok && log.WeightKgDone != nil {
		return *log.WeightKgDone
	}
	if kg, ok := prefs[set]; ok {
		return kg
	}
	if log, ok := previous[set]; ok && log.WeightKgDone != nil {
		return *log.WeightKgDone
	}
	return defaultKg
}

// === Set Completion ===

// CompleteSet durably records one completed set, absorbing duplicate races,
// and reports whether this completion finished the whole exercise.
func (s *sessionService) CompleteSet(ctx context.Context, userID, sessionID, itemID primitive.ObjectID, setNumber int, override *SetOverride) (*SetCompletionResult, error) {
	session, err := s.ownedOpenSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.DayID != session.DayID {
		return nil, ErrItemNotInSession
	}
	if setNumber < 1 || setNumber > item.TargetSets {
		return nil, ErrInvalidSetNumber
	}

	log, err := s.resolveSetValues(ctx, session, item, setNumber, override)
	if err != nil {
		return nil, err
	}

	if err := s.writeSetLog(ctx, log); err != nil {
		return nil, err
	}

	// Secondary write: remember the weight the user actually lifted for this
	// set slot. Best-effort, never rolls back the log.
	if log.WeightKgDone != nil && *log.WeightKgDone > 0 {
		kg := *log.WeightKgDone
		s.enqueue("save-weight-preference", func(taskCtx context.Context) error {
			return s.prefRepo.Upsert(taskCtx, &domain.SetWeightPreference{
				UserID:    userID,
				ItemID:    itemID,
				SetNumber: setNumber,
				WeightKg:  kg,
			})
		})
	}

	exerciseCompleted, err := s.checkExerciseCompleted(ctx, session, item)
	if err != nil {
		// The set itself is saved; completion bookkeeping failing must not
		// undo that. Log and report the set as done.
		logrus.WithFields(logrus.Fields{
			"sessionId": sessionID.Hex(),
			"itemId":    itemID.Hex(),
		}).WithError(err).Error("failed to update exercise completion state")
		exerciseCompleted = false
	}

	return &SetCompletionResult{
		Log:               *log,
		ExerciseCompleted: exerciseCompleted,
		RestSeconds:       item.RestSeconds,
	}, nil
}

// resolveSetValues settles the final reps/seconds/weight: explicit override,
// then the previously logged values for the same set, then the item's targets.
// Timed items tolerate a missing rep count; everything else requires one.
func (s *sessionService) resolveSetValues(ctx context.Context, session *domain.Session, item *domain.Item, setNumber int, override *SetOverride) (*domain.SetLog, error) {
	prior, err := s.setLogRepo.Get(ctx, session.ID, item.ID, setNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	log := &domain.SetLog{
		SessionID:    session.ID,
		ItemID:       item.ID,
		SetNumber:    setNumber,
		MarkedDoneAt: time.Now().UTC(),
	}

	if override != nil && override.Reps != nil {
		log.RepsDone = override.Reps
	} else if prior != nil && prior.RepsDone != nil {
		log.RepsDone = prior.RepsDone
	} else if reps, ok := defaultReps(item); ok {
		log.RepsDone = &reps
	}

	if item.IsTimed() {
		if override != nil && override.Seconds != nil {
			log.SecondsDone = override.Seconds
		} else if prior != nil && prior.SecondsDone != nil {
			log.SecondsDone = prior.SecondsDone
		} else {
			log.SecondsDone = item.Seconds
		}
	} else if log.RepsDone == nil {
		// Weighted and bodyweight sets are meaningless without a rep count.
		return nil, ErrRepsRequired
	}

	if override != nil && override.WeightKg != nil {
		log.WeightKgDone = override.WeightKg
	} else if prior != nil && prior.WeightKgDone != nil {
		log.WeightKgDone = prior.WeightKgDone
	} else if kg := s.preferredWeight(ctx, session.UserID, item, setNumber); kg > 0 {
		log.WeightKgDone = &kg
	} else if item.WeightKg != nil {
		log.WeightKgDone = item.WeightKg
	}

	return log, nil
}

// preferredWeight looks up the stored per-set preference; a miss is just 0.
func (s *sessionService) preferredWeight(ctx context.Context, userID primitive.ObjectID, item *domain.Item, setNumber int) float64 {
	prefs, err := s.prefRepo.ListByUserAndItems(ctx, userID, []primitive.ObjectID{item.ID})
	if err != nil {
		return 0
	}
	for _, pref := range prefs {
		if pref.SetNumber == setNumber {
			return pref.WeightKg
		}
	}
	return 0
}

// writeSetLog upserts on the unique triple; if the upsert path errors it falls
// back to select-then-update-or-insert. Constraint races are absorbed, never
// surfaced.
func (s *sessionService) writeSetLog(ctx context.Context, log *domain.SetLog) error {
	err := s.setLogRepo.Upsert(ctx, log)
	if err == nil {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"sessionId": log.SessionID.Hex(),
		"itemId":    log.ItemID.Hex(),
		"setNumber": log.SetNumber,
	}).WithError(err).Warn("set log upsert failed, using select-then-write fallback")

	_, getErr := s.setLogRepo.Get(ctx, log.SessionID, log.ItemID, log.SetNumber)
	switch {
	case getErr == nil:
		return s.setLogRepo.Update(ctx, log)
	case errors.Is(getErr, repository.ErrNotFound):
		insertErr := s.setLogRepo.Insert(ctx, log)
		if errors.Is(insertErr, repository.ErrConflict) {
			// Lost the insert race; the row exists now, update it.
			return s.setLogRepo.Update(ctx, log)
		}
		return insertErr
	default:
		return getErr
	}
}

// checkExerciseCompleted marks the item complete when every set slot is
// logged. The $addToSet bookkeeping makes the true return fire exactly once,
// however many redundant completions arrive.
func (s *sessionService) checkExerciseCompleted(ctx context.Context, session *domain.Session, item *domain.Item) (bool, error) {
	logs, err := s.setLogRepo.ListBySessionAndItem(ctx, session.ID, item.ID)
	if err != nil {
		return false, err
	}
	distinct := map[int]bool{}
	for _, log := range logs {
		distinct[log.SetNumber] = true
	}
	if len(distinct) < item.TargetSets {
		return false, nil
	}

	newlyCompleted, err := s.sessionRepo.MarkItemCompleted(ctx, session.ID, item.ID)
	if err != nil {
		return false, err
	}

	if newlyCompleted && item.WeightKg != nil {
		s.enqueueWeightReconciliation(session.ID, item.ID)
	}
	return newlyCompleted, nil
}

// enqueueWeightReconciliation averages the exercise's logged set weights and
// rewrites the item default only when the delta beats the epsilon, avoiding
// redundant writes for unchanged weight.
func (s *sessionService) enqueueWeightReconciliation(sessionID, itemID primitive.ObjectID) {
	s.enqueue("reconcile-default-weight", func(taskCtx context.Context) error {
		item, err := s.itemRepo.GetByID(taskCtx, itemID)
		if err != nil {
			return err
		}
		logs, err := s.setLogRepo.ListBySessionAndItem(taskCtx, sessionID, itemID)
		if err != nil {
			return err
		}

		var sum float64
		var count int
		for _, log := range logs {
			if log.WeightKgDone != nil && *log.WeightKgDone > 0 {
				sum += *log.WeightKgDone
				count++
			}
		}
		if count == 0 {
			return nil
		}
		avg := sum / float64(count)
		if math.Abs(avg-item.DefaultWeightKg()) <= defaultWeightEpsilon {
			return nil
		}
		return s.itemRepo.UpdateDefaultWeight(taskCtx, itemID, avg)
	})
}

// === Weight Preferences ===

// UpdateSetWeight persists an explicit user edit of a single set's weight.
func (s *sessionService) UpdateSetWeight(ctx context.Context, userID, itemID primitive.ObjectID, setNumber int, weightKg float64) error {
	if weightKg < 0 {
		return ErrInvalidWeight
	}
	if setNumber < 1 {
		return ErrInvalidSetNumber
	}
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}

	return s.prefRepo.Upsert(ctx, &domain.SetWeightPreference{
		UserID:    userID,
		ItemID:    itemID,
		SetNumber: setNumber,
		WeightKg:  weightKg,
	})
}

// UpdateAllSetWeights persists one weight across every set slot of the item
// and rewrites the item's shared default. The item state is applied
// optimistically and restored when the remote write fails, so the returned
// item always matches what is persisted.
func (s *sessionService) UpdateAllSetWeights(ctx context.Context, userID, itemID primitive.ObjectID, weightKg float64) (*domain.Item, error) {
	if weightKg < 0 {
		return nil, ErrInvalidWeight
	}
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	err = optimisticApply(item,
		func(it *domain.Item) { it.WeightKg = &weightKg },
		func() error {
			for set := 1; set <= item.TargetSets; set++ {
				pref := &domain.SetWeightPreference{
					UserID:    userID,
					ItemID:    itemID,
					SetNumber: set,
					WeightKg:  weightKg,
				}
				if prefErr := s.prefRepo.Upsert(ctx, pref); prefErr != nil {
					return prefErr
				}
			}
			return s.itemRepo.UpdateDefaultWeight(ctx, itemID, weightKg)
		},
	)
	if err != nil {
		return item, err
	}
	return item, nil
}

// === Notes ===

// SaveNoteAsync validates the note synchronously and hands the write to the
// background queue: note autosave is non-critical and must never block the
// workout.
func (s *sessionService) SaveNoteAsync(ctx context.Context, userID, sessionID, itemID primitive.ObjectID, notes string, rpe, rir *int) error {
	if _, err := s.ownedOpenSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := validateExertion(rpe, rir); err != nil {
		return err
	}

	s.enqueue("save-exercise-note", func(taskCtx context.Context) error {
		return s.noteRepo.Upsert(taskCtx, &domain.ExerciseNote{
			SessionID: sessionID,
			ItemID:    itemID,
			Notes:     notes,
			RPE:       rpe,
			RIR:       rir,
		})
	})
	return nil
}

// === Heartbeat ===

// Touch refreshes the session's advisory last-activity stamp.
func (s *sessionService) Touch(ctx context.Context, userID, sessionID primitive.ObjectID) error {
	if _, err := s.ownedOpenSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.sessionRepo.Touch(ctx, sessionID, time.Now().UTC())
}

// === Finish ===

// Finish flushes outstanding notes, closes the session with its computed
// duration, emits the completion event and queues progression evaluation.
// Only the close itself is fatal; every secondary step is best-effort.
func (s *sessionService) Finish(ctx context.Context, userID, sessionID primitive.ObjectID, outstanding []NoteInput) (*domain.Session, error) {
	session, err := s.ownedOpenSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	for _, note := range outstanding {
		if err := validateExertion(note.RPE, note.RIR); err != nil {
			return nil, fmt.Errorf("note for item %s: %w", note.ItemID.Hex(), err)
		}
	}
	for _, note := range outstanding {
		noteErr := s.noteRepo.Upsert(ctx, &domain.ExerciseNote{
			SessionID: sessionID,
			ItemID:    note.ItemID,
			Notes:     note.Notes,
			RPE:       note.RPE,
			RIR:       note.RIR,
		})
		if noteErr != nil {
			logrus.WithFields(logrus.Fields{
				"sessionId": sessionID.Hex(),
				"itemId":    note.ItemID.Hex(),
			}).WithError(noteErr).Warn("failed to flush note on finish")
		}
	}

	endedAt := time.Now().UTC()
	duration := int(endedAt.Sub(session.StartedAt).Minutes())
	if err := s.sessionRepo.Close(ctx, sessionID, endedAt, duration); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionAlreadyFinished
		}
		return nil, err
	}
	session.EndedAt = &endedAt
	session.DurationMinutes = &duration

	s.enqueue("session-finished-event", func(taskCtx context.Context) error {
		_, insertErr := s.eventRepo.Insert(taskCtx, &domain.WorkoutEvent{
			Type:            domain.EventSessionFinished,
			UserID:          userID,
			SessionID:       sessionID,
			ProgramID:       session.ProgramID,
			DayID:           session.DayID,
			DurationMinutes: &duration,
			Timestamp:       endedAt,
		})
		return insertErr
	})

	if s.progression != nil {
		s.enqueue("evaluate-progression", func(taskCtx context.Context) error {
			return s.progression.EvaluateSession(taskCtx, userID, sessionID)
		})
	}

	return session, nil
}

// === Helpers ===

func (s *sessionService) ownedOpenSession(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionAccessDenied
	}
	if !session.IsOpen() {
		return nil, ErrSessionAlreadyFinished
	}
	return session, nil
}

// enqueue submits a background task when a queue is configured, and otherwise
// runs it inline so the write is not silently lost (tests and tools run
// without a queue).
func (s *sessionService) enqueue(name string, run func(ctx context.Context) error) {
	if s.queue != nil {
		s.queue.Enqueue(name, run)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := run(ctx); err != nil {
		logrus.WithField("task", name).WithError(err).Warn("background write failed")
	}
}

func validateExertion(rpe, rir *int) error {
	if rpe != nil && (*rpe < 1 || *rpe > 10) {
		return ErrInvalidRPE
	}
	if rir != nil && (*rir < 0 || *rir > 10) {
		return ErrInvalidRIR
	}
	return nil
}

// defaultReps derives a default rep count from the item's targets: the
// derived total for unilateral items, otherwise the leading number of the
// free-text target ("8-12" defaults to 8).
func defaultReps(item *domain.Item) (int, bool) {
	if total := item.TotalReps(); total != nil {
		return *total, true
	}
	return leadingInt(item.TargetReps)
}

func leadingInt(s string) (int, bool) {
	trimmed := strings.TrimSpace(s)
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// setLogsBySet indexes one item's logs by set number.
type setLogsBySet map[int]domain.SetLog

func (m setLogsBySet) ordered(targetSets int) []domain.SetLog {
	if len(m) == 0 {
		return []domain.SetLog{}
	}
	logs := make([]domain.SetLog, 0, len(m))
	for set := 1; set <= targetSets; set++ {
		if log, ok := m[set]; ok {
			logs = append(logs, log)
		}
	}
	return logs
}

func groupLogsByItem(logs []domain.SetLog) map[primitive.ObjectID]setLogsBySet {
	grouped := map[primitive.ObjectID]setLogsBySet{}
	for _, log := range logs {
		if grouped[log.ItemID] == nil {
			grouped[log.ItemID] = setLogsBySet{}
		}
		grouped[log.ItemID][log.SetNumber] = log
	}
	return grouped
}

func groupPrefsByItem(prefs []domain.SetWeightPreference) map[primitive.ObjectID]map[int]float64 {
	grouped := map[primitive.ObjectID]map[int]float64{}
	for _, pref := range prefs {
		if grouped[pref.ItemID] == nil {
			grouped[pref.ItemID] = map[int]float64{}
		}
		grouped[pref.ItemID][pref.SetNumber] = pref.WeightKg
	}
	return grouped
}
