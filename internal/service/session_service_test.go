package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sessionEnv struct {
	svc         SessionService
	programRepo *fakeProgramRepo
	dayRepo     *fakeDayRepo
	itemRepo    *fakeItemRepo
	sessionRepo *fakeSessionRepo
	setLogRepo  *fakeSetLogRepo
	noteRepo    *fakeNoteRepo
	prefRepo    *fakePrefRepo
	eventRepo   *fakeEventRepo
	evaluator   *recordingEvaluator

	userID    primitive.ObjectID
	programID primitive.ObjectID
	dayID     primitive.ObjectID
}

type recordingEvaluator struct {
	sessions []primitive.ObjectID
}

func (r *recordingEvaluator) EvaluateSession(_ context.Context, _, sessionID primitive.ObjectID) error {
	r.sessions = append(r.sessions, sessionID)
	return nil
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()

	env := &sessionEnv{
		programRepo: newFakeProgramRepo(),
		dayRepo:     newFakeDayRepo(),
		itemRepo:    newFakeItemRepo(),
		sessionRepo: newFakeSessionRepo(),
		setLogRepo:  newFakeSetLogRepo(),
		noteRepo:    newFakeNoteRepo(),
		prefRepo:    newFakePrefRepo(),
		eventRepo:   newFakeEventRepo(),
		evaluator:   &recordingEvaluator{},
		userID:      primitive.NewObjectID(),
	}
	env.svc = NewSessionService(
		env.programRepo, env.dayRepo, env.itemRepo, env.sessionRepo,
		env.setLogRepo, env.noteRepo, env.prefRepo, env.eventRepo,
		nil, // nil queue runs background writes inline, keeping tests deterministic
		env.evaluator,
	)

	program := &domain.Program{
		UserID:   env.userID,
		IsActive: true,
		Status:   domain.ProgramStatusActive,
	}
	id, err := env.programRepo.Create(context.Background(), program)
	require.NoError(t, err)
	env.programID = id

	day := &domain.Day{ProgramID: id, Title: "Day 1", DayOrder: 1}
	dayID, err := env.dayRepo.Create(context.Background(), day)
	require.NoError(t, err)
	env.dayID = dayID

	return env
}

func (e *sessionEnv) addItem(t *testing.T, item domain.Item) primitive.ObjectID {
	t.Helper()
	item.DayID = e.dayID
	item.ProgramID = e.programID
	return e.itemRepo.add(item)
}

func (e *sessionEnv) openSession(t *testing.T) primitive.ObjectID {
	t.Helper()
	ctx, err := e.svc.Bootstrap(context.Background(), e.userID, e.programID, e.dayID)
	require.NoError(t, err)
	return ctx.Session.ID
}

func TestBootstrapCreatesSessionOnce(t *testing.T) {
	env := newSessionEnv(t)
	env.addItem(t, domain.Item{Name: "Squat", TargetSets: 3, TargetReps: "8-12", OrderInDay: 1})

	first, err := env.svc.Bootstrap(context.Background(), env.userID, env.programID, env.dayID)
	require.NoError(t, err)
	require.True(t, first.Session.IsOpen())

	second, err := env.svc.Bootstrap(context.Background(), env.userID, env.programID, env.dayID)
	require.NoError(t, err)
	assert.Equal(t, first.Session.ID, second.Session.ID, "bootstrap must reuse the open session")

	// The start event fires only for the actual creation.
	startEvents := 0
	for _, e := range env.eventRepo.events {
		if e.Type == domain.EventSessionStarted {
			startEvents++
		}
	}
	assert.Equal(t, 1, startEvents)
}

func TestBootstrapOwnershipChecks(t *testing.T) {
	env := newSessionEnv(t)
	env.addItem(t, domain.Item{Name: "Squat", TargetSets: 3, TargetReps: "8"})

	stranger := primitive.NewObjectID()
	_, err := env.svc.Bootstrap(context.Background(), stranger, env.programID, env.dayID)
	assert.ErrorIs(t, err, ErrProgramAccessDenied)

	_, err = env.svc.Bootstrap(context.Background(), env.userID, primitive.NewObjectID(), env.dayID)
	assert.ErrorIs(t, err, ErrProgramNotFound)

	require.NoError(t, env.programRepo.SetStatus(context.Background(), env.programID, false, domain.ProgramStatusArchived))
	_, err = env.svc.Bootstrap(context.Background(), env.userID, env.programID, env.dayID)
	assert.ErrorIs(t, err, ErrProgramInactive)
}

func TestBootstrapWeightPriority(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{
		Name:       "Goblet Squat",
		TargetSets: 3,
		TargetReps: "10",
		WeightKg:   floatPtr(10),
	})

	// Last completed session lifted 8 kg on set 1 and 12 kg on set 3.
	ended := time.Now().Add(-24 * time.Hour)
	prevID := env.sessionRepo.add(domain.Session{
		UserID:    env.userID,
		ProgramID: env.programID,
		DayID:     env.dayID,
		StartedAt: ended.Add(-time.Hour),
		EndedAt:   &ended,
	})
	require.NoError(t, env.setLogRepo.Upsert(context.Background(), &domain.SetLog{
		SessionID: prevID, ItemID: itemID, SetNumber: 1, WeightKgDone: floatPtr(8),
	}))
	require.NoError(t, env.setLogRepo.Upsert(context.Background(), &domain.SetLog{
		SessionID: prevID, ItemID: itemID, SetNumber: 3, WeightKgDone: floatPtr(12),
	}))

	// A stored preference pins set 2 at 4 kg.
	require.NoError(t, env.prefRepo.Upsert(context.Background(), &domain.SetWeightPreference{
		UserID: env.userID, ItemID: itemID, SetNumber: 2, WeightKg: 4,
	}))

	ctx, err := env.svc.Bootstrap(context.Background(), env.userID, env.programID, env.dayID)
	require.NoError(t, err)
	require.Len(t, ctx.Items, 1)
	assert.Equal(t, []float64{8, 4, 12}, ctx.Items[0].SetWeightsKg)

	// Logging 20 kg on set 1 in the live session outranks every other layer.
	_, err = env.svc.CompleteSet(context.Background(), env.userID, ctx.Session.ID, itemID, 1, &SetOverride{WeightKg: floatPtr(20)})
	require.NoError(t, err)

	rehydrated, err := env.svc.Bootstrap(context.Background(), env.userID, env.programID, env.dayID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, rehydrated.Items[0].SetWeightsKg[0])
}

func TestCompleteSetDoubleClickCompletesOnce(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Push-up", TargetSets: 3, TargetReps: "12"})
	sessionID := env.openSession(t)

	for set := 1; set <= 2; set++ {
		result, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, set, nil)
		require.NoError(t, err)
		assert.False(t, result.ExerciseCompleted)
	}

	third, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 3, nil)
	require.NoError(t, err)
	assert.True(t, third.ExerciseCompleted, "third set finishes the exercise")

	// The impatient double click on the last set must not report completion
	// again or create a fourth row.
	repeat, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 3, nil)
	require.NoError(t, err)
	assert.False(t, repeat.ExerciseCompleted)

	logs, err := env.setLogRepo.ListBySessionAndItem(context.Background(), sessionID, itemID)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestWorkoutDayWithMixedSetCounts(t *testing.T) {
	env := newSessionEnv(t)
	ids := []primitive.ObjectID{
		env.addItem(t, domain.Item{Name: "Squat", TargetSets: 3, TargetReps: "8", OrderInDay: 1}),
		env.addItem(t, domain.Item{Name: "Bench", TargetSets: 3, TargetReps: "8", OrderInDay: 2}),
		env.addItem(t, domain.Item{Name: "Farmer carry", TargetSets: 1, TargetReps: "20", OrderInDay: 3}),
	}
	sessionID := env.openSession(t)

	completions := 0
	for i, itemID := range ids {
		sets := 3
		if i == 2 {
			sets = 1
		}
		for set := 1; set <= sets; set++ {
			result, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, set, nil)
			require.NoError(t, err)
			if result.ExerciseCompleted {
				completions++
			}
		}
	}
	assert.Equal(t, 3, completions)

	// Double click on the first item's last set: no new row, no re-completion.
	repeat, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, ids[0], 3, nil)
	require.NoError(t, err)
	assert.False(t, repeat.ExerciseCompleted)

	logs, err := env.setLogRepo.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, logs, 7)

	session, err := env.sessionRepo.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, session.CompletedItemIDs)
}

func TestCompleteSetValueResolution(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{
		Name:       "Row",
		TargetSets: 3,
		TargetReps: "8-12",
		WeightKg:   floatPtr(30),
	})
	sessionID := env.openSession(t)

	// Nothing supplied: reps come from the leading number of the target range,
	// weight from the item default.
	result, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Log.RepsDone)
	assert.Equal(t, 8, *result.Log.RepsDone)
	require.NotNil(t, result.Log.WeightKgDone)
	assert.Equal(t, 30.0, *result.Log.WeightKgDone)

	// Re-completing the same set without values keeps the prior log's values.
	_, err = env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, &SetOverride{Reps: intPtr(10), WeightKg: floatPtr(32.5)})
	require.NoError(t, err)
	again, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, *again.Log.RepsDone)
	assert.Equal(t, 32.5, *again.Log.WeightKgDone)
}

func TestCompleteSetRepsRequired(t *testing.T) {
	env := newSessionEnv(t)
	amrapID := env.addItem(t, domain.Item{Name: "Burpees", TargetSets: 2, TargetReps: "AMRAP"})
	plankID := env.addItem(t, domain.Item{Name: "Plank", TargetSets: 2, TargetReps: "hold", Seconds: intPtr(45)})
	sessionID := env.openSession(t)

	_, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, amrapID, 1, nil)
	assert.ErrorIs(t, err, ErrRepsRequired)

	_, err = env.svc.CompleteSet(context.Background(), env.userID, sessionID, amrapID, 1, &SetOverride{Reps: intPtr(15)})
	require.NoError(t, err)

	// Timed items tolerate a missing rep count and default to the target hold.
	result, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, plankID, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Log.SecondsDone)
	assert.Equal(t, 45, *result.Log.SecondsDone)
}

func TestCompleteSetUnilateralDefaultsToTotalReps(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{
		Name:        "Split Squat",
		TargetSets:  2,
		TargetReps:  "8 per side",
		Unilateral:  true,
		RepsPerSide: intPtr(8),
	})
	sessionID := env.openSession(t)

	result, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Log.RepsDone)
	assert.Equal(t, 16, *result.Log.RepsDone)
}

func TestCompleteSetGuards(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Row", TargetSets: 3, TargetReps: "8"})
	sessionID := env.openSession(t)

	_, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidSetNumber)
	_, err = env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 4, nil)
	assert.ErrorIs(t, err, ErrInvalidSetNumber)

	otherDay := &domain.Day{ProgramID: env.programID, Title: "Day 2", DayOrder: 2}
	otherDayID, err := env.dayRepo.Create(context.Background(), otherDay)
	require.NoError(t, err)
	foreign := env.itemRepo.add(domain.Item{DayID: otherDayID, ProgramID: env.programID, Name: "Curl", TargetSets: 3, TargetReps: "10"})
	_, err = env.svc.CompleteSet(context.Background(), env.userID, sessionID, foreign, 1, nil)
	assert.ErrorIs(t, err, ErrItemNotInSession)

	_, err = env.svc.CompleteSet(context.Background(), primitive.NewObjectID(), sessionID, itemID, 1, nil)
	assert.ErrorIs(t, err, ErrSessionAccessDenied)
}

func TestCompleteSetSurvivesPreferenceWriteFailure(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Press", TargetSets: 3, TargetReps: "8", WeightKg: floatPtr(20)})
	sessionID := env.openSession(t)

	env.prefRepo.upsertErr = errors.New("preference store down")

	result, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, &SetOverride{WeightKg: floatPtr(22.5)})
	require.NoError(t, err, "set completion must not fail with the preference store down")
	assert.Equal(t, 22.5, *result.Log.WeightKgDone)

	log, err := env.setLogRepo.Get(context.Background(), sessionID, itemID, 1)
	require.NoError(t, err)
	assert.Equal(t, 22.5, *log.WeightKgDone)
}

func TestCompleteSetUpsertFallback(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Deadlift", TargetSets: 3, TargetReps: "5", WeightKg: floatPtr(60)})
	sessionID := env.openSession(t)

	env.setLogRepo.upsertErr = errors.New("upsert path unavailable")

	// Insert leg of the fallback.
	_, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, nil)
	require.NoError(t, err)
	log, err := env.setLogRepo.Get(context.Background(), sessionID, itemID, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, *log.RepsDone)

	// Update leg: the row exists now, the fallback must not duplicate it.
	_, err = env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, &SetOverride{Reps: intPtr(4)})
	require.NoError(t, err)
	logs, err := env.setLogRepo.ListBySessionAndItem(context.Background(), sessionID, itemID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 4, *logs[0].RepsDone)
}

func TestCompleteSetReconcilesDefaultWeight(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Press", TargetSets: 2, TargetReps: "8", WeightKg: floatPtr(20)})
	sessionID := env.openSession(t)

	_, err := env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 1, &SetOverride{WeightKg: floatPtr(22.5)})
	require.NoError(t, err)
	_, err = env.svc.CompleteSet(context.Background(), env.userID, sessionID, itemID, 2, &SetOverride{WeightKg: floatPtr(22.5)})
	require.NoError(t, err)

	item, err := env.itemRepo.GetByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, 22.5, item.DefaultWeightKg(), "default follows the session average once the exercise completes")
}

func TestUpdateSetWeight(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Curl", TargetSets: 3, TargetReps: "10", WeightKg: floatPtr(10)})

	require.NoError(t, env.svc.UpdateSetWeight(context.Background(), env.userID, itemID, 2, 12.5))

	prefs, err := env.prefRepo.ListByUserAndItems(context.Background(), env.userID, []primitive.ObjectID{itemID})
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, 2, prefs[0].SetNumber)
	assert.Equal(t, 12.5, prefs[0].WeightKg)

	assert.ErrorIs(t, env.svc.UpdateSetWeight(context.Background(), env.userID, itemID, 2, -1), ErrInvalidWeight)
	assert.ErrorIs(t, env.svc.UpdateSetWeight(context.Background(), env.userID, primitive.NewObjectID(), 2, 10), ErrItemNotFound)
}

func TestUpdateAllSetWeights(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Squat", TargetSets: 3, TargetReps: "8", WeightKg: floatPtr(40)})

	item, err := env.svc.UpdateAllSetWeights(context.Background(), env.userID, itemID, 42.5)
	require.NoError(t, err)
	assert.Equal(t, 42.5, item.DefaultWeightKg())

	prefs, err := env.prefRepo.ListByUserAndItems(context.Background(), env.userID, []primitive.ObjectID{itemID})
	require.NoError(t, err)
	assert.Len(t, prefs, 3)

	stored, err := env.itemRepo.GetByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, 42.5, stored.DefaultWeightKg())
}

func TestUpdateAllSetWeightsRollsBackOnFailure(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Squat", TargetSets: 3, TargetReps: "8", WeightKg: floatPtr(40)})

	env.prefRepo.upsertErr = errors.New("preference store down")

	item, err := env.svc.UpdateAllSetWeights(context.Background(), env.userID, itemID, 42.5)
	require.Error(t, err)
	assert.Equal(t, 40.0, item.DefaultWeightKg(), "returned item must reflect the persisted state after rollback")

	stored, err := env.itemRepo.GetByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, stored.DefaultWeightKg())
}

func TestSaveNoteAppendsRPEHistory(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Row", TargetSets: 3, TargetReps: "8"})
	sessionID := env.openSession(t)

	require.NoError(t, env.svc.SaveNoteAsync(context.Background(), env.userID, sessionID, itemID, "felt heavy", intPtr(8), intPtr(2)))
	require.NoError(t, env.svc.SaveNoteAsync(context.Background(), env.userID, sessionID, itemID, "second set better", intPtr(7), nil))

	note, err := env.noteRepo.Get(context.Background(), sessionID, itemID)
	require.NoError(t, err)
	assert.Equal(t, "second set better", note.Notes)
	assert.Equal(t, []int{8, 7}, note.RPEHistory)

	assert.ErrorIs(t, env.svc.SaveNoteAsync(context.Background(), env.userID, sessionID, itemID, "", intPtr(11), nil), ErrInvalidRPE)
	assert.ErrorIs(t, env.svc.SaveNoteAsync(context.Background(), env.userID, sessionID, itemID, "", nil, intPtr(-1)), ErrInvalidRIR)
}

func TestTouch(t *testing.T) {
	env := newSessionEnv(t)
	env.addItem(t, domain.Item{Name: "Row", TargetSets: 3, TargetReps: "8"})
	sessionID := env.openSession(t)

	before, err := env.sessionRepo.GetByID(context.Background(), sessionID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Touch(context.Background(), env.userID, sessionID))

	after, err := env.sessionRepo.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, after.LastActivityAt.After(before.LastActivityAt) || before.LastActivityAt.IsZero())

	assert.ErrorIs(t, env.svc.Touch(context.Background(), primitive.NewObjectID(), sessionID), ErrSessionAccessDenied)
}

func TestFinish(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Row", TargetSets: 3, TargetReps: "8"})
	sessionID := env.openSession(t)

	session, err := env.svc.Finish(context.Background(), env.userID, sessionID, []NoteInput{
		{ItemID: itemID, Notes: "good session", RPE: intPtr(7)},
	})
	require.NoError(t, err)
	require.NotNil(t, session.EndedAt)
	require.NotNil(t, session.DurationMinutes)

	// Outstanding notes were flushed before the close.
	note, err := env.noteRepo.Get(context.Background(), sessionID, itemID)
	require.NoError(t, err)
	assert.Equal(t, "good session", note.Notes)

	// Completion event carries the duration; evaluation was queued.
	var finished *domain.WorkoutEvent
	for i := range env.eventRepo.events {
		if env.eventRepo.events[i].Type == domain.EventSessionFinished {
			finished = &env.eventRepo.events[i]
		}
	}
	require.NotNil(t, finished)
	assert.Equal(t, *session.DurationMinutes, *finished.DurationMinutes)
	assert.Equal(t, []primitive.ObjectID{sessionID}, env.evaluator.sessions)

	_, err = env.svc.Finish(context.Background(), env.userID, sessionID, nil)
	assert.ErrorIs(t, err, ErrSessionAlreadyFinished)
}

func TestFinishToleratesNoteFlushFailure(t *testing.T) {
	env := newSessionEnv(t)
	itemID := env.addItem(t, domain.Item{Name: "Row", TargetSets: 3, TargetReps: "8"})
	sessionID := env.openSession(t)

	env.noteRepo.upsertErr = errors.New("notes store down")

	session, err := env.svc.Finish(context.Background(), env.userID, sessionID, []NoteInput{
		{ItemID: itemID, Notes: "lost note", RPE: intPtr(6)},
	})
	require.NoError(t, err, "finish must close the session even when note flushing fails")
	assert.False(t, session.IsOpen())
}
