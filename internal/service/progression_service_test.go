package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/progression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type progressionEnv struct {
	svc          ProgressionService
	itemRepo     *fakeItemRepo
	sessionRepo  *fakeSessionRepo
	noteRepo     *fakeNoteRepo
	feedbackRepo *fakeFeedbackRepo

	userID primitive.ObjectID
	dayID  primitive.ObjectID
}

func newProgressionEnv(t *testing.T) *progressionEnv {
	t.Helper()
	env := &progressionEnv{
		itemRepo:     newFakeItemRepo(),
		sessionRepo:  newFakeSessionRepo(),
		noteRepo:     newFakeNoteRepo(),
		feedbackRepo: newFakeFeedbackRepo(),
		userID:       primitive.NewObjectID(),
		dayID:        primitive.NewObjectID(),
	}
	env.svc = NewProgressionService(env.itemRepo, env.sessionRepo, env.noteRepo, env.feedbackRepo)
	return env
}

// addCompletedSessionWithNote seeds one finished session and an exercise note
// carrying the given RPE for the item.
func (e *progressionEnv) addCompletedSessionWithNote(t *testing.T, itemID primitive.ObjectID, rpe int, age time.Duration) {
	t.Helper()
	ended := time.Now().Add(-age)
	sessionID := e.sessionRepo.add(domain.Session{
		UserID:    e.userID,
		DayID:     e.dayID,
		StartedAt: ended.Add(-time.Hour),
		EndedAt:   &ended,
	})
	require.NoError(t, e.noteRepo.Upsert(context.Background(), &domain.ExerciseNote{
		SessionID: sessionID,
		ItemID:    itemID,
		RPE:       &rpe,
	}))
}

func TestSuggestRepsFromLatestRPE(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Row",
		TargetSets: 3,
		TargetReps: "10",
	})
	env.addCompletedSessionWithNote(t, itemID, 5, 24*time.Hour)

	suggestion, err := env.svc.SuggestReps(context.Background(), env.userID, itemID)
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, 10, suggestion.CurrentReps)
	assert.Equal(t, 11, suggestion.SuggestedReps)
	assert.Equal(t, 5, suggestion.RPE)
}

func TestSuggestRepsWithoutHistory(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Row",
		TargetSets: 3,
		TargetReps: "10",
	})

	suggestion, err := env.svc.SuggestReps(context.Background(), env.userID, itemID)
	require.NoError(t, err)
	assert.Nil(t, suggestion, "no exertion history means no suggestion, not an error")

	_, err = env.svc.SuggestReps(context.Background(), env.userID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSuggestRepsDegradesOnHistoryError(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Row",
		TargetSets: 3,
		TargetReps: "10",
	})
	env.addCompletedSessionWithNote(t, itemID, 5, 24*time.Hour)
	env.sessionRepo.listErr = errors.New("primary stepped down")

	suggestion, err := env.svc.SuggestReps(context.Background(), env.userID, itemID)
	require.NoError(t, err, "a broken history lookup must not surface to the caller")
	assert.Nil(t, suggestion)
}

func TestSuggestRepsTargetZoneUnchanged(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Press",
		TargetSets: 3,
		TargetReps: "8-12",
	})
	env.addCompletedSessionWithNote(t, itemID, 7, 24*time.Hour)

	suggestion, err := env.svc.SuggestReps(context.Background(), env.userID, itemID)
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, suggestion.CurrentReps, suggestion.SuggestedReps)
}

func TestSubmitFeedbackRequiresDoubleConfirmation(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Squat",
		TargetSets: 3,
		TargetReps: "8",
		WeightKg:   floatPtr(50),
	})

	// First signal records the direction but proposes nothing.
	first, err := env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackTooEasy)
	require.NoError(t, err)
	assert.Nil(t, first.ProposedWeightKg)

	// The repeated signal opens a proposal: 2% of 50 kg is 1 kg.
	second, err := env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackTooEasy)
	require.NoError(t, err)
	require.NotNil(t, second.ProposedWeightKg)
	assert.Equal(t, 51.0, *second.ProposedWeightKg)
}

func TestSubmitFeedbackJustRightResetsGate(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Squat",
		TargetSets: 3,
		TargetReps: "8",
		WeightKg:   floatPtr(50),
	})

	_, err := env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackTooEasy)
	require.NoError(t, err)
	_, err = env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackJustRight)
	require.NoError(t, err)

	// The chain restarted; a single too_easy proposes nothing again.
	result, err := env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackTooEasy)
	require.NoError(t, err)
	assert.Nil(t, result.ProposedWeightKg)
}

func TestSubmitFeedbackRejectsNonWeightedItems(t *testing.T) {
	env := newProgressionEnv(t)
	bodyweight := env.itemRepo.add(domain.Item{DayID: env.dayID, Name: "Push-up", TargetSets: 3, TargetReps: "12"})

	_, err := env.svc.SubmitFeedback(context.Background(), env.userID, bodyweight, progression.FeedbackTooEasy)
	assert.ErrorIs(t, err, ErrItemNotWeighted)

	_, err = env.svc.SubmitFeedback(context.Background(), env.userID, bodyweight, "way_too_easy")
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestConfirmWeightAppliesAndClearsProposal(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Squat",
		TargetSets: 3,
		TargetReps: "8",
		WeightKg:   floatPtr(50),
	})

	_, err := env.svc.ConfirmWeight(context.Background(), env.userID, itemID)
	assert.ErrorIs(t, err, ErrNoProposal, "nothing to confirm before a proposal exists")

	_, err = env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackTooHard)
	require.NoError(t, err)
	proposal, err := env.svc.SubmitFeedback(context.Background(), env.userID, itemID, progression.FeedbackTooHard)
	require.NoError(t, err)
	require.NotNil(t, proposal.ProposedWeightKg)
	assert.Equal(t, 49.0, *proposal.ProposedWeightKg)

	item, err := env.svc.ConfirmWeight(context.Background(), env.userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, 49.0, item.DefaultWeightKg())

	stored, err := env.itemRepo.GetByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, 49.0, stored.DefaultWeightKg())

	// The proposal is consumed; confirming again is a no-op error.
	_, err = env.svc.ConfirmWeight(context.Background(), env.userID, itemID)
	assert.ErrorIs(t, err, ErrNoProposal)
}

func TestEvaluateSessionSkipsBrokenEntries(t *testing.T) {
	env := newProgressionEnv(t)
	itemID := env.itemRepo.add(domain.Item{
		DayID:      env.dayID,
		Name:       "Row",
		TargetSets: 3,
		TargetReps: "10",
	})

	ended := time.Now()
	sessionID := env.sessionRepo.add(domain.Session{
		UserID:    env.userID,
		DayID:     env.dayID,
		StartedAt: ended.Add(-time.Hour),
		EndedAt:   &ended,
	})
	rpe := 9
	require.NoError(t, env.noteRepo.Upsert(context.Background(), &domain.ExerciseNote{
		SessionID: sessionID, ItemID: itemID, RPE: &rpe,
	}))
	// A note pointing at a deleted exercise must not fail the evaluation.
	require.NoError(t, env.noteRepo.Upsert(context.Background(), &domain.ExerciseNote{
		SessionID: sessionID, ItemID: primitive.NewObjectID(), RPE: &rpe,
	}))

	assert.NoError(t, env.svc.EvaluateSession(context.Background(), env.userID, sessionID))
}
