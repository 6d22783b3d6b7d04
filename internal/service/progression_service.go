package service

import (
	"context"
	"errors"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/progression"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidFeedback = errors.New("feedback must be too_easy, just_right or too_hard")
	ErrItemNotWeighted = errors.New("exercise has no working weight to adjust")
	ErrNoProposal      = errors.New("no pending weight proposal for this exercise")
)

// RepsSuggestion is the advisory next-rep-target for one exercise.
type RepsSuggestion struct {
	ItemID        primitive.ObjectID `json:"itemId"`
	CurrentReps   int                `json:"currentReps"`
	SuggestedReps int                `json:"suggestedReps"`
	RPE           int                `json:"rpe"`
}

// FeedbackResult reports the outcome of an exertion-feedback submission. A
// nil ProposedWeightKg means the signal was recorded but nothing is proposed
// yet.
type FeedbackResult struct {
	Signal           progression.Feedback `json:"signal"`
	ProposedWeightKg *float64             `json:"proposedWeightKg,omitempty"`
}

type ProgressionService interface {
	// SuggestReps returns a rep-target suggestion for the item, or nil when
	// there is not enough exertion history to say anything.
	SuggestReps(ctx context.Context, userID, itemID primitive.ObjectID) (*RepsSuggestion, error)
	SubmitFeedback(ctx context.Context, userID, itemID primitive.ObjectID, feedback progression.Feedback) (*FeedbackResult, error)
	// ConfirmWeight applies the pending weight proposal to the item's default
	// and clears it.
	ConfirmWeight(ctx context.Context, userID, itemID primitive.ObjectID) (*domain.Item, error)
	EvaluateSession(ctx context.Context, userID, sessionID primitive.ObjectID) error
}

// progressionService drives the two advisory progression paths: the automatic
// rep-target nudge from RPE history and the double-confirmed weight path from
// explicit exertion feedback.
type progressionService struct {
	itemRepo     repository.ItemRepository
	sessionRepo  repository.SessionRepository
	noteRepo     repository.NoteRepository
	feedbackRepo repository.FeedbackRepository
}

func NewProgressionService(
	itemRepo repository.ItemRepository,
	sessionRepo repository.SessionRepository,
	noteRepo repository.NoteRepository,
	feedbackRepo repository.FeedbackRepository,
) ProgressionService {
	return &progressionService{
		itemRepo:     itemRepo,
		sessionRepo:  sessionRepo,
		noteRepo:     noteRepo,
		feedbackRepo: feedbackRepo,
	}
}

// === Reps Suggestion ===

func (s *progressionService) SuggestReps(ctx context.Context, userID, itemID primitive.ObjectID) (*RepsSuggestion, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	note, err := s.latestNote(ctx, userID, item)
	if err != nil {
		// History is advisory; a broken lookup degrades to no suggestion.
		logrus.WithError(err).WithFields(logrus.Fields{
			"userId": userID.Hex(),
			"itemId": itemID.Hex(),
		}).Warn("Failed to load exertion history for suggestion")
		return nil, nil
	}

	rpe, ok := latestRPE(note)
	if !ok {
		return nil, nil
	}
	current, ok := defaultReps(item)
	if !ok {
		return nil, nil
	}

	suggested, err := progression.AdjustReps(current, rpe)
	if err != nil {
		// Corrupt history entry; a suggestion is never worth an error.
		return nil, nil
	}
	return &RepsSuggestion{
		ItemID:        itemID,
		CurrentReps:   current,
		SuggestedReps: suggested,
		RPE:           rpe,
	}, nil
}

// latestNote finds the user's most recent note for the item by walking their
// recent sessions on the item's day. Notes come back newest first.
func (s *progressionService) latestNote(ctx context.Context, userID primitive.ObjectID, item *domain.Item) (*domain.ExerciseNote, error) {
	sessions, err := s.sessionRepo.ListRecentCompleted(ctx, userID, item.DayID, recentSessionLookback)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	sessionIDs := make([]primitive.ObjectID, len(sessions))
	for i, session := range sessions {
		sessionIDs[i] = session.ID
	}
	notes, err := s.noteRepo.ListBySessions(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].ItemID == item.ID {
			return &notes[i], nil
		}
	}
	return nil, nil
}

// latestRPE prefers the append-only history tail over the mutable RPE field.
func latestRPE(note *domain.ExerciseNote) (int, bool) {
	if note == nil {
		return 0, false
	}
	if len(note.RPEHistory) > 0 {
		return note.RPEHistory[len(note.RPEHistory)-1], true
	}
	if note.RPE != nil {
		return *note.RPE, true
	}
	return 0, false
}

// === Gated Weight Path ===

// SubmitFeedback records one exertion signal. Weight changes are only
// proposed when the same directional signal arrives twice in a row; a
// just_right signal resets the gate and withdraws any pending proposal.
func (s *progressionService) SubmitFeedback(ctx context.Context, userID, itemID primitive.ObjectID, feedback progression.Feedback) (*FeedbackResult, error) {
	if !feedback.Valid() {
		return nil, ErrInvalidFeedback
	}
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.Mode() != domain.ModeWeighted {
		return nil, ErrItemNotWeighted
	}

	prior, err := s.feedbackRepo.Get(ctx, userID, itemID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	record := &domain.ProgressionFeedback{
		UserID:     userID,
		ItemID:     itemID,
		LastSignal: string(feedback),
	}

	directional := feedback == progression.FeedbackTooEasy || feedback == progression.FeedbackTooHard
	if directional && prior != nil && prior.LastSignal == string(feedback) {
		proposed := progression.SuggestWeight(item.DefaultWeightKg(), feedback)
		record.ProposedWeightKg = &proposed
	}

	if err := s.feedbackRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	return &FeedbackResult{
		Signal:           feedback,
		ProposedWeightKg: record.ProposedWeightKg,
	}, nil
}

func (s *progressionService) ConfirmWeight(ctx context.Context, userID, itemID primitive.ObjectID) (*domain.Item, error) {
	record, err := s.feedbackRepo.Get(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoProposal
		}
		return nil, err
	}
	if record.ProposedWeightKg == nil {
		return nil, ErrNoProposal
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	weight := *record.ProposedWeightKg
	if err := s.itemRepo.UpdateDefaultWeight(ctx, itemID, weight); err != nil {
		return nil, err
	}
	item.WeightKg = &weight

	// Clear the proposal; the signal chain starts over after an applied
	// change.
	cleared := &domain.ProgressionFeedback{
		UserID:     userID,
		ItemID:     itemID,
		LastSignal: record.LastSignal,
	}
	if err := s.feedbackRepo.Upsert(ctx, cleared); err != nil {
		logrus.WithFields(logrus.Fields{
			"userId": userID.Hex(),
			"itemId": itemID.Hex(),
		}).WithError(err).Warn("failed to clear applied weight proposal")
	}

	return item, nil
}

// === Post-Session Evaluation ===

// EvaluateSession runs after a session closes: every exercise that got an RPE
// in the session has its rep target re-derived and logged. Purely advisory;
// individual failures are logged and skipped.
func (s *progressionService) EvaluateSession(ctx context.Context, userID, sessionID primitive.ObjectID) error {
	notes, err := s.noteRepo.ListBySessions(ctx, []primitive.ObjectID{sessionID})
	if err != nil {
		return err
	}

	for i := range notes {
		note := &notes[i]
		rpe, ok := latestRPE(note)
		if !ok {
			continue
		}
		item, err := s.itemRepo.GetByID(ctx, note.ItemID)
		if err != nil {
			logrus.WithField("itemId", note.ItemID.Hex()).WithError(err).Warn("skipping progression for missing exercise")
			continue
		}
		current, ok := defaultReps(item)
		if !ok {
			continue
		}
		suggested, err := progression.AdjustReps(current, rpe)
		if err != nil {
			continue
		}
		if suggested == current {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"userId":        userID.Hex(),
			"sessionId":     sessionID.Hex(),
			"itemId":        note.ItemID.Hex(),
			"rpe":           rpe,
			"currentReps":   current,
			"suggestedReps": suggested,
		}).Info("progression suggestion")
	}
	return nil
}
