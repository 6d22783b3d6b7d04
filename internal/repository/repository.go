package repository

import (
	"context"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer. Callers classify failures with
// errors.Is against these instead of matching message text.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrConflict     = RepositoryError("conflict")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// TemplateRepository manages admin-authored program blueprints. Days and items
// are embedded in the template document, so authoring writes replace the
// embedded arrays wholesale.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.Template) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error)
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]domain.Template, error)
	Update(ctx context.Context, tpl *domain.Template) error
	Delete(ctx context.Context, id, authorID primitive.ObjectID) error
}

// ProgramRepository manages per-client program rows. Programs are never hard
// deleted; SetStatus soft-deactivates.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Program, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, isActive bool, status domain.ProgramStatus) error
	Delete(ctx context.Context, id primitive.ObjectID) error // Compensation only (failed template copy)
}

// DayRepository manages program training days.
type DayRepository interface {
	Create(ctx context.Context, day *domain.Day) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Day, error)
	GetByProgramID(ctx context.Context, programID primitive.ObjectID) ([]domain.Day, error)
	Update(ctx context.Context, day *domain.Day) error
	UpdateOrder(ctx context.Context, id primitive.ObjectID, order int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ItemRepository manages the exercise entries of a day, including the embedded
// alternatives array.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Item, error)
	GetByDayID(ctx context.Context, dayID primitive.ObjectID) ([]domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	UpdateOrder(ctx context.Context, id primitive.ObjectID, order int) error
	UpdateDefaultWeight(ctx context.Context, id primitive.ObjectID, weightKg float64) error
	UpdateVideoURL(ctx context.Context, id primitive.ObjectID, videoURL string) error
	AddAlternative(ctx context.Context, itemID primitive.ObjectID, alt domain.Alternative) error
	RemoveAlternative(ctx context.Context, itemID, altID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionRepository manages workout session rows.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	// FindOpen returns the single open (endedAt == nil) session for the
	// (user, day) pair, or ErrNotFound.
	FindOpen(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.Session, error)
	// ListRecentCompleted returns finished sessions for (user, day), newest first.
	ListRecentCompleted(ctx context.Context, userID, dayID primitive.ObjectID, limit int) ([]domain.Session, error)
	Close(ctx context.Context, id primitive.ObjectID, endedAt time.Time, durationMinutes int) error
	Touch(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// MarkItemCompleted adds itemID to the session's completed set and reports
	// whether it was newly added. The bool is what makes exercise-complete
	// fire exactly once.
	MarkItemCompleted(ctx context.Context, sessionID, itemID primitive.ObjectID) (bool, error)
}

// SetLogRepository manages set logs. Upsert targets the unique
// (sessionId, itemId, setNumber) triple; Insert/Update/Get exist for the
// select-then-write fallback when the upsert path errors.
type SetLogRepository interface {
	Upsert(ctx context.Context, log *domain.SetLog) error
	Insert(ctx context.Context, log *domain.SetLog) error
	Update(ctx context.Context, log *domain.SetLog) error
	Get(ctx context.Context, sessionID, itemID primitive.ObjectID, setNumber int) (*domain.SetLog, error)
	ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SetLog, error)
	ListBySessionAndItem(ctx context.Context, sessionID, itemID primitive.ObjectID) ([]domain.SetLog, error)
}

// NoteRepository manages per-(session, item) exercise notes.
type NoteRepository interface {
	// Upsert writes notes/rpe/rir for the (session, item) pair; an RPE value
	// is additionally appended to the row's rpeHistory array.
	Upsert(ctx context.Context, note *domain.ExerciseNote) error
	Get(ctx context.Context, sessionID, itemID primitive.ObjectID) (*domain.ExerciseNote, error)
	// ListBySessions returns all notes belonging to the given sessions,
	// most recently updated first.
	ListBySessions(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.ExerciseNote, error)
}

// PreferenceRepository manages per-set weight preferences, unique on
// (userId, itemId, setNumber).
type PreferenceRepository interface {
	Upsert(ctx context.Context, pref *domain.SetWeightPreference) error
	ListByUserAndItems(ctx context.Context, userID primitive.ObjectID, itemIDs []primitive.ObjectID) ([]domain.SetWeightPreference, error)
}

// FeedbackRepository keeps the gating state of the weight-suggestion path,
// unique on (userId, itemId).
type FeedbackRepository interface {
	Get(ctx context.Context, userID, itemID primitive.ObjectID) (*domain.ProgressionFeedback, error)
	Upsert(ctx context.Context, fb *domain.ProgressionFeedback) error
}

// EventRepository appends workout lifecycle events.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.WorkoutEvent) (primitive.ObjectID, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.WorkoutEvent, error)
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
	GetByItemID(ctx context.Context, itemID primitive.ObjectID) (*domain.Upload, error)
}
