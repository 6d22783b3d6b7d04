package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. Error fields inject failures for the paths that
// have to keep working when a secondary write breaks.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*domain.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	user.ID = primitive.NewObjectID()
	cp := *user
	f.users[user.ID] = &cp
	return user.ID, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeTemplateRepo struct {
	templates map[primitive.ObjectID]*domain.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[primitive.ObjectID]*domain.Template{}}
}

func (f *fakeTemplateRepo) Create(_ context.Context, tpl *domain.Template) (primitive.ObjectID, error) {
	tpl.ID = primitive.NewObjectID()
	cp := *tpl
	f.templates[tpl.ID] = &cp
	return tpl.ID, nil
}

func (f *fakeTemplateRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (f *fakeTemplateRepo) ListByAuthor(_ context.Context, authorID primitive.ObjectID) ([]domain.Template, error) {
	var out []domain.Template
	for _, tpl := range f.templates {
		if tpl.AuthorID == authorID {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) Update(_ context.Context, tpl *domain.Template) error {
	if _, ok := f.templates[tpl.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *tpl
	f.templates[tpl.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) Delete(_ context.Context, id, authorID primitive.ObjectID) error {
	tpl, ok := f.templates[id]
	if !ok || tpl.AuthorID != authorID {
		return repository.ErrNotFound
	}
	delete(f.templates, id)
	return nil
}

type fakeProgramRepo struct {
	programs map[primitive.ObjectID]*domain.Program
}

func newFakeProgramRepo() *fakeProgramRepo {
	return &fakeProgramRepo{programs: map[primitive.ObjectID]*domain.Program{}}
}

func (f *fakeProgramRepo) Create(_ context.Context, program *domain.Program) (primitive.ObjectID, error) {
	program.ID = primitive.NewObjectID()
	cp := *program
	f.programs[program.ID] = &cp
	return program.ID, nil
}

func (f *fakeProgramRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Program, error) {
	p, ok := f.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgramRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Program, error) {
	var out []domain.Program
	for _, p := range f.programs {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProgramRepo) SetStatus(_ context.Context, id primitive.ObjectID, isActive bool, status domain.ProgramStatus) error {
	p, ok := f.programs[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = isActive
	p.Status = status
	return nil
}

func (f *fakeProgramRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(f.programs, id)
	return nil
}

type fakeDayRepo struct {
	days             map[primitive.ObjectID]*domain.Day
	updateOrderCalls int
	createErrAfter   int // fail Create once this many rows exist; 0 disables
}

func newFakeDayRepo() *fakeDayRepo {
	return &fakeDayRepo{days: map[primitive.ObjectID]*domain.Day{}}
}

func (f *fakeDayRepo) Create(_ context.Context, day *domain.Day) (primitive.ObjectID, error) {
	if f.createErrAfter > 0 && len(f.days) >= f.createErrAfter {
		return primitive.NilObjectID, fmt.Errorf("day insert failed")
	}
	day.ID = primitive.NewObjectID()
	cp := *day
	f.days[day.ID] = &cp
	return day.ID, nil
}

func (f *fakeDayRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Day, error) {
	d, ok := f.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDayRepo) GetByProgramID(_ context.Context, programID primitive.ObjectID) ([]domain.Day, error) {
	var out []domain.Day
	for _, d := range f.days {
		if d.ProgramID == programID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOrder < out[j].DayOrder })
	return out, nil
}

func (f *fakeDayRepo) Update(_ context.Context, day *domain.Day) error {
	if _, ok := f.days[day.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *day
	f.days[day.ID] = &cp
	return nil
}

func (f *fakeDayRepo) UpdateOrder(_ context.Context, id primitive.ObjectID, order int) error {
	d, ok := f.days[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.updateOrderCalls++
	d.DayOrder = order
	return nil
}

func (f *fakeDayRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(f.days, id)
	return nil
}

type fakeItemRepo struct {
	items            map[primitive.ObjectID]*domain.Item
	updateOrderCalls int
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[primitive.ObjectID]*domain.Item{}}
}

func (f *fakeItemRepo) add(item domain.Item) primitive.ObjectID {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	f.items[item.ID] = &item
	return item.ID
}

func (f *fakeItemRepo) Create(_ context.Context, item *domain.Item) (primitive.ObjectID, error) {
	item.ID = primitive.NewObjectID()
	cp := *item
	f.items[item.ID] = &cp
	return item.ID, nil
}

func (f *fakeItemRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItemRepo) GetByDayID(_ context.Context, dayID primitive.ObjectID) ([]domain.Item, error) {
	var out []domain.Item
	for _, it := range f.items {
		if it.DayID == dayID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInDay < out[j].OrderInDay })
	return out, nil
}

func (f *fakeItemRepo) Update(_ context.Context, item *domain.Item) error {
	if _, ok := f.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeItemRepo) UpdateOrder(_ context.Context, id primitive.ObjectID, order int) error {
	it, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.updateOrderCalls++
	it.OrderInDay = order
	return nil
}

func (f *fakeItemRepo) UpdateDefaultWeight(_ context.Context, id primitive.ObjectID, weightKg float64) error {
	it, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	it.WeightKg = &weightKg
	return nil
}

func (f *fakeItemRepo) UpdateVideoURL(_ context.Context, id primitive.ObjectID, videoURL string) error {
	it, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	it.VideoURL = videoURL
	return nil
}

func (f *fakeItemRepo) AddAlternative(_ context.Context, itemID primitive.ObjectID, alt domain.Alternative) error {
	it, ok := f.items[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	it.Alternatives = append(it.Alternatives, alt)
	return nil
}

func (f *fakeItemRepo) RemoveAlternative(_ context.Context, itemID, altID primitive.ObjectID) error {
	it, ok := f.items[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, alt := range it.Alternatives {
		if alt.ID == altID {
			it.Alternatives = append(it.Alternatives[:i], it.Alternatives[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeItemRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(f.items, id)
	return nil
}

type fakeSessionRepo struct {
	sessions  map[primitive.ObjectID]*domain.Session
	createErr error
	listErr   error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[primitive.ObjectID]*domain.Session{}}
}

func (f *fakeSessionRepo) add(session domain.Session) primitive.ObjectID {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	f.sessions[session.ID] = &session
	return session.ID
}

func (f *fakeSessionRepo) Create(_ context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	for _, s := range f.sessions {
		if s.UserID == session.UserID && s.DayID == session.DayID && s.EndedAt == nil {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	session.ID = primitive.NewObjectID()
	cp := *session
	f.sessions[session.ID] = &cp
	return session.ID, nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) FindOpen(_ context.Context, userID, dayID primitive.ObjectID) (*domain.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.DayID == dayID && s.EndedAt == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionRepo) ListRecentCompleted(_ context.Context, userID, dayID primitive.ObjectID, limit int) ([]domain.Session, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.DayID == dayID && s.EndedAt != nil {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(*out[j].EndedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSessionRepo) Close(_ context.Context, id primitive.ObjectID, endedAt time.Time, durationMinutes int) error {
	s, ok := f.sessions[id]
	if !ok || s.EndedAt != nil {
		return repository.ErrNotFound
	}
	s.EndedAt = &endedAt
	s.DurationMinutes = &durationMinutes
	return nil
}

func (f *fakeSessionRepo) Touch(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.LastActivityAt = at
	return nil
}

func (f *fakeSessionRepo) MarkItemCompleted(_ context.Context, sessionID, itemID primitive.ObjectID) (bool, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for _, existing := range s.CompletedItemIDs {
		if existing == itemID {
			return false, nil
		}
	}
	s.CompletedItemIDs = append(s.CompletedItemIDs, itemID)
	return true, nil
}

type setLogKey struct {
	sessionID primitive.ObjectID
	itemID    primitive.ObjectID
	setNumber int
}

type fakeSetLogRepo struct {
	logs      map[setLogKey]*domain.SetLog
	upsertErr error // forces the select-then-write fallback
}

func newFakeSetLogRepo() *fakeSetLogRepo {
	return &fakeSetLogRepo{logs: map[setLogKey]*domain.SetLog{}}
}

func (f *fakeSetLogRepo) key(log *domain.SetLog) setLogKey {
	return setLogKey{log.SessionID, log.ItemID, log.SetNumber}
}

func (f *fakeSetLogRepo) Upsert(_ context.Context, log *domain.SetLog) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *log
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	f.logs[f.key(log)] = &cp
	return nil
}

func (f *fakeSetLogRepo) Insert(_ context.Context, log *domain.SetLog) error {
	if _, ok := f.logs[f.key(log)]; ok {
		return repository.ErrConflict
	}
	cp := *log
	cp.ID = primitive.NewObjectID()
	f.logs[f.key(log)] = &cp
	return nil
}

func (f *fakeSetLogRepo) Update(_ context.Context, log *domain.SetLog) error {
	existing, ok := f.logs[f.key(log)]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *log
	cp.ID = existing.ID
	f.logs[f.key(log)] = &cp
	return nil
}

func (f *fakeSetLogRepo) Get(_ context.Context, sessionID, itemID primitive.ObjectID, setNumber int) (*domain.SetLog, error) {
	log, ok := f.logs[setLogKey{sessionID, itemID, setNumber}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *log
	return &cp, nil
}

func (f *fakeSetLogRepo) ListBySession(_ context.Context, sessionID primitive.ObjectID) ([]domain.SetLog, error) {
	var out []domain.SetLog
	for _, log := range f.logs {
		if log.SessionID == sessionID {
			out = append(out, *log)
		}
	}
	return out, nil
}

func (f *fakeSetLogRepo) ListBySessionAndItem(_ context.Context, sessionID, itemID primitive.ObjectID) ([]domain.SetLog, error) {
	var out []domain.SetLog
	for _, log := range f.logs {
		if log.SessionID == sessionID && log.ItemID == itemID {
			out = append(out, *log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SetNumber < out[j].SetNumber })
	return out, nil
}

type noteKey struct {
	sessionID primitive.ObjectID
	itemID    primitive.ObjectID
}

type fakeNoteRepo struct {
	notes     map[noteKey]*domain.ExerciseNote
	upsertErr error
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: map[noteKey]*domain.ExerciseNote{}}
}

func (f *fakeNoteRepo) Upsert(_ context.Context, note *domain.ExerciseNote) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := noteKey{note.SessionID, note.ItemID}
	existing, ok := f.notes[key]
	if !ok {
		existing = &domain.ExerciseNote{
			ID:        primitive.NewObjectID(),
			SessionID: note.SessionID,
			ItemID:    note.ItemID,
		}
		f.notes[key] = existing
	}
	existing.Notes = note.Notes
	existing.RPE = note.RPE
	existing.RIR = note.RIR
	if note.RPE != nil {
		existing.RPEHistory = append(existing.RPEHistory, *note.RPE)
	}
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeNoteRepo) Get(_ context.Context, sessionID, itemID primitive.ObjectID) (*domain.ExerciseNote, error) {
	note, ok := f.notes[noteKey{sessionID, itemID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *note
	return &cp, nil
}

func (f *fakeNoteRepo) ListBySessions(_ context.Context, sessionIDs []primitive.ObjectID) ([]domain.ExerciseNote, error) {
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	var out []domain.ExerciseNote
	for _, note := range f.notes {
		if wanted[note.SessionID] {
			out = append(out, *note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type prefKey struct {
	userID    primitive.ObjectID
	itemID    primitive.ObjectID
	setNumber int
}

type fakePrefRepo struct {
	prefs     map[prefKey]*domain.SetWeightPreference
	upsertErr error
}

func newFakePrefRepo() *fakePrefRepo {
	return &fakePrefRepo{prefs: map[prefKey]*domain.SetWeightPreference{}}
}

func (f *fakePrefRepo) Upsert(_ context.Context, pref *domain.SetWeightPreference) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *pref
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	cp.UpdatedAt = time.Now().UTC()
	f.prefs[prefKey{pref.UserID, pref.ItemID, pref.SetNumber}] = &cp
	return nil
}

func (f *fakePrefRepo) ListByUserAndItems(_ context.Context, userID primitive.ObjectID, itemIDs []primitive.ObjectID) ([]domain.SetWeightPreference, error) {
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []domain.SetWeightPreference
	for _, pref := range f.prefs {
		if pref.UserID == userID && wanted[pref.ItemID] {
			out = append(out, *pref)
		}
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	records map[noteKey]*domain.ProgressionFeedback // keyed (userID, itemID)
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{records: map[noteKey]*domain.ProgressionFeedback{}}
}

func (f *fakeFeedbackRepo) Get(_ context.Context, userID, itemID primitive.ObjectID) (*domain.ProgressionFeedback, error) {
	rec, ok := f.records[noteKey{userID, itemID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeFeedbackRepo) Upsert(_ context.Context, fb *domain.ProgressionFeedback) error {
	cp := *fb
	cp.UpdatedAt = time.Now().UTC()
	f.records[noteKey{fb.UserID, fb.ItemID}] = &cp
	return nil
}

type fakeEventRepo struct {
	events []domain.WorkoutEvent
}

func newFakeEventRepo() *fakeEventRepo { return &fakeEventRepo{} }

func (f *fakeEventRepo) Insert(_ context.Context, event *domain.WorkoutEvent) (primitive.ObjectID, error) {
	event.ID = primitive.NewObjectID()
	f.events = append(f.events, *event)
	return event.ID, nil
}

func (f *fakeEventRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit int) ([]domain.WorkoutEvent, error) {
	var out []domain.WorkoutEvent
	for _, e := range f.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeUploadRepo struct {
	uploads map[primitive.ObjectID]*domain.Upload
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: map[primitive.ObjectID]*domain.Upload{}}
}

func (f *fakeUploadRepo) Create(_ context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	upload.ID = primitive.NewObjectID()
	cp := *upload
	f.uploads[upload.ID] = &cp
	return upload.ID, nil
}

func (f *fakeUploadRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	u, ok := f.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploadRepo) GetByItemID(_ context.Context, itemID primitive.ObjectID) (*domain.Upload, error) {
	var newest *domain.Upload
	for _, u := range f.uploads {
		if u.ItemID == itemID && (newest == nil || u.UploadedAt.After(newest.UploadedAt)) {
			newest = u
		}
	}
	if newest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

type fakeFileStorage struct {
	uploadURLs  map[string]string
	deletedKeys []string
	presignErr  error
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{uploadURLs: map[string]string{}}
}

func (f *fakeFileStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, contentType string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	url := "https://storage.test/upload/" + objectKey
	f.uploadURLs[objectKey] = contentType
	return url, nil
}

func (f *fakeFileStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://storage.test/download/" + objectKey, nil
}

func (f *fakeFileStorage) DeleteObject(_ context.Context, objectKey string) error {
	f.deletedKeys = append(f.deletedKeys, objectKey)
	return nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
