package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/repository"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/storage"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/video"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTemplateNotFound     = errors.New("template not found")
	ErrTemplateAccessDenied = errors.New("template does not belong to this coach")
	ErrTemplateEmpty        = errors.New("template has no training days to assign")
	ErrClientNotFound       = errors.New("client not found")
	ErrNotAClient           = errors.New("target user is not a client")
	ErrUploadNotFound       = errors.New("upload not found")
	ErrUploadKeyMismatch    = errors.New("object key does not belong to this exercise")
	ErrDayNotInProgram      = errors.New("day does not belong to this program")
	ErrItemNotInDay         = errors.New("exercise does not belong to this day")
)

// ProgramDetail aggregates a program with its days and their exercises for
// the coach's editing view.
type ProgramDetail struct {
	Program domain.Program `json:"program"`
	Days    []DayDetail    `json:"days"`
}

type DayDetail struct {
	Day   domain.Day    `json:"day"`
	Items []domain.Item `json:"items"`
}

// UploadTicket is the response to an upload request: where to PUT the file
// and the object key the caller reports back on confirm.
type UploadTicket struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AdminService interface {
	// Templates
	CreateTemplate(ctx context.Context, authorID primitive.ObjectID, tpl *domain.Template) (*domain.Template, error)
	GetTemplate(ctx context.Context, authorID, templateID primitive.ObjectID) (*domain.Template, error)
	ListTemplates(ctx context.Context, authorID primitive.ObjectID) ([]domain.Template, error)
	UpdateTemplate(ctx context.Context, authorID primitive.ObjectID, tpl *domain.Template) (*domain.Template, error)
	DeleteTemplate(ctx context.Context, authorID, templateID primitive.ObjectID) error

	// Programs
	AssignTemplate(ctx context.Context, authorID, templateID, clientID primitive.ObjectID, startDate time.Time) (*domain.Program, error)
	DeactivateProgram(ctx context.Context, programID primitive.ObjectID, status domain.ProgramStatus) error
	GetProgramDetail(ctx context.Context, programID primitive.ObjectID) (*ProgramDetail, error)
	ListClients(ctx context.Context) ([]domain.User, error)
	ListClientPrograms(ctx context.Context, clientID primitive.ObjectID) ([]domain.Program, error)
	ListClientEvents(ctx context.Context, clientID primitive.ObjectID, limit int) ([]domain.WorkoutEvent, error)

	// Days
	AddDay(ctx context.Context, programID primitive.ObjectID, title, note string) (*domain.Day, error)
	UpdateDay(ctx context.Context, day *domain.Day) error
	DeleteDay(ctx context.Context, programID, dayID primitive.ObjectID) error
	MoveDay(ctx context.Context, programID, dayID primitive.ObjectID, up bool) ([]domain.Day, error)

	// Items
	AddItem(ctx context.Context, dayID primitive.ObjectID, item *domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, item *domain.Item) error
	DeleteItem(ctx context.Context, dayID, itemID primitive.ObjectID) error
	MoveItem(ctx context.Context, dayID, itemID primitive.ObjectID, up bool) ([]domain.Item, error)
	SetItemVideo(ctx context.Context, itemID primitive.ObjectID, rawURL string) (*video.Embed, error)
	AddAlternative(ctx context.Context, itemID primitive.ObjectID, alt domain.Alternative) error
	RemoveAlternative(ctx context.Context, itemID, altID primitive.ObjectID) error

	// Demo video uploads
	RequestVideoUpload(ctx context.Context, itemID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error)
	ConfirmVideoUpload(ctx context.Context, uploaderID, itemID primitive.ObjectID, objectKey, fileName, contentType string, size int64) (*domain.Upload, error)
	GetItemVideoDownloadURL(ctx context.Context, itemID primitive.ObjectID) (string, error)
	GetVideoDownloadURL(ctx context.Context, uploadID primitive.ObjectID) (string, error)
}

// adminService implements the coach-side authoring operations: templates,
// assignment, program structure and demo videos.
type adminService struct {
	userRepo     repository.UserRepository
	templateRepo repository.TemplateRepository
	programRepo  repository.ProgramRepository
	dayRepo      repository.DayRepository
	itemRepo     repository.ItemRepository
	uploadRepo   repository.UploadRepository
	eventRepo    repository.EventRepository
	fileStorage  storage.FileStorage
}

func NewAdminService(
	userRepo repository.UserRepository,
	templateRepo repository.TemplateRepository,
	programRepo repository.ProgramRepository,
	dayRepo repository.DayRepository,
	itemRepo repository.ItemRepository,
	uploadRepo repository.UploadRepository,
	eventRepo repository.EventRepository,
	fileStorage storage.FileStorage,
) AdminService {
	return &adminService{
		userRepo:     userRepo,
		templateRepo: templateRepo,
		programRepo:  programRepo,
		dayRepo:      dayRepo,
		itemRepo:     itemRepo,
		uploadRepo:   uploadRepo,
		eventRepo:    eventRepo,
		fileStorage:  fileStorage,
	}
}

// === Templates ===

func (s *adminService) CreateTemplate(ctx context.Context, authorID primitive.ObjectID, tpl *domain.Template) (*domain.Template, error) {
	tpl.AuthorID = authorID
	normalizeTemplateOrder(tpl)
	id, err := s.templateRepo.Create(ctx, tpl)
	if err != nil {
		return nil, err
	}
	tpl.ID = id
	return tpl, nil
}

func (s *adminService) GetTemplate(ctx context.Context, authorID, templateID primitive.ObjectID) (*domain.Template, error) {
	return s.ownedTemplate(ctx, authorID, templateID)
}

func (s *adminService) ListTemplates(ctx context.Context, authorID primitive.ObjectID) ([]domain.Template, error) {
	return s.templateRepo.ListByAuthor(ctx, authorID)
}

func (s *adminService) UpdateTemplate(ctx context.Context, authorID primitive.ObjectID, tpl *domain.Template) (*domain.Template, error) {
	existing, err := s.ownedTemplate(ctx, authorID, tpl.ID)
	if err != nil {
		return nil, err
	}
	tpl.AuthorID = existing.AuthorID
	tpl.CreatedAt = existing.CreatedAt
	normalizeTemplateOrder(tpl)
	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *adminService) DeleteTemplate(ctx context.Context, authorID, templateID primitive.ObjectID) error {
	err := s.templateRepo.Delete(ctx, templateID, authorID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

func (s *adminService) ownedTemplate(ctx context.Context, authorID, templateID primitive.ObjectID) (*domain.Template, error) {
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if tpl.AuthorID != authorID {
		return nil, ErrTemplateAccessDenied
	}
	return tpl, nil
}

// normalizeTemplateOrder rewrites the stored ordinals to a dense 1..n run so
// authoring edits can't leave gaps or duplicates behind.
func normalizeTemplateOrder(tpl *domain.Template) {
	for di := range tpl.Days {
		tpl.Days[di].DayOrder = di + 1
		for ii := range tpl.Days[di].Items {
			tpl.Days[di].Items[ii].OrderInDay = ii + 1
		}
	}
}

// === Assignment ===

// AssignTemplate copies the template's structure into per-client program rows.
// A template without days is refused outright: assigning it would strand the
// client on an empty program. There is no multi-document transaction here, so
// a mid-copy failure compensates by deleting everything created so far.
func (s *adminService) AssignTemplate(ctx context.Context, authorID, templateID, clientID primitive.ObjectID, startDate time.Time) (*domain.Program, error) {
	tpl, err := s.ownedTemplate(ctx, authorID, templateID)
	if err != nil {
		return nil, err
	}
	if len(tpl.Days) == 0 {
		return nil, ErrTemplateEmpty
	}

	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if !client.IsClient() {
		return nil, ErrNotAClient
	}

	program := &domain.Program{
		TemplateID:    templateID,
		UserID:        clientID,
		StartDate:     startDate,
		DurationWeeks: tpl.Weeks,
		IsActive:      true,
		Status:        domain.ProgramStatusActive,
	}
	programID, err := s.programRepo.Create(ctx, program)
	if err != nil {
		return nil, err
	}
	program.ID = programID

	if err := s.copyTemplateStructure(ctx, tpl, programID); err != nil {
		s.compensateAssignment(programID)
		return nil, fmt.Errorf("copying template %s: %w", templateID.Hex(), err)
	}

	return program, nil
}

func (s *adminService) copyTemplateStructure(ctx context.Context, tpl *domain.Template, programID primitive.ObjectID) error {
	for _, tplDay := range tpl.Days {
		day := &domain.Day{
			ProgramID: programID,
			Title:     tplDay.Title,
			Note:      tplDay.Note,
			DayOrder:  tplDay.DayOrder,
		}
		dayID, err := s.dayRepo.Create(ctx, day)
		if err != nil {
			return err
		}
		for _, tplItem := range tplDay.Items {
			item := &domain.Item{
				DayID:        dayID,
				ProgramID:    programID,
				Name:         tplItem.Name,
				TargetSets:   tplItem.TargetSets,
				TargetReps:   tplItem.TargetReps,
				Seconds:      tplItem.Seconds,
				WeightKg:     tplItem.WeightKg,
				RestSeconds:  tplItem.RestSeconds,
				CoachNotes:   tplItem.CoachNotes,
				VideoURL:     tplItem.VideoURL,
				OrderInDay:   tplItem.OrderInDay,
				Unilateral:   tplItem.Unilateral,
				RepsPerSide:  tplItem.RepsPerSide,
				Alternatives: tplItem.Alternatives,
			}
			if _, err := s.itemRepo.Create(ctx, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// compensateAssignment tears down a half-copied program. Best effort with a
// fresh context: the request's context may already be cancelled.
func (s *adminService) compensateAssignment(programID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	days, err := s.dayRepo.GetByProgramID(ctx, programID)
	if err == nil {
		for _, day := range days {
			items, itemsErr := s.itemRepo.GetByDayID(ctx, day.ID)
			if itemsErr == nil {
				for _, item := range items {
					if delErr := s.itemRepo.Delete(ctx, item.ID); delErr != nil {
						logrus.WithField("itemId", item.ID.Hex()).WithError(delErr).Error("assignment rollback: item delete failed")
					}
				}
			}
			if delErr := s.dayRepo.Delete(ctx, day.ID); delErr != nil {
				logrus.WithField("dayId", day.ID.Hex()).WithError(delErr).Error("assignment rollback: day delete failed")
			}
		}
	}
	if err := s.programRepo.Delete(ctx, programID); err != nil {
		logrus.WithField("programId", programID.Hex()).WithError(err).Error("assignment rollback: program delete failed")
	}
}

func (s *adminService) DeactivateProgram(ctx context.Context, programID primitive.ObjectID, status domain.ProgramStatus) error {
	if _, err := s.programRepo.GetByID(ctx, programID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProgramNotFound
		}
		return err
	}
	return s.programRepo.SetStatus(ctx, programID, false, status)
}

func (s *adminService) GetProgramDetail(ctx context.Context, programID primitive.ObjectID) (*ProgramDetail, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
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

func (s *adminService) ListClients(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.ListByRole(ctx, domain.RoleClient)
}

func (s *adminService) ListClientPrograms(ctx context.Context, clientID primitive.ObjectID) ([]domain.Program, error) {
	if _, err := s.userRepo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return s.programRepo.ListByUser(ctx, clientID)
}

// ListClientEvents returns the client's workout lifecycle history, newest
// first, for the coach's adherence view.
func (s *adminService) ListClientEvents(ctx context.Context, clientID primitive.ObjectID, limit int) ([]domain.WorkoutEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.userRepo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return s.eventRepo.ListByUser(ctx, clientID, limit)
}

// === Days ===

func (s *adminService) AddDay(ctx context.Context, programID primitive.ObjectID, title, note string) (*domain.Day, error) {
	if _, err := s.programRepo.GetByID(ctx, programID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	days, err := s.dayRepo.GetByProgramID(ctx, programID)
	if err != nil {
		return nil, err
	}
	day := &domain.Day{
		ProgramID: programID,
		Title:     title,
		Note:      note,
		DayOrder:  len(days) + 1,
	}
	id, err := s.dayRepo.Create(ctx, day)
	if err != nil {
		return nil, err
	}
	day.ID = id
	return day, nil
}

func (s *adminService) UpdateDay(ctx context.Context, day *domain.Day) error {
	existing, err := s.dayRepo.GetByID(ctx, day.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDayNotFound
		}
		return err
	}
	// Structural fields stay put; only title and note are editable here.
	day.ProgramID = existing.ProgramID
	day.DayOrder = existing.DayOrder
	return s.dayRepo.Update(ctx, day)
}

func (s *adminService) DeleteDay(ctx context.Context, programID, dayID primitive.ObjectID) error {
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDayNotFound
		}
		return err
	}
	if day.ProgramID != programID {
		return ErrDayNotInProgram
	}
	items, err := s.itemRepo.GetByDayID(ctx, dayID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.itemRepo.Delete(ctx, item.ID); err != nil {
			return err
		}
	}
	return s.dayRepo.Delete(ctx, dayID)
}

// MoveDay shifts a day one slot up or down by swapping ordinals with its
// neighbor. Exactly two rows change; a move at the boundary is a no-op.
func (s *adminService) MoveDay(ctx context.Context, programID, dayID primitive.ObjectID, up bool) ([]domain.Day, error) {
	days, err := s.dayRepo.GetByProgramID(ctx, programID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range days {
		if days[i].ID == dayID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrDayNotFound
	}

	other := neighborIndex(idx, len(days), up)
	if other == -1 {
		return days, nil
	}

	if err := s.dayRepo.UpdateOrder(ctx, days[idx].ID, days[other].DayOrder); err != nil {
		return nil, err
	}
	if err := s.dayRepo.UpdateOrder(ctx, days[other].ID, days[idx].DayOrder); err != nil {
		return nil, err
	}
	days[idx].DayOrder, days[other].DayOrder = days[other].DayOrder, days[idx].DayOrder
	days[idx], days[other] = days[other], days[idx]
	return days, nil
}

// === Items ===

func (s *adminService) AddItem(ctx context.Context, dayID primitive.ObjectID, item *domain.Item) (*domain.Item, error) {
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	siblings, err := s.itemRepo.GetByDayID(ctx, dayID)
	if err != nil {
		return nil, err
	}
	item.DayID = dayID
	item.ProgramID = day.ProgramID
	item.OrderInDay = len(siblings) + 1
	if item.VideoURL != "" {
		item.VideoURL = video.Resolve(item.VideoURL).URL
	}
	id, err := s.itemRepo.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id
	return item, nil
}

func (s *adminService) UpdateItem(ctx context.Context, item *domain.Item) error {
	existing, err := s.itemRepo.GetByID(ctx, item.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	item.DayID = existing.DayID
	item.ProgramID = existing.ProgramID
	item.OrderInDay = existing.OrderInDay
	if item.VideoURL != "" && item.VideoURL != existing.VideoURL {
		item.VideoURL = video.Resolve(item.VideoURL).URL
	}
	return s.itemRepo.Update(ctx, item)
}

func (s *adminService) DeleteItem(ctx context.Context, dayID, itemID primitive.ObjectID) error {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	if item.DayID != dayID {
		return ErrItemNotInDay
	}
	return s.itemRepo.Delete(ctx, itemID)
}

// MoveItem mirrors MoveDay within a single day's exercise list.
func (s *adminService) MoveItem(ctx context.Context, dayID, itemID primitive.ObjectID, up bool) ([]domain.Item, error) {
	items, err := s.itemRepo.GetByDayID(ctx, dayID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrItemNotFound
	}

	other := neighborIndex(idx, len(items), up)
	if other == -1 {
		return items, nil
	}

	if err := s.itemRepo.UpdateOrder(ctx, items[idx].ID, items[other].OrderInDay); err != nil {
		return nil, err
	}
	if err := s.itemRepo.UpdateOrder(ctx, items[other].ID, items[idx].OrderInDay); err != nil {
		return nil, err
	}
	items[idx].OrderInDay, items[other].OrderInDay = items[other].OrderInDay, items[idx].OrderInDay
	items[idx], items[other] = items[other], items[idx]
	return items, nil
}

// SetItemVideo stores the privacy-rewritten embed form of the given URL on
// the item and reports what was resolved.
func (s *adminService) SetItemVideo(ctx context.Context, itemID primitive.ObjectID, rawURL string) (*video.Embed, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	embed := video.Resolve(rawURL)
	if err := s.itemRepo.UpdateVideoURL(ctx, itemID, embed.URL); err != nil {
		return nil, err
	}
	return &embed, nil
}

func (s *adminService) AddAlternative(ctx context.Context, itemID primitive.ObjectID, alt domain.Alternative) error {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	if alt.ID.IsZero() {
		alt.ID = primitive.NewObjectID()
	}
	if alt.VideoURL != "" {
		alt.VideoURL = video.Resolve(alt.VideoURL).URL
	}
	return s.itemRepo.AddAlternative(ctx, itemID, alt)
}

func (s *adminService) RemoveAlternative(ctx context.Context, itemID, altID primitive.ObjectID) error {
	err := s.itemRepo.RemoveAlternative(ctx, itemID, altID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

// === Demo Videos ===

func (s *adminService) RequestVideoUpload(ctx context.Context, itemID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	objectKey := fmt.Sprintf("videos/%s/%s%s", itemID.Hex(), uuid.NewString(), filepath.Ext(fileName))
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generating upload url: %w", err)
	}

	return &UploadTicket{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		Method:    "PUT",
		ExpiresAt: time.Now().UTC().Add(storage.DefaultPresignedURLExpiry),
	}, nil
}

// ConfirmVideoUpload records the metadata row after the file has landed in the
// bucket. The object key must be one we issued for this exercise.
func (s *adminService) ConfirmVideoUpload(ctx context.Context, uploaderID, itemID primitive.ObjectID, objectKey, fileName, contentType string, size int64) (*domain.Upload, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if !strings.HasPrefix(objectKey, "videos/"+itemID.Hex()+"/") {
		return nil, ErrUploadKeyMismatch
	}

	upload := &domain.Upload{
		ItemID:      itemID,
		UploaderID:  uploaderID,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now().UTC(),
	}
	id, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		return nil, err
	}
	upload.ID = id
	return upload, nil
}

func (s *adminService) GetVideoDownloadURL(ctx context.Context, uploadID primitive.ObjectID) (string, error) {
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUploadNotFound
		}
		return "", err
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, upload.S3ObjectKey, storage.DefaultPresignedURLExpiry)
}

// GetItemVideoDownloadURL resolves the most recent demo upload for an exercise
// to a presigned playback URL.
func (s *adminService) GetItemVideoDownloadURL(ctx context.Context, itemID primitive.ObjectID) (string, error) {
	upload, err := s.uploadRepo.GetByItemID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUploadNotFound
		}
		return "", err
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, upload.S3ObjectKey, storage.DefaultPresignedURLExpiry)
}

// neighborIndex returns the index to swap with, or -1 at a boundary.
func neighborIndex(idx, length int, up bool) int {
	if up {
		if idx == 0 {
			return -1
		}
		return idx - 1
	}
	if idx == length-1 {
		return -1
	}
	return idx + 1
}
