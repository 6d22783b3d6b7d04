package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler serves the coach-side authoring API: templates, assignment,
// program structure, alternatives and demo videos.
type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// --- Request Structs ---

type TemplateRequest struct {
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	Weeks       int                  `json:"weeks" binding:"required,min=1"`
	IsPublished bool                 `json:"isPublished"`
	Days        []domain.TemplateDay `json:"days"`
}

type AssignTemplateRequest struct {
	ClientID  string     `json:"clientId" binding:"required"`
	StartDate *time.Time `json:"startDate,omitempty"`
}

type DeactivateProgramRequest struct {
	Status domain.ProgramStatus `json:"status" binding:"required,oneof=completed archived"`
}

type DayRequest struct {
	Title string `json:"title" binding:"required"`
	Note  string `json:"note"`
}

type ItemRequest struct {
	Name        string   `json:"name" binding:"required"`
	TargetSets  int      `json:"targetSets" binding:"required,min=1"`
	TargetReps  string   `json:"targetReps"`
	Seconds     *int     `json:"seconds,omitempty"`
	WeightKg    *float64 `json:"weightKg,omitempty"`
	RestSeconds int      `json:"restSeconds"`
	CoachNotes  string   `json:"coachNotes"`
	VideoURL    string   `json:"videoUrl"`
	Unilateral  bool     `json:"unilateral"`
	RepsPerSide *int     `json:"repsPerSide,omitempty"`
}

type MoveRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

type VideoURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type AlternativeRequest struct {
	Name       string                       `json:"name" binding:"required"`
	CoachNotes string                       `json:"coachNotes"`
	VideoURL   string                       `json:"videoUrl"`
	Difficulty domain.AlternativeDifficulty `json:"difficulty" binding:"required,oneof=easier same harder"`
}

type VideoUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmVideoUploadRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
}

// --- Templates ---

func (h *AdminHandler) CreateTemplate(c *gin.Context) {
	authorID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	tpl, err := h.adminService.CreateTemplate(c.Request.Context(), authorID, &domain.Template{
		Title:       req.Title,
		Description: req.Description,
		Weeks:       req.Weeks,
		IsPublished: req.IsPublished,
		Days:        req.Days,
	})
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *AdminHandler) GetTemplates(c *gin.Context) {
	authorID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	templates, err := h.adminService.ListTemplates(c.Request.Context(), authorID)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *AdminHandler) GetTemplate(c *gin.Context) {
	authorID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	tpl, err := h.adminService.GetTemplate(c.Request.Context(), authorID, templateID)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AdminHandler) UpdateTemplate(c *gin.Context) {
	authorID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	tpl, err := h.adminService.UpdateTemplate(c.Request.Context(), authorID, &domain.Template{
		ID:          templateID,
		Title:       req.Title,
		Description: req.Description,
		Weeks:       req.Weeks,
		IsPublished: req.IsPublished,
		Days:        req.Days,
	})
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AdminHandler) DeleteTemplate(c *gin.Context) {
	authorID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	if err := h.adminService.DeleteTemplate(c.Request.Context(), authorID, templateID); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignTemplate copies the template into a fresh program for a client.
// POST /admin/templates/:templateId/assign
func (h *AdminHandler) AssignTemplate(c *gin.Context) {
	authorID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	var req AssignTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format")
		return
	}
	startDate := time.Now().UTC()
	if req.StartDate != nil {
		startDate = *req.StartDate
	}

	program, err := h.adminService.AssignTemplate(c.Request.Context(), authorID, templateID, clientID, startDate)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

// --- Clients & Programs ---

func (h *AdminHandler) GetClients(c *gin.Context) {
	clients, err := h.adminService.ListClients(c.Request.Context())
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	responses := make([]UserResponse, 0, len(clients))
	for i := range clients {
		responses = append(responses, mapUserToResponse(&clients[i]))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *AdminHandler) GetClientPrograms(c *gin.Context) {
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}
	programs, err := h.adminService.ListClientPrograms(c.Request.Context(), clientID)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, programs)
}

func (h *AdminHandler) GetClientEvents(c *gin.Context) {
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.adminService.ListClientEvents(c.Request.Context(), clientID, limit)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *AdminHandler) GetProgramDetail(c *gin.Context) {
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}
	detail, err := h.adminService.GetProgramDetail(c.Request.Context(), programID)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *AdminHandler) DeactivateProgram(c *gin.Context) {
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}
	var req DeactivateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if err := h.adminService.DeactivateProgram(c.Request.Context(), programID, req.Status); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Days ---

func (h *AdminHandler) AddDay(c *gin.Context) {
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}
	var req DayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	day, err := h.adminService.AddDay(c.Request.Context(), programID, req.Title, req.Note)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, day)
}

func (h *AdminHandler) UpdateDay(c *gin.Context) {
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	var req DayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	day := &domain.Day{ID: dayID, Title: req.Title, Note: req.Note}
	if err := h.adminService.UpdateDay(c.Request.Context(), day); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *AdminHandler) DeleteDay(c *gin.Context) {
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	if err := h.adminService.DeleteDay(c.Request.Context(), programID, dayID); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) MoveDay(c *gin.Context) {
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	days, err := h.adminService.MoveDay(c.Request.Context(), programID, dayID, req.Direction == "up")
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// --- Items ---

func (h *AdminHandler) AddItem(c *gin.Context) {
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	item, err := h.adminService.AddItem(c.Request.Context(), dayID, itemFromRequest(&req))
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *AdminHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	item := itemFromRequest(&req)
	item.ID = itemID
	if err := h.adminService.UpdateItem(c.Request.Context(), item); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *AdminHandler) DeleteItem(c *gin.Context) {
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	if err := h.adminService.DeleteItem(c.Request.Context(), dayID, itemID); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) MoveItem(c *gin.Context) {
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	items, err := h.adminService.MoveItem(c.Request.Context(), dayID, itemID, req.Direction == "up")
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// SetItemVideo stores the embeddable form of a video link on the item.
// PUT /admin/items/:itemId/video
func (h *AdminHandler) SetItemVideo(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var req VideoURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	embed, err := h.adminService.SetItemVideo(c.Request.Context(), itemID, req.URL)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, embed)
}

// --- Alternatives ---

func (h *AdminHandler) AddAlternative(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var req AlternativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	alt := domain.Alternative{
		Name:       req.Name,
		CoachNotes: req.CoachNotes,
		VideoURL:   req.VideoURL,
		Difficulty: req.Difficulty,
	}
	if err := h.adminService.AddAlternative(c.Request.Context(), itemID, alt); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *AdminHandler) RemoveAlternative(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	altID, ok := pathObjectID(c, "altId")
	if !ok {
		return
	}
	if err := h.adminService.RemoveAlternative(c.Request.Context(), itemID, altID); err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Demo Videos ---

// RequestVideoUpload returns a presigned PUT URL for a demo video.
// POST /admin/items/:itemId/video-upload
func (h *AdminHandler) RequestVideoUpload(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var req VideoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ticket, err := h.adminService.RequestVideoUpload(c.Request.Context(), itemID, req.FileName, req.ContentType)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ConfirmVideoUpload records upload metadata once the file is in the bucket.
// POST /admin/items/:itemId/video-upload/confirm
func (h *AdminHandler) ConfirmVideoUpload(c *gin.Context) {
	uploaderID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var req ConfirmVideoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	upload, err := h.adminService.ConfirmVideoUpload(c.Request.Context(), uploaderID, itemID, req.ObjectKey, req.FileName, req.ContentType, req.Size)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// GetItemVideoDownloadURL returns a presigned playback URL for the latest
// demo video uploaded for an exercise.
// GET /admin/items/:itemId/demo-video
func (h *AdminHandler) GetItemVideoDownloadURL(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	url, err := h.adminService.GetItemVideoDownloadURL(c.Request.Context(), itemID)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// GetVideoDownloadURL returns a presigned GET URL for an uploaded demo video.
// GET /admin/uploads/:uploadId/download-url
func (h *AdminHandler) GetVideoDownloadURL(c *gin.Context) {
	uploadID, ok := pathObjectID(c, "uploadId")
	if !ok {
		return
	}
	url, err := h.adminService.GetVideoDownloadURL(c.Request.Context(), uploadID)
	if err != nil {
		h.mapAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

func itemFromRequest(req *ItemRequest) *domain.Item {
	return &domain.Item{
		Name:        req.Name,
		TargetSets:  req.TargetSets,
		TargetReps:  req.TargetReps,
		Seconds:     req.Seconds,
		WeightKg:    req.WeightKg,
		RestSeconds: req.RestSeconds,
		CoachNotes:  req.CoachNotes,
		VideoURL:    req.VideoURL,
		Unilateral:  req.Unilateral,
		RepsPerSide: req.RepsPerSide,
	}
}

// mapAdminError translates service sentinels to HTTP statuses.
func (h *AdminHandler) mapAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrDayNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrUploadNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTemplateAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTemplateEmpty),
		errors.Is(err, service.ErrNotAClient),
		errors.Is(err, service.ErrDayNotInProgram),
		errors.Is(err, service.ErrItemNotInDay),
		errors.Is(err, service.ErrUploadKeyMismatch):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
