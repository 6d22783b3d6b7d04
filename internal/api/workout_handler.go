package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/progression"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler serves the client-side workout runner: bootstrap, set
// completion, weights, notes, heartbeat, finish and progression.
type WorkoutHandler struct {
	sessionService     service.SessionService
	progressionService service.ProgressionService
}

func NewWorkoutHandler(sessionService service.SessionService, progressionService service.ProgressionService) *WorkoutHandler {
	return &WorkoutHandler{
		sessionService:     sessionService,
		progressionService: progressionService,
	}
}

// --- Request Structs ---

type BootstrapRequest struct {
	ProgramID string `json:"programId" binding:"required"`
	DayID     string `json:"dayId" binding:"required"`
}

type CompleteSetRequest struct {
	Reps     *int     `json:"reps,omitempty"`
	Seconds  *int     `json:"seconds,omitempty"`
	WeightKg *float64 `json:"weightKg,omitempty"`
}

type SetWeightRequest struct {
	WeightKg *float64 `json:"weightKg" binding:"required"`
}

type NoteRequest struct {
	Notes string `json:"notes"`
	RPE   *int   `json:"rpe,omitempty"`
	RIR   *int   `json:"rir,omitempty"`
}

type FinishRequest struct {
	Notes []FinishNote `json:"notes,omitempty"`
}

type FinishNote struct {
	ItemID string `json:"itemId" binding:"required"`
	Notes  string `json:"notes"`
	RPE    *int   `json:"rpe,omitempty"`
	RIR    *int   `json:"rir,omitempty"`
}

type FeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

// --- Handler Methods ---

// GetPrograms returns the authenticated client's assigned programs.
func (h *WorkoutHandler) GetPrograms(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	programs, err := h.sessionService.ListPrograms(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load programs")
		return
	}
	c.JSON(http.StatusOK, programs)
}

// GetProgramOverview returns one program with its days and exercises.
func (h *WorkoutHandler) GetProgramOverview(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}
	overview, err := h.sessionService.ProgramOverview(c.Request.Context(), userID, programID)
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// Bootstrap finds or creates the open session for the day and returns the
// fully hydrated workout context.
func (h *WorkoutHandler) Bootstrap(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid programId format")
		return
	}
	dayID, err := primitive.ObjectIDFromHex(req.DayID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid dayId format")
		return
	}

	sessionCtx, err := h.sessionService.Bootstrap(c.Request.Context(), userID, programID, dayID)
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionCtx)
}

// CompleteSet marks one set done.
// POST /workout/sessions/:sessionId/items/:itemId/sets/:setNumber/complete
func (h *WorkoutHandler) CompleteSet(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var setNumber int
	if _, err := fmt.Sscanf(c.Param("setNumber"), "%d", &setNumber); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid setNumber format")
		return
	}

	// The body is optional: an empty completion reuses prior values.
	var req CompleteSetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}

	result, err := h.sessionService.CompleteSet(c.Request.Context(), userID, sessionID, itemID, setNumber, &service.SetOverride{
		Reps:     req.Reps,
		Seconds:  req.Seconds,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateSetWeight stores one set slot's weight.
// PUT /workout/items/:itemId/sets/:setNumber/weight
func (h *WorkoutHandler) UpdateSetWeight(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	var setNumber int
	if _, err := fmt.Sscanf(c.Param("setNumber"), "%d", &setNumber); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid setNumber format")
		return
	}

	var req SetWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.sessionService.UpdateSetWeight(c.Request.Context(), userID, itemID, setNumber, *req.WeightKg); err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateAllSetWeights applies one weight to every set of the item.
// PUT /workout/items/:itemId/weight
func (h *WorkoutHandler) UpdateAllSetWeights(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}

	var req SetWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	item, err := h.sessionService.UpdateAllSetWeights(c.Request.Context(), userID, itemID, *req.WeightKg)
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// SaveNote accepts a note autosave and returns immediately; the write happens
// in the background.
// POST /workout/sessions/:sessionId/items/:itemId/note
func (h *WorkoutHandler) SaveNote(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.sessionService.SaveNoteAsync(c.Request.Context(), userID, sessionID, itemID, req.Notes, req.RPE, req.RIR); err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Touch refreshes the session's last-activity stamp.
// POST /workout/sessions/:sessionId/touch
func (h *WorkoutHandler) Touch(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}
	if err := h.sessionService.Touch(c.Request.Context(), userID, sessionID); err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Finish closes the session.
// POST /workout/sessions/:sessionId/finish
func (h *WorkoutHandler) Finish(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}

	var req FinishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}
	notes := make([]service.NoteInput, 0, len(req.Notes))
	for _, n := range req.Notes {
		itemID, err := primitive.ObjectIDFromHex(n.ItemID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid itemId format in notes")
			return
		}
		notes = append(notes, service.NoteInput{ItemID: itemID, Notes: n.Notes, RPE: n.RPE, RIR: n.RIR})
	}

	session, err := h.sessionService.Finish(c.Request.Context(), userID, sessionID, notes)
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetRepsSuggestion returns the advisory rep-target suggestion for an item.
// GET /workout/items/:itemId/progression
func (h *WorkoutHandler) GetRepsSuggestion(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}

	suggestion, err := h.progressionService.SuggestReps(c.Request.Context(), userID, itemID)
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	if suggestion == nil {
		c.JSON(http.StatusOK, gin.H{"suggestion": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

// SubmitFeedback records an exertion signal on the gated weight path.
// POST /workout/items/:itemId/progression/feedback
func (h *WorkoutHandler) SubmitFeedback(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result, err := h.progressionService.SubmitFeedback(c.Request.Context(), userID, itemID, progression.Feedback(req.Feedback))
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConfirmWeight applies the pending weight proposal.
// POST /workout/items/:itemId/progression/confirm
func (h *WorkoutHandler) ConfirmWeight(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}

	item, err := h.progressionService.ConfirmWeight(c.Request.Context(), userID, itemID)
	if err != nil {
		h.mapSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// mapSessionError translates service sentinels to HTTP statuses.
func (h *WorkoutHandler) mapSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrDayNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrItemNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrProgramAccessDenied),
		errors.Is(err, service.ErrSessionAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrProgramInactive),
		errors.Is(err, service.ErrSessionAlreadyFinished),
		errors.Is(err, service.ErrItemNotInSession),
		errors.Is(err, service.ErrItemNotWeighted),
		errors.Is(err, service.ErrNoProposal):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRepsRequired),
		errors.Is(err, service.ErrInvalidSetNumber),
		errors.Is(err, service.ErrInvalidRPE),
		errors.Is(err, service.ErrInvalidRIR),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrInvalidFeedback):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
