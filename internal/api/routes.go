package api

import (
	"net/http"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	sessionService service.SessionService,
	progressionService service.ProgressionService,
	adminService service.AdminService,
) {
	authHandler := NewAuthHandler(authService)
	workoutHandler := NewWorkoutHandler(sessionService, progressionService)
	adminHandler := NewAdminHandler(adminService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := currentUserID(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			roleRaw, _ := c.Get(ContextUserRoleKey)
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex(), "role": roleRaw})
		})

		// --- Workout Routes (clients run their sessions here) ---
		workoutGroup := protected.Group("/workout")
		workoutGroup.Use(RoleMiddleware(domain.RoleClient, domain.RoleAdmin))
		{
			workoutGroup.GET("/programs", workoutHandler.GetPrograms)
			workoutGroup.GET("/programs/:programId", workoutHandler.GetProgramOverview)

			workoutGroup.POST("/sessions/bootstrap", workoutHandler.Bootstrap)
			workoutGroup.POST("/sessions/:sessionId/items/:itemId/sets/:setNumber/complete", workoutHandler.CompleteSet)
			workoutGroup.POST("/sessions/:sessionId/items/:itemId/note", workoutHandler.SaveNote)
			workoutGroup.POST("/sessions/:sessionId/touch", workoutHandler.Touch)
			workoutGroup.POST("/sessions/:sessionId/finish", workoutHandler.Finish)

			workoutGroup.PUT("/items/:itemId/sets/:setNumber/weight", workoutHandler.UpdateSetWeight)
			workoutGroup.PUT("/items/:itemId/weight", workoutHandler.UpdateAllSetWeights)

			workoutGroup.GET("/items/:itemId/progression", workoutHandler.GetRepsSuggestion)
			workoutGroup.POST("/items/:itemId/progression/feedback", workoutHandler.SubmitFeedback)
			workoutGroup.POST("/items/:itemId/progression/confirm", workoutHandler.ConfirmWeight)
		}

		// --- Admin Routes (coach authoring) ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/templates", adminHandler.CreateTemplate)
			adminGroup.GET("/templates", adminHandler.GetTemplates)
			adminGroup.GET("/templates/:templateId", adminHandler.GetTemplate)
			adminGroup.PUT("/templates/:templateId", adminHandler.UpdateTemplate)
			adminGroup.DELETE("/templates/:templateId", adminHandler.DeleteTemplate)
			adminGroup.POST("/templates/:templateId/assign", adminHandler.AssignTemplate)

			adminGroup.GET("/clients", adminHandler.GetClients)
			adminGroup.GET("/clients/:clientId/programs", adminHandler.GetClientPrograms)
			adminGroup.GET("/clients/:clientId/events", adminHandler.GetClientEvents)

			adminGroup.GET("/programs/:programId", adminHandler.GetProgramDetail)
			adminGroup.POST("/programs/:programId/deactivate", adminHandler.DeactivateProgram)

			adminGroup.POST("/programs/:programId/days", adminHandler.AddDay)
			adminGroup.PUT("/days/:dayId", adminHandler.UpdateDay)
			adminGroup.DELETE("/programs/:programId/days/:dayId", adminHandler.DeleteDay)
			adminGroup.POST("/programs/:programId/days/:dayId/move", adminHandler.MoveDay)

			adminGroup.POST("/days/:dayId/items", adminHandler.AddItem)
			adminGroup.PUT("/items/:itemId", adminHandler.UpdateItem)
			adminGroup.DELETE("/days/:dayId/items/:itemId", adminHandler.DeleteItem)
			adminGroup.POST("/days/:dayId/items/:itemId/move", adminHandler.MoveItem)
			adminGroup.PUT("/items/:itemId/video", adminHandler.SetItemVideo)

			adminGroup.POST("/items/:itemId/alternatives", adminHandler.AddAlternative)
			adminGroup.DELETE("/items/:itemId/alternatives/:altId", adminHandler.RemoveAlternative)

			adminGroup.POST("/items/:itemId/video-upload", adminHandler.RequestVideoUpload)
			adminGroup.POST("/items/:itemId/video-upload/confirm", adminHandler.ConfirmVideoUpload)
			adminGroup.GET("/items/:itemId/demo-video", adminHandler.GetItemVideoDownloadURL)
			adminGroup.GET("/uploads/:uploadId/download-url", adminHandler.GetVideoDownloadURL)
		}
	}
}
