package api

import (
	"context"
	"fmt"
	"mime"
	"net/http"

	apperrors "spotfinder_go_backend/internal/errors"
	"spotfinder_go_backend/internal/models"
	"spotfinder_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func SetupRoutes(r *gin.Engine, conversationService *services.ConversationService, exportService *services.ExportService, submitLimiter *rate.Limiter) {
	limited := rateLimitMiddleware(submitLimiter)

	api := r.Group("/api")
	{
		api.GET("/state", getStateHandler(conversationService))
		api.PUT("/preferences", updatePreferencesHandler(conversationService))
		api.POST("/preferences/location", toggleLocationHandler(conversationService))
		api.DELETE("/preferences/location", clearLocationHandler(conversationService))

		api.GET("/sessions", listSessionsHandler(conversationService))
		api.POST("/sessions/new", newChatHandler(conversationService))
		api.GET("/sessions/:id", getSessionHandler(conversationService))
		api.PATCH("/sessions/:id", updateSessionHandler(conversationService))
		api.DELETE("/sessions/:id", deleteSessionHandler(conversationService))
		api.POST("/sessions/:id/select", selectSessionHandler(conversationService))
		api.GET("/sessions/:id/export", exportSessionHandler(exportService))

		api.POST("/chat/submit", limited, submitHandler(conversationService))
		api.POST("/chat/regenerate", limited, regenerateHandler(conversationService))
		api.POST("/chat/edit", limited, editHandler(conversationService))
		api.GET("/search", limited, deepLinkHandler(conversationService))
	}
}

// rateLimitMiddleware rejects requests beyond the limiter's budget with 429.
// A nil limiter disables limiting.
func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			log.Warn().Str("path", c.FullPath()).Msg("Submission rate limit exceeded")
			apperrors.HandleError(c, apperrors.New429Error())
			return
		}
		c.Next()
	}
}

func getStateHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.State())
	}
}

func updatePreferencesHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Language  *models.Language `json:"language"`
			DeepThink *bool            `json:"deepThink"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		state := svc.State()
		if request.Language != nil {
			var err error
			if state, err = svc.SetLanguage(*request.Language); err != nil {
				apperrors.HandleError(c, err)
				return
			}
		}
		if request.DeepThink != nil {
			state = svc.SetDeepThink(*request.DeepThink)
		}
		c.JSON(http.StatusOK, state)
	}
}

// toggleLocationHandler toggles location bias. The client reports the
// position it read, or denied=true when the user refused access.
func toggleLocationHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
			Denied    bool     `json:"denied"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&request); err != nil {
				apperrors.HandleError(c, apperrors.New400Error(err.Error()))
				return
			}
		}

		locator := services.LocatorFunc(func(ctx context.Context) (models.Location, error) {
			if request.Denied || request.Latitude == nil || request.Longitude == nil {
				return models.Location{}, services.ErrLocationDenied
			}
			return models.Location{Latitude: *request.Latitude, Longitude: *request.Longitude}, nil
		})

		state, err := svc.ToggleLocation(c.Request.Context(), locator)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

func clearLocationHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.ClearLocation())
	}
}

func listSessionsHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": svc.ListSessions()})
	}
}

func newChatHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.NewChat())
	}
}

func getSessionHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := svc.GetSession(c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func updateSessionHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Title *string `json:"title"`
			Color *string `json:"color"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}
		if request.Title == nil && request.Color == nil {
			apperrors.HandleError(c, apperrors.New400Error("title or color is required"))
			return
		}

		id := c.Param("id")
		session, err := svc.GetSession(id)
		if request.Title != nil && err == nil {
			session, err = svc.RenameSession(id, *request.Title)
		}
		if request.Color != nil && err == nil {
			session, err = svc.SetSessionColor(id, models.SessionColor(*request.Color))
		}
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func deleteSessionHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteSession(c.Param("id")); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func selectSessionHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := svc.SelectSession(c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session, "state": svc.State()})
	}
}

func exportSessionHandler(exportService *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename, data, err := exportService.ExportSession(c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		c.Data(http.StatusOK, "application/pdf", data)
	}
}

func submitHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Query string `json:"query" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		session, err := svc.Submit(c.Request.Context(), request.Query)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func regenerateHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			MessageID string `json:"messageId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		session, err := svc.Regenerate(c.Request.Context(), request.MessageID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func editHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			MessageID string `json:"messageId" binding:"required"`
			Text      string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		session, err := svc.EditAndResubmit(c.Request.Context(), request.MessageID, request.Text)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// deepLinkHandler handles /api/search?q=... as the first visit with a query
// parameter.
func deepLinkHandler(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, submitted, err := svc.DeepLink(c.Request.Context(), c.Query("q"))
		if err != nil {
			apperrors.HandleError(c, fmt.Errorf("deep link: %w", err))
			return
		}
		response := gin.H{"submitted": submitted, "state": svc.State()}
		if submitted {
			response["session"] = session
		}
		c.JSON(http.StatusOK, response)
	}
}
