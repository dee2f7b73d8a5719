package http

import (
	"context"
	"net/http"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter exposes the quiz room API. Every REST request runs under
// requestTimeout; the event stream is exempt because it is long-lived.
func NewRouter(service *app.Service, logger zerolog.Logger, requestTimeout time.Duration) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	h := &handlers{service: service}
	ws := NewWSHandler(service, logger, requestTimeout)
	r.GET("/rooms/:code/events", ws.ServeWS)

	api := r.Group("/", withTimeout(requestTimeout))
	api.POST("/users", h.createUser)
	api.GET("/users/:id", h.getUser)

	api.POST("/rooms", h.createRoom)
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:code", h.getRoom)
	api.POST("/rooms/:code/join", h.joinRoom)
	api.GET("/rooms/:code/questions", h.listQuestions)
	api.POST("/rooms/:code/questions", h.addQuestion)
	api.DELETE("/rooms/:code/questions/:questionId", h.removeQuestion)
	api.POST("/rooms/:code/finalize", h.finalizeRoom)
	api.POST("/rooms/:code/start", h.startRoom)
	api.POST("/rooms/:code/finish", h.finishRoom)
	api.GET("/rooms/:code/ranking", h.ranking)
	api.GET("/rooms/:code/users/:userId/stats", h.userStats)

	api.POST("/answers", h.submitAnswer)
	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	}
}

func withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type errorBody struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}

// writeError maps the error kind to a status code.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	c.AbortWithStatusJSON(statusFor(kind), errorBody{Error: err.Error(), Kind: kind})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
