package http

import (
	"context"
	"net/http"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	service *app.Service
}

// actorBody identifies who performs a room operation.
type actorBody struct {
	UserID string `json:"userId"`
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, domain.Validation("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (h *handlers) createUser(c *gin.Context) {
	var in app.NewUser
	if !bind(c, &in) {
		return
	}
	user, err := h.service.Users.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handlers) getUser(c *gin.Context) {
	user, err := h.service.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handlers) createRoom(c *gin.Context) {
	var in app.NewRoom
	if !bind(c, &in) {
		return
	}
	room, err := h.service.Rooms.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms, err := h.service.Rooms.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *handlers) getRoom(c *gin.Context) {
	room, err := h.service.Rooms.Presence(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) joinRoom(c *gin.Context) {
	var in actorBody
	if !bind(c, &in) {
		return
	}
	room, err := h.service.Rooms.Join(c.Request.Context(), c.Param("code"), in.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) listQuestions(c *gin.Context) {
	questions, err := h.service.Rooms.Questions(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *handlers) addQuestion(c *gin.Context) {
	var in app.NewQuestion
	if !bind(c, &in) {
		return
	}
	q, err := h.service.Rooms.AddQuestion(c.Request.Context(), c.Param("code"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// removeQuestion takes the acting user from the userId query parameter.
func (h *handlers) removeQuestion(c *gin.Context) {
	err := h.service.Rooms.RemoveQuestion(c.Request.Context(), c.Param("code"), c.Param("questionId"), c.Query("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type transitionFunc func(ctx context.Context, code, userID string) (domain.Room, error)

func (h *handlers) transition(c *gin.Context, fn transitionFunc) {
	var in actorBody
	if !bind(c, &in) {
		return
	}
	room, err := fn(c.Request.Context(), c.Param("code"), in.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) finalizeRoom(c *gin.Context) { h.transition(c, h.service.Rooms.Finalize) }

func (h *handlers) startRoom(c *gin.Context) { h.transition(c, h.service.Rooms.Start) }

func (h *handlers) finishRoom(c *gin.Context) { h.transition(c, h.service.Rooms.Finish) }

func (h *handlers) submitAnswer(c *gin.Context) {
	var in app.AnswerInput
	if !bind(c, &in) {
		return
	}
	res, err := h.service.Ledger.Submit(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) ranking(c *gin.Context) {
	entries, err := h.service.Ranking.Ranking(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handlers) userStats(c *gin.Context) {
	stats, err := h.service.Ranking.UserStats(c.Request.Context(), c.Param("code"), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
