package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler streams room events to a websocket and accepts answers over it.
type WSHandler struct {
	service        *app.Service
	log            zerolog.Logger
	requestTimeout time.Duration
	upgrader       websocket.Upgrader
}

func NewWSHandler(service *app.Service, logger zerolog.Logger, requestTimeout time.Duration) *WSHandler {
	return &WSHandler{
		service:        service,
		log:            logger,
		requestTimeout: requestTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	UserID        string `json:"userId"`
	QuestionID    string `json:"questionId"`
	AlternativeID string `json:"alternativeId"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Success    bool   `json:"success"`
	IsCorrect  bool   `json:"isCorrect"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string      `json:"message"`
	Kind    domain.Kind `json:"kind"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error(), Kind: domain.KindOf(err)}}
}

// ServeWS handles GET /rooms/:code/events. The optional userId query
// parameter is used for answers that do not name a user.
func (h *WSHandler) ServeWS(c *gin.Context) {
	userID := c.Query("userId")

	// Subscribe before upgrading so an unknown room is a plain 404.
	room, events, cancel, err := h.service.Subscribe(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("room", room.Code).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	// After a failed write it keeps draining so producers never block.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("room", room.Code).Msg("ws write error")
				failed = true
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(evt.Type), Payload: evt.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "subscribed", Payload: room}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			send <- h.answer(c.Request.Context(), room.Code, userID, inbound.Payload)
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type", Kind: domain.KindValidation}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) answer(ctx context.Context, roomCode, userID string, raw json.RawMessage) outboundMessage {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorMessage(domain.Validation("invalid answer payload"))
	}
	if payload.UserID == "" {
		payload.UserID = userID
	}
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	res, err := h.service.Ledger.Submit(ctx, app.AnswerInput{
		RoomCode:      roomCode,
		UserID:        payload.UserID,
		QuestionID:    payload.QuestionID,
		AlternativeID: payload.AlternativeID,
	})
	if err != nil {
		return errorMessage(err)
	}
	return outboundMessage{Type: "answer-result", Payload: answerResult{
		QuestionID: payload.QuestionID,
		Success:    res.Accepted,
		IsCorrect:  res.IsCorrect,
	}}
}
