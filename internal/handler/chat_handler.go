package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/membot/internal/model"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/pkg/response"
	"github.com/xxxsen/membot/internal/service"
)

type ChatBackend interface {
	HandleTurn(ctx context.Context, input string) (*service.TurnResult, error)
	History(ctx context.Context, limit int) ([]model.Turn, error)
	Summaries(ctx context.Context, limit int) ([]model.Summary, error)
}

type ChatHandler struct {
	chat ChatBackend
}

func NewChatHandler(chat ChatBackend) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	res, err := h.chat.HandleTurn(c.Request.Context(), req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"seq":        res.Turn.Seq,
		"reply":      res.Reply,
		"failed":     res.Failed,
		"summarized": res.Summarized,
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	turns, err := h.chat.History(c.Request.Context(), parseLimit(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"turns": turns})
}

func (h *ChatHandler) Summaries(c *gin.Context) {
	summaries, err := h.chat.Summaries(c.Request.Context(), parseLimit(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"summaries": summaries})
}
