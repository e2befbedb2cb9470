package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/pkg/response"
	"github.com/xxxsen/membot/internal/rank"
	"github.com/xxxsen/membot/internal/service"
)

type RAGBackend interface {
	Ask(ctx context.Context, question string, k int) (*service.AskResult, error)
	Search(ctx context.Context, query string, k int) ([]rank.Scored, error)
}

type RAGHandler struct {
	rag RAGBackend
}

func NewRAGHandler(rag RAGBackend) *RAGHandler {
	return &RAGHandler{rag: rag}
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *RAGHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	res, err := h.rag.Ask(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *RAGHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	results, err := h.rag.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}
