package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/knowledge"
	"github.com/xxxsen/membot/internal/pkg/errcode"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/pkg/response"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	clientID, _ := c.Get("client_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Any("client_id", clientID),
		zap.Error(err),
	)
	var genErr *ai.GenerationError
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, knowledge.ErrCorpusLoad):
		response.Error(c, errcode.ErrKnowledgeUnavailable, "knowledge corpus unavailable")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai service unavailable")
	case errors.Is(err, ai.ErrInvalidCredential), errors.Is(err, ai.ErrMissingCredential):
		response.Error(c, errcode.ErrAIInvalidCredential, "ai credential rejected")
	case errors.As(err, &genErr):
		response.Error(c, errcode.ErrAIGeneration, genErr.Error())
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func parseLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
